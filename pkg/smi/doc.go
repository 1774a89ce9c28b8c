/*
Package smi is the hardware adaptation boundary (C1): an interface the
rest of the agent depends on, translating domain enums to and from an
AMD GPU management library, plus a deterministic in-memory Simulator
implementing that interface for environments with no GPU hardware.

Every method is documented as synchronous and safe to call concurrently
for distinct handles — the core never serializes calls into this
package beyond what a single caller already does. Swapping the
Simulator for a real hardware binding is the only change needed to run
this agent against physical devices, mirroring the two compile-time SMI
backends the original agent ships.
*/
package smi
