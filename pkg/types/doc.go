/*
Package types defines the agent's domain model: the object kinds the
store and engine operate on (GPU, GPUWatch, Task), their spec/status/stats
shapes, the status-code taxonomy used for every fallible operation, and
the small enums (admin state, performance level, clock type, memory and
compute partition type) referenced by the GPU update path.

Nothing in this package talks to hardware or holds concurrency state —
it is shared, inert data shape used by every other package.
*/
package types
