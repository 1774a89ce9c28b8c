/*
Package discovery implements the startup discovery and partition
reconciler (C4): it reads the adapter's flat hardware inventory, detects
partitioned physical GPUs by duplicate identity, and turns that flat
list into a parent/child GPU object graph in the store, issuing every
mutation through the API engine so the result is indistinguishable from
objects created by an RPC.

Discovery runs once, before the watcher, event monitor or RPC server
start accepting work, so its post-CREATE field assignment (hardware id,
handle, partition id, by-handle index insertion, parent/child linking)
is safe even though it mutates *types.GPU fields outside the engine
goroutine — there is no other reader or writer yet.
*/
package discovery
