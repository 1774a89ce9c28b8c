/*
Package store is the agent's in-memory object database (C2): three
independent maps — GPU by key, GPU-watch by key, and a GPU-by-handle
secondary index — each with insert/remove/find/walk and per-store
counters.

Every map is guarded by its store's RWMutex, since the GPU-watch map is
read from both the engine goroutine and the watcher's subscriber fan-out
goroutine and the GPU maps are read from RPC and background goroutines.
Walk copies the entries under the read lock and runs its callback
without it; a callback that does not take the GPU's own lock may only
read the immutable fields (key, parent key, handle, hardware id) of each
entry — mutating a GPU found this way is a contract violation, not a
type error Go can catch.
*/
package store
