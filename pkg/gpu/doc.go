/*
Package gpu implements the GPU entity logic (C5): the engine.Handlers
wiring for types.KindGPU (factory, create/update/delete handlers), the
update-mask diffing and validation behind GPU.Update, and the read-side
projections (read, fill_gpu_watch_stats, read_topology) the RPC
boundary and watcher call directly against the store.

Everything here assumes it runs either on the engine goroutine (the
Handlers functions) or against an object no other goroutine is
currently mutating (read-side helpers, called by RPC handlers that only
read). The per-GPU mutex in types.GPU exists for exactly that boundary.
*/
package gpu
