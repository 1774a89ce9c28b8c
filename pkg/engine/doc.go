/*
Package engine implements the API engine (C3): the single writer that
serializes every CREATE/UPDATE/DELETE against the object store.

Callers never touch a kind's store directly for writes; they build a
Request and call Engine.Submit, which marshals it onto a channel
consumed by one goroutine (Engine.run). Each object kind registers a
Handlers value — factory, create/update/delete handlers, and thin
store glue — so the engine's CREATE/UPDATE/DELETE algorithm stays kind-
agnostic, the way a single FSM Apply switch would otherwise hardcode
per-kind cases. Deleted objects are not freed synchronously: they are
handed to a reaper goroutine that destroys them after a fixed delay,
giving in-flight readers a bounded window to finish.
*/
package engine
