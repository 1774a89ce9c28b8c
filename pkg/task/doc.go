/*
Package task wires the four stateless Task kinds (C5c) into the API
engine's dispatch table: GPU-reset, watch-db-update, watch-subscriber-
add, watch-subscriber-del. A Task is allocated per request, executed
synchronously on the engine goroutine by its Create handler, and freed
immediately — it is never inserted into a store (spec §9's resolution
of the "Task uniformly stateless" open question).
*/
package task
