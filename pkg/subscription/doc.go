/*
Package subscription implements the registry (C8) shared by the watcher
and event monitor: two tables mapping GPU events and GPU-watch groups to
the set of clients currently streaming them, adapted from
pkg/events.Broker's subscriber-set-under-mutex shape to the spec's
per-(GPU,kind) and per-watch-group sets with explicit inactive-flag
teardown instead of a closed channel.

A Client becomes inactive the first time any of its callbacks returns a
non-OK status; Reap then removes it from every set across both tables
and signals its condition variable so the owning streaming goroutine can
exit.
*/
package subscription
