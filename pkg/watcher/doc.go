/*
Package watcher implements the watcher thread (C6): a 1s sampling tick
that refreshes every GPU's cached watch-vector through the engine, an
every-Nth-tick subscriber fan-out over the GPU-watch store, and the
process-local ingress for watch-subscribe requests arriving from the
RPC boundary.

Ticker structure is grounded on pkg/worker/health_monitor.go's
monitorLoop/syncHealthChecks shape, generalized from one 5s cadence to
two cadences (1s sample, 5-tick fan-out) derived from a single ticker,
per spec §4.5.
*/
package watcher
