/*
Package eventmon implements the event monitor (C7): a single dedicated
goroutine that arms event notification for every discovered GPU, polls
the adapter on a fixed tick, normalizes whatever it drains into
types.EventRecord, and fans each record out through the shared
subscription registry.

Ticker structure is grounded on pkg/worker/health_monitor.go's
monitorLoop/syncHealthChecks shape: one ticker, one dispatch method, a
stop channel selected alongside the ticker case.
*/
package eventmon
