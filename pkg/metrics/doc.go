/*
Package metrics exposes the agent's Prometheus instrumentation.

Counters and gauges are registered at package init and updated by the
store, engine, discovery, watcher and event-monitor packages as they run;
Handler() returns the promhttp handler an embedder can mount on an HTTP
mux (the RPC boundary is gRPC — metrics are scraped separately). Timer is
a small helper for recording histogram observations around a block of
code:

	t := metrics.NewTimer()
	defer t.ObserveDuration(metrics.WatchTickDuration)
*/
package metrics
