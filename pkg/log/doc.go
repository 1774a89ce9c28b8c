/*
Package log provides structured logging for the agent using zerolog.

It wraps a single global zerolog.Logger, initialized once via Init, with
helpers for component- and object-scoped child loggers (WithComponent,
WithGPUKey, WithHandle). JSON output is used in production; a
console-friendly writer is available for interactive debugging.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	gpuLog := log.WithGPUKey(key.String())
	gpuLog.Info().Msg("gpu discovered")
*/
package log
