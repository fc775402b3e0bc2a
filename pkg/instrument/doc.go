// Package instrument plugs the engine's process-wide hooks into
// Prometheus and OpenTelemetry.
//
// NewMetrics returns a collector implementing both atomkit.Observer
// and atomkit.Scheduler, exporting cell creation, notification, and
// pool lifecycle counters:
//
//	m := instrument.NewMetrics()
//	restore := m.Install()
//	defer restore()
//
// NewTracing wraps notification delivery in OpenTelemetry spans and
// chains with any other scheduler:
//
//	atomkit.SetScheduler(instrument.NewTracing(
//		instrument.WithTracingNext(batch),
//	))
package instrument
