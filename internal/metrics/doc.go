// Package metrics records state store activity.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	b := bootstrap.New(primary, fallback, bootstrap.WithRecorder(metrics.NoopRecorder{}))
//
// When metrics are enabled, swap in a PrometheusRecorder registered on the
// registry that HTTPHandler serves:
//
//	reg := metrics.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	mux.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
