package metrics

import (
	"testing"
	"time"
)

// Compile-time checks.
var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveBackendOp("remote", "probe", time.Millisecond, ResultError)
	r.IncFallback("remote", "file")
	r.SetDegraded(true)
	r.IncUpdate(ResultSuccess)
	r.SetDocumentBytes(10)
	r.IncReload(ResultUnchanged)
}
