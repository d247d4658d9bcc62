package metrics

import "time"

// ResultLabel enumerates operation outcomes used as counter labels.
type ResultLabel string

const (
	ResultSuccess   ResultLabel = "success"
	ResultError     ResultLabel = "error"
	ResultNotFound  ResultLabel = "not_found"
	ResultCorrupt   ResultLabel = "corrupt"
	ResultChanged   ResultLabel = "changed"
	ResultUnchanged ResultLabel = "unchanged"
	ResultSkipped   ResultLabel = "skipped"
)

// Recorder defines observability hooks for the state store. Implementations
// may forward to Prometheus or anything else. NoopRecorder is the default.
type Recorder interface {
	// ObserveBackendOp records one backend call (op: probe|load|save|quarantine).
	ObserveBackendOp(backend, op string, d time.Duration, result ResultLabel)
	IncFallback(from, to string)
	SetDegraded(degraded bool)
	IncUpdate(result ResultLabel)
	SetDocumentBytes(n int)
	IncReload(result ResultLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBackendOp(string, string, time.Duration, ResultLabel) {}
func (NoopRecorder) IncFallback(string, string)                                  {}
func (NoopRecorder) SetDegraded(bool)                                            {}
func (NoopRecorder) IncUpdate(ResultLabel)                                       {}
func (NoopRecorder) SetDocumentBytes(int)                                        {}
func (NoopRecorder) IncReload(ResultLabel)                                       {}
