package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "lobserver"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	backendOps    *prom.HistogramVec
	backendOpsN   *prom.CounterVec
	fallbacks     *prom.CounterVec
	degraded      prom.Gauge
	updates       *prom.CounterVec
	documentBytes prom.Gauge
	reloads       *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.backendOps = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_operation_duration_seconds",
			Help:      "Duration of state backend operations",
			Buckets:   prom.DefBuckets,
		}, []string{"backend", "op"})
		pr.backendOpsN = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "backend_operations_total",
			Help:      "State backend operations by outcome",
		}, []string{"backend", "op", "result"})
		pr.fallbacks = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Backend fallbacks taken during startup",
		}, []string{"from", "to"})
		pr.degraded = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "degraded",
			Help:      "1 when the preferred backend is not in use",
		})
		pr.updates = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Whole-document replacements by persistence outcome",
		}, []string{"result"})
		pr.documentBytes = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "document_bytes",
			Help:      "Compact size of the cached state document",
		})
		pr.reloads = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Reloads from the active backend by outcome",
		}, []string{"result"})
		reg.MustRegister(pr.backendOps, pr.backendOpsN, pr.fallbacks, pr.degraded, pr.updates, pr.documentBytes, pr.reloads)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveBackendOp(backend, op string, d time.Duration, result ResultLabel) {
	if p == nil || p.backendOps == nil {
		return
	}
	p.backendOps.WithLabelValues(backend, op).Observe(d.Seconds())
	p.backendOpsN.WithLabelValues(backend, op, string(result)).Inc()
}

func (p *PrometheusRecorder) IncFallback(from, to string) {
	if p == nil || p.fallbacks == nil {
		return
	}
	p.fallbacks.WithLabelValues(from, to).Inc()
}

func (p *PrometheusRecorder) SetDegraded(degraded bool) {
	if p == nil || p.degraded == nil {
		return
	}
	v := 0.0
	if degraded {
		v = 1
	}
	p.degraded.Set(v)
}

func (p *PrometheusRecorder) IncUpdate(result ResultLabel) {
	if p == nil || p.updates == nil {
		return
	}
	p.updates.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetDocumentBytes(n int) {
	if p == nil || p.documentBytes == nil {
		return
	}
	p.documentBytes.Set(float64(n))
}

func (p *PrometheusRecorder) IncReload(result ResultLabel) {
	if p == nil || p.reloads == nil {
		return
	}
	p.reloads.WithLabelValues(string(result)).Inc()
}
