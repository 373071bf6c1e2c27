package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	fileActions   *prom.CounterVec
	missingAssets prom.Counter
	coalesced     prom.Counter
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "simplest",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "simplest",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		fileActions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "simplest",
			Name:      "file_actions_total",
			Help:      "Files handled per build by terminal action",
		}, []string{"action"}),
		missingAssets: prom.NewCounter(prom.CounterOpts{
			Namespace: "simplest",
			Name:      "missing_assets_total",
			Help:      "Asset references left unhashed because the asset was not found",
		}),
		coalesced: prom.NewCounter(prom.CounterOpts{
			Namespace: "simplest",
			Name:      "rebuilds_coalesced_total",
			Help:      "Rebuild requests folded into an already pending rebuild",
		}),
	}
	reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.fileActions, pr.missingAssets, pr.coalesced)
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcome) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncFileAction(action string) {
	if p == nil {
		return
	}
	p.fileActions.WithLabelValues(action).Inc()
}

func (p *PrometheusRecorder) IncMissingAsset() {
	if p == nil {
		return
	}
	p.missingAssets.Inc()
}

func (p *PrometheusRecorder) IncRebuildCoalesced() {
	if p == nil {
		return
	}
	p.coalesced.Inc()
}
