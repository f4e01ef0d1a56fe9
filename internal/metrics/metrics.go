// Package metrics exposes the outcome of verification runs as Prometheus
// metrics and writes them in the node-exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"loraverify/pkg/types"
)

var (
	registry = prometheus.NewRegistry()

	parameters = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "loraverify",
			Subsystem: "model",
			Name:      "parameters",
			Help:      "Parameter elements per counting stage",
		},
		[]string{"config", "stage"},
	)

	adaptersInjected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "loraverify",
			Subsystem: "model",
			Name:      "adapters_injected",
			Help:      "Adapter-augmented modules found in the model",
		},
		[]string{"config"},
	)

	trainableRatio = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "loraverify",
			Subsystem: "model",
			Name:      "trainable_ratio",
			Help:      "Trainable fraction of parameters after freezing",
		},
		[]string{"config"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loraverify",
			Name:      "runs_total",
			Help:      "Verification runs by outcome and failure kind",
		},
		[]string{"outcome", "kind"},
	)

	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "loraverify",
			Name:      "run_duration_seconds",
			Help:      "Duration of verification runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	registry.MustRegister(parameters, adaptersInjected, trainableRatio, runsTotal, runDuration)
}

// Registry returns the registry holding the verifier metrics.
func Registry() *prometheus.Registry { return registry }

// Observe records one finished run.
func Observe(rep types.ReportResponse, took time.Duration) {
	outcome, kind := "pass", rep.FailureKind
	if !rep.Passed {
		outcome = "fail"
	}
	if kind == "" {
		kind = "none"
	}
	runsTotal.WithLabelValues(outcome, kind).Inc()
	runDuration.Observe(took.Seconds())

	cfg := rep.Path
	p := rep.Params
	parameters.WithLabelValues(cfg, "total").Set(float64(p.Total))
	parameters.WithLabelValues(cfg, "trainable_before").Set(float64(p.TrainableBefore))
	parameters.WithLabelValues(cfg, "trainable_after").Set(float64(p.TrainableAfter))
	parameters.WithLabelValues(cfg, "adapter").Set(float64(p.Adapter))
	parameters.WithLabelValues(cfg, "adapter_trainable").Set(float64(p.AdapterTrainable))
	adaptersInjected.WithLabelValues(cfg).Set(float64(len(rep.Adapters)))
	trainableRatio.WithLabelValues(cfg).Set(p.Ratio)
}

// WriteTextfile writes every metric to path. The file is replaced atomically.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, registry)
}
