package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	conversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psdconvert",
			Name:      "conversions_total",
			Help:      "Total rasterizer invocations by result (success, failure)",
		},
		[]string{"result"},
	)

	conversionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "psdconvert",
			Name:      "conversion_duration_seconds",
			Help:      "Duration of single rasterizer invocations",
			Buckets:   prometheus.DefBuckets,
		},
	)

	batches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psdconvert",
			Name:      "batches_total",
			Help:      "Conversion requests by outcome (ok, rejected, failed)",
		},
		[]string{"outcome"},
	)

	batchFiles = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "psdconvert",
			Name:      "batch_files",
			Help:      "Number of files submitted per conversion request",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)

	sweptFiles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "psdconvert",
			Name:      "swept_files_total",
			Help:      "Stale working files removed by the retention sweeper",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(conversions, conversionLatency, batches, batchFiles, sweptFiles)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveConversion(success bool, dur time.Duration) {
	conversions.WithLabelValues(resultLabel(success)).Inc()
	conversionLatency.Observe(dur.Seconds())
}

func IncBatch(outcome string, files int) {
	batches.WithLabelValues(outcome).Inc()
	batchFiles.Observe(float64(files))
}

func AddSwept(n int) { sweptFiles.Add(float64(n)) }

func resultLabel(success bool) string { if success { return "success" }; return "failure" }
