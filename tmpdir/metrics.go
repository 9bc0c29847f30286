package tmpdir

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("github.com/quay/testtmp/tmpdir",
		trace.WithSchemaURL(semconv.SchemaURL),
	)
}

// Cleanup outcomes, used as the "result" label.
const (
	resultRemoved = "removed"
	resultKept    = "kept"
	resultFailed  = "failed"
)

var (
	createdCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "testtmp",
			Subsystem: "tmpdir",
			Name:      "created_total",
			Help:      "Total number of test directories allocated.",
		},
	)
	cleanupCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "testtmp",
			Subsystem: "tmpdir",
			Name:      "cleanup_total",
			Help:      "Total number of directory cleanups, by outcome.",
		},
		[]string{"result"},
	)
	removeAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "testtmp",
			Subsystem: "tmpdir",
			Name:      "remove_attempts_total",
			Help:      "Total number of recursive removal attempts.",
		},
	)
	cleanupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "testtmp",
			Subsystem: "tmpdir",
			Name:      "cleanup_duration_seconds",
			Help:      "Time spent removing a test directory, including retries.",
		},
	)
)
