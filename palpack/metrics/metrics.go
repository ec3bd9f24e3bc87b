package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/flaneur2020/palpack/palpack"
	palerrors "github.com/flaneur2020/palpack/palpack/errors"
)

// Recorder owns a private registry so that tests and repeated runs in one
// process do not collide on the default one.
type Recorder struct {
	registry *prometheus.Registry

	EntriesProcessed  *prometheus.CounterVec
	ContainerEntries  prometheus.Gauge
	StoredBytes       prometheus.Gauge
	SourceBytes       prometheus.Gauge
	OperationDuration *prometheus.GaugeVec
	OperationErrors   *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		EntriesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "palpack_entries_processed_total",
				Help: "Entries finished, by phase",
			},
			[]string{"phase"},
		),
		ContainerEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "palpack_container_entries",
				Help: "Number of entries in the last container handled",
			},
		),
		StoredBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "palpack_container_stored_bytes",
				Help: "Compressed payload bytes in the last container handled",
			},
		),
		SourceBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "palpack_container_source_bytes",
				Help: "Uncompressed track bytes in the last container handled",
			},
		),
		OperationDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "palpack_operation_duration_seconds",
				Help: "Wall time of the last operation",
			},
			[]string{"operation"},
		),
		OperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "palpack_operation_errors_total",
				Help: "Failed operations, by operation and error code",
			},
			[]string{"operation", "code"},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Progress returns a callback counting finished entries per phase.
func (r *Recorder) Progress() palpack.ProgressCallback {
	return func(phase palpack.Phase, current, total int) {
		if palpack.EntriesDone(phase, current) > 0 {
			r.EntriesProcessed.WithLabelValues(string(phase)).Inc()
		}
	}
}

// ObserveMetadata records the size of a library.
func (r *Recorder) ObserveMetadata(meta *palpack.Metadata) {
	r.ContainerEntries.Set(float64(len(meta.Entries)))
	r.StoredBytes.Set(float64(meta.StoredSize()))
	r.SourceBytes.Set(float64(meta.SourceSize()))
}

// ObserveOperation records how long op took and, on failure, its error code.
// Errors without a code are counted as "io".
func (r *Recorder) ObserveOperation(op string, d time.Duration, err error) {
	r.OperationDuration.WithLabelValues(op).Set(d.Seconds())
	if err == nil {
		return
	}
	code := palerrors.GetErrorCode(err)
	if code == "" {
		code = "io"
	}
	r.OperationErrors.WithLabelValues(op, code).Inc()
}

// WriteTextfile atomically writes every metric to path.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
