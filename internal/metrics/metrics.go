// Package metrics records export run metrics through a pluggable backend.
// The default backend discards everything, so callers never need to check
// whether metrics are configured. Concrete backends live in subpackages
// (prompush, datadog).
package metrics

import (
	"sync"
	"time"
)

// Metric names.
const (
	StepTotal           = "atexport_step_total"
	StepDurationSeconds = "atexport_step_duration_seconds"
	RowsTotal           = "atexport_rows_total"
	BatchesTotal        = "atexport_batches_total"
)

// Row kinds counted by RecordRow.
const (
	KindColumns    = "columns"
	KindDownloaded = "downloaded"
	KindInserted   = "inserted"
	KindDiagnostic = "diagnostics"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is what a metrics system has to provide.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. Passing nil keeps the current backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of a pipeline step and its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRow adds delta to the row counter of kind, e.g. KindInserted.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordBatches counts flushed insert batches.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{"job": job})
}
