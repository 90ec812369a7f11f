package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"atexport/internal/metrics"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}

func summaryCount(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()
	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	if !ok {
		t.Fatalf("summary does not implement prometheus.Metric")
	}
	if err := metric.Write(m); err != nil {
		t.Fatalf("Summary.Write() error = %v", err)
	}
	return m.GetSummary().GetSampleCount(), m.GetSummary().GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, job, url, wantJob string
		wantErr                 bool
	}{
		{name: "missing gateway", job: "x", wantErr: true},
		{name: "default job", url: "http://pushgateway:9091", wantJob: "atexport"},
		{name: "explicit job", job: "nightly", url: "http://pushgateway:9091", wantJob: "nightly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend(tt.job, tt.url)
			if tt.wantErr {
				if err == nil || b != nil {
					t.Fatalf("NewBackend(%q, %q) = %v, %v; want nil, error", tt.job, tt.url, b, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend() error = %v", err)
			}
			if b.jobName != tt.wantJob {
				t.Fatalf("jobName = %q, want %q", b.jobName, tt.wantJob)
			}
		})
	}
}

func TestIncCounterRoutes(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}

	b.IncCounter(metrics.StepTotal, 2, metrics.Labels{"step": "create-db", "status": "success"})
	b.IncCounter(metrics.RowsTotal, 5, metrics.Labels{"kind": metrics.KindInserted})
	b.IncCounter(metrics.BatchesTotal, 1, nil)
	b.IncCounter(metrics.BatchesTotal, 0.5, nil)
	b.IncCounter("unknown", 10, metrics.Labels{"kind": metrics.KindInserted})

	if got := counterValue(t, b.stepCounter.WithLabelValues("create-db", "success")); got != 2 {
		t.Fatalf("step counter = %v, want 2", got)
	}
	if got := counterValue(t, b.rowCounter.WithLabelValues(metrics.KindInserted)); got != 5 {
		t.Fatalf("row counter = %v, want 5", got)
	}
	if got := counterValue(t, b.batchCounter); got != 1.5 {
		t.Fatalf("batch counter = %v, want 1.5", got)
	}
}

func TestZeroBackendIsSafe(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{})
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{})
	b.IncCounter(metrics.BatchesTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDurationSeconds, 1, nil)
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	lbls := metrics.Labels{"step": "load-db", "status": "success"}
	b.ObserveHistogram(metrics.StepDurationSeconds, 1.5, lbls)
	b.ObserveHistogram("other", 9, lbls)

	n, sum := summaryCount(t, b.stepDuration, "load-db", "success")
	if n != 1 || sum != 1.5 {
		t.Fatalf("summary = %d samples, sum %v; want 1, 1.5", n, sum)
	}
}

func TestFlushPushesToGateway(t *testing.T) {
	t.Parallel()

	type pushed struct {
		method, path, body string
	}
	got := make(chan pushed, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- pushed{r.Method, r.URL.Path, string(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	b, err := NewBackend("atexport", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter(metrics.RowsTotal, 3, metrics.Labels{"kind": metrics.KindDownloaded})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	select {
	case p := <-got:
		if p.method != http.MethodPut {
			t.Fatalf("method = %s, want PUT", p.method)
		}
		if !strings.Contains(p.path, "/job/atexport") {
			t.Fatalf("path = %q, want job grouping key", p.path)
		}
		if p.body == "" {
			t.Fatal("empty push body")
		}
	default:
		t.Fatal("Flush did not reach the gateway")
	}
}

func TestFlushReportsGatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	if err := b.Flush(); err == nil {
		t.Fatal("Flush() error = nil, want gateway failure")
	}
}
