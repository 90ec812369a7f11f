package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend records every call for assertions.
type fakeBackend struct {
	mu sync.Mutex

	counters   []call
	histograms []call
	flushes    int
}

type call struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, call{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, call{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

// install swaps the global backend for the duration of a test. Tests using
// it must not run in parallel.
func install(t *testing.T) *fakeBackend {
	t.Helper()
	orig := current()
	fb := &fakeBackend{}
	SetBackend(fb)
	t.Cleanup(func() { SetBackend(orig) })
	return fb
}

func TestRecordStep(t *testing.T) {
	fb := install(t)

	RecordStep("export", "generate-schema-map", nil, 2*time.Second)
	RecordStep("export", "load-db", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.counters) != 2 || len(fb.histograms) != 2 {
		t.Fatalf("calls = %d counters, %d histograms; want 2 and 2", len(fb.counters), len(fb.histograms))
	}

	c0 := fb.counters[0]
	if c0.name != StepTotal || c0.value != 1 {
		t.Fatalf("counter[0] = %#v; want %s delta 1", c0, StepTotal)
	}
	if c0.labels["step"] != "generate-schema-map" || c0.labels["status"] != "success" || c0.labels["job"] != "export" {
		t.Fatalf("counter[0].labels = %v", c0.labels)
	}
	if got := fb.counters[1].labels["status"]; got != "failure" {
		t.Fatalf("counter[1].labels[status] = %q; want failure", got)
	}

	h0, h1 := fb.histograms[0], fb.histograms[1]
	if h0.name != StepDurationSeconds {
		t.Fatalf("hist[0].name = %q; want %s", h0.name, StepDurationSeconds)
	}
	if h0.value < 1.999 || h0.value > 2.001 {
		t.Fatalf("hist[0].value = %v; want ~2.0", h0.value)
	}
	if h1.value < 1.499 || h1.value > 1.501 {
		t.Fatalf("hist[1].value = %v; want ~1.5", h1.value)
	}
}

func TestRecordRowAndBatches(t *testing.T) {
	fb := install(t)

	RecordRow("export", KindDownloaded, 3)
	RecordRow("export", KindDownloaded, 0) // ignored
	RecordRow("export", KindInserted, 5)
	RecordBatches("export", 2)
	RecordBatches("export", -1) // ignored

	if len(fb.counters) != 3 {
		t.Fatalf("expected 3 counter calls, got %d", len(fb.counters))
	}
	tests := []struct {
		name  string
		value float64
		kind  string
	}{
		{RowsTotal, 3, KindDownloaded},
		{RowsTotal, 5, KindInserted},
		{BatchesTotal, 2, ""},
	}
	for i, tt := range tests {
		c := fb.counters[i]
		if c.name != tt.name || c.value != tt.value || c.labels["kind"] != tt.kind {
			t.Fatalf("counter[%d] = %#v; want %s %v kind=%q", i, c, tt.name, tt.value, tt.kind)
		}
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	fb := install(t)

	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushes != 1 {
		t.Fatalf("flushes = %d; want 1", fb.flushes)
	}

	SetBackend(nil)
	if current() != Backend(fb) {
		t.Fatal("SetBackend(nil) replaced the backend")
	}
}
