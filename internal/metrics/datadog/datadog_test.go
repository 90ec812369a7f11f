package datadog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atexport/internal/metrics"
)

type sent struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	sent     []sent
	closed   int
	closeErr error
}

func (f *fakeClient) Count(name string, v int64, tags []string, _ float64) error {
	f.sent = append(f.sent, sent{"count", name, float64(v), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, v float64, tags []string, _ float64) error {
	f.sent = append(f.sent, sent{"histogram", name, v, tags})
	return nil
}

func (f *fakeClient) Close() error {
	f.closed++
	return f.closeErr
}

func TestBackendSendsTaggedMetrics(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := NewWithClient(fc)

	b.IncCounter(metrics.RowsTotal, 7.9, metrics.Labels{"kind": "inserted", "job": "export"})
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.25, metrics.Labels{"step": "create-sql", "status": "success", "job": "export"})
	b.IncCounter(metrics.BatchesTotal, 1, nil)

	require.Len(t, fc.sent, 3)
	assert.Equal(t, sent{"count", metrics.RowsTotal, 7, []string{"job:export", "kind:inserted"}}, fc.sent[0])
	assert.Equal(t, sent{"histogram", metrics.StepDurationSeconds, 0.25, []string{"job:export", "status:success", "step:create-sql"}}, fc.sent[1])
	assert.Nil(t, fc.sent[2].tags)

	require.NoError(t, b.Flush())
	assert.Equal(t, 1, fc.closed)
}

func TestFlushError(t *testing.T) {
	t.Parallel()

	b := NewWithClient(&fakeClient{closeErr: errors.New("socket gone")})
	require.ErrorContains(t, b.Flush(), "socket gone")
}

func TestNilClientIsSafe(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.StepTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDurationSeconds, 1, nil)
	require.NoError(t, b.Flush())
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	_, err := NewBackend(Config{})
	require.Error(t, err)

	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "atexport.", Tags: []string{"env:test"}})
	require.NoError(t, err)
	require.NoError(t, b.Flush())
}
