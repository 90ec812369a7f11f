package storage

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atexport/internal/schema"
)

type fakeRepo struct {
	execs  []string
	copies [][][]any
	closed bool
}

func (f *fakeRepo) CopyFrom(_ context.Context, _ []string, rows [][]any) (int64, error) {
	f.copies = append(f.copies, append([][]any(nil), rows...))
	return int64(len(rows)), nil
}

func (f *fakeRepo) Exec(_ context.Context, sql string) error {
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeRepo) Close() { f.closed = true }

func TestNew_Registry(t *testing.T) {
	repo := &fakeRepo{}
	var got Config
	Register("fake-registry", func(_ context.Context, cfg Config) (Repository, error) {
		got = cfg
		return repo, nil
	})

	r, err := New(context.Background(), Config{Kind: " Fake-Registry ", DSN: "x", Table: "t"})
	require.NoError(t, err)
	assert.Same(t, repo, r)
	assert.Equal(t, "fake-registry", got.Kind)
	assert.Contains(t, Kinds(), "fake-registry")

	_, err = New(context.Background(), Config{Kind: "fake-registry"})
	require.Error(t, err, "table is required")

	_, err = New(context.Background(), Config{Kind: "nope", Table: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown kind "nope"`)
}

func TestEnsureTable(t *testing.T) {
	var seen schema.Table
	RegisterDDL("fake-ddl", func(ctx context.Context, repo Repository, tbl schema.Table) error {
		seen = tbl
		return repo.Exec(ctx, "CREATE "+tbl.SQLTable)
	})
	RegisterDDL("fake-ddl-broken", func(context.Context, Repository, schema.Table) error {
		return errors.New("boom")
	})

	repo := &fakeRepo{}
	tbl := schema.Table{SQLTable: "people"}
	require.NoError(t, EnsureTable(context.Background(), "fake-ddl", repo, tbl))
	assert.Equal(t, "people", seen.SQLTable)
	assert.Equal(t, []string{"CREATE people"}, repo.execs)

	err := EnsureTable(context.Background(), "fake-ddl-broken", repo, tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create table people")

	require.Error(t, EnsureTable(context.Background(), "missing", repo, tbl))
}

func TestLoadBatches(t *testing.T) {
	t.Parallel()

	rows := make([][]any, 5)
	for i := range rows {
		rows[i] = []any{i}
	}

	var sizes []int
	copyFn := func(_ context.Context, cols []string, b [][]any) (int64, error) {
		assert.Equal(t, []string{"n"}, cols)
		sizes = append(sizes, len(b))
		return int64(len(b)), nil
	}

	total, err := LoadBatches(context.Background(), "t", []string{"n"}, Feed(context.Background(), rows), 2, copyFn)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestLoadBatches_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	noop := func(context.Context, []string, [][]any) (int64, error) { return 0, nil }

	_, err := LoadBatches(ctx, "t", nil, nil, 0, noop)
	require.Error(t, err)
	_, err = LoadBatches(ctx, "t", nil, nil, 1, nil)
	require.Error(t, err)

	boom := errors.New("boom")
	failing := func(context.Context, []string, [][]any) (int64, error) { return 0, boom }
	_, err = LoadBatches(ctx, "t", nil, Feed(ctx, [][]any{{1}}), 1, failing)
	assert.ErrorIs(t, err, boom)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = LoadBatches(canceled, "t", nil, make(chan []any), 1, noop)
	assert.ErrorIs(t, err, context.Canceled)
}

// Not parallel: counts goroutines.
func TestLoadRows_StopsFeederOnCopyError(t *testing.T) {
	rows := make([][]any, 10)
	for i := range rows {
		rows[i] = []any{i}
	}
	boom := errors.New("boom")
	failing := func(context.Context, []string, [][]any) (int64, error) { return 0, boom }

	before := runtime.NumGoroutine()
	for range 50 {
		n, err := LoadRows(context.Background(), "t", []string{"n"}, rows, 2, failing)
		require.ErrorIs(t, err, boom)
		assert.Zero(t, n)
	}
	require.Eventually(t, func() bool { return runtime.NumGoroutine() <= before+2 },
		2*time.Second, 10*time.Millisecond, "feeder goroutines still blocked")
}

func TestLoadRows(t *testing.T) {
	t.Parallel()

	var got [][]any
	copyFn := func(_ context.Context, _ []string, b [][]any) (int64, error) {
		got = append(got, b...)
		return int64(len(b)), nil
	}
	n, err := LoadRows(context.Background(), "t", []string{"n"}, [][]any{{1}, {2}, {3}}, 2, copyFn)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, [][]any{{1}, {2}, {3}}, got)
}

func TestJSONArrays(t *testing.T) {
	t.Parallel()

	shared := []any{"a", 1}
	rows := [][]any{{"rec1", []string{"x", "y"}}, shared}

	out, err := JSONArrays(rows)
	require.NoError(t, err)
	assert.Equal(t, `["x","y"]`, out[0][1])
	assert.Equal(t, []string{"x", "y"}, rows[0][1], "input untouched")
	assert.Equal(t, shared, out[1])

	same, err := JSONArrays([][]any{{1}})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{1}}, same)
}

func TestTimesAsText(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	out := TimesAsText([][]any{{ts, "k"}})
	assert.Equal(t, "2024-03-01T11:00:00Z", out[0][0])
	assert.Equal(t, "k", out[0][1])
}
