package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atexport/internal/schema"
	"atexport/internal/storage"
	sqliteddl "atexport/internal/storage/sqlite/ddl"
)

func strp(s string) *string { return &s }

func peopleTable() schema.Table {
	return schema.Table{
		SQLTable: "people",
		Columns: []schema.Column{
			{SQLColumn: "id", SQLType: "varchar", Extra: "primary key"},
			{Field: strp("Name"), Type: strp("singleLineText"), SQLColumn: "name", SQLType: "VARCHAR"},
			{Field: strp("Tags"), Type: strp("multipleSelects"), SQLColumn: "tags", SQLType: "TEXT[]"},
			{Field: strp("Active"), Type: strp("checkbox"), SQLColumn: "active", SQLType: "BOOLEAN"},
			{Field: strp("Seen"), Type: strp("dateTime"), SQLColumn: "seen", SQLType: "TIMESTAMP"},
		},
	}
}

func TestMapType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"varchar":   "TEXT",
		"TEXT[]":    "TEXT",
		"INTEGER":   "INTEGER",
		"BOOLEAN":   "INTEGER",
		"FLOAT":     "REAL",
		"TIMESTAMP": "TEXT",
		"JSON":      "JSON",
	}
	for in, want := range tests {
		assert.Equal(t, want, sqliteddl.MapType(in, false), in)
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	repo := &recordingRepo{}
	require.NoError(t, sqliteddl.EnsureTable(context.Background(), repo, peopleTable()))
	require.Len(t, repo.execs, 1)

	want := "CREATE TABLE IF NOT EXISTS \"people\" (\n" +
		"  \"id\" TEXT NOT NULL,\n" +
		"  \"name\" TEXT,\n" +
		"  \"tags\" TEXT,\n" +
		"  \"active\" INTEGER,\n" +
		"  \"seen\" TEXT,\n" +
		"  PRIMARY KEY (\"id\")\n);"
	assert.Equal(t, want, repo.execs[0])
}

type recordingRepo struct{ execs []string }

func (r *recordingRepo) CopyFrom(context.Context, []string, [][]any) (int64, error) { return 0, nil }
func (r *recordingRepo) Exec(_ context.Context, s string) error {
	r.execs = append(r.execs, s)
	return nil
}
func (r *recordingRepo) Close() {}

func TestRepository_EndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tbl := peopleTable()
	dsn := filepath.Join(t.TempDir(), "test.db")

	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dsn, Table: tbl.SQLTable, Columns: tbl.ColumnNames()})
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, storage.EnsureTable(ctx, "sqlite", repo, tbl))
	require.NoError(t, storage.EnsureTable(ctx, "sqlite", repo, tbl), "idempotent")

	seen := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	rows := [][]any{
		{"rec1", "Ada", []string{"a", "b"}, true, seen},
		{"rec2", nil, nil, false, nil},
	}
	n, err := repo.CopyFrom(ctx, tbl.ColumnNames(), rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	w, ok := repo.(*wrappedRepo)
	require.True(t, ok)
	got, err := w.QueryStrings(ctx, `SELECT id, name, tags, active, seen FROM people ORDER BY id`)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"rec1", "Ada", `["a","b"]`, "1", "2024-05-01T08:30:00Z"},
		{"rec2", "", "", "0", ""},
	}, got)

	_, err = repo.CopyFrom(ctx, tbl.ColumnNames(), [][]any{{"rec3"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has 1 values")

	_, err = repo.CopyFrom(ctx, tbl.ColumnNames(), [][]any{{"rec1", "dup", nil, nil, nil}})
	require.Error(t, err, "primary key enforced")
}

func TestRepository_Exec(t *testing.T) {
	t.Parallel()

	r, closeFn, err := NewRepository(context.Background(), Config{DSN: ":memory:", Table: "t"})
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, r.Exec(context.Background(), "   "))
	err = r.Exec(context.Background(), "NOT SQL")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "sqlite: exec"))

	_, _, err = NewRepository(context.Background(), Config{})
	require.Error(t, err)
}

func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		gotCfg Config
		closed bool
		fake   = &Repository{}
	)
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return fake, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind: "sqlite", DSN: "x.db", Table: "events", Columns: []string{"id", "name"},
	})
	require.NoError(t, err)
	assert.Equal(t, Config{DSN: "x.db", Table: "events", Columns: []string{"id", "name"}}, gotCfg)

	w, ok := repo.(*wrappedRepo)
	require.True(t, ok)
	assert.Same(t, fake, w.Repository)

	repo.Close()
	assert.True(t, closed)
}
