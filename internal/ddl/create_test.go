package ddl

import (
	"strings"
	"testing"

	"atexport/internal/schema"
)

func strp(s string) *string { return &s }

func sampleTable() schema.Table {
	return schema.Table{
		SQLTable: "people",
		Columns: []schema.Column{
			{SQLColumn: "id", SQLType: "varchar", Extra: "primary key"},
			{Field: strp("Full Name"), Type: strp("singleLineText"), SQLColumn: "full_name", SQLType: "VARCHAR"},
			{Field: strp("Team"), Type: strp("multipleRecordLinks"), SQLColumn: "team_ids", SQLType: "TEXT[]"},
			{Field: strp("Qty"), Type: strp("number"), SQLColumn: "qty", SQLType: "INTEGER"},
		},
	}
}

func TestGenerateDDL(t *testing.T) {
	t.Parallel()

	want := "CREATE TABLE IF NOT EXISTS people (\n" +
		"  id varchar primary key,\n" +
		"  full_name VARCHAR,\n" +
		"  team_ids TEXT[],\n" +
		"  qty INTEGER\n" +
		");\n"
	if got := GenerateDDL(sampleTable()); got != want {
		t.Fatalf("GenerateDDL mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestGenerateDDL_PreservesColumnOrder(t *testing.T) {
	t.Parallel()

	tbl := sampleTable()
	tbl.Columns[1], tbl.Columns[3] = tbl.Columns[3], tbl.Columns[1]
	out := GenerateDDL(tbl)

	last := -1
	for _, c := range tbl.Columns {
		idx := strings.Index(out, "  "+c.SQLColumn+" ")
		if idx < 0 {
			t.Fatalf("column %s missing from %q", c.SQLColumn, out)
		}
		if idx <= last {
			t.Fatalf("column %s out of order in %q", c.SQLColumn, out)
		}
		last = idx
	}
}

func TestFromSchema(t *testing.T) {
	t.Parallel()

	td, err := FromSchema(sampleTable(), func(s string, pk bool) string {
		if pk {
			return "KEY"
		}
		return strings.ToLower(s)
	})
	if err != nil {
		t.Fatalf("FromSchema: %v", err)
	}
	if td.FQN != "people" || len(td.Columns) != 4 {
		t.Fatalf("unexpected def %+v", td)
	}
	pk := td.Columns[0]
	if !pk.PrimaryKey || pk.Nullable || pk.SQLType != "KEY" {
		t.Fatalf("primary key column = %+v", pk)
	}
	for _, c := range td.Columns[1:] {
		if c.PrimaryKey || !c.Nullable {
			t.Fatalf("column %s should be nullable non-key: %+v", c.Name, c)
		}
	}
	if td.Columns[2].SQLType != "text[]" {
		t.Fatalf("type not mapped: %q", td.Columns[2].SQLType)
	}

	if _, err := FromSchema(schema.Table{Airtable: "x"}, nil); err == nil {
		t.Fatal("expected error for missing sqltable")
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns",
			def:         TableDef{FQN: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "empty column name",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{SQLType: "INT"}}},
			errContains: "column with empty name",
		},
		{
			name:        "empty column type",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			errContains: "missing SQLType",
		},
		{
			name: "key, nullable and default",
			def: TableDef{FQN: "t", Columns: []ColumnDef{
				{Name: "id", SQLType: "VARCHAR", PrimaryKey: true},
				{Name: "n", SQLType: "INT", Nullable: true, Default: "0"},
			}},
			wantSQL: "CREATE TABLE IF NOT EXISTS t (\n  id VARCHAR NOT NULL,\n  n INT DEFAULT 0,\n  PRIMARY KEY (id)\n);",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildCreateTableSQL(tt.def)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("err = %v, want containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.wantSQL {
				t.Fatalf("got %q\nwant %q", got, tt.wantSQL)
			}
		})
	}
}

func TestQuoteFQN(t *testing.T) {
	t.Parallel()

	q := func(s string) string { return "[" + s + "]" }
	if got := QuoteFQN("dbo. users", q); got != "[dbo].[users]" {
		t.Fatalf("QuoteFQN = %q", got)
	}
	if got := QuoteFQN("t", q); got != "[t]" {
		t.Fatalf("QuoteFQN = %q", got)
	}
}
