package schema

import (
	"errors"
	"reflect"
	"testing"

	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/pkg/types"
)

func TestCreateTableSQL(t *testing.T) {
	r := types.MustPairs("id@integer#pk", 1, "name#not null", "a", "tags", []any{"x"})
	ts, err := TableFromRecord("t1", r, Implicit{InsertTime: true, UpdateTime: true, Export: true})
	if err != nil {
		t.Fatalf("TableFromRecord failed: %v", err)
	}

	want := "create table [t1] ([id] integer, [name] text not null, [tags] json_text, " +
		"[insert_time] timestamp default (datetime('now','localtime')), [update_time] timestamp, " +
		"[export] boolean default false, primary key ([id]));"
	if got := CreateTableSQL(ts); got != want {
		t.Errorf("CreateTableSQL =\n%s\nwant\n%s", got, want)
	}
	if !reflect.DeepEqual(ts.PrimaryKey, []string{"id"}) {
		t.Errorf("PrimaryKey = %v", ts.PrimaryKey)
	}
}

func TestTableFromRecord_CompositeKey(t *testing.T) {
	r := types.MustPairs("a#pk", 1, "b#pk", "x", "c", 2.0)
	ts, err := TableFromRecord("t2", r, Implicit{})
	if err != nil {
		t.Fatalf("TableFromRecord failed: %v", err)
	}
	want := "create table [t2] ([a] integer, [b] text, [c] double, primary key ([a],[b]));"
	if got := CreateTableSQL(ts); got != want {
		t.Errorf("got %s", got)
	}
}

func TestTableFromRecord_UserSuppliedImplicitColumn(t *testing.T) {
	r := types.MustPairs("k", 1, "update_time@text", "yesterday")
	ts, err := TableFromRecord("t3", r, Implicit{UpdateTime: true})
	if err != nil {
		t.Fatalf("TableFromRecord failed: %v", err)
	}
	if len(ts.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %v", ts.ColumnNames())
	}
	if c, _ := ts.Column("update_time"); c.Type != "text" {
		t.Errorf("record definition should win, got type %s", c.Type)
	}
}

func TestTableFromRecord_MalformedDescriptor(t *testing.T) {
	r := types.MustPairs("id#pk", 1, "bad#default 1;", 2)
	if _, err := TableFromRecord("t1", r, Implicit{}); !errors.Is(err, dberrors.ErrMalformedDescriptor) {
		t.Errorf("expected MALFORMED_DESCRIPTOR, got %v", err)
	}
}

func TestAddColumnSQL(t *testing.T) {
	got := AddColumnSQL("t1", types.ColumnDef{Name: "age", Type: types.TypeInteger, Clauses: []string{"default 0"}})
	if got != "alter table [t1] add [age] integer default 0;" {
		t.Errorf("got %s", got)
	}
}

func TestMissingColumns(t *testing.T) {
	ts := types.TableSchema{Name: "t1", Columns: []types.ColumnDef{{Name: "id", Type: types.TypeInteger}}}

	missing, err := MissingColumns(ts, types.MustPairs("id", 1, "name", "x", "score@double", 1))
	if err != nil {
		t.Fatalf("MissingColumns failed: %v", err)
	}
	if len(missing) != 2 || missing[0].Name != "name" || missing[1].Type != types.TypeDouble {
		t.Errorf("unexpected missing columns %+v", missing)
	}

	_, err = MissingColumns(ts, types.MustPairs("id", 1, "other#pk", 2))
	if !errors.Is(err, dberrors.ErrUnsupportedMigration) {
		t.Errorf("expected UNSUPPORTED_MIGRATION, got %v", err)
	}
}

func TestValidateTableName(t *testing.T) {
	for _, name := range []string{"t1", "people", "order", "with space", "naïve"} {
		if err := ValidateTableName(name); err != nil {
			t.Errorf("ValidateTableName(%q) = %v, want nil", name, err)
		}
	}
	for _, name := range []string{"", "  ", "x] ([a] text); drop table [victim]; --", "a[b", "nul\x00"} {
		if err := ValidateTableName(name); !errors.Is(err, dberrors.ErrInvalidKey) {
			t.Errorf("ValidateTableName(%q) = %v, want INVALID_KEY", name, err)
		}
	}
}
