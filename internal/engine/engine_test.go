package engine

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dictdb/dictdb/internal/codec"
	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/internal/store"
	"github.com/dictdb/dictdb/pkg/types"
)

type gadget struct {
	Name  string
	Parts []string
}

func init() {
	codec.RegisterObjectType(gadget{})
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.db")
	e, err := Open(context.Background(), path, store.DefaultOptions(), cfg)
	if err != nil {
		t.Fatalf("failed to open engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e, path
}

func bareConfig() Config {
	cfg := DefaultConfig()
	cfg.InsertTime = false
	cfg.UpdateTime = false
	cfg.Export = false
	return cfg
}

func mustInsert(t *testing.T, e *Engine, rec types.Record, opts ...Option) Result {
	t.Helper()
	res, err := e.Insert(context.Background(), rec, opts...)
	if err != nil {
		t.Fatalf("Insert(%v) failed: %v", rec.Keys(), err)
	}
	return res
}

func selectAll(t *testing.T, e *Engine, table string) []types.Record {
	t.Helper()
	rows, err := e.Select(context.Background(), table, Query{})
	if err != nil {
		t.Fatalf("Select(%s) failed: %v", table, err)
	}
	return rows
}

func TestInsert_CreatesTableWithImplicitColumns(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	res := mustInsert(t, e, types.MustPairs("id#pk", 1, "name", "a"))
	if res.Table != "t1" || res.Records != 1 || res.Rows != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	ts, ok := e.Table("t1")
	if !ok {
		t.Fatal("t1 not registered")
	}
	want := []string{"id", "name", "insert_time", "update_time", "export"}
	if !reflect.DeepEqual(ts.ColumnNames(), want) {
		t.Errorf("columns = %v, want %v", ts.ColumnNames(), want)
	}
	if !reflect.DeepEqual(ts.PrimaryKey, []string{"id"}) {
		t.Errorf("primary key = %v", ts.PrimaryKey)
	}

	rows := selectAll(t, e, "t1")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if v, _ := rows[0].Get("export"); v != false {
		t.Errorf("export default = %#v, want false", v)
	}
	if v, _ := rows[0].Get("insert_time"); v == nil {
		t.Error("insert_time should default to now")
	}
}

func TestInsert_SameShapeSameTable(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	a := mustInsert(t, e, types.MustPairs("a", 1, "b", "x"))
	b := mustInsert(t, e, types.MustPairs("b@text", "y", "a#not null", 2))
	c := mustInsert(t, e, types.MustPairs("a", 3))
	if a.Table != b.Table {
		t.Errorf("same signature went to %s and %s", a.Table, b.Table)
	}
	if c.Table == a.Table {
		t.Error("narrower signature must get its own table")
	}
	if c.Table != "t2" {
		t.Errorf("fresh table = %s, want t2", c.Table)
	}
	if st := e.Stats(); st.TablesCreated != 2 || st.RecordsWritten != 3 {
		t.Errorf("stats = %+v", st)
	}
}

func TestInsert_NamesSurviveReopen(t *testing.T) {
	e, path := newTestEngine(t, bareConfig())
	mustInsert(t, e, types.MustPairs("a", 1))
	mustInsert(t, e, types.MustPairs("b", 1))
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	again, err := Open(context.Background(), path, store.DefaultOptions(), bareConfig())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer again.Close()
	if res := mustInsert(t, again, types.MustPairs("b", 2)); res.Table != "t2" {
		t.Errorf("existing shape resolved to %s, want t2", res.Table)
	}
	if res := mustInsert(t, again, types.MustPairs("c", 3)); res.Table != "t3" {
		t.Errorf("new shape resolved to %s, want t3", res.Table)
	}
}

func TestInsert_MigrationThenRetry(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	ctx := context.Background()
	mustInsert(t, e, types.MustPairs("id", 1), WithTable("people"))

	mustInsert(t, e, types.MustPairs("id", 2, "email", "x@y"), WithTable("people"))
	st := e.Stats()
	if st.Migrations != 1 || st.ColumnsAdded != 1 {
		t.Fatalf("expected one ALTER, got %+v", st)
	}

	mustInsert(t, e, types.MustPairs("id", 3, "email", "z@y"), WithTable("people"))
	if e.Stats().Migrations != 1 {
		t.Error("second insert with the same new column must not alter again")
	}

	rows, err := e.Select(ctx, "people", Query{Columns: []string{"id", "email"}, Where: types.MustPairs("id", 3)})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if v, _ := rows[0].Get("email"); v != "z@y" {
		t.Errorf("email = %#v", v)
	}
}

func TestInsert_AutoAlterOff(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	mustInsert(t, e, types.MustPairs("id", 1), WithTable("p"))

	_, err := e.Insert(context.Background(), types.MustPairs("id", 2, "extra", 1), WithTable("p"), WithAutoAlter(false))
	if !errors.Is(err, dberrors.ErrStoreFatal) {
		t.Fatalf("expected STORE_FATAL, got %v", err)
	}
	if errors.Is(err, dberrors.ErrSchemaMismatch) {
		t.Error("reclassified error must not also match SCHEMA_MISMATCH")
	}
}

func TestInsert_CannotAddPrimaryKeyColumn(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	mustInsert(t, e, types.MustPairs("a", 1), WithTable("p"))

	_, err := e.Insert(context.Background(), types.MustPairs("a", 2, "k#pk", 1), WithTable("p"))
	if !errors.Is(err, dberrors.ErrUnsupportedMigration) {
		t.Errorf("expected UNSUPPORTED_MIGRATION, got %v", err)
	}
}

func TestInsert_DescriptorRejectionCreatesNoTable(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	_, err := e.Insert(context.Background(), types.MustPairs("id", 1, "name#default 'x'; drop table t1", "a"))
	if !errors.Is(err, dberrors.ErrMalformedDescriptor) {
		t.Fatalf("expected MALFORMED_DESCRIPTOR, got %v", err)
	}
	if len(e.Tables()) != 0 {
		t.Errorf("no table should exist, got %v", e.Tables())
	}
	names, err := store.ListTables(context.Background(), e.db.SQL())
	if err != nil || len(names) != 0 {
		t.Errorf("store tables = %v, %v", names, err)
	}
}

func TestInsert_EmptyRecord(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	if _, err := e.Insert(context.Background(), types.Record{}); !errors.Is(err, dberrors.ErrInvalidKey) {
		t.Errorf("expected INVALID_KEY, got %v", err)
	}
}

func TestInsertOrUpdate_Correctness(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		if _, err := e.InsertOrUpdate(ctx, types.MustPairs("id#uq", 1, "name", name)); err != nil {
			t.Fatalf("InsertOrUpdate(%s) failed: %v", name, err)
		}
	}
	rows := selectAll(t, e, "t1")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if v, _ := rows[0].Get("name"); v != "b" {
		t.Errorf("name = %#v, want b", v)
	}
	if v, _ := rows[0].Get("update_time"); v == nil {
		t.Error("conflict update should stamp update_time")
	}

	if _, err := e.InsertOrUpdate(ctx, types.MustPairs("id#uq", 2, "name", "c")); err != nil {
		t.Fatalf("InsertOrUpdate(id=2) failed: %v", err)
	}
	if rows := selectAll(t, e, "t1"); len(rows) != 2 {
		t.Errorf("expected a second row, got %d", len(rows))
	}
	if st := e.Stats(); st.ConflictUpdates != 1 {
		t.Errorf("conflict updates = %d, want 1", st.ConflictUpdates)
	}
}

func TestInsertOrUpdate_CompositeKeyAndNewColumn(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	ctx := context.Background()

	_, err := e.InsertOrUpdate(ctx, types.MustPairs("a#pk", 1, "b#pk", "x", "v", 1), WithTable("kv"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.InsertOrUpdate(ctx, types.MustPairs("a", 1, "b", "x", "v", 2, "note", "n"), WithTable("kv"))
	if err != nil {
		t.Fatalf("conflict update failed: %v", err)
	}

	rows := selectAll(t, e, "kv")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if v, _ := rows[0].Get("v"); v != int64(2) {
		t.Errorf("v = %#v", v)
	}
	if v, _ := rows[0].Get("note"); v != "n" {
		t.Errorf("note = %#v", v)
	}
}

func TestInsertOrReplace(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	ctx := context.Background()
	if _, err := e.InsertOrReplace(ctx, types.MustPairs("id#pk", 1, "name", "a")); err != nil {
		t.Fatal(err)
	}
	if _, err := e.InsertOrReplace(ctx, types.MustPairs("id", 1, "name", "b")); err != nil {
		t.Fatal(err)
	}
	rows := selectAll(t, e, "t1")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if v, _ := rows[0].Get("name"); v != "b" {
		t.Errorf("name = %#v", v)
	}
}

func TestInsertAll_LazySequence(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	consumed := 0
	seq := func(yield func(types.Record) bool) {
		for i := 1; i <= 3; i++ {
			consumed++
			rec := types.MustPairs("n", i)
			if i == 3 {
				rec = types.MustPairs("n", i, "extra", "late")
			}
			if !yield(rec) {
				return
			}
		}
	}

	res, err := e.InsertAll(context.Background(), iter.Seq[types.Record](seq))
	if err != nil {
		t.Fatalf("InsertAll failed: %v", err)
	}
	if consumed != 3 || res.Records != 3 {
		t.Fatalf("consumed %d, wrote %d", consumed, res.Records)
	}
	rows := selectAll(t, e, res.Table)
	if len(rows) != 3 {
		t.Fatalf("every record should land in %s, got %d rows", res.Table, len(rows))
	}
	for i, r := range rows {
		if v, _ := r.Get("n"); v != int64(i+1) {
			t.Errorf("row %d n = %#v, want original order", i, v)
		}
	}
	if len(e.Tables()) != 1 {
		t.Errorf("the sequence should use a single table, got %d", len(e.Tables()))
	}
}

func TestInsertAll_IgnoreAndStop(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	ctx := context.Background()
	recs := []types.Record{
		types.MustPairs("id#pk", 1),
		types.MustPairs("id#pk", 1),
		types.MustPairs("id#pk", 2),
	}

	res, err := e.InsertAll(ctx, slices.Values(recs), WithIgnore(dberrors.ErrUniquenessViolation))
	if err != nil {
		t.Fatalf("InsertAll failed: %v", err)
	}
	if res.Records != 2 || res.Ignored != 1 {
		t.Errorf("result = %+v", res)
	}

	res, err = e.InsertAll(ctx, slices.Values([]types.Record{
		types.MustPairs("id", 3),
		types.MustPairs("id", 3),
		types.MustPairs("id", 4),
	}))
	if !errors.Is(err, dberrors.ErrUniquenessViolation) {
		t.Fatalf("expected UNIQUENESS_VIOLATION, got %v", err)
	}
	if res.Records != 1 {
		t.Errorf("records before the failure = %d, want 1", res.Records)
	}
	rows := selectAll(t, e, "t1")
	if len(rows) != 3 {
		t.Errorf("prefix before the failure should be kept, got %d rows", len(rows))
	}
}

func TestRoundTrip_StructuredValues(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	ctx := context.Background()

	mapping := map[string]any{"A": 1, "B": 2}
	tuple := types.Tuple{1, 2, 3}
	set := types.NewSet("x", "y")
	opaque := map[string]any{"when": types.NewDate(2020, time.January, 2)}
	g := gadget{Name: "w", Parts: []string{"p"}}

	res := mustInsert(t, e, types.MustPairs("id", 1, "m", mapping, "t", tuple, "s", set, "o", opaque, "g", g))
	ts, _ := e.Table(res.Table)
	wantTypes := map[string]types.StorageType{
		"m": types.TypeJSONText, "t": types.TypeTupleText, "s": types.TypeSetText,
		"o": types.TypeObject, "g": types.TypeObject,
	}
	for col, want := range wantTypes {
		if c, _ := ts.Column(col); c.Type != want {
			t.Errorf("column %s type = %s, want %s", col, c.Type, want)
		}
	}

	rows, err := e.Select(ctx, res.Table, Query{Where: types.MustPairs("id", 1), First: true})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	check := func(col string, want any) {
		t.Helper()
		got, _ := row.Get(col)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s = %#v, want %#v", col, got, want)
		}
	}
	check("m", map[string]any{"A": int64(1), "B": int64(2)})
	check("t", types.Tuple{int64(1), int64(2), int64(3)})
	check("s", set)
	check("o", opaque)
	check("g", g)
}

func TestUpdate(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	ctx := context.Background()
	mustInsert(t, e, types.MustPairs("id", 1, "name", "a"))
	mustInsert(t, e, types.MustPairs("id", 2, "name", "b"))

	res, err := e.Update(ctx, "t1", types.MustPairs("name", "z", "score", 9.5), types.MustPairs("id", 2))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if res.Rows != 1 {
		t.Errorf("rows = %d", res.Rows)
	}
	rows, _ := e.Select(ctx, "t1", Query{Where: types.MustPairs("id", 2)})
	if v, _ := rows[0].Get("name"); v != "z" {
		t.Errorf("name = %#v", v)
	}
	if v, _ := rows[0].Get("score"); v != 9.5 {
		t.Errorf("score = %#v", v)
	}
	if v, _ := rows[0].Get("update_time"); v == nil {
		t.Error("update_time should be stamped")
	}

	_, err = e.UpdateMany(ctx, "t1", []UpdatePair{
		{Set: types.MustPairs("name", "p"), Where: types.MustPairs("id", 1)},
		{Set: types.MustPairs("name", "q"), Where: types.MustPairs("id", 2)},
	})
	if err != nil {
		t.Fatalf("UpdateMany failed: %v", err)
	}
	rows = selectAll(t, e, "t1")
	if v, _ := rows[1].Get("name"); v != "q" {
		t.Errorf("second update not applied: %#v", v)
	}

	if _, err := e.Update(ctx, "nope", types.MustPairs("a", 1), nil); !errors.Is(err, dberrors.ErrTableNotFound) {
		t.Errorf("expected TABLE_NOT_FOUND, got %v", err)
	}
	if _, err := e.Update(ctx, "t1", types.Record{}, nil, WithUpdateTime(false)); !errors.Is(err, dberrors.ErrInvalidKey) {
		t.Errorf("expected INVALID_KEY for an empty set, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		mustInsert(t, e, types.MustPairs("id", i))
	}
	res, err := e.Delete(ctx, "t1", types.MustPairs("id", 2))
	if err != nil || res.Rows != 1 {
		t.Fatalf("Delete = %+v, %v", res, err)
	}
	if rows := selectAll(t, e, "t1"); len(rows) != 2 {
		t.Errorf("expected 2 rows left, got %d", len(rows))
	}
	if _, err := e.Delete(ctx, "t9", types.MustPairs("id", 1)); !errors.Is(err, dberrors.ErrTableNotFound) {
		t.Errorf("expected TABLE_NOT_FOUND, got %v", err)
	}
}

func TestDelete_RequiresWhere(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	ctx := context.Background()
	mustInsert(t, e, types.MustPairs("id", 1))
	mustInsert(t, e, types.MustPairs("id", 2))

	for _, where := range []types.Record{nil, {}} {
		if _, err := e.Delete(ctx, "t1", where); !errors.Is(err, dberrors.ErrInvalidKey) {
			t.Errorf("Delete with empty where: expected INVALID_KEY, got %v", err)
		}
	}
	if rows := selectAll(t, e, "t1"); len(rows) != 2 {
		t.Errorf("rows must survive a rejected delete, got %d", len(rows))
	}
}

// tableExists asks the store directly, bypassing the registry.
func tableExists(t *testing.T, e *Engine, name string) bool {
	t.Helper()
	recs, err := e.Query(context.Background(),
		"select name from sqlite_master where type = 'table' and name = ?", name)
	if err != nil {
		t.Fatalf("catalog query failed: %v", err)
	}
	return len(recs) == 1
}

func TestInsert_TypeTagCannotInjectStatements(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	ctx := context.Background()
	if _, err := e.Exec(ctx, "create table [victim] ([a] text)"); err != nil {
		t.Fatal(err)
	}

	_, err := e.Insert(ctx, types.MustPairs("a@text); drop table [victim]; create table [zz] ([q] text", "v"))
	if !errors.Is(err, dberrors.ErrInvalidKey) {
		t.Errorf("expected INVALID_KEY, got %v", err)
	}
	if !tableExists(t, e, "victim") {
		t.Error("victim table was dropped")
	}
	if tableExists(t, e, "zz") {
		t.Error("injected table was created")
	}
}

func TestTableNameCannotInjectStatements(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	ctx := context.Background()
	if _, err := e.Exec(ctx, "create table [victim] ([a] text)"); err != nil {
		t.Fatal(err)
	}
	hostile := "x] ([a] text); drop table [victim]; --"

	checks := map[string]error{}
	_, checks["insert"] = e.Insert(ctx, types.MustPairs("a", "v"), WithTable(hostile))
	_, checks["upsert"] = e.InsertOrUpdate(ctx, types.MustPairs("a", "v"), WithTable(hostile))
	_, checks["update"] = e.Update(ctx, hostile, types.MustPairs("a", "w"), types.MustPairs("a", "v"))
	_, checks["select"] = e.Select(ctx, hostile, Query{})
	_, checks["delete"] = e.Delete(ctx, hostile, types.MustPairs("a", "v"))
	_, checks["ddl"] = e.DDLFor(types.MustPairs("a", "v"), WithTable(hostile))

	for op, err := range checks {
		if !errors.Is(err, dberrors.ErrInvalidKey) {
			t.Errorf("%s: expected INVALID_KEY, got %v", op, err)
		}
	}
	if !tableExists(t, e, "victim") {
		t.Error("victim table was dropped")
	}
}

func TestSelect_FirstAndUnknownTable(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	ctx := context.Background()
	mustInsert(t, e, types.MustPairs("id", 1))
	mustInsert(t, e, types.MustPairs("id", 2))

	rows, err := e.Select(ctx, "t1", Query{First: true})
	if err != nil || len(rows) != 1 {
		t.Errorf("First select = %d rows, %v", len(rows), err)
	}
	if _, err := e.Select(ctx, "t5", Query{}); !errors.Is(err, dberrors.ErrTableNotFound) {
		t.Errorf("expected TABLE_NOT_FOUND, got %v", err)
	}
	if top := e.Stats().TopFilters; len(top) != 0 {
		t.Errorf("unfiltered selects should not record filters: %v", top)
	}
}

func TestDDLFor(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	ddl, err := e.DDLFor(types.MustPairs("id#pk", 1, "name#not null", "a"), WithExport(true))
	if err != nil {
		t.Fatalf("DDLFor failed: %v", err)
	}
	want := "create table [t1] ([id] integer, [name] text not null, [export] boolean default false, primary key ([id]));"
	if ddl != want {
		t.Errorf("got  %s\nwant %s", ddl, want)
	}
	if len(e.Tables()) != 0 {
		t.Error("DDLFor must not create anything")
	}
}

func TestDeferredCommit(t *testing.T) {
	e, path := newTestEngine(t, bareConfig())
	ctx := context.Background()
	mustInsert(t, e, types.MustPairs("id", 1))

	mustInsert(t, e, types.MustPairs("id", 2), WithCommit(false))

	other, err := store.Open(path, store.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	count := func() int {
		recs, err := store.QueryRecords(ctx, other.SQL(), "select count(*) as n from [t1]")
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		n, _ := recs[0].Get("n")
		return int(n.(int64))
	}
	if n := count(); n != 1 {
		t.Errorf("uncommitted row visible to another connection: %d", n)
	}
	if err := e.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if n := count(); n != 2 {
		t.Errorf("after commit: %d rows, want 2", n)
	}
}

func TestExecAndQueryPassthrough(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	ctx := context.Background()
	if _, err := e.Exec(ctx, "create table [manual] ([k] text, [v] json_text)"); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if _, ok := e.Table("manual"); !ok {
		t.Fatal("schema statements must refresh the registry")
	}
	if _, err := e.Exec(ctx, "insert into [manual] values (?, ?)", "a", `{"x":[1,2]}`); err != nil {
		t.Fatal(err)
	}
	recs, err := e.Query(ctx, "select [v] from [manual] where [k] = ?", "a")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	want := map[string]any{"x": []any{int64(1), int64(2)}}
	if v, _ := recs[0].Get("v"); !reflect.DeepEqual(v, want) {
		t.Errorf("v = %#v", v)
	}

	if err := e.ExecScript(ctx, "create table [s1] ([a] text); create table [s2] ([b] text);"); err != nil {
		t.Fatal(err)
	}
	if len(e.Tables()) != 3 {
		t.Errorf("tables = %d, want 3", len(e.Tables()))
	}
}

func TestClosedEngine(t *testing.T) {
	e, _ := newTestEngine(t, bareConfig())
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Error("second Close should be a no-op")
	}
	if _, err := e.Insert(context.Background(), types.MustPairs("a", 1)); err == nil ||
		!strings.Contains(err.Error(), "closed") {
		t.Errorf("expected closed error, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeInsert, "INSERT": ModeInsert, "replace": ModeReplace, "upsert": ModeUpsert} {
		if got, err := ParseMode(in); err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("merge"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
