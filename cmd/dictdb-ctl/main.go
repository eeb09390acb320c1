// Command dictdb-ctl works on a dictdb database file directly: it derives
// DDL from records, writes and reads rows, and exports tables to object
// storage.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/dictdb/dictdb/internal/engine"
	"github.com/dictdb/dictdb/internal/export"
	"github.com/dictdb/dictdb/internal/ingest"
	"github.com/dictdb/dictdb/internal/storage"
	"github.com/dictdb/dictdb/internal/store"
	"github.com/dictdb/dictdb/pkg/types"
)

var version = "dev"

// Globals are the flags shared by every command.
type Globals struct {
	DB         string `name:"db" short:"d" help:"SQLite database file" default:"dictdb.db" type:"path"`
	StorageDir string `name:"storage-dir" help:"Local object storage directory for export and restore" default:"storage" type:"path"`

	NoInsertTime bool `name:"no-insert-time" help:"Do not add insert_time to new tables"`
	NoUpdateTime bool `name:"no-update-time" help:"Do not add update_time to new tables"`
	NoExport     bool `name:"no-export" help:"Do not add the export flag to new tables"`
	NoAutoAlter  bool `name:"no-auto-alter" help:"Fail instead of adding missing columns"`
}

// CLI defines the command-line interface for dictdb-ctl.
var CLI struct {
	Globals

	DDL     DDLCmd     `cmd:"" name:"ddl" help:"Print the CREATE TABLE statement derived from a record"`
	Insert  InsertCmd  `cmd:"" help:"Insert, replace or upsert records from a JSON or NDJSON file"`
	Select  SelectCmd  `cmd:"" help:"Print rows of a table as NDJSON"`
	Tables  TablesCmd  `cmd:"" help:"List tables and their columns"`
	Export  ExportCmd  `cmd:"" help:"Export the rows of a table to object storage"`
	Restore RestoreCmd `cmd:"" help:"Write the rows of an exported object back"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

func (g *Globals) engineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.InsertTime = !g.NoInsertTime
	cfg.UpdateTime = !g.NoUpdateTime
	cfg.Export = !g.NoExport
	cfg.AutoAlter = !g.NoAutoAlter
	return cfg
}

func (g *Globals) open(ctx context.Context) (*engine.Engine, error) {
	e, err := engine.Open(ctx, g.DB, store.DefaultOptions(), g.engineConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", g.DB, err)
	}
	return e, nil
}

func (g *Globals) exporter(e *engine.Engine) (*export.Exporter, error) {
	s, err := storage.NewLocalStorage(g.StorageDir)
	if err != nil {
		return nil, err
	}
	return export.New(e, s, export.Config{Prefix: "exports", Compress: true}), nil
}

// DDLCmd prints the DDL for a record without touching the database.
type DDLCmd struct {
	Record string `arg:"" help:"Record as a JSON object"`
	Table  string `short:"t" help:"Table name; derived from the record when empty"`
}

func (c *DDLCmd) Run(g *Globals) error {
	var rec types.Record
	if err := json.Unmarshal([]byte(c.Record), &rec); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}
	e, err := g.open(context.Background())
	if err != nil {
		return err
	}
	defer e.Close()

	var opts []engine.Option
	if c.Table != "" {
		opts = append(opts, engine.WithTable(c.Table))
	}
	ddl, err := e.DDLFor(rec, opts...)
	if err != nil {
		return err
	}
	fmt.Println(ddl)
	return nil
}

// InsertCmd writes records read from a file or stdin.
type InsertCmd struct {
	File   string   `arg:"" optional:"" help:"Input file; stdin when omitted or -" type:"path"`
	Table  string   `short:"t" help:"Table name; derived from the first record when empty"`
	Mode   string   `short:"m" help:"Write mode: insert, replace, upsert" default:"insert" enum:"insert,replace,upsert"`
	Ignore []string `help:"Error codes to skip instead of failing, e.g. UNIQUENESS_VIOLATION"`
}

func (c *InsertCmd) Run(g *Globals) error {
	in := io.Reader(os.Stdin)
	if c.File != "" && c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	recs, err := readRecords(in)
	if err != nil {
		return err
	}

	mode, err := engine.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	opts, err := ignoreOptions(c.Ignore)
	if err != nil {
		return err
	}
	if c.Table != "" {
		opts = append(opts, engine.WithTable(c.Table))
	}

	ctx := context.Background()
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.Write(ctx, mode, slices.Values(recs), opts...)
	if err != nil {
		return err
	}
	return printJSON(res)
}

// SelectCmd prints matching rows.
type SelectCmd struct {
	Table   string   `arg:"" help:"Table name"`
	Columns []string `short:"c" help:"Columns to return"`
	Where   string   `short:"w" help:"Equality filter as a JSON object"`
	First   bool     `help:"Return at most one row"`
}

func (c *SelectCmd) Run(g *Globals) error {
	q := engine.Query{Columns: c.Columns, First: c.First}
	if c.Where != "" {
		if err := json.Unmarshal([]byte(c.Where), &q.Where); err != nil {
			return fmt.Errorf("invalid filter: %w", err)
		}
	}

	ctx := context.Background()
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	rows, err := e.Select(ctx, c.Table, q)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

// TablesCmd lists the catalog.
type TablesCmd struct{}

func (c *TablesCmd) Run(g *Globals) error {
	e, err := g.open(context.Background())
	if err != nil {
		return err
	}
	defer e.Close()

	for _, ts := range e.Tables() {
		cols := make([]string, len(ts.Columns))
		for i, col := range ts.Columns {
			cols[i] = fmt.Sprintf("%s %s", col.Name, col.Type)
		}
		fmt.Printf("%s (%s)\n", ts.Name, strings.Join(cols, ", "))
	}
	return nil
}

// ExportCmd exports a table.
type ExportCmd struct {
	Table          string   `arg:"" help:"Table name"`
	OnlyUnexported bool     `name:"only-unexported" help:"Skip rows already flagged as exported"`
	Mark           bool     `help:"Flag exported rows"`
	Key            []string `help:"Columns identifying a row when marking; primary key when empty"`
}

func (c *ExportCmd) Run(g *Globals) error {
	ctx := context.Background()
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	x, err := g.exporter(e)
	if err != nil {
		return err
	}
	res, err := x.Export(ctx, c.Table, export.Options{
		OnlyUnexported: c.OnlyUnexported,
		MarkExported:   c.Mark,
		KeyColumns:     c.Key,
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

// RestoreCmd writes an exported object back into the database.
type RestoreCmd struct {
	Object string `arg:"" help:"Object path inside the storage directory"`
	Table  string `short:"t" help:"Target table; taken from the rows when empty"`
	Mode   string `short:"m" help:"Write mode: insert, replace, upsert" default:"upsert" enum:"insert,replace,upsert"`
}

func (c *RestoreCmd) Run(g *Globals) error {
	mode, err := engine.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	ctx := context.Background()
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	x, err := g.exporter(e)
	if err != nil {
		return err
	}
	var opts []engine.Option
	if c.Table != "" {
		opts = append(opts, engine.WithTable(c.Table))
	}
	res, err := x.Restore(ctx, c.Object, mode, opts...)
	if err != nil {
		return err
	}
	return printJSON(res)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("dictdb-ctl version %s\n", version)
	return nil
}

// readRecords accepts a JSON object, a JSON array of objects or NDJSON.
func readRecords(r io.Reader) ([]types.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if recs, err := ingest.DecodeRecords(data); err == nil {
		return recs, nil
	}

	var recs []types.Record
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 64<<20)
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec types.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func ignoreOptions(codes []string) ([]engine.Option, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	errs, err := ingest.IgnorableErrors(codes)
	if err != nil {
		return nil, err
	}
	return []engine.Option{engine.WithIgnore(errs...)}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("dictdb-ctl"),
		kong.Description("dictdb - schema-inferring record store over SQLite"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(&CLI.Globals)
	ctx.FatalIfErrorf(err)
}
