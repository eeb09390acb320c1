package schema

import (
	"fmt"
	"strings"

	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/pkg/types"
)

// Implicit column names.
const (
	InsertTimeColumn = "insert_time"
	UpdateTimeColumn = "update_time"
	ExportColumn     = "export"
)

// Implicit selects the bookkeeping columns added to a generated table.
type Implicit struct {
	InsertTime bool
	UpdateTime bool
	Export     bool
}

// Names returns the implicit column names that are switched on.
func (i Implicit) Names() []string {
	var names []string
	if i.InsertTime {
		names = append(names, InsertTimeColumn)
	}
	if i.UpdateTime {
		names = append(names, UpdateTimeColumn)
	}
	if i.Export {
		names = append(names, ExportColumn)
	}
	return names
}

// Columns returns the definitions of the implicit columns that are switched on.
func (i Implicit) Columns() []types.ColumnDef {
	var cols []types.ColumnDef
	if i.InsertTime {
		cols = append(cols, types.ColumnDef{
			Name:    InsertTimeColumn,
			Type:    types.TypeTimestamp,
			Clauses: []string{"default (datetime('now','localtime'))"},
		})
	}
	if i.UpdateTime {
		cols = append(cols, types.ColumnDef{Name: UpdateTimeColumn, Type: types.TypeTimestamp})
	}
	if i.Export {
		cols = append(cols, types.ColumnDef{
			Name:    ExportColumn,
			Type:    types.TypeBoolean,
			Clauses: []string{"default false"},
		})
	}
	return cols
}

// Quote bracket-quotes an identifier.
func Quote(name string) string {
	return "[" + name + "]"
}

// ValidateTableName rejects table names that cannot be bracket-quoted.
func ValidateTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return dberrors.NewInvalidKey("table name is empty")
	}
	if strings.ContainsAny(name, "[]\x00") {
		return dberrors.NewInvalidKey(fmt.Sprintf("table name %q cannot contain brackets or NUL", name)).
			WithDetails(map[string]interface{}{"table": name})
	}
	return nil
}

// DescribeColumn derives the column definition for one record field. An
// explicit type tag wins over inference.
func DescribeColumn(key string, value any) (types.ColumnDef, error) {
	ann, err := ParseKey(key)
	if err != nil {
		return types.ColumnDef{}, err
	}
	return describe(ann, value)
}

func describe(ann KeyAnnotation, value any) (types.ColumnDef, error) {
	typ := ann.ExplicitType
	if typ == "" {
		inferred, err := InferType(value)
		if err != nil {
			return types.ColumnDef{}, err
		}
		typ = inferred
	}
	return types.ColumnDef{
		Name:       ann.Name,
		Type:       typ,
		PrimaryKey: ann.PrimaryKey,
		Clauses:    ann.Clauses,
	}, nil
}

// ColumnSQL renders a column definition fragment: [name] type clauses...
func ColumnSQL(c types.ColumnDef) string {
	parts := []string{Quote(c.Name), string(c.Type)}
	parts = append(parts, c.Clauses...)
	return strings.Join(parts, " ")
}

// TableFromRecord derives the schema of a new table from a record plus the
// requested implicit columns. A record key that already names an implicit
// column takes precedence over the implicit definition.
func TableFromRecord(table string, r types.Record, implicit Implicit) (types.TableSchema, error) {
	anns, err := ParseRecord(r)
	if err != nil {
		return types.TableSchema{}, err
	}
	if len(anns) == 0 {
		return types.TableSchema{}, dberrors.NewInvalidKey("cannot derive a table from an empty record")
	}

	ts := types.TableSchema{Name: table}
	for i, ann := range anns {
		col, err := describe(ann, r[i].Value)
		if err != nil {
			return types.TableSchema{}, err
		}
		ts.Columns = append(ts.Columns, col)
		if col.PrimaryKey {
			ts.PrimaryKey = append(ts.PrimaryKey, col.Name)
		}
	}
	for _, col := range implicit.Columns() {
		if !ts.HasColumn(col.Name) {
			ts.Columns = append(ts.Columns, col)
		}
	}
	return ts, nil
}

// CreateTableSQL renders the CREATE TABLE statement for a schema. Primary
// keys are always declared as a table constraint so composite keys work.
func CreateTableSQL(ts types.TableSchema) string {
	defs := make([]string, 0, len(ts.Columns)+1)
	for _, c := range ts.Columns {
		defs = append(defs, ColumnSQL(c))
	}
	if len(ts.PrimaryKey) > 0 {
		quoted := make([]string, len(ts.PrimaryKey))
		for i, name := range ts.PrimaryKey {
			quoted[i] = Quote(name)
		}
		defs = append(defs, fmt.Sprintf("primary key (%s)", strings.Join(quoted, ",")))
	}
	return fmt.Sprintf("create table %s (%s);", Quote(ts.Name), strings.Join(defs, ", "))
}

// AddColumnSQL renders the ALTER TABLE statement adding one column.
func AddColumnSQL(table string, c types.ColumnDef) string {
	return fmt.Sprintf("alter table %s add %s;", Quote(table), ColumnSQL(c))
}

// MissingColumns returns definitions for record fields the table lacks, in
// key order. A missing column flagged as primary key cannot be added
// without rebuilding the table and fails with UNSUPPORTED_MIGRATION.
func MissingColumns(ts types.TableSchema, r types.Record) ([]types.ColumnDef, error) {
	anns, err := ParseRecord(r)
	if err != nil {
		return nil, err
	}
	var missing []types.ColumnDef
	for i, ann := range anns {
		if ts.HasColumn(ann.Name) {
			continue
		}
		col, err := describe(ann, r[i].Value)
		if err != nil {
			return nil, err
		}
		if col.PrimaryKey {
			return nil, dberrors.NewUnsupportedMigration(
				fmt.Sprintf("cannot add primary key column %q to existing table %q", col.Name, ts.Name)).
				WithDetails(map[string]interface{}{"table": ts.Name, "column": col.Name})
		}
		missing = append(missing, col)
	}
	return missing, nil
}
