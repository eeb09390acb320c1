package store

import (
	"context"
	"database/sql"
	"sort"

	"github.com/dictdb/dictdb/pkg/types"
)

// ListTables returns the names of the user tables in the store.
func ListTables(ctx context.Context, ex Execer) ([]string, error) {
	rows, err := ex.QueryContext(ctx,
		`select name from sqlite_master where type = 'table' and name not like 'sqlite_%' order by name`)
	if err != nil {
		return nil, Translate(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, Translate(err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, Translate(err)
	}
	return names, nil
}

// ReadTable reads the column definitions of one table. The second result is
// false when the table does not exist.
func ReadTable(ctx context.Context, ex Execer, name string) (types.TableSchema, bool, error) {
	rows, err := ex.QueryContext(ctx,
		`select cid, name, type, "notnull", dflt_value, pk from pragma_table_info(?)`, name)
	if err != nil {
		return types.TableSchema{}, false, Translate(err)
	}
	defer rows.Close()

	ts := types.TableSchema{Name: name}
	pkOrder := map[string]int{}
	for rows.Next() {
		var (
			cid     int
			col     types.ColumnDef
			declTyp string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &declTyp, &notNull, &dflt, &pk); err != nil {
			return types.TableSchema{}, false, Translate(err)
		}
		col.Type = types.StorageType(declTyp)
		col.NotNull = notNull != 0
		if dflt.Valid {
			v := dflt.String
			col.Default = &v
		}
		if pk > 0 {
			col.PrimaryKey = true
			pkOrder[col.Name] = pk
			ts.PrimaryKey = append(ts.PrimaryKey, col.Name)
		}
		ts.Columns = append(ts.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return types.TableSchema{}, false, Translate(err)
	}
	if len(ts.Columns) == 0 {
		return types.TableSchema{}, false, nil
	}
	sort.SliceStable(ts.PrimaryKey, func(i, j int) bool {
		return pkOrder[ts.PrimaryKey[i]] < pkOrder[ts.PrimaryKey[j]]
	})
	return ts, true, nil
}

// ReadCatalog reads every user table. Table names are collected before the
// per-table reads so that no two result sets are open at once on the single
// connection.
func ReadCatalog(ctx context.Context, ex Execer) ([]types.TableSchema, error) {
	names, err := ListTables(ctx, ex)
	if err != nil {
		return nil, err
	}
	tables := make([]types.TableSchema, 0, len(names))
	for _, name := range names {
		ts, ok, err := ReadTable(ctx, ex, name)
		if err != nil {
			return nil, err
		}
		if ok {
			tables = append(tables, ts)
		}
	}
	return tables, nil
}
