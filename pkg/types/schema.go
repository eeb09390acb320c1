package types

// StorageType is the declared SQL type of a generated column. Inferred types
// are one of the constants below; an explicit type tag on a key is carried
// verbatim and may be any identifier the store accepts.
type StorageType string

const (
	TypeText      StorageType = "text"
	TypeInteger   StorageType = "integer"
	TypeDouble    StorageType = "double"
	TypeBoolean   StorageType = "boolean"
	TypeDate      StorageType = "date"
	TypeTimestamp StorageType = "timestamp"
	TypeJSONText  StorageType = "json_text"
	TypeTupleText StorageType = "tuple_text"
	TypeSetText   StorageType = "set_text"
	TypeObject    StorageType = "obj"
)

// Structured reports whether values of this type pass through a converter
// pair on write and read.
func (t StorageType) Structured() bool {
	switch t {
	case TypeJSONText, TypeTupleText, TypeSetText, TypeObject:
		return true
	}
	return false
}

// ColumnDef describes a single column of a generated table.
type ColumnDef struct {
	// Name is the bare column name
	Name string `json:"name"`

	// Type is the declared storage type
	Type StorageType `json:"type"`

	// PrimaryKey indicates whether this column is part of the primary key
	PrimaryKey bool `json:"primary_key"`

	// Clauses are extra constraint/default fragments, in key order
	Clauses []string `json:"clauses,omitempty"`

	// NotNull and Default are only populated when read back from the catalog
	NotNull bool    `json:"not_null,omitempty"`
	Default *string `json:"default,omitempty"`
}

// TableSchema mirrors one table of the store.
type TableSchema struct {
	// Name is the table name
	Name string `json:"name"`

	// Columns in creation order
	Columns []ColumnDef `json:"columns"`

	// PrimaryKey lists the primary key columns, in key order
	PrimaryKey []string `json:"primary_key,omitempty"`
}

// Column returns the named column.
func (s *TableSchema) Column(name string) (ColumnDef, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// HasColumn reports whether the table has the named column.
func (s *TableSchema) HasColumn(name string) bool {
	_, ok := s.Column(name)
	return ok
}

// ColumnNames returns the column names in creation order.
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Clone returns a deep copy.
func (s *TableSchema) Clone() TableSchema {
	cp := TableSchema{Name: s.Name}
	cp.Columns = make([]ColumnDef, len(s.Columns))
	for i, c := range s.Columns {
		c.Clauses = append([]string(nil), c.Clauses...)
		cp.Columns[i] = c
	}
	cp.PrimaryKey = append([]string(nil), s.PrimaryKey...)
	return cp
}
