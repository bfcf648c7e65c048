// Package model holds the generator-agnostic representation of a reflected
// schema. A Model is built once per run by Adapt and is never mutated after.
package model

// Model is the adapted schema snapshot.
type Model struct {
	Dialect string
	Tables  []*Table

	byName map[string]*Table
}

// Table looks up a table by its full name ("schema.name" or "name").
func (m *Model) Table(fullName string) *Table {
	return m.byName[fullName]
}

// ForeignKeys returns every foreign key in declaration order.
func (m *Model) ForeignKeys() []*ForeignKey {
	var fks []*ForeignKey
	for _, t := range m.Tables {
		fks = append(fks, t.ForeignKeys...)
	}
	return fks
}

// Table is an adapted table or view.
type Table struct {
	// Index is the position of the table in the reflected schema.
	Index       int
	Name        string
	Schema      string
	Comment     string
	IsView      bool
	Columns     []*Column
	PrimaryKey  *PrimaryKey
	ForeignKeys []*ForeignKey
	Uniques     []*Unique
	Checks      []*Check
	Indexes     []*Index

	columns map[string]*Column
}

// FullName returns the schema qualified table name.
func (t *Table) FullName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	return t.columns[name]
}

// HasPrimaryKey reports whether the table declares a primary key.
func (t *Table) HasPrimaryKey() bool {
	return t.PrimaryKey != nil && len(t.PrimaryKey.Columns) > 0
}

// PrimaryKeyColumns returns the primary key columns in table order.
func (t *Table) PrimaryKeyColumns() []*Column {
	var cols []*Column
	for _, c := range t.Columns {
		if c.PrimaryKey {
			cols = append(cols, c)
		}
	}
	return cols
}

// Column is an adapted column. Default is the raw server default expression.
type Column struct {
	Table         *Table
	Index         int
	Name          string
	Type          string
	Nullable      bool
	Default       *string
	Comment       string
	PrimaryKey    bool
	Autoincrement bool
	EnumValues    []string
	EnumName      string
}

// SolePrimaryKey reports whether the column is the only primary key column.
func (c *Column) SolePrimaryKey() bool {
	return c.PrimaryKey && len(c.Table.PrimaryKey.Columns) == 1
}

// PrimaryKey is the primary key constraint of a table.
type PrimaryKey struct {
	Name    string
	Columns []*Column
}

// ForeignKey references RefColumns of RefTable from Columns of Table.
type ForeignKey struct {
	// Index is the position of the constraint among all foreign keys of
	// the schema, following table then constraint declaration order.
	Index      int
	Name       string
	Table      *Table
	Columns    []*Column
	RefTable   *Table
	RefColumns []*Column
	OnDelete   string
	OnUpdate   string
}

// SelfReferential reports whether the key references its own table.
func (fk *ForeignKey) SelfReferential() bool {
	return fk.Table == fk.RefTable
}

// Unique is a unique constraint.
type Unique struct {
	Name    string
	Columns []*Column
}

// Check is a check constraint.
type Check struct {
	Name       string
	Expression string
}

// Index is a table index.
type Index struct {
	Name    string
	Columns []*Column
	Unique  bool
}

// ColumnNames returns the names of the given columns.
func ColumnNames(cols []*Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// SameColumns reports whether a and b hold the same set of columns.
func SameColumns(a, b []*Column) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[*Column]struct{}, len(a))
	for _, c := range a {
		set[c] = struct{}{}
	}
	for _, c := range b {
		if _, ok := set[c]; !ok {
			return false
		}
	}
	return true
}
