package schema

// Schema represents the reflected metadata of a database schema
type Schema struct {
	Dialect string // postgres, mysql or sqlite
	Name    string
	Tables  []Table
}

// Table represents a database table or view
type Table struct {
	Name           string
	Schema         string
	Comment        *string
	IsView         bool
	Columns        []Column
	PrimaryKey     []string
	PrimaryKeyName string
	ForeignKeys    []ForeignKey
	Uniques        []Unique
	Checks         []Check
	Indexes        []Index
}

// Column represents a table column
type Column struct {
	Name          string
	Type          string // raw type as reported by the database
	Nullable      bool
	DefaultValue  *string
	Comment       *string
	Autoincrement bool
	EnumValues    []string
	EnumName      string
}

// ForeignKey represents a foreign key constraint; Columns and
// TargetColumns are positionally paired. An empty TargetSchema refers to
// the default schema, like Table.Schema.
type ForeignKey struct {
	Name          string
	Columns       []string
	TargetSchema  string
	TargetTable   string
	TargetColumns []string
	OnDelete      string
	OnUpdate      string
}

// Unique represents a unique constraint
type Unique struct {
	Name    string
	Columns []string
}

// Check represents a check constraint
type Check struct {
	Name       string
	Expression string
}

// Index represents a database index
type Index struct {
	Name     string
	Columns  []string
	IsUnique bool
}
