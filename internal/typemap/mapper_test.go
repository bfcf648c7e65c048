package typemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/sqlagen/internal/diag"
	"github.com/tordrt/sqlagen/internal/imports"
	"github.com/tordrt/sqlagen/internal/model"
	"github.com/tordrt/sqlagen/internal/schema"
)

func column(t *testing.T, dialect string, col schema.Column) *model.Column {
	t.Helper()
	m, err := model.Adapt(&schema.Schema{
		Dialect: dialect,
		Tables:  []schema.Table{{Name: "t", Columns: []schema.Column{col}}},
	})
	require.NoError(t, err)
	return m.Tables[0].Columns[0]
}

func TestMap(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
		flavor  Flavor
		raw     string
		expr    string
		imports []imports.Spec
		python  string
	}{
		{"sqlite integer", "sqlite", Modern, "INTEGER", "Integer", []imports.Spec{{Module: "sqlalchemy", Name: "Integer"}}, "int"},
		{"sqlite text", "sqlite", Modern, "TEXT", "Text", []imports.Spec{{Module: "sqlalchemy", Name: "Text"}}, "str"},
		{"sqlite varchar", "sqlite", Modern, "VARCHAR(50)", "String(50)", []imports.Spec{{Module: "sqlalchemy", Name: "String"}}, "str"},
		{"sqlite numeric", "sqlite", Modern, "NUMERIC(10, 2)", "Numeric(10, 2)", []imports.Spec{{Module: "sqlalchemy", Name: "Numeric"}}, "decimal.Decimal"},
		{"sqlite boolean", "sqlite", Modern, "BOOLEAN", "Boolean", []imports.Spec{{Module: "sqlalchemy", Name: "Boolean"}}, "bool"},
		{"sqlite datetime", "sqlite", Modern, "DATETIME", "DateTime", []imports.Spec{{Module: "sqlalchemy", Name: "DateTime"}}, "datetime.datetime"},
		{"sqlite blob", "sqlite", Modern, "BLOB", "LargeBinary", []imports.Spec{{Module: "sqlalchemy", Name: "LargeBinary"}}, "bytes"},
		{"sqlite real", "sqlite", Modern, "REAL", "REAL", []imports.Spec{{Module: "sqlalchemy", Name: "REAL"}}, "float"},
		{"postgres bigint", "postgres", Modern, "bigint", "BigInteger", []imports.Spec{{Module: "sqlalchemy", Name: "BigInteger"}}, "int"},
		{"postgres varchar", "postgres", Modern, "character varying(255)", "String(255)", []imports.Spec{{Module: "sqlalchemy", Name: "String"}}, "str"},
		{"postgres char", "postgres", Modern, "character(3)", "CHAR(3)", []imports.Spec{{Module: "sqlalchemy", Name: "CHAR"}}, "str"},
		{"postgres timestamptz", "postgres", Modern, "timestamp with time zone", "DateTime(True)", []imports.Spec{{Module: "sqlalchemy", Name: "DateTime"}}, "datetime.datetime"},
		{"postgres timestamp", "postgres", Modern, "timestamp without time zone", "DateTime", []imports.Spec{{Module: "sqlalchemy", Name: "DateTime"}}, "datetime.datetime"},
		{"postgres date", "postgres", Modern, "date", "Date", []imports.Spec{{Module: "sqlalchemy", Name: "Date"}}, "datetime.date"},
		{"postgres double modern", "postgres", Modern, "double precision", "Double", []imports.Spec{{Module: "sqlalchemy", Name: "Double"}}, "float"},
		{"postgres double legacy", "postgres", Legacy, "double precision", "Float(53)", []imports.Spec{{Module: "sqlalchemy", Name: "Float"}}, "float"},
		{"postgres jsonb", "postgres", Modern, "jsonb", "JSONB", []imports.Spec{{Module: "sqlalchemy.dialects.postgresql", Name: "JSONB"}}, "dict"},
		{"postgres json", "postgres", Modern, "json", "JSON", []imports.Spec{{Module: "sqlalchemy", Name: "JSON"}}, "dict"},
		{"postgres uuid modern", "postgres", Modern, "uuid", "Uuid", []imports.Spec{{Module: "sqlalchemy", Name: "Uuid"}}, "uuid.UUID"},
		{"postgres uuid legacy", "postgres", Legacy, "uuid", "UUID", []imports.Spec{{Module: "sqlalchemy.dialects.postgresql", Name: "UUID"}}, "uuid.UUID"},
		{"postgres inet", "postgres", Modern, "inet", "INET", []imports.Spec{{Module: "sqlalchemy.dialects.postgresql", Name: "INET"}}, "str"},
		{"postgres interval", "postgres", Modern, "interval", "Interval", []imports.Spec{{Module: "sqlalchemy", Name: "Interval"}}, "datetime.timedelta"},
		{"postgres array", "postgres", Modern, "integer[]", "ARRAY(Integer)", []imports.Spec{{Module: "sqlalchemy", Name: "ARRAY"}, {Module: "sqlalchemy", Name: "Integer"}}, "list"},
		{"postgres tsvector", "postgres", Modern, "tsvector", "TSVECTOR", []imports.Spec{{Module: "sqlalchemy.dialects.postgresql", Name: "TSVECTOR"}}, "Any"},
		{"mysql tinyint bool", "mysql", Modern, "tinyint(1)", "Boolean", []imports.Spec{{Module: "sqlalchemy", Name: "Boolean"}}, "bool"},
		{"mysql unsigned int", "mysql", Modern, "int unsigned", "INTEGER(unsigned=True)", []imports.Spec{{Module: "sqlalchemy.dialects.mysql", Name: "INTEGER"}}, "int"},
		{"mysql decimal", "mysql", Modern, "decimal(12,4)", "Numeric(12, 4)", []imports.Spec{{Module: "sqlalchemy", Name: "Numeric"}}, "decimal.Decimal"},
		{"mysql enum", "mysql", Modern, "enum('Small','LARGE')", "Enum('Small', 'LARGE')", []imports.Spec{{Module: "sqlalchemy", Name: "Enum"}}, "str"},
		{"mysql set", "mysql", Modern, "set('a','b')", "SET('a', 'b')", []imports.Spec{{Module: "sqlalchemy.dialects.mysql", Name: "SET"}}, "set"},
		{"mysql longtext", "mysql", Modern, "longtext", "LONGTEXT", []imports.Spec{{Module: "sqlalchemy.dialects.mysql", Name: "LONGTEXT"}}, "str"},
		{"mysql year", "mysql", Modern, "year", "YEAR", []imports.Spec{{Module: "sqlalchemy.dialects.mysql", Name: "YEAR"}}, "int"},
		{"mysql datetime fsp", "mysql", Modern, "datetime(6)", "DATETIME(fsp=6)", []imports.Spec{{Module: "sqlalchemy.dialects.mysql", Name: "DATETIME"}}, "datetime.datetime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var diags diag.List
			m := New(tt.dialect, tt.flavor, &diags)
			got := m.Map(column(t, tt.dialect, schema.Column{Name: "c", Type: tt.raw}))
			assert.Equal(t, tt.expr, got.Expr)
			assert.Equal(t, tt.imports, got.Imports)
			assert.Equal(t, tt.python, got.Python)
			assert.False(t, got.Unsupported)
			assert.Zero(t, diags.Len())
		})
	}
}

func TestMapEnumValues(t *testing.T) {
	m := New("postgres", Modern, &diag.List{})
	got := m.Map(column(t, "postgres", schema.Column{
		Name: "mood", Type: "mood", EnumValues: []string{"sad", "it's ok"}, EnumName: "mood",
	}))
	assert.Equal(t, `Enum('sad', "it's ok", name='mood')`, got.Expr)
	assert.Equal(t, "str", got.Python)
}

func TestMapUnsupported(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
		raw     string
		expr    string
		module  string
	}{
		{"postgres user type", "postgres", "citext", "CITEXT", "sqlalchemy.dialects.postgresql"},
		{"postgres geometry", "postgres", "geometry(Point,4326)", "GEOMETRY('Point', 4326)", "sqlalchemy.dialects.postgresql"},
		{"sqlite custom", "sqlite", "MONEYBAG", "MONEYBAG", "sqlalchemy.dialects.sqlite"},
		{"mysql spatial", "mysql", "point", "POINT", "sqlalchemy.dialects.mysql"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var diags diag.List
			m := New(tt.dialect, Modern, &diags)
			got := m.Map(column(t, tt.dialect, schema.Column{Name: "c", Type: tt.raw}))
			assert.True(t, got.Unsupported)
			assert.Equal(t, tt.expr, got.Expr)
			require.Len(t, got.Imports, 1)
			assert.Equal(t, tt.module, got.Imports[0].Module)
			assert.Equal(t, "Any", got.Python)
			require.Equal(t, 1, diags.Len())
			assert.Equal(t, diag.UnsupportedType, diags.Items()[0].Kind)
			assert.Equal(t, "t", diags.Items()[0].Table)
			assert.Equal(t, "c", diags.Items()[0].Column)
		})
	}
}

func TestParseFlavor(t *testing.T) {
	for in, want := range map[string]Flavor{"": Modern, "modern": Modern, "2": Modern, "legacy": Legacy, "1.4": Legacy} {
		got, err := ParseFlavor(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFlavor("3")
	assert.Error(t, err)
}
