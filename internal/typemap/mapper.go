// Package typemap maps raw database column types to SQLAlchemy type
// expressions and Python annotations.
package typemap

import (
	"strconv"
	"strings"
	"unicode"

	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tordrt/sqlagen/internal/diag"
	"github.com/tordrt/sqlagen/internal/imports"
	"github.com/tordrt/sqlagen/internal/model"
	"github.com/tordrt/sqlagen/internal/pysrc"
)

const sa = "sqlalchemy"

// Mapped is the result of mapping one column type.
type Mapped struct {
	// Expr is the SQLAlchemy type expression, e.g. String(50).
	Expr    string
	Imports []imports.Spec
	// Python is the annotation type, e.g. datetime.datetime.
	Python        string
	PythonImports []imports.Spec
	// Unsupported is set when the raw type was preserved as a dialect
	// reference without a known mapping.
	Unsupported bool
}

// Mapper maps the column types of one dialect. It is not safe for
// concurrent use.
type Mapper struct {
	dialect string
	flavor  Flavor
	diags   *diag.List
	upper   cases.Caser
}

// New returns a Mapper reporting unsupported types to diags.
func New(dialect string, flavor Flavor, diags *diag.List) *Mapper {
	return &Mapper{
		dialect: dialect,
		flavor:  flavor,
		diags:   diags,
		upper:   cases.Upper(language.Und),
	}
}

// DialectModule returns the SQLAlchemy dialect module of the mapper.
func (m *Mapper) DialectModule() string {
	switch m.dialect {
	case "postgres", "postgresql":
		return "sqlalchemy.dialects.postgresql"
	case "mysql":
		return "sqlalchemy.dialects.mysql"
	default:
		return "sqlalchemy.dialects.sqlite"
	}
}

// Map maps the type of c.
func (m *Mapper) Map(c *model.Column) Mapped {
	if len(c.EnumValues) > 0 {
		return m.enum(c.EnumValues, c.EnumName)
	}
	raw := strings.TrimSpace(c.Type)
	typ, err := m.parse(raw)
	if err != nil {
		return m.unsupported(c, raw)
	}
	if r, ok := m.mapType(typ); ok {
		return r
	}
	return m.unsupported(c, raw)
}

func (m *Mapper) parse(raw string) (schema.Type, error) {
	lowered := lowerOutsideQuotes(raw)
	switch m.dialect {
	case "postgres", "postgresql":
		return postgres.ParseType(lowered)
	case "mysql":
		return mysql.ParseType(lowered)
	default:
		return sqlite.ParseType(lowered)
	}
}

func (m *Mapper) mapType(typ schema.Type) (Mapped, bool) {
	switch t := typ.(type) {
	case *schema.IntegerType:
		return m.integer(t), true
	case *postgres.SerialType:
		switch t.T {
		case "smallserial", "serial2":
			return generic("SmallInteger", "int"), true
		case "bigserial", "serial8":
			return generic("BigInteger", "int"), true
		}
		return generic("Integer", "int"), true
	case *schema.BoolType:
		return generic("Boolean", "bool"), true
	case *schema.StringType:
		return m.str(t), true
	case *schema.DecimalType:
		r := m.withArgs(sa, "Numeric", decimalArgs(t.Precision, t.Scale))
		if t.Unsigned && m.dialect == "mysql" {
			args := append(decimalArgs(t.Precision, t.Scale), "unsigned=True")
			r = m.withArgs(m.DialectModule(), "DECIMAL", args)
		}
		return withModuleAnnotation(r, "decimal", "decimal.Decimal"), true
	case *schema.FloatType:
		return m.float(t), true
	case *schema.TimeType:
		return m.time(t), true
	case *postgres.IntervalType:
		return withModuleAnnotation(generic("Interval", ""), "datetime", "datetime.timedelta"), true
	case *schema.BinaryType:
		return m.binary(t), true
	case *schema.JSONType:
		if t.T == "jsonb" {
			return vendor(m.DialectModule(), "JSONB", "dict"), true
		}
		return generic("JSON", "dict"), true
	case *schema.UUIDType:
		var r Mapped
		switch {
		case m.flavor == Modern:
			r = generic("Uuid", "")
		case m.dialect == "postgres" || m.dialect == "postgresql":
			r = vendor(m.DialectModule(), "UUID", "")
		default:
			return Mapped{}, false
		}
		return withModuleAnnotation(r, "uuid", "uuid.UUID"), true
	case *schema.EnumType:
		return m.enum(t.Values, ""), true
	case *mysql.SetType:
		return m.withArgs(m.DialectModule(), "SET", reprAll(t.Values)).annotate("set"), true
	case *mysql.BitType:
		return m.withArgs(m.DialectModule(), "BIT", sizeArg(t.Size)).annotateAny(), true
	case *postgres.BitType:
		args := sizeArg(int(t.Len))
		if t.T == "bit varying" {
			args = append(args, "varying=True")
		}
		return m.withArgs(m.DialectModule(), "BIT", args).annotateAny(), true
	case *postgres.NetworkType:
		return vendor(m.DialectModule(), m.upper.String(t.T), "str"), true
	case *postgres.CurrencyType:
		return vendor(m.DialectModule(), "MONEY", "").annotateAny(), true
	case *postgres.TextSearchType:
		return vendor(m.DialectModule(), m.upper.String(t.T), "").annotateAny(), true
	case *postgres.RangeType:
		return vendor(m.DialectModule(), m.upper.String(t.T), "").annotateAny(), true
	case *postgres.ArrayType:
		if t.Type == nil {
			return Mapped{}, false
		}
		inner, ok := m.mapType(t.Type)
		if !ok {
			return Mapped{}, false
		}
		name, module := "ARRAY", sa
		if m.flavor == Legacy {
			module = m.DialectModule()
		}
		return Mapped{
			Expr:    name + "(" + inner.Expr + ")",
			Imports: append([]imports.Spec{{Module: module, Name: name}}, inner.Imports...),
			Python:  "list",
		}, true
	}
	return Mapped{}, false
}

func (m *Mapper) integer(t *schema.IntegerType) Mapped {
	name := t.T
	if m.dialect == "mysql" {
		if t.Unsigned {
			if name == "int" {
				name = "integer"
			}
			return m.withArgs(m.DialectModule(), m.upper.String(name), []string{"unsigned=True"}).annotate("int")
		}
		switch name {
		case "tinyint", "mediumint":
			return vendor(m.DialectModule(), m.upper.String(name), "int")
		}
	}
	switch name {
	case "bigint", "int8", "int64", "unsigned big int", "uint64":
		return generic("BigInteger", "int")
	case "smallint", "int2":
		return generic("SmallInteger", "int")
	}
	return generic("Integer", "int")
}

func (m *Mapper) str(t *schema.StringType) Mapped {
	switch t.T {
	case "char", "character", "bpchar", "nchar", "native character":
		return m.withArgs(sa, "CHAR", sizeArg(t.Size)).annotate("str")
	case "varchar", "character varying", "nvarchar", "varying character", "name":
		return m.withArgs(sa, "String", sizeArg(t.Size)).annotate("str")
	case "tinytext", "mediumtext", "longtext":
		return vendor(m.DialectModule(), m.upper.String(t.T), "str")
	}
	return generic("Text", "str")
}

func (m *Mapper) float(t *schema.FloatType) Mapped {
	if t.Unsigned && m.dialect == "mysql" {
		return m.withArgs(m.DialectModule(), m.upper.String(t.T), []string{"unsigned=True"}).annotate("float")
	}
	switch t.T {
	case "real", "float4":
		return generic("REAL", "float")
	case "double precision", "double", "float8":
		if m.flavor == Legacy {
			return m.withArgs(sa, "Float", []string{"53"}).annotate("float")
		}
		return generic("Double", "float")
	}
	if t.Precision > 0 {
		return m.withArgs(sa, "Float", []string{strconv.Itoa(t.Precision)}).annotate("float")
	}
	return generic("Float", "float")
}

func (m *Mapper) time(t *schema.TimeType) Mapped {
	fsp := func() []string {
		if m.dialect == "mysql" && t.Precision != nil && *t.Precision > 0 {
			return []string{"fsp=" + strconv.Itoa(*t.Precision)}
		}
		return nil
	}
	var r Mapped
	annotation := "datetime.datetime"
	switch t.T {
	case "date":
		r, annotation = generic("Date", ""), "datetime.date"
	case "time", "timetz":
		annotation = "datetime.time"
		switch {
		case t.T == "timetz":
			r = m.withArgs(sa, "Time", []string{"True"})
		case fsp() != nil:
			r = m.withArgs(m.DialectModule(), "TIME", fsp())
		default:
			r = generic("Time", "")
		}
	case "timestamptz":
		r = m.withArgs(sa, "DateTime", []string{"True"})
	case "year":
		return vendor(m.DialectModule(), "YEAR", "int")
	default:
		if args := fsp(); args != nil {
			r = m.withArgs(m.DialectModule(), m.upper.String(t.T), args)
		} else {
			r = generic("DateTime", "")
		}
	}
	return withModuleAnnotation(r, "datetime", annotation)
}

func (m *Mapper) binary(t *schema.BinaryType) Mapped {
	switch t.T {
	case "binary", "varbinary":
		var args []string
		if t.Size != nil {
			args = sizeArg(*t.Size)
		}
		return m.withArgs(sa, m.upper.String(t.T), args).annotate("bytes")
	case "tinyblob", "mediumblob", "longblob":
		return vendor(m.DialectModule(), m.upper.String(t.T), "bytes")
	}
	var args []string
	if t.Size != nil {
		args = sizeArg(*t.Size)
	}
	return m.withArgs(sa, "LargeBinary", args).annotate("bytes")
}

func (m *Mapper) enum(values []string, name string) Mapped {
	args := reprAll(values)
	if name != "" {
		args = append(args, "name="+pysrc.Repr(name))
	}
	return m.withArgs(sa, "Enum", args).annotate("str")
}

// unsupported keeps the raw type as a reference into the dialect module.
func (m *Mapper) unsupported(c *model.Column, raw string) Mapped {
	base, args := splitTypeArgs(raw)
	name := m.upper.String(identifier(base))
	r := m.withArgs(m.DialectModule(), name, args).annotateAny()
	r.Unsupported = true
	m.diags.Addf(diag.UnsupportedType, c.Table.FullName(), c.Name,
		"no mapping for type %q, using %s.%s", raw, m.DialectModule(), name)
	return r
}

func (m *Mapper) withArgs(module, name string, args []string) Mapped {
	expr := name
	if len(args) > 0 {
		expr = pysrc.Call(name, args, nil, "")
	}
	return Mapped{Expr: expr, Imports: []imports.Spec{{Module: module, Name: name}}}
}

func (r Mapped) annotate(python string) Mapped {
	r.Python = python
	return r
}

func (r Mapped) annotateAny() Mapped {
	r.Python = "Any"
	r.PythonImports = []imports.Spec{{Module: "typing", Name: "Any"}}
	return r
}

func generic(name, python string) Mapped {
	return Mapped{Expr: name, Imports: []imports.Spec{{Module: sa, Name: name}}, Python: python}
}

func vendor(module, name, python string) Mapped {
	return Mapped{Expr: name, Imports: []imports.Spec{{Module: module, Name: name}}, Python: python}
}

func withModuleAnnotation(r Mapped, module, python string) Mapped {
	r.Python = python
	r.PythonImports = []imports.Spec{{Module: module}}
	return r
}

func decimalArgs(precision, scale int) []string {
	switch {
	case precision > 0 && scale > 0:
		return []string{strconv.Itoa(precision), strconv.Itoa(scale)}
	case precision > 0:
		return []string{strconv.Itoa(precision)}
	}
	return nil
}

func sizeArg(n int) []string {
	if n > 0 {
		return []string{strconv.Itoa(n)}
	}
	return nil
}

func reprAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = pysrc.Repr(v)
	}
	return out
}

// splitTypeArgs splits "geometry(point, 4326)" into its base name and
// rendered arguments; numbers stay bare, anything else becomes a string.
func splitTypeArgs(raw string) (string, []string) {
	open := strings.IndexByte(raw, '(')
	if open < 0 || !strings.HasSuffix(raw, ")") {
		return raw, nil
	}
	base := strings.TrimSpace(raw[:open])
	var args []string
	for _, a := range strings.Split(raw[open+1:len(raw)-1], ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, err := strconv.ParseFloat(a, 64); err == nil {
			args = append(args, a)
		} else {
			args = append(args, pysrc.Repr(strings.Trim(a, `'"`)))
		}
	}
	return base, args
}

// identifier turns a type name such as "double precision" or
// "public.my type" into a Python identifier.
func identifier(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Trim(s, `"`+"`")
	out := strings.Map(func(r rune) rune {
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, s)
	if out == "" || out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

// lowerOutsideQuotes lowercases a type declaration but keeps quoted enum
// or set members intact.
func lowerOutsideQuotes(s string) string {
	var b strings.Builder
	var quote rune
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		default:
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
