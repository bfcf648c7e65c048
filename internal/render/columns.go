package render

import (
	"sort"

	"github.com/tordrt/sqlagen/internal/model"
	"github.com/tordrt/sqlagen/internal/pysrc"
)

type columnForm int

const (
	// formColumn renders Column(...), nullability spelled out.
	formColumn columnForm = iota
	// formMappedColumn renders mapped_column(...), nullability carried by
	// the annotation.
	formMappedColumn
)

func (g *generator) usesDefaultName(kind model.ConstraintKind, t *model.Table, cols []*model.Column, name string) bool {
	return model.UsesDefaultName(g.model.Dialect, kind, t, cols, name)
}

// renderColumn renders the column construct of c. Single column
// constraints with default names are folded into its keyword arguments.
func (g *generator) renderColumn(c *model.Column, form columnForm, showName bool) string {
	t := c.Table
	var args []string
	var kwargs []pysrc.KV

	if showName {
		args = append(args, pysrc.Repr(c.Name))
	}

	var dedicated []*model.ForeignKey
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) == 1 && fk.Columns[0] == c && g.usesDefaultName(model.KindForeignKey, t, fk.Columns, fk.Name) {
			dedicated = append(dedicated, fk)
		}
	}
	// The referenced column implies the type, unless the key points back
	// at the column itself.
	showType := len(dedicated) == 0
	for _, fk := range dedicated {
		if fk.RefColumns[0] == c {
			showType = true
		}
	}
	if showType {
		mapped := g.types[c]
		g.imports.AddSpecs(mapped.Imports...)
		args = append(args, mapped.Expr)
	}
	for _, fk := range dedicated {
		g.imports.Add("sqlalchemy", "ForeignKey")
		fkArgs := []string{pysrc.Repr(refName(fk.RefColumns[0]))}
		args = append(args, pysrc.Call("ForeignKey", fkArgs, fkOptions(fk), ""))
	}

	if c.PrimaryKey && g.usesDefaultName(model.KindPrimaryKey, t, t.PrimaryKey.Columns, t.PrimaryKey.Name) {
		kwargs = append(kwargs, pysrc.KV{Key: "primary_key", Value: "True"})
	}
	if form == formColumn && !c.Nullable && !c.SolePrimaryKey() {
		kwargs = append(kwargs, pysrc.KV{Key: "nullable", Value: "False"})
	}
	if g.isUnique(c) {
		kwargs = append(kwargs, pysrc.KV{Key: "unique", Value: "True"})
	}
	if g.hasIndex(c) {
		kwargs = append(kwargs, pysrc.KV{Key: "index", Value: "True"})
	}
	if def := serverDefault(c); def != "" {
		g.imports.Add("sqlalchemy", "text")
		kwargs = append(kwargs, pysrc.KV{Key: "server_default", Value: pysrc.Call("text", []string{pysrc.Repr(def)}, nil, "")})
	}
	if c.Comment != "" {
		kwargs = append(kwargs, pysrc.KV{Key: "comment", Value: pysrc.Repr(c.Comment)})
	}

	name := "Column"
	if form == formMappedColumn {
		name = "mapped_column"
		g.imports.Add("sqlalchemy.orm", "mapped_column")
	} else {
		g.imports.Add("sqlalchemy", "Column")
	}
	return pysrc.Call(name, args, kwargs, "")
}

// serverDefault returns the default to render, dropping the sequence
// defaults implied by autoincrement.
func serverDefault(c *model.Column) string {
	if c.Default == nil {
		return ""
	}
	def := *c.Default
	if c.Autoincrement && len(def) >= 8 && def[:8] == "nextval(" {
		return ""
	}
	return def
}

func (g *generator) isUnique(c *model.Column) bool {
	t := c.Table
	for _, u := range t.Uniques {
		if len(u.Columns) == 1 && u.Columns[0] == c && g.usesDefaultName(model.KindUnique, t, u.Columns, u.Name) {
			return true
		}
	}
	for _, idx := range t.Indexes {
		if idx.Unique && len(idx.Columns) == 1 && idx.Columns[0] == c && g.usesDefaultName(model.KindIndex, t, idx.Columns, idx.Name) {
			return true
		}
	}
	return false
}

func (g *generator) hasIndex(c *model.Column) bool {
	t := c.Table
	for _, idx := range t.Indexes {
		if len(idx.Columns) == 1 && idx.Columns[0] == c && g.usesDefaultName(model.KindIndex, t, idx.Columns, idx.Name) {
			return true
		}
	}
	return false
}

func refName(c *model.Column) string {
	return c.Table.FullName() + "." + c.Name
}

func fkOptions(fk *model.ForeignKey) []pysrc.KV {
	var kwargs []pysrc.KV
	if fk.OnDelete != "" {
		kwargs = append(kwargs, pysrc.KV{Key: "ondelete", Value: pysrc.Repr(fk.OnDelete)})
	}
	if fk.OnUpdate != "" {
		kwargs = append(kwargs, pysrc.KV{Key: "onupdate", Value: pysrc.Repr(fk.OnUpdate)})
	}
	return kwargs
}

func reprNames(cols []*model.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pysrc.Repr(c.Name)
	}
	return out
}

type sortedConstraint struct {
	key    string
	source string
}

// renderConstraints renders the table level constraints and indexes that
// are not folded into a column: named or multi column ones, and checks.
// Constraints sort by kind and columns, indexes by name.
func (g *generator) renderConstraints(t *model.Table) []string {
	var cons []sortedConstraint

	if t.HasPrimaryKey() && !g.usesDefaultName(model.KindPrimaryKey, t, t.PrimaryKey.Columns, t.PrimaryKey.Name) {
		g.imports.Add("sqlalchemy", "PrimaryKeyConstraint")
		cons = append(cons, sortedConstraint{
			key:    "P" + pysrc.List(reprNames(t.PrimaryKey.Columns)),
			source: pysrc.Call("PrimaryKeyConstraint", reprNames(t.PrimaryKey.Columns), []pysrc.KV{{Key: "name", Value: pysrc.Repr(t.PrimaryKey.Name)}}, ""),
		})
	}
	for _, fk := range t.ForeignKeys {
		named := !g.usesDefaultName(model.KindForeignKey, t, fk.Columns, fk.Name)
		if !named && len(fk.Columns) == 1 {
			continue
		}
		g.imports.Add("sqlalchemy", "ForeignKeyConstraint")
		remote := make([]string, len(fk.RefColumns))
		for i, c := range fk.RefColumns {
			remote[i] = pysrc.Repr(refName(c))
		}
		kwargs := fkOptions(fk)
		if named {
			kwargs = append(kwargs, pysrc.KV{Key: "name", Value: pysrc.Repr(fk.Name)})
		}
		cons = append(cons, sortedConstraint{
			key:    "F" + pysrc.List(reprNames(fk.Columns)),
			source: pysrc.Call("ForeignKeyConstraint", []string{pysrc.List(reprNames(fk.Columns)), pysrc.List(remote)}, kwargs, ""),
		})
	}
	for _, u := range t.Uniques {
		named := !g.usesDefaultName(model.KindUnique, t, u.Columns, u.Name)
		if !named && len(u.Columns) == 1 {
			continue
		}
		g.imports.Add("sqlalchemy", "UniqueConstraint")
		var kwargs []pysrc.KV
		if named {
			kwargs = append(kwargs, pysrc.KV{Key: "name", Value: pysrc.Repr(u.Name)})
		}
		cons = append(cons, sortedConstraint{
			key:    "U" + pysrc.List(reprNames(u.Columns)),
			source: pysrc.Call("UniqueConstraint", reprNames(u.Columns), kwargs, ""),
		})
	}
	for _, ck := range t.Checks {
		g.imports.Add("sqlalchemy", "CheckConstraint")
		var kwargs []pysrc.KV
		if !g.usesDefaultName(model.KindCheck, t, nil, ck.Name) {
			kwargs = append(kwargs, pysrc.KV{Key: "name", Value: pysrc.Repr(ck.Name)})
		}
		cons = append(cons, sortedConstraint{
			key:    "C" + ck.Expression,
			source: pysrc.Call("CheckConstraint", []string{pysrc.Repr(ck.Expression)}, kwargs, ""),
		})
	}
	sort.SliceStable(cons, func(i, j int) bool { return cons[i].key < cons[j].key })

	out := make([]string, 0, len(cons)+len(t.Indexes))
	for _, c := range cons {
		out = append(out, c.source)
	}

	indexes := append([]*model.Index(nil), t.Indexes...)
	sort.SliceStable(indexes, func(i, j int) bool { return indexes[i].Name < indexes[j].Name })
	for _, idx := range indexes {
		if len(idx.Columns) == 1 && g.usesDefaultName(model.KindIndex, t, idx.Columns, idx.Name) {
			continue
		}
		g.imports.Add("sqlalchemy", "Index")
		var kwargs []pysrc.KV
		if idx.Unique {
			kwargs = append(kwargs, pysrc.KV{Key: "unique", Value: "True"})
		}
		args := append([]string{pysrc.Repr(idx.Name)}, reprNames(idx.Columns)...)
		out = append(out, pysrc.Call("Index", args, kwargs, ""))
	}
	return out
}

// tableKwargs returns the schema and comment options of t, sorted by key.
func tableKwargs(t *model.Table) []pysrc.KV {
	var kwargs []pysrc.KV
	if t.Comment != "" {
		kwargs = append(kwargs, pysrc.KV{Key: "comment", Value: pysrc.Repr(t.Comment)})
	}
	if t.Schema != "" {
		kwargs = append(kwargs, pysrc.KV{Key: "schema", Value: pysrc.Repr(t.Schema)})
	}
	return kwargs
}

// renderTable renders t as a Table(...) construct, columns in schema order.
func (g *generator) renderTable(t *model.Table) string {
	g.imports.Add("sqlalchemy", "Table")
	args := []string{pysrc.Repr(t.Name) + ", " + g.metadataRef()}
	for _, c := range t.Columns {
		args = append(args, g.renderColumn(c, formColumn, true))
	}
	args = append(args, g.renderConstraints(t)...)
	return pysrc.Call("Table", args, tableKwargs(t), indentation)
}
