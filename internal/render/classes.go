package render

import (
	"strings"

	"github.com/tordrt/sqlagen/internal/model"
	"github.com/tordrt/sqlagen/internal/pysrc"
	"github.com/tordrt/sqlagen/internal/relation"
)

// assembleClass joins the declaration with the indented body sections:
// class variables, columns and relationships, one blank line apart.
func assembleClass(decl string, vars, cols, rels []string) string {
	var sections []string
	for _, block := range [][]string{vars, cols, rels} {
		if len(block) > 0 {
			sections = append(sections, pysrc.Indent(strings.Join(block, "\n"), indentation))
		}
	}
	return decl + "\n" + strings.Join(sections, "\n\n")
}

// tableArgs renders the __table_args__ value of t, or "" when the table
// needs none.
func (g *generator) tableArgs(t *model.Table) string {
	args := g.renderConstraints(t)
	kwargs := tableKwargs(t)
	if len(kwargs) > 0 {
		if len(args) == 0 {
			return pysrc.Dict(kwargs)
		}
		args = append(args, pysrc.Dict(kwargs))
	}
	if len(args) == 0 {
		return ""
	}
	joined := strings.Join(args, ",\n"+indentation)
	if len(args) == 1 {
		joined += ","
	}
	return "(\n" + indentation + joined + "\n)"
}

// classVariables returns the __tablename__ and __table_args__ lines.
func (g *generator) classVariables(u *unit, withTableName bool) []string {
	var vars []string
	if withTableName {
		vars = append(vars, "__tablename__ = "+pysrc.Repr(u.table.Name))
	}
	if args := g.tableArgs(u.table); args != "" {
		vars = append(vars, "__table_args__ = "+args)
	}
	return vars
}

// classColumns returns the columns of a class, primary key first.
func classColumns(t *model.Table) []*model.Column {
	cols := make([]*model.Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.PrimaryKey {
			cols = append(cols, c)
		}
	}
	for _, c := range t.Columns {
		if !c.PrimaryKey {
			cols = append(cols, c)
		}
	}
	return cols
}

// pythonType returns the annotation type of c, registering its imports.
func (g *generator) pythonType(c *model.Column) string {
	mapped := g.types[c]
	if mapped.Python == "" {
		g.imports.Add("typing", "Any")
		return "Any"
	}
	g.imports.AddSpecs(mapped.PythonImports...)
	return mapped.Python
}

func (g *generator) optional(typ string) string {
	g.imports.Add("typing", "Optional")
	return "Optional[" + typ + "]"
}

// classRef names the class of target from within from: bare when it is
// already declared, a forward reference string otherwise.
func (g *generator) classRef(from *unit, target *model.Table) string {
	name := g.units[target].name
	if g.declaredBefore(target, from.table) {
		return name
	}
	return pysrc.Repr(name)
}

// relationshipAnnotation returns the target type of rel: a list for
// collections and optional when the foreign key is nullable.
func (g *generator) relationshipAnnotation(u *unit, rel *relation.Relationship, alwaysOptional bool) string {
	ref := g.classRef(u, rel.Target)
	if rel.ToMany() {
		g.imports.Add("typing", "List")
		return "List[" + ref + "]"
	}
	if alwaysOptional || rel.Nullable() {
		return g.optional(ref)
	}
	return ref
}

// secondaryRef names the association table of a many-to-many.
func (g *generator) secondaryRef(u *unit, assoc *model.Table) string {
	if g.declaredBefore(assoc, u.table) {
		return g.units[assoc].name
	}
	return pysrc.Repr(assoc.FullName())
}

func (g *generator) attrNames(u *unit, cols []*model.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = u.attrs[c]
	}
	return names
}

// qualifiedColumns returns "[Class.attr, ...]" for cols.
func (g *generator) qualifiedColumns(cols []*model.Column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		owner := g.units[c.Table]
		parts[i] = owner.name + "." + owner.attrs[c]
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// relationshipKwargs returns the options of rel other than its target,
// in the order secondary, remote_side, foreign_keys, uselist and
// back_populates. With qualify every column reference is a string
// resolved later by the mapper.
func (g *generator) relationshipKwargs(u *unit, rel *relation.Relationship, qualify bool) []pysrc.KV {
	var kwargs []pysrc.KV
	if rel.Association != nil {
		ref := g.secondaryRef(u, rel.Association)
		if qualify {
			ref = pysrc.Repr(rel.Association.FullName())
		}
		kwargs = append(kwargs, pysrc.KV{Key: "secondary", Value: ref})
	}
	if len(rel.RemoteSide) > 0 {
		v := pysrc.List(g.attrNames(u, rel.RemoteSide))
		if qualify {
			v = pysrc.Repr(g.qualifiedColumns(rel.RemoteSide))
		}
		kwargs = append(kwargs, pysrc.KV{Key: "remote_side", Value: v})
	}
	if len(rel.ForeignKeys) > 0 {
		var v string
		if rel.ForeignKeys[0].Table == u.table && !qualify {
			v = pysrc.List(g.attrNames(u, rel.ForeignKeys))
		} else {
			v = pysrc.Repr(g.qualifiedColumns(rel.ForeignKeys))
		}
		kwargs = append(kwargs, pysrc.KV{Key: "foreign_keys", Value: v})
	}
	if rel.UseListFalse() {
		kwargs = append(kwargs, pysrc.KV{Key: "uselist", Value: "False"})
	}
	if rel.Backref != nil && !qualify {
		kwargs = append(kwargs, pysrc.KV{Key: "back_populates", Value: pysrc.Repr(g.relNames[rel.Backref])})
	}
	return kwargs
}

// relationshipCall renders relationship(...) for rel.
func (g *generator) relationshipCall(u *unit, rel *relation.Relationship) string {
	g.imports.Add("sqlalchemy.orm", "relationship")
	args := []string{g.classRef(u, rel.Target)}
	return pysrc.Call("relationship", args, g.relationshipKwargs(u, rel, false), "")
}
