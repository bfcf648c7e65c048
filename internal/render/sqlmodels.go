package render

import (
	"strings"

	"github.com/tordrt/sqlagen/internal/pysrc"
)

// sqlModelStyle renders SQLModel table classes. Columns keep their full
// SQLAlchemy definition through sa_column.
type sqlModelStyle struct{}

func (sqlModelStyle) prelude(g *generator) []string {
	g.imports.Add("sqlmodel", "SQLModel")
	return nil
}

func (sqlModelStyle) metadataRef() string { return "SQLModel.metadata" }

func (sqlModelStyle) reserved() []string { return []string{"SQLModel"} }

func (sqlModelStyle) renderClass(g *generator, u *unit) string {
	// SQLModel derives the table name from the lower-cased class name.
	vars := g.classVariables(u, u.table.Name != strings.ToLower(u.name))

	var cols, rels []string
	for _, c := range classColumns(u.table) {
		g.imports.Add("sqlmodel", "Field")
		typ := g.pythonType(c)
		var kwargs []pysrc.KV
		if c.Nullable || c.PrimaryKey {
			typ = g.optional(typ)
			kwargs = append(kwargs, pysrc.KV{Key: "default", Value: "None"})
		}
		kwargs = append(kwargs, pysrc.KV{Key: "sa_column", Value: g.renderColumn(c, formColumn, true)})
		cols = append(cols, u.attrs[c]+": "+typ+" = "+pysrc.Call("Field", nil, kwargs, ""))
	}
	for _, rel := range u.rels {
		g.imports.Add("sqlmodel", "Relationship")
		var kwargs []pysrc.KV
		if rel.Backref != nil {
			kwargs = append(kwargs, pysrc.KV{Key: "back_populates", Value: pysrc.Repr(g.relNames[rel.Backref])})
		}
		if extra := g.relationshipKwargs(u, rel, true); len(extra) > 0 {
			kwargs = append(kwargs, pysrc.KV{Key: "sa_relationship_kwargs", Value: pysrc.Dict(extra)})
		}
		ann := g.relationshipAnnotation(u, rel, true)
		rels = append(rels, g.relNames[rel]+": "+ann+" = "+pysrc.Call("Relationship", nil, kwargs, ""))
	}
	return assembleClass("class "+u.name+"(SQLModel, table=True):", vars, cols, rels)
}
