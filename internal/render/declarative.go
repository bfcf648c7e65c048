package render

import (
	"github.com/tordrt/sqlagen/internal/relation"
	"github.com/tordrt/sqlagen/internal/typemap"
)

// declarativeStyle maps tables with a primary key to classes of a
// declarative base. The dataclass variant only changes the base.
type declarativeStyle struct {
	flavor    typemap.Flavor
	dataclass bool
}

func (s declarativeStyle) prelude(g *generator) []string {
	switch {
	case s.flavor == typemap.Legacy:
		g.imports.Add("sqlalchemy.orm", "declarative_base")
		return []string{"Base = declarative_base()"}
	case s.dataclass:
		g.imports.Add("sqlalchemy.orm", "DeclarativeBase")
		g.imports.Add("sqlalchemy.orm", "MappedAsDataclass")
		return []string{"class Base(MappedAsDataclass, DeclarativeBase):\n" + indentation + "pass"}
	default:
		g.imports.Add("sqlalchemy.orm", "DeclarativeBase")
		return []string{"class Base(DeclarativeBase):\n" + indentation + "pass"}
	}
}

func (declarativeStyle) metadataRef() string { return "Base.metadata" }

func (declarativeStyle) reserved() []string { return []string{"Base"} }

func (s declarativeStyle) renderClass(g *generator, u *unit) string {
	var cols, rels []string
	for _, c := range classColumns(u.table) {
		attr := u.attrs[c]
		if s.flavor == typemap.Legacy {
			cols = append(cols, attr+" = "+g.renderColumn(c, formColumn, attr != c.Name))
			continue
		}
		g.imports.Add("sqlalchemy.orm", "Mapped")
		typ := g.pythonType(c)
		if c.Nullable {
			typ = g.optional(typ)
		}
		cols = append(cols, attr+": Mapped["+typ+"] = "+g.renderColumn(c, formMappedColumn, attr != c.Name))
	}
	for _, rel := range u.rels {
		rels = append(rels, s.relationship(g, u, rel))
	}
	return assembleClass("class "+u.name+"(Base):", g.classVariables(u, true), cols, rels)
}

func (s declarativeStyle) relationship(g *generator, u *unit, rel *relation.Relationship) string {
	name := g.relNames[rel]
	call := g.relationshipCall(u, rel)
	if s.flavor == typemap.Legacy {
		return name + " = " + call
	}
	g.imports.Add("sqlalchemy.orm", "Mapped")
	return name + ": Mapped[" + g.relationshipAnnotation(u, rel, false) + "] = " + call
}
