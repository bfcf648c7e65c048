package render

import (
	"github.com/tordrt/sqlagen/internal/pysrc"
)

const dataclassMetadataKey = "sa"

// legacyDataclassStyle maps classes imperatively through a registry,
// keeping the SQLAlchemy constructs in the dataclass field metadata.
type legacyDataclassStyle struct{}

func (legacyDataclassStyle) prelude(g *generator) []string {
	g.imports.RequireFuture()
	g.imports.Add("dataclasses", "dataclass")
	g.imports.Add("dataclasses", "field")
	g.imports.Add("sqlalchemy.orm", "registry")
	return []string{"mapper_registry = registry()"}
}

func (legacyDataclassStyle) metadataRef() string { return "mapper_registry.metadata" }

func (legacyDataclassStyle) reserved() []string {
	return []string{"mapper_registry"}
}

func fieldMetadata(construct string) pysrc.KV {
	return pysrc.KV{Key: "metadata", Value: pysrc.Dict([]pysrc.KV{{Key: dataclassMetadataKey, Value: construct}})}
}

func (legacyDataclassStyle) renderClass(g *generator, u *unit) string {
	vars := g.classVariables(u, true)
	vars = append(vars, "__sa_dataclass_metadata_key__ = "+pysrc.Repr(dataclassMetadataKey))

	var cols, rels []string
	for _, c := range classColumns(u.table) {
		attr := u.attrs[c]
		typ := g.pythonType(c)
		var kwargs []pysrc.KV
		switch {
		case c.PrimaryKey:
			kwargs = append(kwargs, pysrc.KV{Key: "init", Value: "False"})
		case c.Nullable:
			typ = g.optional(typ)
			kwargs = append(kwargs, pysrc.KV{Key: "default", Value: "None"})
		}
		kwargs = append(kwargs, fieldMetadata(g.renderColumn(c, formColumn, attr != c.Name)))
		cols = append(cols, attr+": "+typ+" = "+pysrc.Call("field", nil, kwargs, ""))
	}
	for _, rel := range u.rels {
		var kwargs []pysrc.KV
		if rel.ToMany() {
			kwargs = append(kwargs, pysrc.KV{Key: "default_factory", Value: "list"})
		} else {
			kwargs = append(kwargs, pysrc.KV{Key: "default", Value: "None"})
		}
		kwargs = append(kwargs, fieldMetadata(g.relationshipCall(u, rel)))
		ann := g.relationshipAnnotation(u, rel, true)
		rels = append(rels, g.relNames[rel]+": "+ann+" = "+pysrc.Call("field", nil, kwargs, ""))
	}

	decl := "@mapper_registry.mapped\n@dataclass\nclass " + u.name + ":"
	return assembleClass(decl, vars, cols, rels)
}
