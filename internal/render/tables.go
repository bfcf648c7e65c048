package render

// tablesStyle declares every table as a Table bound to a module MetaData.
type tablesStyle struct{}

func (tablesStyle) prelude(g *generator) []string {
	g.imports.Add("sqlalchemy", "MetaData")
	return []string{"metadata = MetaData()"}
}

func (tablesStyle) metadataRef() string { return "metadata" }

func (tablesStyle) reserved() []string { return []string{"metadata"} }

func (tablesStyle) renderClass(g *generator, u *unit) string {
	return u.name + " = " + g.renderTable(u.table)
}
