package render

import (
	"sort"

	"github.com/tordrt/sqlagen/internal/model"
)

// declarationOrder returns tables so that referenced tables come before
// the tables referencing them. Ties keep schema order, and the edges that
// close a cycle are left to forward references.
func declarationOrder(tables []*model.Table) []*model.Table {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*model.Table]int, len(tables))
	out := make([]*model.Table, 0, len(tables))

	var visit func(t *model.Table)
	visit = func(t *model.Table) {
		state[t] = visiting
		for _, dep := range dependencies(t) {
			if state[dep] == unvisited {
				visit(dep)
			}
		}
		state[t] = done
		out = append(out, t)
	}
	for _, t := range tables {
		if state[t] == unvisited {
			visit(t)
		}
	}
	return out
}

// dependencies lists the distinct tables t references, in schema order.
func dependencies(t *model.Table) []*model.Table {
	seen := make(map[*model.Table]bool)
	var deps []*model.Table
	for _, fk := range t.ForeignKeys {
		if fk.RefTable == t || seen[fk.RefTable] {
			continue
		}
		seen[fk.RefTable] = true
		deps = append(deps, fk.RefTable)
	}
	sort.SliceStable(deps, func(i, j int) bool { return deps[i].Index < deps[j].Index })
	return deps
}
