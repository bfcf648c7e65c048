// Package relation infers object relationships from foreign keys.
package relation

import (
	"sort"
	"strings"

	"github.com/tordrt/sqlagen/internal/diag"
	"github.com/tordrt/sqlagen/internal/model"
)

// Kind is the cardinality of a relationship seen from its source.
type Kind int

const (
	ManyToOne Kind = iota
	OneToOne
	OneToMany
	ManyToMany
)

func (k Kind) String() string {
	switch k {
	case ManyToOne:
		return "many-to-one"
	case OneToOne:
		return "one-to-one"
	case OneToMany:
		return "one-to-many"
	case ManyToMany:
		return "many-to-many"
	}
	return "unknown"
}

// Relationship is a derived attribute on the class of Source.
type Relationship struct {
	Kind   Kind
	Source *model.Table
	Target *model.Table
	// ForeignKey is the constraint the relationship traces to. For
	// many-to-many it is the association table's key pointing at Target.
	ForeignKey *model.ForeignKey
	// Association is the bridging table of a many-to-many relationship.
	Association *model.Table
	// Backref is the opposite end, nil when back references are disabled.
	Backref *Relationship
	// RemoteSide lists the remote columns of a self-referential relationship.
	RemoteSide []*model.Column
	// ForeignKeys disambiguates tables joined by several constraints.
	ForeignKeys []*model.Column
	// Reverse marks the side generated on the referenced table.
	Reverse bool
}

// ToMany reports whether the relationship holds a collection.
func (r *Relationship) ToMany() bool {
	return r.Kind == OneToMany || r.Kind == ManyToMany
}

// SelfReferential reports whether source and target are the same table.
func (r *Relationship) SelfReferential() bool {
	return r.Source == r.Target
}

// Nullable reports whether a to-one relationship may be empty.
func (r *Relationship) Nullable() bool {
	if r.ToMany() {
		return false
	}
	for _, c := range r.ForeignKey.Columns {
		if c.Nullable {
			return true
		}
	}
	return false
}

// UseListFalse reports whether the collection default must be overridden,
// which is the case on the referenced end of a one-to-one.
func (r *Relationship) UseListFalse() bool {
	return r.Kind == OneToOne && r.Reverse
}

// PreferredName is the name the relationship asks for before resolution.
// Self-referential reverse sides are named by the naming strategy instead.
// The referenced end of one of several keys joining the same two tables
// is suffixed with the key's column stem to keep the ends apart.
func (r *Relationship) PreferredName() string {
	fk := r.ForeignKey
	if fk == nil {
		return r.Target.Name
	}
	if r.Reverse && len(r.ForeignKeys) > 0 && !r.SelfReferential() {
		return r.Target.Name + "_" + columnStem(fk.Columns)
	}
	if (fk.Table == r.Source || r.Kind == ManyToMany) && len(fk.Columns) == 1 && hasIDSuffix(fk.Columns[0].Name) {
		return strings.TrimSuffix(fk.Columns[0].Name, "_id")
	}
	return r.Target.Name
}

func hasIDSuffix(name string) bool {
	return strings.HasSuffix(name, "_id") && len(name) > 3
}

func columnStem(cols []*model.Column) string {
	if len(cols) == 1 && hasIDSuffix(cols[0].Name) {
		return strings.TrimSuffix(cols[0].Name, "_id")
	}
	return strings.Join(model.ColumnNames(cols), "_")
}

// Options configures inference.
type Options struct {
	// NoBidi suppresses back references.
	NoBidi bool
}

// Result holds the inferred relationships.
type Result struct {
	// Associations are the pure many-to-many bridge tables.
	Associations map[*model.Table]bool
	byTable      map[*model.Table][]*Relationship
}

// For returns the relationships of t ordered by their foreign key's
// declaration index.
func (r *Result) For(t *model.Table) []*Relationship {
	return r.byTable[t]
}

// IsClass reports whether t is rendered as a mapped class: it must have a
// primary key and not be an association table.
func (r *Result) IsClass(t *model.Table) bool {
	return t.HasPrimaryKey() && !r.Associations[t]
}

type entry struct {
	rel   *Relationship
	order int
	seq   int
}

// Infer derives the relationships of every class in m. Composite keys that
// cannot be mapped to a single relationship are reported to diags.
func Infer(m *model.Model, opts Options, diags *diag.List) *Result {
	res := &Result{
		Associations: make(map[*model.Table]bool),
		byTable:      make(map[*model.Table][]*Relationship),
	}
	for _, t := range m.Tables {
		if isAssociation(t) {
			res.Associations[t] = true
		}
	}

	entries := make(map[*model.Table][]entry)
	seq := 0
	add := func(r *Relationship, order int) {
		entries[r.Source] = append(entries[r.Source], entry{rel: r, order: order, seq: seq})
		seq++
	}

	for _, t := range m.Tables {
		if res.Associations[t] {
			continue
		}
		for _, fk := range t.ForeignKeys {
			if !res.IsClass(t) || !res.IsClass(fk.RefTable) {
				continue
			}
			if len(fk.Columns) > 1 && !referencesKey(fk) {
				diags.Addf(diag.AmbiguousRelationship, t.FullName(), "",
					"composite foreign key (%s) does not reference a primary or unique key of %s; relationship omitted",
					strings.Join(model.ColumnNames(fk.Columns), ", "), fk.RefTable.FullName())
				continue
			}

			kind := ManyToOne
			if isUniqueSet(t, fk.Columns) {
				kind = OneToOne
			}
			rel := &Relationship{Kind: kind, Source: t, Target: fk.RefTable, ForeignKey: fk}
			if fk.SelfReferential() {
				rel.RemoteSide = fk.RefColumns
			}
			if sharedKeys(t, fk.RefTable) > 1 {
				rel.ForeignKeys = fk.Columns
			}
			add(rel, fk.Index)

			if opts.NoBidi {
				continue
			}
			reverseKind := OneToMany
			if kind == OneToOne {
				reverseKind = OneToOne
			}
			back := &Relationship{
				Kind:        reverseKind,
				Source:      fk.RefTable,
				Target:      t,
				ForeignKey:  fk,
				ForeignKeys: rel.ForeignKeys,
				Backref:     rel,
				Reverse:     true,
			}
			if fk.SelfReferential() {
				back.RemoteSide = fk.Columns
			}
			rel.Backref = back
			add(back, fk.Index)
		}
	}

	for _, assoc := range m.Tables {
		if !res.Associations[assoc] {
			continue
		}
		left, right := assoc.ForeignKeys[0], assoc.ForeignKeys[1]
		if !res.IsClass(left.RefTable) || !res.IsClass(right.RefTable) {
			continue
		}
		rel := &Relationship{
			Kind:        ManyToMany,
			Source:      left.RefTable,
			Target:      right.RefTable,
			ForeignKey:  right,
			Association: assoc,
		}
		add(rel, right.Index)
		if opts.NoBidi {
			continue
		}
		back := &Relationship{
			Kind:        ManyToMany,
			Source:      right.RefTable,
			Target:      left.RefTable,
			ForeignKey:  left,
			Association: assoc,
			Backref:     rel,
			Reverse:     true,
		}
		rel.Backref = back
		add(back, left.Index)
	}

	for t, es := range entries {
		sort.SliceStable(es, func(i, j int) bool {
			if es[i].order != es[j].order {
				return es[i].order < es[j].order
			}
			return es[i].seq < es[j].seq
		})
		rels := make([]*Relationship, len(es))
		for i, e := range es {
			rels[i] = e.rel
		}
		res.byTable[t] = rels
	}
	return res
}

// isAssociation reports whether t only bridges two other tables: exactly
// two foreign keys to distinct tables other than t, every column part of
// them and the primary key made of exactly those columns.
func isAssociation(t *model.Table) bool {
	if len(t.ForeignKeys) != 2 || !t.HasPrimaryKey() {
		return false
	}
	a, b := t.ForeignKeys[0], t.ForeignKeys[1]
	if a.RefTable == b.RefTable || a.RefTable == t || b.RefTable == t {
		return false
	}
	union := make(map[*model.Column]bool)
	for _, c := range a.Columns {
		union[c] = true
	}
	for _, c := range b.Columns {
		union[c] = true
	}
	if len(union) != len(t.Columns) {
		return false
	}
	for _, c := range t.Columns {
		if !union[c] {
			return false
		}
	}
	pk := t.PrimaryKey.Columns
	if len(pk) != len(union) {
		return false
	}
	for _, c := range pk {
		if !union[c] {
			return false
		}
	}
	return true
}

// isUniqueSet reports whether cols are exactly the primary key or a unique
// constraint or unique index of t.
func isUniqueSet(t *model.Table, cols []*model.Column) bool {
	if t.HasPrimaryKey() && model.SameColumns(t.PrimaryKey.Columns, cols) {
		return true
	}
	for _, u := range t.Uniques {
		if model.SameColumns(u.Columns, cols) {
			return true
		}
	}
	for _, idx := range t.Indexes {
		if idx.Unique && model.SameColumns(idx.Columns, cols) {
			return true
		}
	}
	return false
}

// referencesKey reports whether a composite key targets a key of the
// referenced table.
func referencesKey(fk *model.ForeignKey) bool {
	return isUniqueSet(fk.RefTable, fk.RefColumns)
}

// sharedKeys counts the foreign keys between a and b in either direction.
func sharedKeys(a, b *model.Table) int {
	n := 0
	for _, fk := range a.ForeignKeys {
		if fk.RefTable == b {
			n++
		}
	}
	if a == b {
		return n
	}
	for _, fk := range b.ForeignKeys {
		if fk.RefTable == a {
			n++
		}
	}
	return n
}
