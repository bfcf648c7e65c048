package model

import (
	"fmt"
	"strings"

	"github.com/tordrt/sqlagen/internal/schema"
)

// Adapt normalizes reflected metadata into a Model. Any structural
// inconsistency is reported as an *AdaptationError; nothing is dropped.
func Adapt(s *schema.Schema) (*Model, error) {
	if s == nil {
		return nil, adaptErr("", "", "no schema metadata")
	}

	m := &Model{
		Dialect: s.Dialect,
		Tables:  make([]*Table, 0, len(s.Tables)),
		byName:  make(map[string]*Table, len(s.Tables)),
	}

	// Tables and columns first so constraints can resolve any table.
	for i := range s.Tables {
		t, err := adaptTable(i, &s.Tables[i])
		if err != nil {
			return nil, err
		}
		if _, ok := m.byName[t.FullName()]; ok {
			return nil, adaptErr(t.FullName(), "", "duplicate table")
		}
		m.byName[t.FullName()] = t
		m.Tables = append(m.Tables, t)
	}

	fkIndex := 0
	for i := range s.Tables {
		raw := &s.Tables[i]
		t := m.Tables[i]

		for j := range raw.ForeignKeys {
			fk, err := m.adaptForeignKey(t, &raw.ForeignKeys[j])
			if err != nil {
				return nil, err
			}
			fk.Index = fkIndex
			fkIndex++
			t.ForeignKeys = append(t.ForeignKeys, fk)
		}

		for _, u := range raw.Uniques {
			cols, err := lookupColumns(t, u.Columns, u.Name)
			if err != nil {
				return nil, err
			}
			t.Uniques = append(t.Uniques, &Unique{Name: u.Name, Columns: cols})
		}

		for _, c := range raw.Checks {
			if strings.TrimSpace(c.Expression) == "" {
				return nil, adaptErr(t.FullName(), c.Name, "check constraint without expression")
			}
			t.Checks = append(t.Checks, &Check{Name: c.Name, Expression: c.Expression})
		}

		for _, idx := range raw.Indexes {
			cols, err := lookupColumns(t, idx.Columns, idx.Name)
			if err != nil {
				return nil, err
			}
			t.Indexes = append(t.Indexes, &Index{Name: idx.Name, Columns: cols, Unique: idx.IsUnique})
		}
	}

	return m, nil
}

func adaptTable(index int, raw *schema.Table) (*Table, error) {
	if raw.Name == "" {
		return nil, adaptErr("", "", fmt.Sprintf("table #%d has no name", index))
	}
	t := &Table{
		Index:   index,
		Name:    raw.Name,
		Schema:  raw.Schema,
		IsView:  raw.IsView,
		columns: make(map[string]*Column, len(raw.Columns)),
	}
	if raw.Comment != nil {
		t.Comment = *raw.Comment
	}

	for i, rc := range raw.Columns {
		if rc.Name == "" {
			return nil, adaptErr(t.FullName(), "", fmt.Sprintf("column #%d has no name", i))
		}
		if _, ok := t.columns[rc.Name]; ok {
			return nil, adaptErr(t.FullName(), "", fmt.Sprintf("duplicate column %q", rc.Name))
		}
		c := &Column{
			Table:         t,
			Index:         i,
			Name:          rc.Name,
			Type:          rc.Type,
			Nullable:      rc.Nullable,
			Default:       rc.DefaultValue,
			Autoincrement: rc.Autoincrement,
			EnumValues:    rc.EnumValues,
			EnumName:      rc.EnumName,
		}
		if rc.Comment != nil {
			c.Comment = *rc.Comment
		}
		t.columns[c.Name] = c
		t.Columns = append(t.Columns, c)
	}

	if len(raw.PrimaryKey) > 0 {
		cols, err := lookupColumns(t, raw.PrimaryKey, raw.PrimaryKeyName)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			c.PrimaryKey = true
		}
		t.PrimaryKey = &PrimaryKey{Name: raw.PrimaryKeyName, Columns: cols}
	}
	return t, nil
}

func (m *Model) adaptForeignKey(t *Table, raw *schema.ForeignKey) (*ForeignKey, error) {
	name := raw.Name
	if name == "" {
		name = fmt.Sprintf("(%s)", strings.Join(raw.Columns, ", "))
	}
	if len(raw.Columns) == 0 {
		return nil, adaptErr(t.FullName(), name, "foreign key without columns")
	}
	if len(raw.Columns) != len(raw.TargetColumns) {
		return nil, adaptErr(t.FullName(), name,
			fmt.Sprintf("%d local columns but %d referenced columns", len(raw.Columns), len(raw.TargetColumns)))
	}

	targetName := raw.TargetTable
	if raw.TargetSchema != "" {
		targetName = raw.TargetSchema + "." + raw.TargetTable
	}
	ref := m.byName[targetName]
	if ref == nil {
		return nil, adaptErr(t.FullName(), name, fmt.Sprintf("references unknown table %q", targetName))
	}

	cols, err := lookupColumns(t, raw.Columns, name)
	if err != nil {
		return nil, err
	}
	refCols, err := lookupColumns(ref, raw.TargetColumns, name)
	if err != nil {
		return nil, adaptErr(t.FullName(), name, err.(*AdaptationError).Message)
	}

	return &ForeignKey{
		Name:       raw.Name,
		Table:      t,
		Columns:    cols,
		RefTable:   ref,
		RefColumns: refCols,
		OnDelete:   raw.OnDelete,
		OnUpdate:   raw.OnUpdate,
	}, nil
}

func lookupColumns(t *Table, names []string, constraint string) ([]*Column, error) {
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		c := t.Column(n)
		if c == nil {
			return nil, adaptErr(t.FullName(), constraint, fmt.Sprintf("references unknown column %q of %s", n, t.FullName()))
		}
		cols = append(cols, c)
	}
	return cols, nil
}
