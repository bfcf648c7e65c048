package model

import (
	"regexp"
	"strings"
)

// ConstraintKind selects the naming convention checked by UsesDefaultName.
type ConstraintKind int

const (
	KindPrimaryKey ConstraintKind = iota
	KindForeignKey
	KindUnique
	KindCheck
	KindIndex
)

var (
	reMySQLForeignKey = regexp.MustCompile(`_ibfk_\d+$`)
	reMySQLCheck      = regexp.MustCompile(`_chk_\d+$`)
)

// UsesDefaultName reports whether name is the one the database (or
// SQLAlchemy) would have generated for the constraint anyway, in which
// case generated code does not need to spell it out.
func UsesDefaultName(dialect string, kind ConstraintKind, t *Table, cols []*Column, name string) bool {
	if name == "" {
		return true
	}
	joined := strings.Join(ColumnNames(cols), "_")

	// SQLAlchemy's own index convention: ix_<table>_<column>.
	if kind == KindIndex && len(cols) == 1 && name == "ix_"+t.Name+"_"+cols[0].Name {
		return true
	}

	switch dialect {
	case "postgres":
		switch kind {
		case KindPrimaryKey:
			return name == t.Name+"_pkey"
		case KindForeignKey:
			return name == t.Name+"_"+joined+"_fkey"
		case KindUnique:
			return name == t.Name+"_"+joined+"_key"
		case KindCheck:
			return strings.HasPrefix(name, t.Name+"_") && strings.HasSuffix(name, "_check")
		case KindIndex:
			return name == t.Name+"_"+joined+"_idx"
		}
	case "mysql":
		switch kind {
		case KindPrimaryKey:
			return name == "PRIMARY"
		case KindForeignKey:
			return strings.HasPrefix(name, t.Name) && reMySQLForeignKey.MatchString(name)
		case KindUnique, KindIndex:
			return len(cols) > 0 && name == cols[0].Name
		case KindCheck:
			return strings.HasPrefix(name, t.Name) && reMySQLCheck.MatchString(name)
		}
	case "sqlite":
		return strings.HasPrefix(name, "sqlite_autoindex_")
	}
	return false
}
