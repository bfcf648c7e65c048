// Package diag collects the non-fatal conditions found during a generation run.
package diag

import (
	"fmt"
	"strings"
)

// Kind identifies the category of a diagnostic.
type Kind int

const (
	// UnsupportedType is reported when a column type has no direct mapping
	// and the raw type reference is preserved instead.
	UnsupportedType Kind = iota + 1
	// AmbiguousRelationship is reported when a foreign key cannot be turned
	// into a relationship; its columns are still rendered.
	AmbiguousRelationship
	// IdentifierCollision is reported when a name had to be suffixed.
	IdentifierCollision
)

// String returns the warning name of the kind.
func (k Kind) String() string {
	switch k {
	case UnsupportedType:
		return "UnsupportedTypeWarning"
	case AmbiguousRelationship:
		return "AmbiguousRelationshipWarning"
	case IdentifierCollision:
		return "IdentifierCollisionResolved"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Diagnostic is a single non-fatal finding.
type Diagnostic struct {
	Kind    Kind
	Table   string
	Column  string
	Message string
}

// String formats the diagnostic for display.
func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.Kind.String())
	if d.Table != "" {
		b.WriteString(" on ")
		b.WriteString(d.Table)
		if d.Column != "" {
			b.WriteString(".")
			b.WriteString(d.Column)
		}
	}
	if d.Message != "" {
		b.WriteString(": ")
		b.WriteString(d.Message)
	}
	return b.String()
}

// List accumulates diagnostics in the order they were reported.
type List struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (l *List) Add(d Diagnostic) {
	l.items = append(l.items, d)
}

// Addf appends a diagnostic with a formatted message.
func (l *List) Addf(kind Kind, table, column, format string, args ...any) {
	l.Add(Diagnostic{Kind: kind, Table: table, Column: column, Message: fmt.Sprintf(format, args...)})
}

// Items returns the collected diagnostics.
func (l *List) Items() []Diagnostic {
	if l == nil {
		return nil
	}
	return l.items
}

// Len returns the number of collected diagnostics.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}
