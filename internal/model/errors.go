package model

import (
	"errors"
	"strings"
)

// ErrSchemaAdaptation indicates inconsistent reflected metadata.
var ErrSchemaAdaptation = errors.New("sqlagen: schema adaptation failed")

// AdaptationError identifies the table and constraint that could not be adapted.
type AdaptationError struct {
	Table      string
	Constraint string
	Message    string
}

// Error implements the error interface.
func (e *AdaptationError) Error() string {
	var b strings.Builder
	b.WriteString("sqlagen: schema adaptation error")
	if e.Table != "" {
		b.WriteString(" on table ")
		b.WriteString(e.Table)
	}
	if e.Constraint != "" {
		b.WriteString(" constraint ")
		b.WriteString(e.Constraint)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target matches ErrSchemaAdaptation.
func (e *AdaptationError) Is(target error) bool {
	return target == ErrSchemaAdaptation
}

func adaptErr(table, constraint, message string) *AdaptationError {
	return &AdaptationError{Table: table, Constraint: constraint, Message: message}
}
