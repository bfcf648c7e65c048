package db

import (
	"context"

	"github.com/tordrt/sqlagen/internal/schema"
)

// Dialect names as they appear in schema.Schema.Dialect.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

// ExtractOptions selects what an extractor reflects.
type ExtractOptions struct {
	// Tables restricts extraction to the named tables. Empty extracts all.
	Tables []string
	// NoViews skips views.
	NoViews bool
}

// Extractor reflects the raw metadata of one database schema.
type Extractor interface {
	ExtractSchema(ctx context.Context, opts ExtractOptions) (*schema.Schema, error)
}

func wanted(requested []string) map[string]bool {
	if len(requested) == 0 {
		return nil
	}
	set := make(map[string]bool, len(requested))
	for _, t := range requested {
		set[t] = true
	}
	return set
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
