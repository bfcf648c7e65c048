// Package naming derives Python identifiers from database names.
package naming

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tordrt/sqlagen/internal/model"
)

// Options configures a Resolver.
type Options struct {
	// UseInflect singularizes class names and inflects relationship names
	// by cardinality.
	UseInflect bool
	// SelfRef names both ends of self-referential relationships.
	// Defaults to ReverseSuffix.
	SelfRef SelfReferenceNaming
}

// Resolver turns raw names into unique identifiers within a Scope.
type Resolver struct {
	opts   Options
	rules  *inflect.Ruleset
	upper  cases.Caser
	logger *slog.Logger
}

// New returns a Resolver. A nil logger discards collision events.
func New(opts Options, logger *slog.Logger) *Resolver {
	if opts.SelfRef == nil {
		opts.SelfRef = ReverseSuffix{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		opts:   opts,
		rules:  inflect.NewDefaultRuleset(),
		upper:  cases.Upper(language.Und),
		logger: logger,
	}
}

// SelfRef returns the configured self-reference naming strategy.
func (r *Resolver) SelfRef() SelfReferenceNaming {
	return r.opts.SelfRef
}

// ClassName resolves the mapped class name of t: the "_" separated parts
// of the table name with their first letters upper-cased.
func (r *Resolver) ClassName(t *model.Table, scope *Scope) string {
	var b strings.Builder
	for _, part := range strings.Split(sanitize(t.Name), "_") {
		b.WriteString(r.upperFirst(part))
	}
	name := b.String()
	if r.opts.UseInflect {
		name = r.rules.Singularize(name)
	}
	return r.claim(scope, name, "class", t.FullName())
}

// VariableName resolves the module level variable holding t as a Table.
func (r *Resolver) VariableName(t *model.Table, scope *Scope) string {
	return r.claim(scope, "t_"+t.Name, "table", t.FullName())
}

// AttributeName resolves a column attribute name inside a class scope.
func (r *Resolver) AttributeName(raw string, scope *Scope) string {
	return r.claim(scope, raw, "attribute", raw)
}

// RelationshipName resolves a relationship attribute. With UseInflect the
// preferred name is pluralized for to-many and singularized otherwise.
func (r *Resolver) RelationshipName(preferred string, toMany bool, scope *Scope) string {
	if r.opts.UseInflect {
		if toMany {
			preferred = r.rules.Pluralize(preferred)
		} else {
			preferred = r.rules.Singularize(preferred)
		}
	}
	return r.claim(scope, preferred, "relationship", preferred)
}

// claim makes name a valid identifier, escapes keywords and reserved
// names, then appends _1, _2, ... until it is free in scope.
func (r *Resolver) claim(scope *Scope, name, what, source string) string {
	name = sanitize(strings.TrimSpace(name))
	if name == "" {
		name = "_"
	}
	if first, _ := utf8.DecodeRuneInString(name); unicode.IsDigit(first) {
		name = "_" + name
	} else if keywords[name] || reserved[name] {
		name += "_"
	}

	candidate := name
	for i := 1; scope.Taken(candidate); i++ {
		candidate = name + "_" + strconv.Itoa(i)
	}
	if candidate != name {
		r.logger.Debug("IdentifierCollisionResolved",
			slog.String("kind", what),
			slog.String("source", source),
			slog.String("wanted", name),
			slog.String("resolved", candidate))
	}
	scope.Reserve(candidate)
	return candidate
}

func (r *Resolver) upperFirst(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError {
		return s
	}
	return r.upper.String(string(first)) + s[size:]
}

// sanitize replaces every character that cannot appear in a Python
// identifier with "_".
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, s)
}

// SelfReferenceNaming names the two ends of a self-referential foreign key.
type SelfReferenceNaming interface {
	// Forward returns the preferred name of the to-one side.
	Forward(preferred string) string
	// Reverse returns the preferred name of the to-many side given the
	// resolved forward name.
	Reverse(forward string) string
}

// ReverseSuffix keeps the forward name and suffixes the reverse side with
// "_reverse".
type ReverseSuffix struct{}

func (ReverseSuffix) Forward(preferred string) string { return preferred }
func (ReverseSuffix) Reverse(forward string) string   { return forward + "_reverse" }

// ParentChildren names the sides "parent" and "children".
type ParentChildren struct{}

func (ParentChildren) Forward(string) string { return "parent" }
func (ParentChildren) Reverse(string) string { return "children" }

// SelfReferenceStrategy returns the strategy registered under name.
func SelfReferenceStrategy(name string) (SelfReferenceNaming, error) {
	switch name {
	case "", "reverse":
		return ReverseSuffix{}, nil
	case "children":
		return ParentChildren{}, nil
	default:
		return nil, fmt.Errorf("unknown self reference naming %q (expected reverse or children)", name)
	}
}
