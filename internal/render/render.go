// Package render turns an adapted model into Python source for one of the
// supported generator styles.
package render

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tordrt/sqlagen/internal/diag"
	"github.com/tordrt/sqlagen/internal/imports"
	"github.com/tordrt/sqlagen/internal/model"
	"github.com/tordrt/sqlagen/internal/naming"
	"github.com/tordrt/sqlagen/internal/relation"
	"github.com/tordrt/sqlagen/internal/typemap"
)

// Style names a generator.
type Style string

const (
	Tables       Style = "tables"
	Declarative  Style = "declarative"
	Dataclasses  Style = "dataclasses"
	SQLModels    Style = "sqlmodels"
	indentation        = "    "
)

// Styles lists the registered generator styles.
func Styles() []Style {
	return []Style{Tables, Declarative, Dataclasses, SQLModels}
}

// ErrUnknownStyle is matched by every *UnknownStyleError.
var ErrUnknownStyle = errors.New("sqlagen: unknown generator style")

// UnknownStyleError reports a generator name that is not registered.
type UnknownStyleError struct {
	Name string
}

func (e *UnknownStyleError) Error() string {
	names := make([]string, 0, len(Styles()))
	for _, s := range Styles() {
		names = append(names, string(s))
	}
	return fmt.Sprintf("sqlagen: unknown generator style %q (available: %s)", e.Name, strings.Join(names, ", "))
}

func (e *UnknownStyleError) Is(target error) bool {
	return target == ErrUnknownStyle
}

// ParseStyle validates a generator name.
func ParseStyle(name string) (Style, error) {
	for _, s := range Styles() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", &UnknownStyleError{Name: name}
}

// Options configures a generator run.
type Options struct {
	Flavor typemap.Flavor
	// NoBidi suppresses back references on relationships.
	NoBidi bool
	// UseInflect singularizes class names and inflects relationship names.
	UseInflect bool
	// SelfRef names the ends of self-referential relationships.
	SelfRef naming.SelfReferenceNaming
	// Logger receives identifier collision events. Nil discards them.
	Logger *slog.Logger
}

// Result is the rendered module and the diagnostics raised producing it.
type Result struct {
	Source      string
	Diagnostics []diag.Diagnostic
}

// Render generates the Python module for m in the given style.
func Render(m *model.Model, style Style, opts Options) (*Result, error) {
	st, err := newStyle(style, opts.Flavor)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	g := newGenerator(m, st, opts)

	// The first pass only discovers the imports, whose names the final
	// identifiers must not shadow. Imports never depend on identifiers.
	g.assignNames(nil, slog.New(slog.DiscardHandler))
	g.render()
	reserved := g.imports.Names()

	g.assignNames(reserved, opts.Logger)
	src := g.render()
	return &Result{Source: src, Diagnostics: g.diags.Items()}, nil
}

// style is the per generator part of the rendering.
type style interface {
	// prelude registers the base imports and returns the module level
	// declarations printed before the models.
	prelude(g *generator) []string
	// metadataRef is the expression holding the MetaData of the module.
	metadataRef() string
	// reserved lists the module level names the prelude binds.
	reserved() []string
	renderClass(g *generator, u *unit) string
}

func newStyle(s Style, flavor typemap.Flavor) (style, error) {
	switch s {
	case Tables:
		return tablesStyle{}, nil
	case Declarative:
		return declarativeStyle{flavor: flavor}, nil
	case Dataclasses:
		if flavor == typemap.Legacy {
			return legacyDataclassStyle{}, nil
		}
		return declarativeStyle{flavor: flavor, dataclass: true}, nil
	case SQLModels:
		return sqlModelStyle{}, nil
	}
	return nil, &UnknownStyleError{Name: string(s)}
}

// unit is one table as it is declared in the module.
type unit struct {
	table *model.Table
	class bool
	name  string
	attrs map[*model.Column]string
	rels  []*relation.Relationship
}

type generator struct {
	model  *model.Model
	style  style
	opts   Options
	diags  *diag.List
	types  map[*model.Column]typemap.Mapped
	rels   *relation.Result
	order  []*model.Table
	pos    map[*model.Table]int
	units  map[*model.Table]*unit

	hasClasses bool
	relNames   map[*relation.Relationship]string
	imports    *imports.Collector
}

func newGenerator(m *model.Model, st style, opts Options) *generator {
	g := &generator{
		model: m,
		style: st,
		opts:  opts,
		diags: &diag.List{},
		types: make(map[*model.Column]typemap.Mapped),
		pos:   make(map[*model.Table]int),
		units: make(map[*model.Table]*unit),
	}

	mapper := typemap.New(m.Dialect, opts.Flavor, g.diags)
	for _, t := range m.Tables {
		for _, c := range t.Columns {
			g.types[c] = mapper.Map(c)
		}
	}

	_, tablesOnly := st.(tablesStyle)
	if !tablesOnly {
		g.rels = relation.Infer(m, relation.Options{NoBidi: opts.NoBidi}, g.diags)
	}

	g.order = declarationOrder(m.Tables)
	for i, t := range g.order {
		g.pos[t] = i
	}
	for _, t := range m.Tables {
		u := &unit{table: t, class: g.rels != nil && g.rels.IsClass(t)}
		if u.class {
			u.rels = g.rels.For(t)
			g.hasClasses = true
		}
		g.units[t] = u
	}
	return g
}

// assignNames resolves every identifier of the module. Names are claimed
// in schema declaration order so that collisions resolve the same way on
// every run.
func (g *generator) assignNames(reserved []string, logger *slog.Logger) {
	r := naming.New(naming.Options{UseInflect: g.opts.UseInflect, SelfRef: g.opts.SelfRef}, logger)
	module := naming.NewScope(nil)
	module.Reserve(reserved...)
	if g.hasClasses {
		module.Reserve(g.style.reserved()...)
	} else {
		module.Reserve(tablesStyle{}.reserved()...)
	}

	for _, t := range g.model.Tables {
		u := g.units[t]
		if u.class {
			u.name = r.ClassName(t, module)
		} else {
			u.name = r.VariableName(t, module)
		}
	}

	g.relNames = make(map[*relation.Relationship]string)
	for _, t := range g.model.Tables {
		u := g.units[t]
		if !u.class {
			continue
		}
		scope := naming.NewScope(module)
		u.attrs = make(map[*model.Column]string, len(t.Columns))
		for _, c := range t.Columns {
			u.attrs[c] = r.AttributeName(c.Name, scope)
		}
		for _, rel := range u.rels {
			switch {
			case rel.SelfReferential() && rel.Reverse && rel.Backref != nil:
				g.relNames[rel] = r.AttributeName(r.SelfRef().Reverse(g.relNames[rel.Backref]), scope)
			case rel.SelfReferential() && !rel.Reverse:
				g.relNames[rel] = r.RelationshipName(r.SelfRef().Forward(rel.PreferredName()), rel.ToMany(), scope)
			default:
				g.relNames[rel] = r.RelationshipName(rel.PreferredName(), rel.ToMany(), scope)
			}
		}
	}
}

// render prints the module with the current names. Sections are the
// import block, the declarations and the models.
func (g *generator) render() string {
	g.imports = imports.NewCollector()

	var decls []string
	if g.hasClasses {
		decls = g.style.prelude(g)
	} else {
		decls = tablesStyle{}.prelude(g)
	}

	models := make([]string, 0, len(g.order))
	for _, t := range g.order {
		u := g.units[t]
		if u.class {
			models = append(models, g.style.renderClass(g, u))
		} else {
			models = append(models, u.name+" = "+g.renderTable(t))
		}
	}

	var sections []string
	if block := g.imports.Render(); block != "" {
		sections = append(sections, block)
	}
	if len(decls) > 0 {
		sections = append(sections, strings.Join(decls, "\n")+"\n")
	}
	if len(models) > 0 {
		sections = append(sections, strings.Join(models, "\n\n\n"))
	}
	return strings.Join(sections, "\n\n") + "\n"
}

func (g *generator) metadataRef() string {
	if !g.hasClasses {
		return tablesStyle{}.metadataRef()
	}
	return g.style.metadataRef()
}

// declaredBefore reports whether target is printed before the model that
// references it, in which case it can be named without quoting.
func (g *generator) declaredBefore(target, from *model.Table) bool {
	return g.pos[target] < g.pos[from]
}
