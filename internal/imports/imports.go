// Package imports accumulates the Python imports required by a rendered
// module and prints them as a grouped, sorted block.
package imports

import (
	"sort"
	"strings"
)

// Future is the module whose imports always come first.
const Future = "__future__"

// stdlib lists the standard library modules the generators may import.
var stdlib = map[string]bool{
	"dataclasses": true,
	"datetime":    true,
	"decimal":     true,
	"enum":        true,
	"typing":      true,
	"uuid":        true,
}

// Spec is a single import request. An empty Name imports the module itself.
type Spec struct {
	Module string
	Name   string
}

// Collector is a deduplicating set of import requests.
// It is not safe for concurrent use.
type Collector struct {
	symbols map[string]map[string]struct{}
	modules map[string]struct{}
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		symbols: make(map[string]map[string]struct{}),
		modules: make(map[string]struct{}),
	}
}

// Add requests "from module import name".
func (c *Collector) Add(module, name string) {
	if name == "" {
		c.AddModule(module)
		return
	}
	names, ok := c.symbols[module]
	if !ok {
		names = make(map[string]struct{})
		c.symbols[module] = names
	}
	names[name] = struct{}{}
}

// AddModule requests "import module".
func (c *Collector) AddModule(module string) {
	c.modules[module] = struct{}{}
}

// AddSpecs requests every given import.
func (c *Collector) AddSpecs(specs ...Spec) {
	for _, s := range specs {
		c.Add(s.Module, s.Name)
	}
}

// RequireFuture requests "from __future__ import annotations".
func (c *Collector) RequireFuture() {
	c.Add(Future, "annotations")
}

// Has reports whether the symbol was requested from module.
func (c *Collector) Has(module, name string) bool {
	_, ok := c.symbols[module][name]
	return ok
}

// Names returns every name bound at module level by the imports, sorted.
func (c *Collector) Names() []string {
	var names []string
	for module, syms := range c.symbols {
		if module == Future {
			continue
		}
		for name := range syms {
			names = append(names, name)
		}
	}
	for module := range c.modules {
		names = append(names, strings.SplitN(module, ".", 2)[0])
	}
	sort.Strings(names)
	return names
}

// Render returns the import block without a trailing newline. Groups are
// the __future__ import, standard library and third party, separated by a
// blank line.
func (c *Collector) Render() string {
	var future, std, third group
	for module := range c.modules {
		if isStdlib(module) {
			std.plain = append(std.plain, module)
		} else {
			third.plain = append(third.plain, module)
		}
	}
	for module, syms := range c.symbols {
		names := make([]string, 0, len(syms))
		for name := range syms {
			names = append(names, name)
		}
		sort.Strings(names)
		line := "from " + module + " import " + strings.Join(names, ", ")
		switch {
		case module == Future:
			future.from = append(future.from, line)
		case isStdlib(module):
			std.from = append(std.from, line)
		default:
			third.from = append(third.from, line)
		}
	}

	var blocks []string
	for _, g := range []group{future, std, third} {
		if lines := g.lines(); len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(blocks, "\n\n")
}

type group struct {
	plain []string
	from  []string
}

func (g group) lines() []string {
	sort.Strings(g.plain)
	sort.Strings(g.from)
	lines := make([]string, 0, len(g.plain)+len(g.from))
	for _, m := range g.plain {
		lines = append(lines, "import "+m)
	}
	return append(lines, g.from...)
}

func isStdlib(module string) bool {
	return stdlib[strings.SplitN(module, ".", 2)[0]]
}
