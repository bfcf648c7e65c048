// Package pysrc formats Python source fragments.
package pysrc

import (
	"fmt"
	"strings"
	"unicode"
)

// Repr returns the Python literal of s, the way repr() prints it.
func Repr(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteByte(quote)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r > 0x7f && !unicode.IsPrint(r):
			if r <= 0xff {
				fmt.Fprintf(&b, `\x%02x`, r)
			} else if r <= 0xffff {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				fmt.Fprintf(&b, `\U%08x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

// Bool returns the Python literal of v.
func Bool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// KV is a keyword argument. Value is already rendered source.
type KV struct {
	Key   string
	Value string
}

// Call renders name(args..., key=value...). With a non-empty indent every
// argument goes on its own line prefixed by indent.
func Call(name string, args []string, kwargs []KV, indent string) string {
	elems := make([]string, 0, len(args)+len(kwargs))
	elems = append(elems, args...)
	for _, kv := range kwargs {
		elems = append(elems, kv.Key+"="+kv.Value)
	}
	if indent == "" {
		return name + "(" + strings.Join(elems, ", ") + ")"
	}
	return name + "(\n" + indent + strings.Join(elems, ",\n"+indent) + "\n)"
}

// List renders a Python list of already rendered items.
func List(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

// Tuple renders a Python tuple; a single item keeps its trailing comma.
func Tuple(items []string) string {
	if len(items) == 1 {
		return "(" + items[0] + ",)"
	}
	return "(" + strings.Join(items, ", ") + ")"
}

// Dict renders a Python dict literal with string keys in the given order.
func Dict(items []KV) string {
	parts := make([]string, len(items))
	for i, kv := range items {
		parts[i] = Repr(kv.Key) + ": " + kv.Value
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Indent prefixes every non-empty line of s with prefix.
func Indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
