package acl

import (
	"strings"
)

// RightAll is the literal right name whose ACEs apply to every requested
// right unconditionally.
const RightAll = "all"

// GenericRights maps abstract rights (e.g. "read") to the comma-lists of
// concrete rights they subsume (e.g. "http_get"). The table is consulted
// bidirectionally: a requested concrete right also pulls in the chains of
// every generic right that subsumes it. Entries keep registration order.
type GenericRights struct {
	order   []string
	entries map[string][]string
}

// NewGenericRights creates an empty table.
func NewGenericRights() *GenericRights {
	return &GenericRights{entries: make(map[string][]string)}
}

// DefaultGenericRights returns the standard HTTP method table.
func DefaultGenericRights() *GenericRights {
	g := NewGenericRights()
	for _, e := range []struct {
		name      string
		specifics string
	}{
		{"read", "http_get, http_head, http_trace, http_options"},
		{"write", "http_put, http_delete, http_mkdir, http_rmdir, http_move"},
		{"execute", "http_post"},
		{"delete", "http_delete"},
		{"info", "http_head, http_trace, http_options"},
		{"list", "http_index"},
	} {
		for _, s := range strings.Split(e.specifics, ",") {
			g.Register(e.name, s)
		}
	}
	return g
}

// Register appends a concrete right to a generic right's list, creating the
// generic entry on first use. Duplicates are detected case-insensitively and
// dropped.
func (g *GenericRights) Register(generic, specific string) {
	generic = strings.ToLower(strings.TrimSpace(generic))
	specific = strings.ToLower(strings.TrimSpace(specific))
	if generic == "" || specific == "" {
		return
	}
	existing, ok := g.entries[generic]
	if !ok {
		g.order = append(g.order, generic)
	}
	for _, s := range existing {
		if s == specific {
			return
		}
	}
	g.entries[generic] = append(existing, specific)
}

// GenericsFor returns, in table order, the generic rights whose lists
// contain the given concrete right. Matching is case-insensitive.
func (g *GenericRights) GenericsFor(right string) []string {
	if g == nil {
		return nil
	}
	right = strings.ToLower(strings.TrimSpace(right))
	var out []string
	for _, name := range g.order {
		for _, s := range g.entries[name] {
			if s == right {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// SpecificsFor returns the concrete rights registered under a generic right.
func (g *GenericRights) SpecificsFor(generic string) []string {
	if g == nil {
		return nil
	}
	specifics := g.entries[strings.ToLower(strings.TrimSpace(generic))]
	out := make([]string, len(specifics))
	copy(out, specifics)
	return out
}

// Names returns the generic right names in registration order.
func (g *GenericRights) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}
