// Package taxonomy maps the raw platform identifiers reported by forecast
// centers onto a smaller set of canonical platform names.
package taxonomy

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Entry lists the raw identifiers folded into one canonical platform.
type Entry struct {
	Name string
	Raw  []string
}

// Taxonomy is an ordered, read-only set of entries. The zero value is an
// empty taxonomy that leaves every identifier unchanged.
type Taxonomy struct {
	entries []Entry
	index   map[string]string // raw -> canonical
}

// New builds a taxonomy from entries. An identifier listed under more than
// one entry belongs to the first. Entries sharing a name are merged.
func New(entries ...Entry) Taxonomy {
	t := Taxonomy{index: make(map[string]string)}
	pos := make(map[string]int)
	for _, e := range entries {
		i, ok := pos[e.Name]
		if !ok {
			i = len(t.entries)
			pos[e.Name] = i
			t.entries = append(t.entries, Entry{Name: e.Name})
		}
		for _, raw := range e.Raw {
			if slices.Contains(t.entries[i].Raw, raw) {
				continue
			}
			t.entries[i].Raw = append(t.entries[i].Raw, raw)
			if _, taken := t.index[raw]; !taken {
				t.index[raw] = e.Name
			}
		}
	}
	return t
}

// Canonical returns the canonical name for raw, or raw itself when no entry
// lists it.
func (t Taxonomy) Canonical(raw string) string {
	if c, ok := t.index[raw]; ok {
		return c
	}
	return raw
}

// Len returns the number of canonical names.
func (t Taxonomy) Len() int { return len(t.entries) }

// Names returns the canonical names in declaration order.
func (t Taxonomy) Names() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Name
	}
	return out
}

// Raw returns the identifiers listed under name.
func (t Taxonomy) Raw(name string) []string {
	for _, e := range t.entries {
		if e.Name == name {
			return slices.Clone(e.Raw)
		}
	}
	return nil
}

// Entries returns a copy of the entries.
func (t Taxonomy) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = Entry{Name: e.Name, Raw: slices.Clone(e.Raw)}
	}
	return out
}

// Merge combines taxonomies: the result holds every canonical name, each with
// the de-duplicated union of its identifiers. Earlier taxonomies take
// precedence for identifiers claimed by several names.
func Merge(ts ...Taxonomy) Taxonomy {
	var all []Entry
	for _, t := range ts {
		all = append(all, t.entries...)
	}
	return New(all...)
}

// UnmarshalYAML decodes a mapping of canonical name to identifier list,
// keeping document order.
func (t *Taxonomy) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("taxonomy: line %d: expected a mapping", node.Line)
	}
	entries := make([]Entry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var e Entry
		if err := node.Content[i].Decode(&e.Name); err != nil {
			return fmt.Errorf("taxonomy: line %d: %w", node.Content[i].Line, err)
		}
		if err := node.Content[i+1].Decode(&e.Raw); err != nil {
			return fmt.Errorf("taxonomy: %s: %w", e.Name, err)
		}
		entries = append(entries, e)
	}
	*t = New(entries...)
	return nil
}

// MarshalYAML encodes the taxonomy as an ordered mapping.
func (t Taxonomy) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range t.entries {
		var val yaml.Node
		if err := val.Encode(e.Raw); err != nil {
			return nil, err
		}
		val.Style = yaml.FlowStyle
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Name},
			&val,
		)
	}
	return node, nil
}
