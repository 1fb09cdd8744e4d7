// Package schema holds the node and relationship type definitions that drive
// statement generation, validation and index bootstrap.
//
// A Registry is built once at startup and shared by pointer. It has no
// mutating methods, so it is safe for concurrent use.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidSchema = errors.New("invalid schema")

type Registry struct {
	nodes     []NodeType
	nodeIndex map[string]int
	rels      []RelationshipType
	relIndex  map[string]int
	sources   map[string]map[string]struct{}
	targets   map[string]map[string]struct{}
	idFields  []string
}

// New validates the definitions and builds an immutable registry.
func New(nodes []NodeType, rels []RelationshipType) (*Registry, error) {
	r := &Registry{
		nodeIndex: make(map[string]int, len(nodes)),
		relIndex:  make(map[string]int, len(rels)),
		sources:   make(map[string]map[string]struct{}, len(rels)),
		targets:   make(map[string]map[string]struct{}, len(rels)),
	}

	seenID := make(map[string]struct{})
	for _, n := range nodes {
		if strings.TrimSpace(n.Label) == "" {
			return nil, fmt.Errorf("%w: node type with empty label", ErrInvalidSchema)
		}
		if strings.TrimSpace(n.PrimaryKey) == "" {
			return nil, fmt.Errorf("%w: node type %s has no primary key", ErrInvalidSchema, n.Label)
		}
		if _, dup := r.nodeIndex[n.Label]; dup {
			return nil, fmt.Errorf("%w: duplicate node label %s", ErrInvalidSchema, n.Label)
		}
		props, err := normalizeProps(n.Label, n.Properties)
		if err != nil {
			return nil, err
		}
		n.Properties = props
		r.nodeIndex[n.Label] = len(r.nodes)
		r.nodes = append(r.nodes, n.clone())

		if _, ok := seenID[n.PrimaryKey]; !ok {
			seenID[n.PrimaryKey] = struct{}{}
			r.idFields = append(r.idFields, n.PrimaryKey)
		}
	}

	for _, rel := range rels {
		if strings.TrimSpace(rel.Type) == "" {
			return nil, fmt.Errorf("%w: relationship type with empty name", ErrInvalidSchema)
		}
		if _, dup := r.relIndex[rel.Type]; dup {
			return nil, fmt.Errorf("%w: duplicate relationship type %s", ErrInvalidSchema, rel.Type)
		}
		props, err := normalizeProps(rel.Type, rel.Properties)
		if err != nil {
			return nil, err
		}
		rel.Properties = props
		if rel.PrimaryKey == "" {
			rel.PrimaryKey = DefaultPrimaryKey
		}
		r.relIndex[rel.Type] = len(r.rels)
		r.rels = append(r.rels, rel.clone())
		r.sources[rel.Type] = toSet(rel.SourceLabels)
		r.targets[rel.Type] = toSet(rel.TargetLabels)
	}

	return r, nil
}

func normalizeProps(owner string, props []PropertyDef) ([]PropertyDef, error) {
	out := make([]PropertyDef, 0, len(props))
	seen := make(map[string]struct{}, len(props))
	for _, p := range props {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: %s declares a property with no name", ErrInvalidSchema, owner)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%w: %s declares property %s twice", ErrInvalidSchema, owner, p.Name)
		}
		seen[p.Name] = struct{}{}
		pt, err := ParsePropertyType(string(p.Type))
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", owner, p.Name, err)
		}
		p.Type = pt
		out = append(out, p)
	}
	return out, nil
}

func toSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// PrimaryKeyFor returns the primary key field of label, or "id" if the label is unregistered.
func (r *Registry) PrimaryKeyFor(label string) string {
	if i, ok := r.nodeIndex[label]; ok {
		return r.nodes[i].PrimaryKey
	}
	return DefaultPrimaryKey
}

// PropertiesOf returns the declared properties of label. Unknown labels yield nil.
func (r *Registry) PropertiesOf(label string) []PropertyDef {
	if i, ok := r.nodeIndex[label]; ok {
		return cloneProps(r.nodes[i].Properties)
	}
	return nil
}

// IsRelationshipAllowed reports whether relType may connect source to target.
// Unregistered relationship types are allowed.
func (r *Registry) IsRelationshipAllowed(relType, source, target string) bool {
	srcs, ok := r.sources[relType]
	if !ok {
		return true
	}
	if _, ok := srcs[source]; !ok {
		return false
	}
	_, ok = r.targets[relType][target]
	return ok
}

// HasLabel reports whether label is registered.
func (r *Registry) HasLabel(label string) bool {
	_, ok := r.nodeIndex[label]
	return ok
}

// HasRelationship reports whether relType is registered.
func (r *Registry) HasRelationship(relType string) bool {
	_, ok := r.relIndex[relType]
	return ok
}

// IdentifierFields lists every registered node primary key field once, in
// registration order. It is the lookup table used to coalesce display ids.
func (r *Registry) IdentifierFields() []string {
	return append([]string(nil), r.idFields...)
}

func (r *Registry) NodeType(label string) (NodeType, bool) {
	i, ok := r.nodeIndex[label]
	if !ok {
		return NodeType{}, false
	}
	return r.nodes[i].clone(), true
}

func (r *Registry) RelationshipType(relType string) (RelationshipType, bool) {
	i, ok := r.relIndex[relType]
	if !ok {
		return RelationshipType{}, false
	}
	return r.rels[i].clone(), true
}

func (r *Registry) NodeTypes() []NodeType {
	out := make([]NodeType, len(r.nodes))
	for i, n := range r.nodes {
		out[i] = n.clone()
	}
	return out
}

func (r *Registry) RelationshipTypes() []RelationshipType {
	out := make([]RelationshipType, len(r.rels))
	for i, rel := range r.rels {
		out[i] = rel.clone()
	}
	return out
}

// VectorIndexName is the name of the vector index bootstrapped for label.
func VectorIndexName(label string) string {
	return strings.ToLower(label) + "_embed_vector_index"
}

// VectorIndexNames returns the vector index names of every label declaring a
// LIST_OF_FLOAT embed property.
func (r *Registry) VectorIndexNames() []string {
	var names []string
	for _, n := range r.nodes {
		if hasEmbedVector(n.Properties) {
			names = append(names, VectorIndexName(n.Label))
		}
	}
	return names
}

func hasEmbedVector(props []PropertyDef) bool {
	for _, p := range props {
		if p.Name == EmbedField && p.Type == TypeFloatList {
			return true
		}
	}
	return false
}
