// Package statement turns bundle entries into parameterized cypher.
package statement

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/agenthands/weaver/internal/core/model"
	"github.com/agenthands/weaver/internal/schema"
)

// ErrMalformedEdge is returned for relationships missing a usable endpoint.
var ErrMalformedEdge = errors.New("malformed relationship")

// ErrDisallowedEdge is returned when the schema forbids the endpoint labels.
var ErrDisallowedEdge = errors.New("relationship not allowed by schema")

type Statement struct {
	Cypher string
	Params map[string]any
}

// PrimaryKey is the identity a node is merged on.
type PrimaryKey struct {
	Field string
	Value model.Value
	// Generated is set when no usable key existed and a UUID was stored under "id".
	Generated bool
}

// Ref renders the key the way import reports list nodes.
func (k PrimaryKey) Ref(label string) string {
	return fmt.Sprintf("%s(%s: %s)", label, k.Field, k.Value.Text())
}

type Generator struct {
	registry *schema.Registry
	merge    bool
	enforce  bool
	newID    func() string
}

type Option func(*Generator)

// WithMergeRelationships makes relationship statements idempotent.
func WithMergeRelationships(on bool) Option {
	return func(g *Generator) { g.merge = on }
}

// WithRelationshipRules toggles the source/target label check.
func WithRelationshipRules(on bool) Option {
	return func(g *Generator) { g.enforce = on }
}

// WithIDFunc replaces the UUID source for generated keys.
func WithIDFunc(fn func() string) Option {
	return func(g *Generator) { g.newID = fn }
}

func NewGenerator(reg *schema.Registry, opts ...Option) *Generator {
	g := &Generator{
		registry: reg,
		enforce:  true,
		newID:    func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// ResolvePrimaryKey finds the key a node is merged on. The registered primary
// key wins when truthy; otherwise id, name and the first payload key are tried
// in that order. When nothing usable is found a UUID is written to the
// payload under "id".
func (g *Generator) ResolvePrimaryKey(label string, payload *model.PropertyMap) PrimaryKey {
	field := g.registry.PrimaryKeyFor(label)
	if v, ok := payload.Get(field); ok && !v.IsZero() {
		return PrimaryKey{Field: field, Value: v}
	}

	candidates := []string{schema.DefaultPrimaryKey, "name"}
	if keys := payload.Keys(); len(keys) > 0 {
		candidates = append(candidates, keys[0])
	}
	for _, c := range candidates {
		if v, ok := payload.Get(c); ok && !v.IsZero() {
			return PrimaryKey{Field: c, Value: v}
		}
	}

	id := model.String(g.newID())
	payload.Set(schema.DefaultPrimaryKey, id)
	return PrimaryKey{Field: schema.DefaultPrimaryKey, Value: id, Generated: true}
}

// EmbeddingText is the text a node's vector is computed from.
func EmbeddingText(payload *model.PropertyMap, key PrimaryKey) string {
	if v, ok := payload.Get("description"); ok && !v.IsZero() {
		return v.Text()
	}
	return key.Value.Text()
}

// Node builds an upsert keyed on key. Every payload property is written, so
// repeated imports overwrite earlier values.
func (g *Generator) Node(label string, key PrimaryKey, payload *model.PropertyMap) Statement {
	cypher := fmt.Sprintf("MERGE (n:%s {%s: $key}) SET n += $props",
		schema.QuoteIdentifier(label), schema.QuoteIdentifier(key.Field))
	return Statement{
		Cypher: cypher,
		Params: map[string]any{
			"key":   key.Value.Native(),
			"props": payload.Params(),
		},
	}
}

// Relationship builds the statement linking two existing nodes. Endpoints that
// do not match any node produce no edge.
func (g *Generator) Relationship(relType string, edge *model.EdgeSpec) (Statement, error) {
	if edge == nil || !usable(edge.Source) || !usable(edge.Target) {
		return Statement{}, fmt.Errorf("%w: missing source or target node data for %s", ErrMalformedEdge, relType)
	}
	src, tgt := edge.Source, edge.Target

	if g.enforce && !g.registry.IsRelationshipAllowed(relType, src.Label, tgt.Label) {
		return Statement{}, fmt.Errorf("%w: %s from %s to %s", ErrDisallowedEdge, relType, src.Label, tgt.Label)
	}

	props := model.NewPropertyMap()
	if !edge.ID.IsZero() {
		props.Set(schema.DefaultPrimaryKey, edge.ID)
	}
	for _, k := range edge.Properties.Keys() {
		v, _ := edge.Properties.Get(k)
		props.Set(k, v)
	}

	match := fmt.Sprintf("MATCH (s:%s {%s: $source_key}) MATCH (t:%s {%s: $target_key})",
		schema.QuoteIdentifier(src.Label), schema.QuoteIdentifier(g.registry.PrimaryKeyFor(src.Label)),
		schema.QuoteIdentifier(tgt.Label), schema.QuoteIdentifier(g.registry.PrimaryKeyFor(tgt.Label)))
	rel := schema.QuoteIdentifier(relType)

	params := map[string]any{
		"source_key": src.Key.Native(),
		"target_key": tgt.Key.Native(),
		"props":      props.Params(),
	}

	var write string
	switch {
	case g.merge && !edge.ID.IsZero():
		write = fmt.Sprintf("MERGE (s)-[r:%s {%s: $id}]->(t) SET r += $props", rel, schema.QuoteIdentifier(schema.DefaultPrimaryKey))
		params["id"] = edge.ID.Native()
	case g.merge:
		write = fmt.Sprintf("MERGE (s)-[r:%s]->(t) SET r += $props", rel)
	default:
		write = fmt.Sprintf("CREATE (s)-[r:%s]->(t) SET r = $props", rel)
	}

	return Statement{Cypher: match + " " + write, Params: params}, nil
}

// RelationshipRef renders an edge the way import reports list it.
func RelationshipRef(relType string, edge *model.EdgeSpec) string {
	return fmt.Sprintf("%s(%s)-[:%s]->%s(%s)",
		edge.Source.Label, edge.Source.Key.Text(), relType, edge.Target.Label, edge.Target.Key.Text())
}

func usable(ref *model.NodeRef) bool {
	return ref != nil && ref.Label != "" && !ref.Key.IsZero()
}
