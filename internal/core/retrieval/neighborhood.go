package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/weaver/internal/core/model"
	"github.com/agenthands/weaver/internal/schema"
)

// seedConditions matches each hit by label and primary key. Hits with an
// unregistered label or without their key are left out.
func (r *Retriever) seedConditions(nodes []model.SimilarNode) ([]string, map[string]any) {
	var conds []string
	params := map[string]any{}
	for i, n := range nodes {
		if !r.registry.HasLabel(n.NodeType) {
			continue
		}
		pk := r.registry.PrimaryKeyFor(n.NodeType)
		v, ok := n.Properties[pk]
		if !ok || v == nil {
			continue
		}
		name := fmt.Sprintf("seed_%d", i)
		conds = append(conds, fmt.Sprintf("(n:%s AND n.%s = $%s)",
			schema.QuoteIdentifier(n.NodeType), schema.QuoteIdentifier(pk), name))
		params[name] = v
	}
	return conds, params
}

// identifierExpr coalesces every registered primary key of x, then its id
// property and finally its element id.
func (r *Retriever) identifierExpr(x string) string {
	parts := make([]string, 0, len(r.registry.IdentifierFields())+2)
	for _, f := range r.registry.IdentifierFields() {
		parts = append(parts, x+"."+schema.QuoteIdentifier(f))
	}
	parts = append(parts, x+".`id`", "elementId("+x+")")
	return "coalesce(" + strings.Join(parts, ", ") + ")"
}

func (r *Retriever) neighborhoodQuery(conds []string) string {
	return fmt.Sprintf(`
		MATCH (n)
		WHERE %s
		OPTIONAL MATCH (n)-[r]-(m)
		WITH collect(DISTINCT n) + collect(DISTINCT m) AS ns, collect(DISTINCT r) AS rs
		RETURN
			[x IN ns | {element_id: elementId(x), id: %s, labels: labels(x), properties: properties(x)}] AS nodes,
			[x IN rs | {id: coalesce(x.`+"`id`"+`, elementId(x)), type: type(x), source: %s, target: %s, properties: properties(x)}] AS relationships
	`, strings.Join(conds, " OR "), r.identifierExpr("x"), r.identifierExpr("startNode(x)"), r.identifierExpr("endNode(x)"))
}

// Neighborhood returns the seed nodes, their direct neighbors and the edges
// between them.
func (r *Retriever) Neighborhood(ctx context.Context, seeds []model.SimilarNode) (model.Neighborhood, error) {
	out := model.EmptyNeighborhood()
	conds, params := r.seedConditions(seeds)
	if len(conds) == 0 {
		return out, nil
	}

	sess := r.sessions.OpenSession(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, r.neighborhoodQuery(conds), params)
	if err != nil {
		return out, err
	}
	rec, err := res.Single(ctx)
	if err != nil {
		return out, err
	}

	rawNodes, _ := rec.Get("nodes")
	seen := map[any]bool{}
	for _, item := range asList(rawNodes) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key := m["element_id"]
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Nodes = append(out.Nodes, model.NeighborhoodNode{
			ID:         m["id"],
			Labels:     asStrings(m["labels"]),
			Properties: model.StripEmbed(asMap(m["properties"])),
		})
	}

	rawRels, _ := rec.Get("relationships")
	for _, item := range asList(rawRels) {
		m, ok := item.(map[string]any)
		if !ok || m["type"] == nil {
			continue
		}
		relType, _ := m["type"].(string)
		out.Relationships = append(out.Relationships, model.NeighborhoodRelationship{
			ID:         m["id"],
			Type:       relType,
			Source:     m["source"],
			Target:     m["target"],
			Properties: model.StripEmbed(asMap(m["properties"])),
		})
	}
	return out, nil
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asStrings(v any) []string {
	out := []string{}
	for _, item := range asList(v) {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
