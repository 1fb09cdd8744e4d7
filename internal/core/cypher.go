package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/agenthands/weaver/internal/schema"
)

// Row is one result record. Columns keep their query order when encoded.
type Row struct {
	Keys   []string
	Values []any
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, k := range r.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		if err := enc.Encode(r.Values[i]); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ExecuteCypher runs an arbitrary statement in its own session. Graph values
// are converted to plain maps and embeddings are removed.
func (w *Weaver) ExecuteCypher(ctx context.Context, query string) ([]Row, error) {
	sess := w.Driver.OpenSession(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, query, nil)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for res.Next(ctx) {
		rec := res.Record()
		row := Row{Keys: append([]string(nil), rec.Keys...), Values: make([]any, len(rec.Values))}
		for i, v := range rec.Values {
			row.Values[i] = serializeValue(v)
		}
		rows = append(rows, row)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func serializeValue(v any) any {
	switch x := v.(type) {
	case dbtype.Node:
		return serializeNode(x)
	case dbtype.Relationship:
		return serializeRelationship(x)
	case dbtype.Path:
		nodes := make([]any, len(x.Nodes))
		for i, n := range x.Nodes {
			nodes[i] = serializeNode(n)
		}
		rels := make([]any, len(x.Relationships))
		for i, r := range x.Relationships {
			rels[i] = serializeRelationship(r)
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = serializeValue(item)
		}
		return out
	case map[string]any:
		return serializeProps(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case dbtype.Date, dbtype.LocalTime, dbtype.LocalDateTime, dbtype.Time, dbtype.Duration, dbtype.Point2D, dbtype.Point3D:
		return fmt.Sprint(x)
	}
	return v
}

func serializeProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if k == schema.EmbedField {
			continue
		}
		out[k] = serializeValue(v)
	}
	return out
}

func serializeNode(n dbtype.Node) map[string]any {
	labels := n.Labels
	if labels == nil {
		labels = []string{}
	}
	return map[string]any{
		"id":         n.ElementId,
		"labels":     labels,
		"properties": serializeProps(n.Props),
	}
}

func serializeRelationship(r dbtype.Relationship) map[string]any {
	return map[string]any{
		"id":            r.ElementId,
		"type":          r.Type,
		"start_node_id": r.StartElementId,
		"end_node_id":   r.EndElementId,
		"properties":    serializeProps(r.Props),
	}
}
