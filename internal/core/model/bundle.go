package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var ErrInvalidBundle = errors.New("invalid graph bundle")

// NodeRef points at an existing node by label and primary key value.
type NodeRef struct {
	Label string
	Key   Value
}

func (r *NodeRef) MarshalJSON() ([]byte, error) {
	label, err := marshalNoEscape(r.Label)
	if err != nil {
		return nil, err
	}
	key, err := r.Key.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return []byte(`{"label":` + string(label) + `,"key":` + string(key) + `}`), nil
}

type EdgeSpec struct {
	// ID is null when the payload did not carry one.
	ID         Value
	Source     *NodeRef
	Target     *NodeRef
	Properties *PropertyMap
}

type NodeGroup struct {
	Label string
	Items []*PropertyMap
}

type RelationshipGroup struct {
	Type  string
	Edges []*EdgeSpec
}

// GraphBundle is the import payload. Groups keep the order they had in the
// source document.
type GraphBundle struct {
	Nodes         []NodeGroup
	Relationships []RelationshipGroup
}

// ParseBundle decodes a bundle document:
//
//	{"nodes": {"Label": [{...}]},
//	 "relationships": {"TYPE": [{"id": "...", "source_node": {"label": "...", "key": "..."},
//	                             "target_node": {...}, "properties": {...}}]}}
func ParseBundle(data []byte) (*GraphBundle, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidBundle)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidBundle)
	}

	b := &GraphBundle{}
	var parseErr error

	nodes := root.Get("nodes")
	if nodes.Exists() && nodes.Type != gjson.Null {
		if !nodes.IsObject() {
			return nil, fmt.Errorf("%w: nodes must be an object keyed by label", ErrInvalidBundle)
		}
		nodes.ForEach(func(label, list gjson.Result) bool {
			if !list.IsArray() {
				parseErr = fmt.Errorf("%w: nodes.%s must be a list", ErrInvalidBundle, label.String())
				return false
			}
			group := NodeGroup{Label: label.String()}
			for _, item := range list.Array() {
				props, err := propertyMapFromJSON(item)
				if err != nil {
					parseErr = fmt.Errorf("nodes.%s: %w", label.String(), err)
					return false
				}
				group.Items = append(group.Items, props)
			}
			b.Nodes = append(b.Nodes, group)
			return true
		})
		if parseErr != nil {
			return nil, parseErr
		}
	}

	rels := root.Get("relationships")
	if rels.Exists() && rels.Type != gjson.Null {
		if !rels.IsObject() {
			return nil, fmt.Errorf("%w: relationships must be an object keyed by type", ErrInvalidBundle)
		}
		rels.ForEach(func(relType, list gjson.Result) bool {
			if !list.IsArray() {
				parseErr = fmt.Errorf("%w: relationships.%s must be a list", ErrInvalidBundle, relType.String())
				return false
			}
			group := RelationshipGroup{Type: relType.String()}
			for _, item := range list.Array() {
				edge, err := edgeFromJSON(item)
				if err != nil {
					parseErr = fmt.Errorf("relationships.%s: %w", relType.String(), err)
					return false
				}
				group.Edges = append(group.Edges, edge)
			}
			b.Relationships = append(b.Relationships, group)
			return true
		})
		if parseErr != nil {
			return nil, parseErr
		}
	}

	return b, nil
}

func edgeFromJSON(r gjson.Result) (*EdgeSpec, error) {
	if !r.IsObject() {
		return nil, fmt.Errorf("%w: relationship entry must be an object", ErrInvalidBundle)
	}
	props, err := propertyMapFromJSON(r.Get("properties"))
	if err != nil {
		return nil, err
	}
	return &EdgeSpec{
		ID:         valueFromJSON(r.Get("id")),
		Source:     refFromJSON(r.Get("source_node")),
		Target:     refFromJSON(r.Get("target_node")),
		Properties: props,
	}, nil
}

func refFromJSON(r gjson.Result) *NodeRef {
	if !r.IsObject() {
		return nil
	}
	ref := &NodeRef{Key: valueFromJSON(r.Get("key"))}
	if label := r.Get("label"); label.Type == gjson.String {
		ref.Label = label.Str
	}
	return ref
}

func (b *GraphBundle) UnmarshalJSON(data []byte) error {
	parsed, err := ParseBundle(data)
	if err != nil {
		return err
	}
	*b = *parsed
	return nil
}

// MarshalJSON writes the bundle back in its input shape, preserving order.
func (b *GraphBundle) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"nodes":{`)
	for i, g := range b.Nodes {
		if i > 0 {
			buf.WriteByte(',')
		}
		label, _ := marshalNoEscape(g.Label)
		buf.Write(label)
		buf.WriteString(":[")
		for j, item := range g.Items {
			if j > 0 {
				buf.WriteByte(',')
			}
			data, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte(']')
	}
	buf.WriteString(`},"relationships":{`)
	for i, g := range b.Relationships {
		if i > 0 {
			buf.WriteByte(',')
		}
		relType, _ := marshalNoEscape(g.Type)
		buf.Write(relType)
		buf.WriteString(":[")
		for j, e := range g.Edges {
			if j > 0 {
				buf.WriteByte(',')
			}
			data, err := e.marshal()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte(']')
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func (e *EdgeSpec) marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if e.ID.Kind() != KindNull {
		id, err := e.ID.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.WriteString(`"id":`)
		buf.Write(id)
		buf.WriteByte(',')
	}
	for _, side := range []struct {
		name string
		ref  *NodeRef
	}{{"source_node", e.Source}, {"target_node", e.Target}} {
		buf.WriteString(`"` + side.name + `":`)
		if side.ref == nil {
			buf.WriteString("null,")
			continue
		}
		data, err := side.ref.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		buf.WriteByte(',')
	}
	props, err := e.Properties.MarshalJSON()
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"properties":`)
	buf.Write(props)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Indented renders the bundle for diagnostics with two-space indentation.
func (b *GraphBundle) Indented() string {
	raw, err := b.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<unprintable bundle: %v>", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func (b *GraphBundle) NodeCount() int {
	n := 0
	for _, g := range b.Nodes {
		n += len(g.Items)
	}
	return n
}

func (b *GraphBundle) RelationshipCount() int {
	n := 0
	for _, g := range b.Relationships {
		n += len(g.Edges)
	}
	return n
}
