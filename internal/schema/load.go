package schema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type fileNode struct {
	Label      string        `toml:"label"`
	PrimaryKey string        `toml:"primary_key"`
	Properties []PropertyDef `toml:"properties"`
}

type fileRelationship struct {
	Type         string        `toml:"type"`
	PrimaryKey   string        `toml:"primary_key"`
	SourceLabels []string      `toml:"source_labels"`
	TargetLabels []string      `toml:"target_labels"`
	Properties   []PropertyDef `toml:"properties"`
}

type file struct {
	Nodes         []fileNode         `toml:"nodes"`
	Relationships []fileRelationship `toml:"relationships"`
}

// Parse builds a registry from a TOML schema document.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse schema TOML: %w", err)
	}

	nodes := make([]NodeType, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		nodes = append(nodes, NodeType{Label: n.Label, PrimaryKey: n.PrimaryKey, Properties: n.Properties})
	}
	rels := make([]RelationshipType, 0, len(f.Relationships))
	for _, r := range f.Relationships {
		rels = append(rels, RelationshipType{
			Type:         r.Type,
			PrimaryKey:   r.PrimaryKey,
			SourceLabels: r.SourceLabels,
			TargetLabels: r.TargetLabels,
			Properties:   r.Properties,
		})
	}
	return New(nodes, rels)
}

// LoadFile reads a TOML schema file. An empty path selects the predefined schema.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Predefined(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file '%s': %w", path, err)
	}
	return Parse(data)
}

type nodeDoc struct {
	PrimaryKey string        `json:"primary_key"`
	Properties []PropertyDef `json:"properties"`
}

type relDoc struct {
	PrimaryKey   string        `json:"primary_key"`
	SourceLabels []string      `json:"source_labels"`
	TargetLabels []string      `json:"target_labels"`
	Properties   []PropertyDef `json:"properties"`
}

// MarshalJSON renders the registry the way read_graph_schema reports it.
func (r *Registry) MarshalJSON() ([]byte, error) {
	doc := struct {
		Nodes         map[string]nodeDoc `json:"nodes"`
		Relationships map[string]relDoc  `json:"relationships"`
	}{
		Nodes:         make(map[string]nodeDoc, len(r.nodes)),
		Relationships: make(map[string]relDoc, len(r.rels)),
	}
	for _, n := range r.nodes {
		doc.Nodes[n.Label] = nodeDoc{PrimaryKey: n.PrimaryKey, Properties: cloneProps(n.Properties)}
	}
	for _, rel := range r.rels {
		doc.Relationships[rel.Type] = relDoc{
			PrimaryKey:   rel.PrimaryKey,
			SourceLabels: append([]string{}, rel.SourceLabels...),
			TargetLabels: append([]string{}, rel.TargetLabels...),
			Properties:   cloneProps(rel.Properties),
		}
	}
	return json.Marshal(doc)
}
