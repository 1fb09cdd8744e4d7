package schema

import (
	"fmt"
	"strings"
)

// EmbedField is the node property that carries the embedding vector.
const EmbedField = "embed"

// DefaultPrimaryKey is used for labels and relationship types the registry does not know.
const DefaultPrimaryKey = "id"

type PropertyType string

const (
	TypeString    PropertyType = "STRING"
	TypeDateTime  PropertyType = "DATETIME"
	TypeFloatList PropertyType = "LIST_OF_FLOAT"
)

// ParsePropertyType accepts the canonical names plus the spaced "LIST OF FLOAT" form.
func ParsePropertyType(s string) (PropertyType, error) {
	norm := strings.ToUpper(strings.Join(strings.Fields(s), "_"))
	switch PropertyType(norm) {
	case TypeString, TypeDateTime, TypeFloatList:
		return PropertyType(norm), nil
	}
	return "", fmt.Errorf("%w: unknown property type %q", ErrInvalidSchema, s)
}

type PropertyDef struct {
	Name        string       `json:"name" toml:"name"`
	Type        PropertyType `json:"type" toml:"type"`
	Description string       `json:"description,omitempty" toml:"description"`
}

type NodeType struct {
	Label      string
	PrimaryKey string
	Properties []PropertyDef
}

type RelationshipType struct {
	Type         string
	PrimaryKey   string
	SourceLabels []string
	TargetLabels []string
	Properties   []PropertyDef
}

func cloneProps(in []PropertyDef) []PropertyDef {
	if in == nil {
		return nil
	}
	out := make([]PropertyDef, len(in))
	copy(out, in)
	return out
}

func (n NodeType) clone() NodeType {
	n.Properties = cloneProps(n.Properties)
	return n
}

func (r RelationshipType) clone() RelationshipType {
	r.Properties = cloneProps(r.Properties)
	r.SourceLabels = append([]string(nil), r.SourceLabels...)
	r.TargetLabels = append([]string(nil), r.TargetLabels...)
	return r
}
