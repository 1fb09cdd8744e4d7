package model

import (
	"strconv"
	"strings"
)

// ImportReport summarizes one import run.
type ImportReport struct {
	NodesWritten         int      `json:"nodes_written"`
	RelationshipsWritten int      `json:"relationships_written"`
	ImportedNodeRefs     []string `json:"imported_node_refs"`
	ImportedRelRefs      []string `json:"imported_relationship_refs"`
	Errors               []string `json:"errors,omitempty"`
}

// String renders the report returned to the calling agent.
func (r *ImportReport) String() string {
	lines := []string{
		"Graph data imported successfully!",
		"Created/Updated " + strconv.Itoa(r.NodesWritten) + " nodes",
		"Created " + strconv.Itoa(r.RelationshipsWritten) + " relationships",
		"",
	}

	if len(r.ImportedNodeRefs) > 0 {
		lines = append(lines, "Imported Nodes:")
		for _, ref := range r.ImportedNodeRefs {
			lines = append(lines, "  - "+ref)
		}
		lines = append(lines, "")
	}

	if len(r.ImportedRelRefs) > 0 {
		lines = append(lines, "Imported Relationships:")
		for _, ref := range r.ImportedRelRefs {
			lines = append(lines, "  - "+ref)
		}
	}

	if len(r.Errors) > 0 {
		if len(r.ImportedRelRefs) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "Skipped Relationships:")
		for _, e := range r.Errors {
			lines = append(lines, "  - "+e)
		}
	}

	return strings.Join(lines, "\n")
}
