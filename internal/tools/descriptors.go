package tools

import "net/http"

const (
	ImportGraphTool      = "import_graph"
	FindSimilarNodesTool = "find_similar_nodes"
	ExecuteCypherTool    = "execute_cypher_query"
	ReadGraphSchemaTool  = "read_graph_schema"
	WeaveTextTool        = "weave_text"
)

type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// Descriptor tells an agent what a tool does and how to call it.
type Descriptor struct {
	Name        string  `json:"name"`
	Method      string  `json:"method"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
}

func Descriptors() []Descriptor {
	return []Descriptor{
		{
			Name:   ImportGraphTool,
			Method: http.MethodPost,
			Description: "Imports nodes and relationships into the graph. Nodes are merged on their primary key " +
				"and get an embedding vector; relationships link existing nodes by label and primary key value.",
			Params: []Param{{
				Name: "graph_data", Type: "object", Required: true,
				Description: `{"nodes": {"Label": [{...}]}, "relationships": {"TYPE": [{"id": "...", "source_node": {"label": "...", "key": "..."}, "target_node": {"label": "...", "key": "..."}, "properties": {}}]}}`,
			}},
		},
		{
			Name:        FindSimilarNodesTool,
			Method:      http.MethodPost,
			Description: "Finds nodes semantically similar to a text and returns them with their 1-hop neighborhood.",
			Params: []Param{
				{Name: "text_content", Type: "string", Required: true, Description: "Text to search for."},
				{Name: "top_k", Type: "integer", Description: "Maximum number of similar nodes, default 5."},
				{Name: "similarity_threshold", Type: "number", Description: "Minimum cosine similarity, default 0.7."},
			},
		},
		{
			Name:        ExecuteCypherTool,
			Method:      http.MethodPost,
			Description: "Executes a Cypher statement and returns the rows as JSON.",
			Params:      []Param{{Name: "cypher_query", Type: "string", Required: true, Description: "The Cypher statement to execute."}},
		},
		{
			Name:        ReadGraphSchemaTool,
			Method:      http.MethodGet,
			Description: "Returns the node labels, relationship types and their properties.",
			Params:      []Param{},
		},
		{
			Name:        WeaveTextTool,
			Method:      http.MethodPost,
			Description: "Extracts a graph from free text with the configured LLM and imports it.",
			Params:      []Param{{Name: "text", Type: "string", Required: true, Description: "Text to extract from."}},
		},
	}
}
