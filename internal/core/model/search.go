package model

// SimilarNode is one vector search hit with its embedding removed.
type SimilarNode struct {
	NodeType        string         `json:"node_type"`
	Properties      map[string]any `json:"properties"`
	SimilarityScore float64        `json:"similarity_score"`
}

type NeighborhoodNode struct {
	ID         any            `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

type NeighborhoodRelationship struct {
	ID         any            `json:"id"`
	Type       string         `json:"type"`
	Source     any            `json:"source"`
	Target     any            `json:"target"`
	Properties map[string]any `json:"properties"`
}

// Neighborhood is the 1-hop graph around a set of seed nodes.
type Neighborhood struct {
	Nodes         []NeighborhoodNode         `json:"nodes"`
	Relationships []NeighborhoodRelationship `json:"relationships"`
}

func EmptyNeighborhood() Neighborhood {
	return Neighborhood{Nodes: []NeighborhoodNode{}, Relationships: []NeighborhoodRelationship{}}
}

type SearchParams struct {
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

type RetrievalResult struct {
	QueryText               string        `json:"query_text"`
	QueryEmbeddingDimension int           `json:"query_embedding_dimension"`
	SimilarNodes            []SimilarNode `json:"similar_nodes"`
	GraphStructure          Neighborhood  `json:"graph_structure"`
	SearchParams            SearchParams  `json:"search_params"`
	// Fallback is set when the vector index was unavailable and the scores
	// are placeholders.
	Fallback bool `json:"fallback,omitempty"`
}

// StripEmbed returns a copy of props without the embedding vector.
func StripEmbed(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if k == "embed" {
			continue
		}
		out[k] = v
	}
	return out
}
