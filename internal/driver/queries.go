package driver

const (
	// VectorSearchQuery queries every vector index in $indexes and keeps the
	// best $top_k hits at or above $similarity_threshold.
	VectorSearchQuery = `
		UNWIND $indexes AS index_name
		CALL db.index.vector.queryNodes(index_name, $top_k, $embedding_vector)
		YIELD node, score
		WITH node, score
		WHERE score >= $similarity_threshold
		RETURN
			labels(node)[0] AS node_type,
			properties(node) AS node_properties,
			score AS similarity_score
		ORDER BY score DESC
		LIMIT $top_k
	`

	// FallbackScanQuery is used when the vector index cannot be queried.
	// Scores are a fixed placeholder.
	FallbackScanQuery = `
		MATCH (n)
		WHERE n.embed IS NOT NULL
		RETURN
			labels(n)[0] AS node_type,
			properties(n) AS node_properties,
			0.5 AS similarity_score
		LIMIT $top_k
	`

	// FallbackScore is the similarity reported for fallback scan hits.
	FallbackScore = 0.5
)
