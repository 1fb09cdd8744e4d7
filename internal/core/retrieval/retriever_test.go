package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/weaver/internal/core/model"
	"github.com/agenthands/weaver/internal/driver/drivertest"
	"github.com/agenthands/weaver/internal/schema"
)

type fixedVectorizer []float32

func (f fixedVectorizer) Vector(ctx context.Context, text string) []float32 { return f }

func hit(nodeType string, score float64, props map[string]any) *neo4j.Record {
	return drivertest.Record("node_type", nodeType, "node_properties", props, "similarity_score", score)
}

func neighborhoodRecord(nodes, rels []any) *neo4j.Record {
	return drivertest.Record("nodes", nodes, "relationships", rels)
}

func TestFindSimilarNodesVectorSearch(t *testing.T) {
	store := drivertest.New().
		On("db.index.vector.queryNodes", drivertest.Response{Records: []*neo4j.Record{
			hit("City", 0.92, map[string]any{"city_name": "hangzhou", "embed": []any{0.1, 0.2}}),
			hit("ExperientialScene", 0.81, map[string]any{"scene_name": "west_lake_dusk"}),
		}}).
		On("OPTIONAL MATCH", drivertest.Response{Records: []*neo4j.Record{neighborhoodRecord(
			[]any{
				map[string]any{"element_id": "4:a:1", "id": "hangzhou", "labels": []any{"City"}, "properties": map[string]any{"city_name": "hangzhou", "embed": []any{0.1}}},
				map[string]any{"element_id": "4:a:2", "id": "west_lake_dusk", "labels": []any{"ExperientialScene"}, "properties": map[string]any{"scene_name": "west_lake_dusk"}},
				map[string]any{"element_id": "4:a:1", "id": "hangzhou", "labels": []any{"City"}, "properties": map[string]any{"city_name": "hangzhou"}},
			},
			[]any{
				map[string]any{"id": "rel_1", "type": "LOCATED_IN_CITY", "source": "west_lake_dusk", "target": "hangzhou", "properties": map[string]any{"id": "rel_1"}},
			},
		)}})

	r := New(store, schema.Predefined(), fixedVectorizer{0.1, 0.2, 0.3})
	res, err := r.FindSimilarNodes(context.Background(), "杭州西湖", 3, 0.6)
	require.NoError(t, err)

	assert.Equal(t, "杭州西湖", res.QueryText)
	assert.Equal(t, 3, res.QueryEmbeddingDimension)
	assert.Equal(t, model.SearchParams{TopK: 3, SimilarityThreshold: 0.6}, res.SearchParams)
	assert.False(t, res.Fallback)

	require.Len(t, res.SimilarNodes, 2)
	assert.Equal(t, "City", res.SimilarNodes[0].NodeType)
	assert.Equal(t, 0.92, res.SimilarNodes[0].SimilarityScore)
	assert.NotContains(t, res.SimilarNodes[0].Properties, "embed")

	require.Len(t, res.GraphStructure.Nodes, 2)
	assert.Equal(t, "hangzhou", res.GraphStructure.Nodes[0].ID)
	assert.Equal(t, []string{"City"}, res.GraphStructure.Nodes[0].Labels)
	assert.NotContains(t, res.GraphStructure.Nodes[0].Properties, "embed")
	require.Len(t, res.GraphStructure.Relationships, 1)
	assert.Equal(t, "LOCATED_IN_CITY", res.GraphStructure.Relationships[0].Type)
	assert.Equal(t, "west_lake_dusk", res.GraphStructure.Relationships[0].Source)

	search := store.CallsMatching("db.index.vector.queryNodes")
	require.Len(t, search, 1)
	assert.Equal(t, schema.Predefined().VectorIndexNames(), search[0].Params["indexes"])
	assert.Equal(t, 3, search[0].Params["top_k"])
	assert.Equal(t, 0.6, search[0].Params["similarity_threshold"])
	assert.Len(t, search[0].Params["embedding_vector"], 3)

	expand := store.CallsMatching("OPTIONAL MATCH")
	require.Len(t, expand, 1)
	assert.Contains(t, expand[0].Cypher, "(n:`City` AND n.`city_name` = $seed_0) OR (n:`ExperientialScene` AND n.`scene_name` = $seed_1)")
	assert.Equal(t, map[string]any{"seed_0": "hangzhou", "seed_1": "west_lake_dusk"}, expand[0].Params)

	opened, closed := store.Sessions()
	assert.Equal(t, opened, closed)
}

func TestFindSimilarNodesFallback(t *testing.T) {
	store := drivertest.New().
		On("db.index.vector.queryNodes", drivertest.Response{RunErr: errors.New("There is no such vector schema index")}).
		On("n.embed IS NOT NULL", drivertest.Response{Records: []*neo4j.Record{
			hit("Season", 0.5, map[string]any{"season_name": "autumn", "embed": []any{0.3}}),
			hit("Province", 0.5, map[string]any{"province_name": "zhejiang"}),
		}}).
		On("OPTIONAL MATCH", drivertest.Response{Records: []*neo4j.Record{neighborhoodRecord(nil, nil)}})

	res, err := New(store, schema.Predefined(), fixedVectorizer{1}).FindSimilarNodes(context.Background(), "autumn", 0, 0.9)
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	assert.Equal(t, DefaultTopK, res.SearchParams.TopK)
	require.Len(t, res.SimilarNodes, 2)
	for _, n := range res.SimilarNodes {
		assert.Equal(t, 0.5, n.SimilarityScore)
		assert.NotContains(t, n.Properties, "embed")
	}
	assert.Equal(t, DefaultTopK, store.CallsMatching("n.embed IS NOT NULL")[0].Params["top_k"])
	assert.NotNil(t, res.GraphStructure.Nodes)
	assert.NotNil(t, res.GraphStructure.Relationships)
}

func TestFindSimilarNodesFallbackFailureIsReturned(t *testing.T) {
	store := drivertest.New().
		On("db.index.vector.queryNodes", drivertest.Response{RunErr: errors.New("no index")}).
		On("n.embed IS NOT NULL", drivertest.Response{RunErr: errors.New("connection refused")})

	_, err := New(store, schema.Predefined(), fixedVectorizer{1}).FindSimilarNodes(context.Background(), "x", 5, 0.7)
	assert.ErrorContains(t, err, "connection refused")
}

func TestFindSimilarNodesEmbeddingFailure(t *testing.T) {
	store := drivertest.New()
	_, err := New(store, schema.Predefined(), fixedVectorizer(nil)).FindSimilarNodes(context.Background(), "x", 5, 0.7)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Empty(t, store.Calls())

	_, err = New(store, schema.Predefined(), nil).FindSimilarNodes(context.Background(), "x", 5, 0.7)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestFindSimilarNodesNoResults(t *testing.T) {
	store := drivertest.New()
	_, err := New(store, schema.Predefined(), fixedVectorizer{1}).FindSimilarNodes(context.Background(), "x", 5, 0.99)
	assert.ErrorIs(t, err, ErrNoResults)
	assert.Empty(t, store.CallsMatching("OPTIONAL MATCH"))
}

func TestExpansionFailureKeepsSimilarNodes(t *testing.T) {
	store := drivertest.New().
		On("db.index.vector.queryNodes", drivertest.Response{Records: []*neo4j.Record{
			hit("City", 0.9, map[string]any{"city_name": "kyoto"}),
		}}).
		On("OPTIONAL MATCH", drivertest.Response{RunErr: errors.New("timeout")})

	res, err := New(store, schema.Predefined(), fixedVectorizer{1}).FindSimilarNodes(context.Background(), "kyoto", 5, 0.7)
	require.NoError(t, err)
	assert.Len(t, res.SimilarNodes, 1)
	assert.Empty(t, res.GraphStructure.Nodes)
	assert.NotNil(t, res.GraphStructure.Nodes)
}

func TestNeighborhoodSkipsUnregisteredSeeds(t *testing.T) {
	store := drivertest.New()
	r := New(store, schema.Predefined(), nil)

	graph, err := r.Neighborhood(context.Background(), []model.SimilarNode{
		{NodeType: "Person", Properties: map[string]any{"id": "p1"}},
		{NodeType: "City", Properties: map[string]any{"description": "no key"}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.EmptyNeighborhood(), graph)
	assert.Empty(t, store.Calls())
}

func TestNeighborhoodQueryCoalescesIdentifiers(t *testing.T) {
	r := New(drivertest.New(), schema.Predefined(), nil)
	q := r.neighborhoodQuery([]string{"(n:`City` AND n.`city_name` = $seed_0)"})

	assert.Contains(t, q, "coalesce(x.`scene_name`, x.`observation_name`, x.`resonance_name`, x.`anchor_name`, x.`interaction_name`, x.`asset_name`, x.`city_name`, x.`province_name`, x.`season_name`, x.`id`, elementId(x))")
	assert.Contains(t, q, "coalesce(startNode(x).`scene_name`")
	assert.Contains(t, q, "coalesce(x.`id`, elementId(x))")
}
