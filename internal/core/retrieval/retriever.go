// Package retrieval finds graph nodes similar to a piece of text and the
// neighborhood around them.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/agenthands/weaver/internal/core/model"
	"github.com/agenthands/weaver/internal/driver"
	"github.com/agenthands/weaver/internal/llm"
	"github.com/agenthands/weaver/internal/schema"
)

const (
	DefaultTopK      = 5
	DefaultThreshold = 0.7
)

var (
	ErrEmbeddingFailed = errors.New("failed to compute embedding")
	ErrNoResults       = errors.New("no similar nodes found")
)

type Retriever struct {
	sessions driver.SessionOpener
	registry *schema.Registry
	embedder llm.Vectorizer
	logger   *zap.Logger
}

type Option func(*Retriever)

func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

func New(sessions driver.SessionOpener, reg *schema.Registry, embedder llm.Vectorizer, opts ...Option) *Retriever {
	r := &Retriever{
		sessions: sessions,
		registry: reg,
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// FindSimilarNodes embeds text, searches the vector indexes and expands the
// hits into their 1-hop neighborhood. When vector search fails a plain scan
// over embedded nodes is used and every score is FallbackScore.
func (r *Retriever) FindSimilarNodes(ctx context.Context, text string, topK int, threshold float64) (*model.RetrievalResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	var vec []float32
	if r.embedder != nil {
		vec = r.embedder.Vector(ctx, text)
	}
	if vec == nil {
		return nil, ErrEmbeddingFailed
	}

	fallback := false
	nodes, err := r.vectorSearch(ctx, vec, topK, threshold)
	if err != nil {
		r.logger.Warn("Vector search failed, falling back to property scan", zap.Error(err))
		fallback = true
		nodes, err = r.fallbackScan(ctx, topK)
		if err != nil {
			return nil, fmt.Errorf("fallback scan: %w", err)
		}
	}
	if len(nodes) == 0 {
		return nil, ErrNoResults
	}

	graph, err := r.Neighborhood(ctx, nodes)
	if err != nil {
		r.logger.Warn("Failed to expand neighborhood", zap.Int("seeds", len(nodes)), zap.Error(err))
		graph = model.EmptyNeighborhood()
	}

	return &model.RetrievalResult{
		QueryText:               text,
		QueryEmbeddingDimension: len(vec),
		SimilarNodes:            nodes,
		GraphStructure:          graph,
		SearchParams:            model.SearchParams{TopK: topK, SimilarityThreshold: threshold},
		Fallback:                fallback,
	}, nil
}

func (r *Retriever) vectorSearch(ctx context.Context, vec []float32, topK int, threshold float64) ([]model.SimilarNode, error) {
	indexes := r.registry.VectorIndexNames()
	if len(indexes) == 0 {
		return nil, errors.New("no vector indexes registered")
	}

	embedding := make([]float64, len(vec))
	for i, x := range vec {
		embedding[i] = float64(x)
	}

	return r.collectSimilar(ctx, driver.VectorSearchQuery, map[string]any{
		"indexes":              indexes,
		"top_k":                topK,
		"embedding_vector":     embedding,
		"similarity_threshold": threshold,
	})
}

func (r *Retriever) fallbackScan(ctx context.Context, topK int) ([]model.SimilarNode, error) {
	return r.collectSimilar(ctx, driver.FallbackScanQuery, map[string]any{"top_k": topK})
}

func (r *Retriever) collectSimilar(ctx context.Context, cypher string, params map[string]any) ([]model.SimilarNode, error) {
	sess := r.sessions.OpenSession(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	var out []model.SimilarNode
	for res.Next(ctx) {
		rec := res.Record()
		nodeType, _, err := neo4j.GetRecordValue[string](rec, "node_type")
		if err != nil {
			return nil, err
		}
		props, _, err := neo4j.GetRecordValue[map[string]any](rec, "node_properties")
		if err != nil {
			return nil, err
		}
		score, err := scoreOf(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, model.SimilarNode{
			NodeType:        nodeType,
			Properties:      model.StripEmbed(props),
			SimilarityScore: score,
		})
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scoreOf(rec *neo4j.Record) (float64, error) {
	raw, ok := rec.Get("similarity_score")
	if !ok {
		return 0, errors.New("record has no similarity_score")
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("unexpected similarity_score type %T", raw)
}
