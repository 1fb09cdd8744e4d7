package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/agenthands/weaver/internal/config"
	"github.com/agenthands/weaver/internal/core/extraction"
	"github.com/agenthands/weaver/internal/core/importer"
	"github.com/agenthands/weaver/internal/core/model"
	"github.com/agenthands/weaver/internal/core/retrieval"
	"github.com/agenthands/weaver/internal/core/statement"
	"github.com/agenthands/weaver/internal/driver"
	"github.com/agenthands/weaver/internal/llm"
	"github.com/agenthands/weaver/internal/schema"
)

// ErrNoExtractor is returned by WeaveText when no LLM is configured.
var ErrNoExtractor = errors.New("no LLM configured for extraction")

type Weaver struct {
	Driver    driver.GraphDriver
	Registry  *schema.Registry
	Importer  *importer.Importer
	Retriever *retrieval.Retriever
	Extractor *extraction.Extractor

	dimensions int
	logger     *zap.Logger
}

// NewWeaver wires the engines around one driver and registry. llmClient and
// embedder may be nil: extraction is then unavailable and nodes are written
// without vectors.
func NewWeaver(drv driver.GraphDriver, reg *schema.Registry, llmClient llm.LLMClient, embedder llm.Vectorizer, cfg *config.Config, logger *zap.Logger) *Weaver {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	gen := statement.NewGenerator(reg,
		statement.WithMergeRelationships(cfg.Import.MergeRelationships),
		statement.WithRelationshipRules(cfg.Import.EnforceRelationshipRules))

	w := &Weaver{
		Driver:     drv,
		Registry:   reg,
		Importer:   importer.New(drv, reg, embedder, importer.WithGenerator(gen), importer.WithLogger(logger.Named("importer"))),
		Retriever:  retrieval.New(drv, reg, embedder, retrieval.WithLogger(logger.Named("retrieval"))),
		dimensions: cfg.Embedding.Dimensions,
		logger:     logger,
	}
	if llmClient != nil {
		w.Extractor = extraction.NewExtractor(llmClient, reg, cfg.Extraction.Prompt)
	}
	return w
}

// ApplySchema creates the constraints and indexes for the registry.
func (w *Weaver) ApplySchema(ctx context.Context) (int, error) {
	stmts := w.Registry.BootstrapStatements(w.dimensions)
	applied, err := w.Driver.ApplySchema(ctx, stmts)
	if err != nil {
		return applied, fmt.Errorf("failed to apply schema: %w", err)
	}
	w.logger.Info("Applied schema", zap.Int("applied", applied), zap.Int("statements", len(stmts)))
	return applied, nil
}

func (w *Weaver) ImportGraph(ctx context.Context, bundle *model.GraphBundle) (*model.ImportReport, error) {
	return w.Importer.ImportGraph(ctx, bundle)
}

func (w *Weaver) FindSimilarNodes(ctx context.Context, text string, topK int, threshold float64) (*model.RetrievalResult, error) {
	return w.Retriever.FindSimilarNodes(ctx, text, topK, threshold)
}

// ReadSchema returns the registry as JSON.
func (w *Weaver) ReadSchema() ([]byte, error) {
	return w.Registry.MarshalJSON()
}

// WeaveText extracts a bundle from free text and imports it.
func (w *Weaver) WeaveText(ctx context.Context, text string) (*model.ImportReport, error) {
	if w.Extractor == nil {
		return nil, ErrNoExtractor
	}
	bundle, err := w.Extractor.ExtractBundle(ctx, text)
	if err != nil {
		return nil, err
	}
	w.logger.Debug("Extracted bundle", zap.Int("nodes", bundle.NodeCount()), zap.Int("relationships", bundle.RelationshipCount()))
	return w.ImportGraph(ctx, bundle)
}

func (w *Weaver) Close(ctx context.Context) error {
	return w.Driver.Close(ctx)
}
