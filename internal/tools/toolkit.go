// Package tools exposes the graph operations as agent tools: each takes one
// structured argument and always answers with a single string.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/agenthands/weaver/internal/core"
	"github.com/agenthands/weaver/internal/core/importer"
	"github.com/agenthands/weaver/internal/core/model"
	"github.com/agenthands/weaver/internal/core/retrieval"
)

// Backend is the graph service behind the tools. *core.Weaver implements it.
type Backend interface {
	ImportGraph(ctx context.Context, bundle *model.GraphBundle) (*model.ImportReport, error)
	FindSimilarNodes(ctx context.Context, text string, topK int, threshold float64) (*model.RetrievalResult, error)
	ExecuteCypher(ctx context.Context, query string) ([]core.Row, error)
	ReadSchema() ([]byte, error)
	WeaveText(ctx context.Context, text string) (*model.ImportReport, error)
}

// SimilarityArgs is the find_similar_nodes argument. Omitted numbers take
// the toolkit defaults.
type SimilarityArgs struct {
	TextContent         string   `json:"text_content"`
	TopK                *int     `json:"top_k,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
}

func (a SimilarityArgs) resolved(topK int, threshold float64) (int, float64) {
	if a.TopK != nil {
		topK = *a.TopK
	}
	if a.SimilarityThreshold != nil {
		threshold = *a.SimilarityThreshold
	}
	return topK, threshold
}

type Toolkit struct {
	backend   Backend
	logger    *zap.Logger
	tracer    trace.Tracer
	topK      int
	threshold float64
}

type Option func(*Toolkit)

// WithSearchDefaults replaces the top_k and similarity_threshold used when a
// find_similar_nodes call omits them.
func WithSearchDefaults(topK int, threshold float64) Option {
	return func(t *Toolkit) {
		if topK > 0 {
			t.topK = topK
		}
		t.threshold = threshold
	}
}

func New(backend Backend, logger *zap.Logger, opts ...Option) *Toolkit {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Toolkit{
		backend:   backend,
		logger:    logger,
		tracer:    otel.Tracer("weaver/tools"),
		topK:      retrieval.DefaultTopK,
		threshold: retrieval.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Toolkit) start(ctx context.Context, tool string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "tool."+tool, trace.WithAttributes(attribute.String("tool.name", tool)))
}

func (t *Toolkit) fail(span trace.Span, tool string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	t.logger.Warn("Tool call failed", zap.String("tool", tool), zap.Error(err))
}

// ImportGraph parses a bundle document and imports it.
func (t *Toolkit) ImportGraph(ctx context.Context, raw []byte) string {
	ctx, span := t.start(ctx, ImportGraphTool)
	defer span.End()

	bundle, err := model.ParseBundle(raw)
	if err != nil {
		t.fail(span, ImportGraphTool, err)
		return fmt.Sprintf("Error importing graph data: %v\nData: %s\nTraceback:\n%s", err, raw, debug.Stack())
	}
	span.SetAttributes(
		attribute.Int("bundle.nodes", bundle.NodeCount()),
		attribute.Int("bundle.relationships", bundle.RelationshipCount()))

	report, err := t.backend.ImportGraph(ctx, bundle)
	if err != nil {
		t.fail(span, ImportGraphTool, err)
		return importFailure(err, bundle)
	}
	return report.String()
}

func importFailure(err error, bundle *model.GraphBundle) string {
	var ie *importer.ImportError
	if errors.As(err, &ie) {
		return ie.Message()
	}
	return fmt.Sprintf("Error importing graph data: %v\nData: %s\nTraceback:\n%s", err, bundle.Indented(), debug.Stack())
}

func (t *Toolkit) FindSimilarNodes(ctx context.Context, args SimilarityArgs) string {
	ctx, span := t.start(ctx, FindSimilarNodesTool)
	defer span.End()

	topK, threshold := args.resolved(t.topK, t.threshold)
	span.SetAttributes(attribute.Int("search.top_k", topK), attribute.Float64("search.threshold", threshold))

	res, err := t.backend.FindSimilarNodes(ctx, args.TextContent, topK, threshold)
	switch {
	case errors.Is(err, retrieval.ErrEmbeddingFailed):
		t.fail(span, FindSimilarNodesTool, err)
		return fmt.Sprintf("Failed to compute embedding for text: %s", args.TextContent)
	case errors.Is(err, retrieval.ErrNoResults):
		return fmt.Sprintf("No similar nodes found for text: '%s' with threshold %s", args.TextContent, formatThreshold(threshold))
	case err != nil:
		t.fail(span, FindSimilarNodesTool, err)
		return fmt.Sprintf("Error finding similar nodes for text '%s': %v", args.TextContent, err)
	}

	out, err := renderJSON(res)
	if err != nil {
		t.fail(span, FindSimilarNodesTool, err)
		return fmt.Sprintf("Error finding similar nodes for text '%s': %v", args.TextContent, err)
	}
	span.SetAttributes(attribute.Int("search.hits", len(res.SimilarNodes)), attribute.Bool("search.fallback", res.Fallback))
	return out
}

// formatThreshold always shows a fractional part, so 1 renders as "1.0".
func formatThreshold(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (t *Toolkit) ExecuteCypher(ctx context.Context, query string) string {
	ctx, span := t.start(ctx, ExecuteCypherTool)
	defer span.End()

	rows, err := t.backend.ExecuteCypher(ctx, query)
	if err == nil && len(rows) == 0 {
		return fmt.Sprintf("Cypher query executed successfully. No data returned.\nQuery: %s\n", query)
	}
	var out string
	if err == nil {
		out, err = renderJSON(rows)
	}
	if err != nil {
		t.fail(span, ExecuteCypherTool, err)
		return fmt.Sprintf("Error executing Cypher query: %v\nQuery: %s\nTraceback:\n%s", err, query, debug.Stack())
	}
	span.SetAttributes(attribute.Int("cypher.rows", len(rows)))
	return out
}

func (t *Toolkit) ReadGraphSchema(ctx context.Context) string {
	_, span := t.start(ctx, ReadGraphSchemaTool)
	defer span.End()

	data, err := t.backend.ReadSchema()
	if err == nil {
		var buf bytes.Buffer
		if err = json.Indent(&buf, data, "", "  "); err == nil {
			return buf.String()
		}
	}
	t.fail(span, ReadGraphSchemaTool, err)
	return fmt.Sprintf("Error reading graph schema: %v", err)
}

// WeaveText extracts a bundle from free text and imports it.
func (t *Toolkit) WeaveText(ctx context.Context, text string) string {
	ctx, span := t.start(ctx, WeaveTextTool)
	defer span.End()

	report, err := t.backend.WeaveText(ctx, text)
	if err != nil {
		t.fail(span, WeaveTextTool, err)
		var ie *importer.ImportError
		if errors.As(err, &ie) {
			return ie.Message()
		}
		return fmt.Sprintf("Error extracting graph data: %v", err)
	}
	return report.String()
}

// renderJSON indents with two spaces and leaves non-ASCII and HTML
// characters unescaped.
func renderJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
