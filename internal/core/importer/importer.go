// Package importer writes graph bundles into the store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/agenthands/weaver/internal/core/model"
	"github.com/agenthands/weaver/internal/core/statement"
	"github.com/agenthands/weaver/internal/driver"
	"github.com/agenthands/weaver/internal/llm"
	"github.com/agenthands/weaver/internal/schema"
)

// ImportError aborts an import. Statements that ran before it are not rolled
// back.
type ImportError struct {
	Err       error
	Statement string
	Bundle    *model.GraphBundle
	Stack     []byte
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import graph: %v", e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Message is the text handed back to the calling agent.
func (e *ImportError) Message() string {
	data := "{}"
	if e.Bundle != nil {
		data = e.Bundle.Indented()
	}
	return fmt.Sprintf("Error importing graph data: %v\nData: %s\nTraceback:\n%s", e.Err, data, e.Stack)
}

type Importer struct {
	sessions  driver.SessionOpener
	generator *statement.Generator
	embedder  llm.Vectorizer
	logger    *zap.Logger
}

type Option func(*Importer)

func WithLogger(l *zap.Logger) Option {
	return func(i *Importer) { i.logger = l }
}

// WithGenerator replaces the statement generator built from the registry.
func WithGenerator(g *statement.Generator) Option {
	return func(i *Importer) { i.generator = g }
}

// New builds an importer. embedder may be nil, in which case nodes are
// written without vectors.
func New(sessions driver.SessionOpener, reg *schema.Registry, embedder llm.Vectorizer, opts ...Option) *Importer {
	i := &Importer{
		sessions: sessions,
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(i)
	}
	if i.generator == nil {
		i.generator = statement.NewGenerator(reg)
	}
	return i
}

// ImportGraph writes every node, then every relationship, over one session.
// Malformed or disallowed relationships are skipped and noted in the report.
// The first failing statement aborts the import with an *ImportError.
func (i *Importer) ImportGraph(ctx context.Context, bundle *model.GraphBundle) (*model.ImportReport, error) {
	if bundle == nil {
		bundle = &model.GraphBundle{}
	}
	report := &model.ImportReport{
		ImportedNodeRefs: []string{},
		ImportedRelRefs:  []string{},
	}

	sess := i.sessions.OpenSession(ctx)
	defer sess.Close(ctx)

	for _, group := range bundle.Nodes {
		for _, item := range group.Items {
			if item == nil {
				item = model.NewPropertyMap()
			}
			key := i.generator.ResolvePrimaryKey(group.Label, item)
			if key.Generated {
				i.logger.Debug("Generated primary key", zap.String("label", group.Label), zap.String("id", key.Value.Text()))
			}

			props := item.Clone()
			if i.embedder != nil {
				if vec := i.embedder.Vector(ctx, statement.EmbeddingText(item, key)); vec != nil {
					props.Set(schema.EmbedField, model.Vector(vec))
				}
			}

			st := i.generator.Node(group.Label, key, props)
			if err := run(ctx, sess, st); err != nil {
				return nil, i.fail(err, st, bundle)
			}
			report.NodesWritten++
			report.ImportedNodeRefs = append(report.ImportedNodeRefs, key.Ref(group.Label))
		}
	}

	for _, group := range bundle.Relationships {
		for _, edge := range group.Edges {
			st, err := i.generator.Relationship(group.Type, edge)
			if errors.Is(err, statement.ErrMalformedEdge) || errors.Is(err, statement.ErrDisallowedEdge) {
				i.logger.Warn("Skipping relationship", zap.String("type", group.Type), zap.Error(err))
				report.Errors = append(report.Errors, err.Error())
				continue
			}
			if err != nil {
				return nil, i.fail(err, st, bundle)
			}

			if err := run(ctx, sess, st); err != nil {
				return nil, i.fail(err, st, bundle)
			}
			report.RelationshipsWritten++
			report.ImportedRelRefs = append(report.ImportedRelRefs, statement.RelationshipRef(group.Type, edge))
		}
	}

	i.logger.Info("Imported graph data",
		zap.Int("nodes", report.NodesWritten),
		zap.Int("relationships", report.RelationshipsWritten),
		zap.Int("skipped", len(report.Errors)))
	return report, nil
}

func run(ctx context.Context, sess driver.Session, st statement.Statement) error {
	res, err := sess.Run(ctx, st.Cypher, st.Params)
	if err != nil {
		return err
	}
	return driver.Drain(ctx, res)
}

func (i *Importer) fail(err error, st statement.Statement, bundle *model.GraphBundle) *ImportError {
	i.logger.Error("Import aborted", zap.String("statement", st.Cypher), zap.Error(err))
	return &ImportError{
		Err:       err,
		Statement: st.Cypher,
		Bundle:    bundle,
		Stack:     debug.Stack(),
	}
}
