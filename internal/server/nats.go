package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/agenthands/weaver/internal/natsutil"
	"github.com/agenthands/weaver/internal/tools"
)

// Bridge answers tool requests arriving on NATS subjects {prefix}.{tool}.
type Bridge struct {
	nc      *nats.Conn
	toolkit *tools.Toolkit
	prefix  string
	queue   string
	logger  *zap.Logger
	subs    []*nats.Subscription
}

func NewBridge(nc *nats.Conn, toolkit *tools.Toolkit, prefix, queue string, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{nc: nc, toolkit: toolkit, prefix: prefix, queue: queue, logger: logger}
}

// Subject returns the subject a tool is served on.
func (b *Bridge) Subject(tool string) string {
	return b.prefix + "." + tool
}

// Start subscribes every tool. On failure the subscriptions made so far are
// drained.
func (b *Bridge) Start() error {
	steps := []struct {
		tool string
		sub  func(subject string) (*nats.Subscription, error)
	}{
		{tools.ImportGraphTool, func(subj string) (*nats.Subscription, error) {
			return natsutil.Serve(b.nc, subj, b.queue, func(ctx context.Context, raw json.RawMessage) (Response, error) {
				return Response{Result: b.toolkit.ImportGraph(ctx, BundleBody(raw))}, nil
			})
		}},
		{tools.FindSimilarNodesTool, func(subj string) (*nats.Subscription, error) {
			return natsutil.Serve(b.nc, subj, b.queue, func(ctx context.Context, args tools.SimilarityArgs) (Response, error) {
				if args.TextContent == "" {
					return Response{}, errors.New("text_content is required")
				}
				return Response{Result: b.toolkit.FindSimilarNodes(ctx, args)}, nil
			})
		}},
		{tools.ExecuteCypherTool, func(subj string) (*nats.Subscription, error) {
			return natsutil.Serve(b.nc, subj, b.queue, func(ctx context.Context, req CypherRequest) (Response, error) {
				if req.CypherQuery == "" {
					return Response{}, errors.New("cypher_query is required")
				}
				return Response{Result: b.toolkit.ExecuteCypher(ctx, req.CypherQuery)}, nil
			})
		}},
		{tools.ReadGraphSchemaTool, func(subj string) (*nats.Subscription, error) {
			return natsutil.Serve(b.nc, subj, b.queue, func(ctx context.Context, _ json.RawMessage) (Response, error) {
				return Response{Result: b.toolkit.ReadGraphSchema(ctx)}, nil
			})
		}},
		{tools.WeaveTextTool, func(subj string) (*nats.Subscription, error) {
			return natsutil.Serve(b.nc, subj, b.queue, func(ctx context.Context, req WeaveRequest) (Response, error) {
				if req.Text == "" {
					return Response{}, errors.New("text is required")
				}
				return Response{Result: b.toolkit.WeaveText(ctx, req.Text)}, nil
			})
		}},
	}

	for _, step := range steps {
		subject := b.Subject(step.tool)
		sub, err := step.sub(subject)
		if err != nil {
			b.Stop()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		b.subs = append(b.subs, sub)
		b.logger.Info("Serving tool over NATS", zap.String("subject", subject), zap.String("queue", b.queue))
	}
	return nil
}

func (b *Bridge) Stop() {
	for _, sub := range b.subs {
		if err := sub.Drain(); err != nil {
			b.logger.Warn("Failed to drain subscription", zap.String("subject", sub.Subject), zap.Error(err))
		}
	}
	b.subs = nil
}
