package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// SafeEmbedder wraps an EmbedderClient so that failures never propagate:
// errors, timeouts and empty vectors all yield nil. Requests are paced by an
// optional token bucket.
type SafeEmbedder struct {
	client  EmbedderClient
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

type SafeOption func(*SafeEmbedder)

// WithRateLimit allows perSecond requests with the given burst. A
// non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) SafeOption {
	return func(s *SafeEmbedder) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithTimeout(d time.Duration) SafeOption {
	return func(s *SafeEmbedder) { s.timeout = d }
}

func WithLogger(l *zap.Logger) SafeOption {
	return func(s *SafeEmbedder) { s.logger = l }
}

func NewSafeEmbedder(client EmbedderClient, opts ...SafeOption) *SafeEmbedder {
	s := &SafeEmbedder{client: client, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SafeEmbedder) Vector(ctx context.Context, text string) []float32 {
	if s == nil || s.client == nil {
		return nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn("Embedding request not admitted", zap.Error(err))
			return nil
		}
	}

	vec, err := s.client.Embed(ctx, text)
	if err != nil {
		s.logger.Warn("Failed to compute embedding", zap.Int("text_len", len(text)), zap.Error(err))
		return nil
	}
	if len(vec) == 0 {
		return nil
	}
	return vec
}
