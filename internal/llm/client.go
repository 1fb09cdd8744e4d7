// Package llm holds the provider clients: text generation for bundle
// extraction and embeddings for node vectors and search queries.
package llm

import "context"

// LLMClient answers a single prompt.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EmbedderClient returns the raw embedding of text or an error.
type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Vectorizer computes an embedding and returns nil when it cannot. Callers
// treat a nil vector as "no embedding available".
type Vectorizer interface {
	Vector(ctx context.Context, text string) []float32
}
