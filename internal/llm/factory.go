package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/weaver/internal/config"
)

var ErrEmbeddingsUnsupported = errors.New("provider does not support embeddings")

// ollamaBaseURL points an Ollama host at its OpenAI-compatible API.
func ollamaBaseURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
	}
	return baseURL
}

// NewClient builds the text generation client.
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, "")

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "ollama":
		// API key is ignored by Ollama but required by the client config
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIClient(apiKey, cfg.Model, ollamaBaseURL(cfg.BaseURL)), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

// NewEmbedder builds the embedding client.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (EmbedderClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai", "":
		return NewOpenAIClient(cfg.APIKey, "", cfg.Endpoint,
			WithEmbeddingModel(cfg.Model), WithDimensions(cfg.Dimensions)), nil

	case "ollama":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		// Ollama rejects the dimensions field
		return NewOpenAIClient(apiKey, "", ollamaBaseURL(cfg.Endpoint), WithEmbeddingModel(cfg.Model)), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, "", cfg.Model)

	case "claude":
		return nil, fmt.Errorf("%w: %s", ErrEmbeddingsUnsupported, provider)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}
