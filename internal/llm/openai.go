package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to OpenAI and any server exposing the same API
// (Ollama, DashScope, vLLM).
type OpenAIClient struct {
	client     *openai.Client
	model      string
	embedModel string
	dimensions int
}

type OpenAIOption func(*OpenAIClient)

func WithEmbeddingModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		if model != "" {
			c.embedModel = model
		}
	}
}

// WithDimensions asks the server for vectors of a fixed size. Zero leaves the
// model default.
func WithDimensions(n int) OpenAIOption {
	return func(c *OpenAIClient) { c.dimensions = n }
}

// NewOpenAIClient accepts either an API base URL or a full embeddings endpoint;
// a trailing "/embeddings" is removed.
func NewOpenAIClient(apiKey string, model string, baseURL string, opts ...OpenAIOption) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/embeddings")
	}
	c := &OpenAIClient{
		client:     openai.NewClientWithConfig(config),
		model:      model,
		embedModel: string(openai.SmallEmbedding3),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("no response choices")
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(c.embedModel),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		Dimensions:     c.dimensions,
	}
	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) > 0 && len(resp.Data[0].Embedding) > 0 {
		return resp.Data[0].Embedding, nil
	}
	return nil, fmt.Errorf("no embedding data")
}
