package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

const (
	defaultClaudeMaxTokens = 4096
	// jsonOnlySystem keeps Claude from wrapping the bundle in prose.
	jsonOnlySystem = "You convert text into knowledge graph data. Reply with a single JSON object and nothing else."
)

// ClaudeClient generates extraction replies. Anthropic offers no embeddings,
// so it never serves as an EmbedderClient.
type ClaudeClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

type ClaudeOption func(*ClaudeClient)

func WithMaxTokens(n int) ClaudeOption {
	return func(c *ClaudeClient) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func NewClaudeClient(apiKey, model, baseURL string, opts ...ClaudeOption) *ClaudeClient {
	var clientOpts []anthropic.ClientOption
	if baseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(baseURL))
	}
	c := &ClaudeClient{
		client:    anthropic.NewClient(apiKey, clientOpts...),
		model:     model,
		maxTokens: defaultClaudeMaxTokens,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Generate sends prompt as one user turn at temperature 0 and joins the
// text blocks of the reply.
func (c *ClaudeClient) Generate(ctx context.Context, prompt string) (string, error) {
	temperature := float32(0)
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      jsonOnlySystem,
		Messages:    []anthropic.Message{anthropic.NewUserTextMessage(prompt)},
		MaxTokens:   c.maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Text != nil {
			sb.WriteString(*block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("claude: reply has no text content")
	}
	return sb.String(), nil
}
