package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/weaver/internal/core/common"
	"github.com/agenthands/weaver/internal/core/model"
	"github.com/agenthands/weaver/internal/llm"
	"github.com/agenthands/weaver/internal/schema"
)

// DefaultPrompt takes the schema description and the text, in that order.
const DefaultPrompt = `You turn travel notes into a property graph.

Schema:
%s
Rules:
- Only use the node labels and relationship types listed above.
- Every node must carry its primary key. Primary key values are lowercase English words joined by underscores.
- Relationships reference nodes by label and primary key value and must respect the allowed source and target labels.
- Timestamps use ISO 8601.

Reply with one JSON object and nothing else:
{"nodes": {"Label": [{"primary_key": "value", "...": "..."}]},
 "relationships": {"TYPE": [{"id": "unique_id", "source_node": {"label": "Label", "key": "value"}, "target_node": {"label": "Label", "key": "value"}, "properties": {}}]}}

Text:
%s`

type Extractor struct {
	LLM      llm.LLMClient
	Registry *schema.Registry
	Prompt   string
}

func NewExtractor(llmClient llm.LLMClient, reg *schema.Registry, prompt string) *Extractor {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &Extractor{
		LLM:      llmClient,
		Registry: reg,
		Prompt:   prompt,
	}
}

// ExtractBundle asks the LLM for a graph bundle describing content.
func (e *Extractor) ExtractBundle(ctx context.Context, content string) (*model.GraphBundle, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("no text to extract from")
	}

	prompt := fmt.Sprintf(e.Prompt, DescribeSchema(e.Registry), content)

	response, err := e.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate graph data: %w", err)
	}

	bundle, err := common.ParseJSON[model.GraphBundle](response)
	if err != nil {
		return nil, fmt.Errorf("failed to extract graph data: %w", err)
	}

	return &bundle, nil
}

// DescribeSchema renders the registry as prompt text.
func DescribeSchema(reg *schema.Registry) string {
	var b strings.Builder
	b.WriteString("Node labels:\n")
	for _, n := range reg.NodeTypes() {
		fmt.Fprintf(&b, "- %s (primary key: %s)\n", n.Label, n.PrimaryKey)
		for _, p := range n.Properties {
			if p.Name == schema.EmbedField {
				continue
			}
			fmt.Fprintf(&b, "    %s %s: %s\n", p.Name, p.Type, p.Description)
		}
	}
	b.WriteString("Relationship types:\n")
	for _, r := range reg.RelationshipTypes() {
		fmt.Fprintf(&b, "- %s: from %s to %s\n", r.Type, strings.Join(r.SourceLabels, "|"), strings.Join(r.TargetLabels, "|"))
		for _, p := range r.Properties {
			if p.Name == r.PrimaryKey {
				continue
			}
			fmt.Fprintf(&b, "    %s %s: %s\n", p.Name, p.Type, p.Description)
		}
	}
	return b.String()
}
