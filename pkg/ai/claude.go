package ai

import (
	"context"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeProvider wraps the Anthropic messages API.
type ClaudeProvider struct {
	name      string
	client    sdk.Client
	model     string
	maxTokens int64
}

// ClaudeConfig configures a Claude-backed provider.
type ClaudeConfig struct {
	APIKey    string
	Model     string // default: claude-haiku-4-5-20251001
	MaxTokens int64
}

// NewClaudeProvider creates a Claude provider client.
func NewClaudeProvider(name string, cfg ClaudeConfig) (*ClaudeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude: apiKey is required")
	}
	model := cfg.Model
	if model == "" {
		model = "claude-haiku-4-5-20251001"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return &ClaudeProvider{
		name:      name,
		client:    sdk.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Name returns the registry name of the provider.
func (p *ClaudeProvider) Name() string {
	return p.name
}

// IsAvailable probes the API with a minimal message request.
func (p *ClaudeProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: 1,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock("ping")),
		},
	})
	return err == nil
}

// AnalyzeLead runs one message request and parses the structured result.
func (p *ClaudeProvider) AnalyzeLead(ctx context.Context, input LeadInput) (*LeadAnalysis, error) {
	msg, err := p.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: p.maxTokens,
		System: []sdk.TextBlockParam{
			{Text: analysisSystemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(buildAnalysisPrompt(input))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude message failed: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no text response from claude")
	}

	return parseAnalysis(text)
}
