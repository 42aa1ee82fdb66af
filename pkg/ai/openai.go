package ai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider wraps the OpenAI chat completion API. It also serves
// Azure OpenAI deployments through the same SDK.
type OpenAIProvider struct {
	name        string
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// OpenAIConfig configures an OpenAI-backed provider.
type OpenAIConfig struct {
	APIKey      string
	Model       string // default: gpt-4o-mini
	Temperature float32
	MaxTokens   int

	// Azure OpenAI. When Endpoint is set the client targets an Azure
	// deployment and Deployment names the model deployment.
	Endpoint   string
	Deployment string
}

// NewOpenAIProvider creates an OpenAI (or Azure OpenAI) provider client.
func NewOpenAIProvider(name string, cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: apiKey is required")
	}

	model := cfg.Model
	var clientCfg openai.ClientConfig
	if cfg.Endpoint != "" {
		if cfg.Deployment == "" {
			return nil, fmt.Errorf("openai: deployment is required for azure endpoints")
		}
		clientCfg = openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
		model = cfg.Deployment
	} else {
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		if model == "" {
			model = "gpt-4o-mini"
		}
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return &OpenAIProvider{
		name:        name,
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Name returns the registry name of the provider.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable probes the API with a model listing.
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// AnalyzeLead runs one chat completion and parses the structured result.
func (p *OpenAIProvider) AnalyzeLead(ctx context.Context, input LeadInput) (*LeadAnalysis, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildAnalysisPrompt(input)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	return parseAnalysis(resp.Choices[0].Message.Content)
}
