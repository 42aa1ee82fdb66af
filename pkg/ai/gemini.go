package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider wraps the Google Gemini generative API.
type GeminiProvider struct {
	name   string
	client *genai.Client
	model  string
}

// GeminiConfig configures a Gemini-backed provider.
type GeminiConfig struct {
	APIKey string
	Model  string // default: gemini-1.5-flash
}

// NewGeminiProvider creates a Gemini provider client.
func NewGeminiProvider(ctx context.Context, name string, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: apiKey is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		name:   name,
		client: client,
		model:  model,
	}, nil
}

// Name returns the registry name of the provider.
func (p *GeminiProvider) Name() string {
	return p.name
}

// IsAvailable probes the API with a minimal generation request.
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	model := p.client.GenerativeModel(p.model)
	_, err := model.GenerateContent(ctx, genai.Text("ping"))
	return err == nil
}

// AnalyzeLead runs one generation request and parses the structured result.
func (p *GeminiProvider) AnalyzeLead(ctx context.Context, input LeadInput) (*LeadAnalysis, error) {
	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(0.3)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(analysisSystemPrompt)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(buildAnalysisPrompt(input)))
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response from gemini")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	if text == "" {
		return nil, fmt.Errorf("empty response from gemini")
	}

	return parseAnalysis(text)
}

// Close releases the underlying client connection.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}
