package aiprovider

import (
	"context"
	"fmt"

	"github.com/lapublica/leadgen/pkg/ai"
	"github.com/lapublica/leadgen/pkg/models"
)

// Factory builds a live client for a provider row. Separated behind a
// function type so tests can swap in fakes at the registry seam.
type Factory func(ctx context.Context, provider *models.AIProvider) (ai.Provider, error)

// DefaultFactory constructs the real SDK-backed client for a provider row.
func DefaultFactory(ctx context.Context, provider *models.AIProvider) (ai.Provider, error) {
	cfg, err := provider.DecodeConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}

	switch provider.Type {
	case models.ProviderTypeClaude:
		return ai.NewClaudeProvider(provider.Name, ai.ClaudeConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: int64(cfg.MaxTokens),
		})
	case models.ProviderTypeOpenAI:
		return ai.NewOpenAIProvider(provider.Name, ai.OpenAIConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	case models.ProviderTypeAzureOpenAI:
		return ai.NewOpenAIProvider(provider.Name, ai.OpenAIConfig{
			APIKey:     cfg.APIKey,
			Endpoint:   cfg.Endpoint,
			Deployment: cfg.Deployment,
			MaxTokens:  cfg.MaxTokens,
		})
	case models.ProviderTypeGemini:
		return ai.NewGeminiProvider(ctx, provider.Name, ai.GeminiConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", provider.Type)
	}
}
