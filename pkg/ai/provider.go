// Package ai contains the provider clients used for lead enrichment.
// Each configured AIProvider row maps to one live Provider instance held in
// the registry; the concrete client depends on the provider type.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// LeadInput is the payload sent to a provider for analysis.
type LeadInput struct {
	CompanyName string `json:"companyName"`
	Industry    string `json:"industry,omitempty"`
	Website     string `json:"website,omitempty"`
	Address     string `json:"address,omitempty"`
}

// LeadAnalysis is the structured result of one AnalyzeLead call.
type LeadAnalysis struct {
	Score           float64 `json:"score"`
	Insights        string  `json:"insights"`
	Recommendations string  `json:"recommendations"`
	SuggestedPitch  string  `json:"suggestedPitch"`
}

// Provider is a live client for one configured AI backend.
type Provider interface {
	// Name returns the registry name of the provider row this client serves.
	Name() string
	// IsAvailable reports whether the backend can currently take requests.
	IsAvailable(ctx context.Context) bool
	// AnalyzeLead scores a lead and produces insights and a suggested pitch.
	AnalyzeLead(ctx context.Context, input LeadInput) (*LeadAnalysis, error)
}

const analysisSystemPrompt = `You are a B2B sales analyst for a public-sector professional network.
Given a company, respond with a single JSON object with these fields:
"score" (number 0-100, fit as a sales lead), "insights" (short paragraph),
"recommendations" (short paragraph), "suggestedPitch" (2-3 sentences).
Respond with JSON only, no prose around it.`

// buildAnalysisPrompt renders the user prompt for one lead.
func buildAnalysisPrompt(input LeadInput) string {
	var b strings.Builder
	b.WriteString("Analyze this company as a sales lead:\n")
	fmt.Fprintf(&b, "Company: %s\n", input.CompanyName)
	if input.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", input.Industry)
	}
	if input.Website != "" {
		fmt.Fprintf(&b, "Website: %s\n", input.Website)
	}
	if input.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", input.Address)
	}
	return b.String()
}

// parseAnalysis decodes a model response into a LeadAnalysis, tolerating
// markdown code fences around the JSON.
func parseAnalysis(raw string) (*LeadAnalysis, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var analysis LeadAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}
	return &analysis, nil
}

// TestInput is the synthetic payload used by provider self-tests.
func TestInput() LeadInput {
	return LeadInput{
		CompanyName: "Acme Consulting SL",
		Industry:    "Professional services",
		Website:     "https://acme-consulting.example",
		Address:     "Calle Mayor 1, Madrid",
	}
}
