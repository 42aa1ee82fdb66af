package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysis(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		analysis, err := parseAnalysis(`{"score": 85, "insights": "strong fit", "recommendations": "call soon", "suggestedPitch": "hello"}`)
		require.NoError(t, err)
		assert.Equal(t, 85.0, analysis.Score)
		assert.Equal(t, "strong fit", analysis.Insights)
		assert.Equal(t, "call soon", analysis.Recommendations)
		assert.Equal(t, "hello", analysis.SuggestedPitch)
	})

	t.Run("fenced json", func(t *testing.T) {
		raw := "```json\n{\"score\": 40, \"insights\": \"weak fit\"}\n```"
		analysis, err := parseAnalysis(raw)
		require.NoError(t, err)
		assert.Equal(t, 40.0, analysis.Score)
		assert.Equal(t, "weak fit", analysis.Insights)
	})

	t.Run("bare fence", func(t *testing.T) {
		raw := "```\n{\"score\": 10}\n```"
		analysis, err := parseAnalysis(raw)
		require.NoError(t, err)
		assert.Equal(t, 10.0, analysis.Score)
	})

	t.Run("prose instead of json", func(t *testing.T) {
		_, err := parseAnalysis("This company looks promising.")
		require.Error(t, err)
	})
}

func TestBuildAnalysisPrompt(t *testing.T) {
	full := buildAnalysisPrompt(LeadInput{
		CompanyName: "Acme SL",
		Industry:    "Legal",
		Website:     "https://acme.example",
		Address:     "Calle Mayor 1",
	})
	assert.Contains(t, full, "Company: Acme SL")
	assert.Contains(t, full, "Industry: Legal")
	assert.Contains(t, full, "Website: https://acme.example")
	assert.Contains(t, full, "Address: Calle Mayor 1")

	minimal := buildAnalysisPrompt(LeadInput{CompanyName: "Acme SL"})
	assert.Contains(t, minimal, "Company: Acme SL")
	assert.NotContains(t, minimal, "Industry:")
	assert.NotContains(t, minimal, "Website:")
}
