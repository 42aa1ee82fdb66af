package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProviderType identifies the AI backend behind a provider row.
type ProviderType string

const (
	ProviderTypeClaude      ProviderType = "CLAUDE"
	ProviderTypeOpenAI      ProviderType = "OPENAI"
	ProviderTypeGemini      ProviderType = "GEMINI"
	ProviderTypeAzureOpenAI ProviderType = "AZURE_OPENAI"
)

// ProviderConfig is the typed shape of an AIProvider's config column.
// Which fields are required depends on the provider type.
type ProviderConfig struct {
	APIKey      string  `json:"apiKey"`
	Model       string  `json:"model,omitempty"`
	Endpoint    string  `json:"endpoint,omitempty"`
	Deployment  string  `json:"deployment,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
}

// ProviderCapabilities flags what a provider is allowed to do.
type ProviderCapabilities struct {
	Analyze       bool `json:"analyze"`
	Score         bool `json:"score"`
	GeneratePitch bool `json:"generatePitch"`
}

// AIProvider is a configured external AI backend used for lead analysis.
type AIProvider struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string         `gorm:"uniqueIndex;not null" json:"name"`
	DisplayName  string         `json:"displayName"`
	Type         ProviderType   `gorm:"index;not null" json:"type"`
	Config       datatypes.JSON `json:"config"`
	Capabilities datatypes.JSON `json:"capabilities"`
	IsActive     bool           `gorm:"index" json:"isActive"`
	IsDefault    bool           `json:"isDefault"`

	TotalRequests      int64 `json:"totalRequests"`
	SuccessfulRequests int64 `json:"successfulRequests"`
	FailedRequests     int64 `json:"failedRequests"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID if none was provided.
func (p *AIProvider) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// DecodeConfig unmarshals the stored config blob into its typed form.
func (p *AIProvider) DecodeConfig() (ProviderConfig, error) {
	var cfg ProviderConfig
	if len(p.Config) == 0 {
		return cfg, nil
	}
	err := json.Unmarshal(p.Config, &cfg)
	return cfg, err
}
