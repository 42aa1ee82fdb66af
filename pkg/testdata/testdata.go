// Package testdata generates realistic fixture rows for tests and local
// seeding.
package testdata

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/lapublica/leadgen/pkg/models"
	"github.com/lapublica/leadgen/pkg/scraper"
)

// FakeRawLead produces one scraped record with plausible company data.
func FakeRawLead() scraper.RawLead {
	company := gofakeit.Company()
	return scraper.RawLead{
		CompanyName: company,
		ContactName: gofakeit.Name(),
		Email:       gofakeit.Email(),
		Phone:       gofakeit.Phone(),
		Website:     fmt.Sprintf("https://%s", gofakeit.DomainName()),
		Address:     gofakeit.Street(),
		City:        gofakeit.City(),
		Industry:    gofakeit.BuzzWord(),
		Raw:         map[string]interface{}{"company": company},
	}
}

// FakeLead produces a persisted-shape lead for a source.
func FakeLead(sourceID uuid.UUID) *models.Lead {
	raw := FakeRawLead()
	return &models.Lead{
		SourceID:       sourceID,
		CompanyName:    raw.CompanyName,
		ContactName:    raw.ContactName,
		Email:          raw.Email,
		Phone:          raw.Phone,
		Website:        raw.Website,
		Address:        raw.Address,
		City:           raw.City,
		Industry:       raw.Industry,
		ReviewStatus:   models.ReviewStatusPending,
		PipelineStatus: models.PipelineStatusNew,
		ScrapedAt:      time.Now().UTC(),
	}
}

// FakeSource produces a lead source of the given type with a minimal
// valid config.
func FakeSource(sourceType models.SourceType) *models.LeadSource {
	cfg := models.SourceConfig{}
	switch sourceType {
	case models.SourceTypeGoogleMaps:
		cfg.Query = gofakeit.BuzzWord()
		cfg.Location = gofakeit.City()
	case models.SourceTypeWebScraping:
		cfg.URL = fmt.Sprintf("https://%s/directory", gofakeit.DomainName())
		cfg.Selectors = map[string]string{"item": ".company", "name": ".name"}
	case models.SourceTypeAPI:
		cfg.Endpoint = fmt.Sprintf("https://%s/api/companies", gofakeit.DomainName())
	case models.SourceTypeCSVImport:
		cfg.FilePath = "/tmp/leads.csv"
	}

	configJSON, _ := json.Marshal(cfg)
	tasksJSON, _ := json.Marshal(models.AITasks{})

	return &models.LeadSource{
		Name:      gofakeit.AppName(),
		Type:      sourceType,
		Config:    datatypes.JSON(configJSON),
		AITasks:   datatypes.JSON(tasksJSON),
		Frequency: models.FrequencyManual,
		IsActive:  true,
	}
}

// FakeProvider produces an AI provider row of the given type.
func FakeProvider(providerType models.ProviderType) *models.AIProvider {
	cfg := models.ProviderConfig{
		APIKey: gofakeit.UUID(),
		Model:  "test-model",
	}
	if providerType == models.ProviderTypeAzureOpenAI {
		cfg.Endpoint = fmt.Sprintf("https://%s.openai.azure.com", gofakeit.Username())
		cfg.Deployment = "test-deployment"
	}

	configJSON, _ := json.Marshal(cfg)
	capsJSON, _ := json.Marshal(models.ProviderCapabilities{})

	return &models.AIProvider{
		Name:         gofakeit.Username(),
		DisplayName:  gofakeit.AppName(),
		Type:         providerType,
		Config:       datatypes.JSON(configJSON),
		Capabilities: datatypes.JSON(capsJSON),
		IsActive:     true,
	}
}
