package aiprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lapublica/leadgen/pkg/ai"
	"github.com/lapublica/leadgen/pkg/domain"
	"github.com/lapublica/leadgen/pkg/logger"
	"github.com/lapublica/leadgen/pkg/metrics"
	"github.com/lapublica/leadgen/pkg/models"
)

// Service handles AI provider lifecycle and keeps the registry mirrored
// with the active rows in the store.
type Service struct {
	db      *gorm.DB
	manager *Manager
	factory Factory
	logger  logger.Logger
}

// NewService creates a new AI provider service.
func NewService(db *gorm.DB, manager *Manager, factory Factory, log logger.Logger) *Service {
	if factory == nil {
		factory = DefaultFactory
	}
	return &Service{
		db:      db,
		manager: manager,
		factory: factory,
		logger:  log,
	}
}

// requiredConfigFields maps each provider type to the config fields it
// cannot work without.
var requiredConfigFields = map[models.ProviderType][]string{
	models.ProviderTypeClaude:      {"apiKey", "model"},
	models.ProviderTypeOpenAI:      {"apiKey", "model"},
	models.ProviderTypeGemini:      {"apiKey", "model"},
	models.ProviderTypeAzureOpenAI: {"apiKey", "endpoint", "deployment"},
}

// validateConfig checks the per-type required fields, failing with an error
// that names the first missing one.
func validateConfig(providerType models.ProviderType, cfg models.ProviderConfig) error {
	fields, ok := requiredConfigFields[providerType]
	if !ok {
		return domain.NewValidationError(fmt.Sprintf("unsupported provider type: %s", providerType))
	}

	present := map[string]string{
		"apiKey":     cfg.APIKey,
		"model":      cfg.Model,
		"endpoint":   cfg.Endpoint,
		"deployment": cfg.Deployment,
	}
	for _, field := range fields {
		if present[field] == "" {
			return domain.NewValidationError(fmt.Sprintf("missing required config field for %s: %s", providerType, field))
		}
	}
	return nil
}

// CreateProvider validates and persists a new provider. When the new row is
// the default for its type, other defaults of that type are cleared first.
// Active providers are immediately mirrored into the registry.
func (s *Service) CreateProvider(ctx context.Context, req models.CreateProviderRequest) (*models.AIProvider, error) {
	if err := validateConfig(req.Type, req.Config); err != nil {
		return nil, err
	}

	configJSON, err := json.Marshal(req.Config)
	if err != nil {
		return nil, domain.NewValidationError("invalid provider config")
	}
	capsJSON, err := json.Marshal(req.Capabilities)
	if err != nil {
		return nil, domain.NewValidationError("invalid provider capabilities")
	}

	provider := &models.AIProvider{
		Name:         req.Name,
		DisplayName:  req.DisplayName,
		Type:         req.Type,
		Config:       datatypes.JSON(configJSON),
		Capabilities: datatypes.JSON(capsJSON),
		IsActive:     req.IsActive,
		IsDefault:    req.IsDefault,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.IsDefault {
			if err := tx.Model(&models.AIProvider{}).
				Where("type = ? AND is_default = ?", req.Type, true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(provider).Error
	})
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	if provider.IsActive {
		if err := s.register(ctx, provider); err != nil {
			return nil, err
		}
	}

	s.logger.Info("AI provider created",
		"provider", provider.Name,
		"type", provider.Type,
		"active", provider.IsActive)

	return provider, nil
}

// UpdateProvider applies a partial update. The provider type is immutable;
// default-clearing uses the stored type. Registration follows the resulting
// active state.
func (s *Service) UpdateProvider(ctx context.Context, id uuid.UUID, req models.UpdateProviderRequest) (*models.AIProvider, error) {
	provider, err := s.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Config != nil {
		if err := validateConfig(provider.Type, *req.Config); err != nil {
			return nil, err
		}
		configJSON, err := json.Marshal(req.Config)
		if err != nil {
			return nil, domain.NewValidationError("invalid provider config")
		}
		provider.Config = datatypes.JSON(configJSON)
	}
	if req.Capabilities != nil {
		capsJSON, err := json.Marshal(req.Capabilities)
		if err != nil {
			return nil, domain.NewValidationError("invalid provider capabilities")
		}
		provider.Capabilities = datatypes.JSON(capsJSON)
	}
	if req.DisplayName != nil {
		provider.DisplayName = *req.DisplayName
	}
	if req.IsActive != nil {
		provider.IsActive = *req.IsActive
	}

	becomingDefault := req.IsDefault != nil && *req.IsDefault && !provider.IsDefault
	if req.IsDefault != nil {
		provider.IsDefault = *req.IsDefault
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if becomingDefault {
			if err := tx.Model(&models.AIProvider{}).
				Where("type = ? AND is_default = ? AND id <> ?", provider.Type, true, provider.ID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(provider).Error
	})
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	if provider.IsActive {
		if err := s.register(ctx, provider); err != nil {
			return nil, err
		}
	} else {
		s.manager.Remove(provider.Name)
	}

	return provider, nil
}

// DeleteProvider removes a provider that no lead source references.
func (s *Service) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	provider, err := s.GetProvider(ctx, id)
	if err != nil {
		return err
	}

	var sourceCount int64
	if err := s.db.WithContext(ctx).Model(&models.LeadSource{}).
		Where("ai_provider_id = ?", id).
		Count(&sourceCount).Error; err != nil {
		return domain.NewInternalError(err)
	}
	if sourceCount > 0 {
		return domain.NewConflictError(fmt.Sprintf(
			"Cannot delete provider: %d lead source(s) still reference it", sourceCount))
	}

	s.manager.Remove(provider.Name)

	if err := s.db.WithContext(ctx).Delete(provider).Error; err != nil {
		return domain.NewInternalError(err)
	}

	s.logger.Info("AI provider deleted", "provider", provider.Name)
	return nil
}

// ToggleProvider flips the active flag and mirrors the registry.
func (s *Service) ToggleProvider(ctx context.Context, id uuid.UUID) (*models.AIProvider, error) {
	provider, err := s.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}

	provider.IsActive = !provider.IsActive
	if err := s.db.WithContext(ctx).Save(provider).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	if provider.IsActive {
		if err := s.register(ctx, provider); err != nil {
			return nil, err
		}
	} else {
		s.manager.Remove(provider.Name)
	}

	return provider, nil
}

// TestProvider builds a transient client from the stored config, checks
// availability, and runs one real analysis against a synthetic lead.
// Request counters are updated either way. Errors are folded into the
// result, never returned.
func (s *Service) TestProvider(ctx context.Context, id uuid.UUID) (*models.TestProviderResult, error) {
	provider, err := s.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := s.runTest(ctx, provider)
	result.LatencyMs = time.Since(start).Milliseconds()

	counters := map[string]interface{}{
		"total_requests": gorm.Expr("total_requests + 1"),
	}
	if result.Success {
		counters["successful_requests"] = gorm.Expr("successful_requests + 1")
		metrics.AIRequests.WithLabelValues(provider.Name, "success").Inc()
	} else {
		counters["failed_requests"] = gorm.Expr("failed_requests + 1")
		metrics.AIRequests.WithLabelValues(provider.Name, "failure").Inc()
	}
	if err := s.db.WithContext(ctx).Model(provider).Updates(counters).Error; err != nil {
		s.logger.Error("failed to update provider counters", "provider", provider.Name, "error", err)
	}

	return result, nil
}

func (s *Service) runTest(ctx context.Context, provider *models.AIProvider) *models.TestProviderResult {
	client, err := s.factory(ctx, provider)
	if err != nil {
		return &models.TestProviderResult{Error: fmt.Sprintf("failed to build provider client: %v", err)}
	}

	if !client.IsAvailable(ctx) {
		return &models.TestProviderResult{Error: "Provider is not available"}
	}

	analysis, err := client.AnalyzeLead(ctx, ai.TestInput())
	if err != nil {
		return &models.TestProviderResult{Error: fmt.Sprintf("analysis failed: %v", err)}
	}

	return &models.TestProviderResult{
		Success: true,
		Message: fmt.Sprintf("Test analysis completed (score %.0f)", analysis.Score),
	}
}

// GetProvider fetches one provider by id.
func (s *Service) GetProvider(ctx context.Context, id uuid.UUID) (*models.AIProvider, error) {
	var provider models.AIProvider
	if err := s.db.WithContext(ctx).First(&provider, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Provider")
		}
		return nil, domain.NewInternalError(err)
	}
	return &provider, nil
}

// ListProviders returns all providers ordered by creation time.
func (s *Service) ListProviders(ctx context.Context) ([]models.AIProvider, error) {
	var providers []models.AIProvider
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&providers).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}
	return providers, nil
}

// RestoreRegistry rebuilds the registry from the active rows. Called at
// startup so registrations survive process restarts.
func (s *Service) RestoreRegistry(ctx context.Context) error {
	var providers []models.AIProvider
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&providers).Error; err != nil {
		return domain.NewInternalError(err)
	}

	for i := range providers {
		if err := s.register(ctx, &providers[i]); err != nil {
			s.logger.Warn("skipping provider registration",
				"provider", providers[i].Name, "error", err)
		}
	}
	return nil
}

func (s *Service) register(ctx context.Context, provider *models.AIProvider) error {
	client, err := s.factory(ctx, provider)
	if err != nil {
		return domain.NewExternalError(
			fmt.Sprintf("failed to register provider %s", provider.Name), err)
	}
	s.manager.Register(provider.Name, client)
	return nil
}
