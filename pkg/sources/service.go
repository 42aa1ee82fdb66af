package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lapublica/leadgen/pkg/domain"
	"github.com/lapublica/leadgen/pkg/logger"
	"github.com/lapublica/leadgen/pkg/models"
	"github.com/lapublica/leadgen/pkg/scraper"
)

// JobEnqueuer hands a freshly created job to the background queue. The
// jobs package provides the real implementation; the indirection keeps the
// packages decoupled and the seam testable.
type JobEnqueuer interface {
	EnqueueScrapeJob(ctx context.Context, jobID uuid.UUID) error
}

// Service handles lead source lifecycle and keeps the scraper registry
// mirrored with the active rows in the store.
type Service struct {
	db       *gorm.DB
	manager  *scraper.Manager
	factory  scraper.Factory
	enqueuer JobEnqueuer
	logger   logger.Logger

	testTimeout    time.Duration
	testMaxResults int
}

// NewService creates a new lead source service. testTimeout and
// testMaxResults bound the TestSource sample run; zero values fall back
// to 30s and 5 records.
func NewService(db *gorm.DB, manager *scraper.Manager, factory scraper.Factory, enqueuer JobEnqueuer, log logger.Logger, testTimeout time.Duration, testMaxResults int) *Service {
	if testTimeout <= 0 {
		testTimeout = 30 * time.Second
	}
	if testMaxResults <= 0 {
		testMaxResults = 5
	}
	return &Service{
		db:             db,
		manager:        manager,
		factory:        factory,
		enqueuer:       enqueuer,
		logger:         log,
		testTimeout:    testTimeout,
		testMaxResults: testMaxResults,
	}
}

// validateConfig checks the per-type required config fields, failing with
// an error that names the source type.
func validateConfig(sourceType models.SourceType, cfg models.SourceConfig) error {
	switch sourceType {
	case models.SourceTypeGoogleMaps:
		if cfg.Query == "" || cfg.Location == "" {
			return domain.NewValidationError("GOOGLE_MAPS sources require query and location")
		}
	case models.SourceTypeWebScraping:
		if cfg.URL == "" || len(cfg.Selectors) == 0 {
			return domain.NewValidationError("WEB_SCRAPING sources require url and selectors")
		}
	case models.SourceTypeAPI:
		if cfg.Endpoint == "" {
			return domain.NewValidationError("API sources require endpoint")
		}
	case models.SourceTypeCSVImport:
		if cfg.FilePath == "" && cfg.FileURL == "" {
			return domain.NewValidationError("CSV_IMPORT sources require filePath or fileUrl")
		}
	case models.SourceTypeManual:
		// no required fields
	default:
		return domain.NewValidationError(fmt.Sprintf("unsupported source type: %s", sourceType))
	}
	return nil
}

// nextRunFor returns the scheduled NextRun respecting the invariant:
// non-nil iff the source is active with a non-manual frequency.
func nextRunFor(isActive bool, frequency models.Frequency, now time.Time) *time.Time {
	if !isActive || frequency == models.FrequencyManual {
		return nil
	}
	next := frequency.NextAfter(now)
	return &next
}

// CreateSource validates and persists a new lead source. Active sources
// are immediately mirrored into the scraper registry.
func (s *Service) CreateSource(ctx context.Context, req models.CreateSourceRequest) (*models.LeadSource, error) {
	if err := validateConfig(req.Type, req.Config); err != nil {
		return nil, err
	}

	providerID, err := s.resolveProviderID(ctx, req.AIProviderID)
	if err != nil {
		return nil, err
	}

	configJSON, err := json.Marshal(req.Config)
	if err != nil {
		return nil, domain.NewValidationError("invalid source config")
	}
	tasksJSON, err := json.Marshal(req.AITasks)
	if err != nil {
		return nil, domain.NewValidationError("invalid AI task flags")
	}

	frequency := req.Frequency
	if frequency == "" {
		frequency = models.FrequencyManual
	}

	source := &models.LeadSource{
		Name:         req.Name,
		Type:         req.Type,
		Config:       datatypes.JSON(configJSON),
		AIProviderID: providerID,
		AITasks:      datatypes.JSON(tasksJSON),
		Frequency:    frequency,
		IsActive:     req.IsActive,
		NextRun:      nextRunFor(req.IsActive, frequency, time.Now().UTC()),
	}

	if err := s.db.WithContext(ctx).Create(source).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	if source.IsActive {
		if err := s.registerScraper(source); err != nil {
			return nil, err
		}
	}

	s.logger.Info("lead source created",
		"source", source.Name,
		"type", source.Type,
		"active", source.IsActive)

	return source, nil
}

// UpdateSource applies a partial update, recomputing NextRun whenever the
// active flag or frequency changes, and mirrors the scraper registry.
func (s *Service) UpdateSource(ctx context.Context, id uuid.UUID, req models.UpdateSourceRequest) (*models.LeadSource, error) {
	source, err := s.GetSource(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Config != nil {
		if err := validateConfig(source.Type, *req.Config); err != nil {
			return nil, err
		}
		configJSON, err := json.Marshal(req.Config)
		if err != nil {
			return nil, domain.NewValidationError("invalid source config")
		}
		source.Config = datatypes.JSON(configJSON)
	}
	if req.AIProviderID != nil {
		providerID, err := s.resolveProviderID(ctx, req.AIProviderID)
		if err != nil {
			return nil, err
		}
		source.AIProviderID = providerID
	}
	if req.AITasks != nil {
		tasksJSON, err := json.Marshal(req.AITasks)
		if err != nil {
			return nil, domain.NewValidationError("invalid AI task flags")
		}
		source.AITasks = datatypes.JSON(tasksJSON)
	}
	if req.Name != nil {
		source.Name = *req.Name
	}

	scheduleChanged := false
	if req.Frequency != nil && *req.Frequency != source.Frequency {
		source.Frequency = *req.Frequency
		scheduleChanged = true
	}
	if req.IsActive != nil && *req.IsActive != source.IsActive {
		source.IsActive = *req.IsActive
		scheduleChanged = true
	}
	if scheduleChanged {
		source.NextRun = nextRunFor(source.IsActive, source.Frequency, time.Now().UTC())
	}

	if err := s.db.WithContext(ctx).Save(source).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	if source.IsActive {
		if err := s.registerScraper(source); err != nil {
			return nil, err
		}
	} else {
		s.manager.Remove(source.ID.String())
	}

	return source, nil
}

// ToggleSource flips the active flag, recomputes the schedule, and mirrors
// the scraper registry.
func (s *Service) ToggleSource(ctx context.Context, id uuid.UUID) (*models.LeadSource, error) {
	source, err := s.GetSource(ctx, id)
	if err != nil {
		return nil, err
	}

	source.IsActive = !source.IsActive
	source.NextRun = nextRunFor(source.IsActive, source.Frequency, time.Now().UTC())

	if err := s.db.WithContext(ctx).Save(source).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	if source.IsActive {
		if err := s.registerScraper(source); err != nil {
			return nil, err
		}
	} else {
		s.manager.Remove(source.ID.String())
	}

	return source, nil
}

// DeleteSource removes a source that has no leads and no jobs.
func (s *Service) DeleteSource(ctx context.Context, id uuid.UUID) error {
	source, err := s.GetSource(ctx, id)
	if err != nil {
		return err
	}

	var leadCount, jobCount int64
	if err := s.db.WithContext(ctx).Model(&models.Lead{}).
		Where("source_id = ?", id).Count(&leadCount).Error; err != nil {
		return domain.NewInternalError(err)
	}
	if err := s.db.WithContext(ctx).Model(&models.ScrapingJob{}).
		Where("source_id = ?", id).Count(&jobCount).Error; err != nil {
		return domain.NewInternalError(err)
	}
	if leadCount > 0 || jobCount > 0 {
		return domain.NewConflictError(fmt.Sprintf(
			"Cannot delete source: %d lead(s) and %d job(s) still reference it", leadCount, jobCount))
	}

	s.manager.Remove(source.ID.String())

	if err := s.db.WithContext(ctx).Delete(source).Error; err != nil {
		return domain.NewInternalError(err)
	}

	s.logger.Info("lead source deleted", "source", source.Name)
	return nil
}

// ExecuteSource creates a PENDING job for an active source and enqueues it
// for background execution. Returns as soon as the job row exists; the
// scrape itself runs in the worker.
func (s *Service) ExecuteSource(ctx context.Context, id uuid.UUID, req models.ExecuteSourceRequest) (*models.ScrapingJob, error) {
	source, err := s.GetSource(ctx, id)
	if err != nil {
		return nil, err
	}
	if !source.IsActive {
		return nil, domain.NewValidationError("Lead source is not active")
	}

	runAI := false
	if req.RunAI != nil {
		runAI = *req.RunAI
	} else if tasks, err := source.DecodeAITasks(); err == nil {
		runAI = tasks.Enabled()
	}

	configJSON, err := json.Marshal(models.JobConfig{
		MaxResults: req.MaxResults,
		RunAI:      runAI,
	})
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	job := &models.ScrapingJob{
		SourceID:     source.ID,
		Status:       models.JobStatusPending,
		Priority:     models.JobPriorityNormal,
		ScheduledFor: time.Now().UTC(),
		Config:       datatypes.JSON(configJSON),
	}

	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	if err := s.enqueuer.EnqueueScrapeJob(ctx, job.ID); err != nil {
		return nil, domain.NewExternalError("failed to enqueue scraping job", err)
	}

	s.logger.Info("scraping job enqueued", "source", source.Name, "job_id", job.ID)
	return job, nil
}

// TestSource runs the source's scraper with a short timeout and a small
// result cap, without persisting anything.
func (s *Service) TestSource(ctx context.Context, id uuid.UUID) ([]scraper.RawLead, error) {
	source, err := s.GetSource(ctx, id)
	if err != nil {
		return nil, err
	}

	sc, ok := s.manager.Get(source.ID.String())
	if !ok {
		// Inactive sources have no registry entry; build a one-off scraper.
		sc, err = s.factory(source)
		if err != nil {
			return nil, domain.NewExternalError("failed to build scraper", err)
		}
	}

	testCtx, cancel := context.WithTimeout(ctx, s.testTimeout)
	defer cancel()

	leads, err := sc.Scrape(testCtx, s.testMaxResults)
	if err != nil {
		return nil, domain.NewExternalError("test scrape failed", err)
	}
	return leads, nil
}

// GetSource fetches one source by id.
func (s *Service) GetSource(ctx context.Context, id uuid.UUID) (*models.LeadSource, error) {
	var source models.LeadSource
	if err := s.db.WithContext(ctx).First(&source, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Lead source")
		}
		return nil, domain.NewInternalError(err)
	}
	return &source, nil
}

// ListSources returns all sources ordered by creation time.
func (s *Service) ListSources(ctx context.Context) ([]models.LeadSource, error) {
	var sources []models.LeadSource
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&sources).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}
	return sources, nil
}

// DueSources returns active, schedulable sources whose NextRun has passed.
func (s *Service) DueSources(ctx context.Context, now time.Time) ([]models.LeadSource, error) {
	var sources []models.LeadSource
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND frequency <> ? AND next_run IS NOT NULL AND next_run <= ?",
			true, models.FrequencyManual, now).
		Find(&sources).Error
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	return sources, nil
}

// RestoreRegistry rebuilds the scraper registry from the active rows.
func (s *Service) RestoreRegistry(ctx context.Context) error {
	var sources []models.LeadSource
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&sources).Error; err != nil {
		return domain.NewInternalError(err)
	}
	for i := range sources {
		if err := s.registerScraper(&sources[i]); err != nil {
			s.logger.Warn("skipping scraper registration",
				"source", sources[i].Name, "error", err)
		}
	}
	return nil
}

// resolveProviderID validates that a provider reference points at an
// active provider. An empty string clears the reference.
func (s *Service) resolveProviderID(ctx context.Context, raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}

	providerID, err := uuid.Parse(*raw)
	if err != nil {
		return nil, domain.NewValidationError("invalid aiProviderId")
	}

	var provider models.AIProvider
	if err := s.db.WithContext(ctx).First(&provider, "id = ?", providerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("AI provider")
		}
		return nil, domain.NewInternalError(err)
	}
	if !provider.IsActive {
		return nil, domain.NewValidationError("AI provider is not active")
	}

	return &providerID, nil
}

func (s *Service) registerScraper(source *models.LeadSource) error {
	sc, err := s.factory(source)
	if err != nil {
		return domain.NewExternalError(
			fmt.Sprintf("failed to register scraper for %s", source.Name), err)
	}
	s.manager.Register(source.ID.String(), sc)
	return nil
}
