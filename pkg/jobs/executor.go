package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lapublica/leadgen/pkg/ai"
	"github.com/lapublica/leadgen/pkg/aiprovider"
	"github.com/lapublica/leadgen/pkg/logger"
	"github.com/lapublica/leadgen/pkg/metrics"
	"github.com/lapublica/leadgen/pkg/models"
	"github.com/lapublica/leadgen/pkg/phone"
	"github.com/lapublica/leadgen/pkg/scraper"
)

// Executor runs scraping jobs on the worker side: scrape, persist,
// enrich, finalize. Cancellation is cooperative; between steps the job
// status is re-read and a CANCELLED row stops the run.
type Executor struct {
	db          *gorm.DB
	scrapers    *scraper.Manager
	factory     scraper.Factory
	providers   *aiprovider.Manager
	logger      logger.Logger
	phoneRegion string
}

// NewExecutor creates a new job executor. Scrapers resolve through the
// registry first, falling back to the factory for sources registered
// after the worker booted.
func NewExecutor(db *gorm.DB, scrapers *scraper.Manager, factory scraper.Factory, providers *aiprovider.Manager, log logger.Logger, phoneRegion string) *Executor {
	return &Executor{
		db:          db,
		scrapers:    scrapers,
		factory:     factory,
		providers:   providers,
		logger:      log,
		phoneRegion: phoneRegion,
	}
}

// ProcessTask is the asynq handler for scrape tasks.
func (e *Executor) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload ScrapeJobPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal scrape payload: %w", err)
	}
	return e.Execute(ctx, payload.JobID)
}

// Execute runs one job end to end. Returning an error makes asynq retry
// the task, so non-retryable outcomes (cancelled, already handled) return
// nil after recording their state.
func (e *Executor) Execute(ctx context.Context, jobID uuid.UUID) error {
	var job models.ScrapingJob
	if err := e.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			e.logger.Warn("job vanished before execution", "job_id", jobID)
			return nil
		}
		return err
	}

	// Jobs cancelled while still queued never start.
	if job.Status != models.JobStatusPending {
		e.logger.Info("skipping job in non-pending state", "job_id", jobID, "status", job.Status)
		return nil
	}

	started := time.Now().UTC()
	job.Status = models.JobStatusRunning
	job.StartedAt = &started
	job.Progress = 0
	if err := e.db.WithContext(ctx).Save(&job).Error; err != nil {
		return err
	}

	var source models.LeadSource
	if err := e.db.WithContext(ctx).First(&source, "id = ?", job.SourceID).Error; err != nil {
		return e.fail(ctx, &job, fmt.Errorf("load source: %w", err))
	}

	jobCfg, err := job.DecodeConfig()
	if err != nil {
		return e.fail(ctx, &job, fmt.Errorf("decode job config: %w", err))
	}
	sourceCfg, err := source.DecodeConfig()
	if err != nil {
		return e.fail(ctx, &job, fmt.Errorf("decode source config: %w", err))
	}

	maxResults := jobCfg.MaxResults
	if maxResults <= 0 {
		maxResults = sourceCfg.MaxResults
	}

	sc, ok := e.scrapers.Get(source.ID.String())
	if !ok {
		sc, err = e.factory(&source)
		if err != nil {
			return e.fail(ctx, &job, fmt.Errorf("build scraper: %w", err))
		}
	}

	rawLeads, err := sc.Scrape(ctx, maxResults)
	if err != nil {
		return e.fail(ctx, &job, fmt.Errorf("scrape: %w", err))
	}

	if e.cancelled(ctx, job.ID) {
		e.logger.Info("job cancelled during scrape", "job_id", job.ID)
		return nil
	}

	job.Progress = 50
	if err := e.db.WithContext(ctx).Model(&job).Update("progress", job.Progress).Error; err != nil {
		e.logger.Warn("failed to record progress", "job_id", job.ID, "error", err)
	}

	region := sourceCfg.PhoneRegion
	if region == "" {
		region = e.phoneRegion
	}

	leads, err := e.persistLeads(ctx, &job, &source, rawLeads, region)
	if err != nil {
		return e.fail(ctx, &job, fmt.Errorf("persist leads: %w", err))
	}

	if e.cancelled(ctx, job.ID) {
		e.logger.Info("job cancelled after persisting leads", "job_id", job.ID)
		return nil
	}

	if jobCfg.RunAI {
		if cancelled := e.enrichLeads(ctx, &job, &source, leads); cancelled {
			return nil
		}
	}

	return e.complete(ctx, &job, &source, len(leads), started)
}

// persistLeads stores scraped records for review. Phone numbers are
// normalized to E.164 when possible; nameless records are dropped.
func (e *Executor) persistLeads(ctx context.Context, job *models.ScrapingJob, source *models.LeadSource, rawLeads []scraper.RawLead, region string) ([]*models.Lead, error) {
	now := time.Now().UTC()
	leads := make([]*models.Lead, 0, len(rawLeads))
	for _, raw := range rawLeads {
		if raw.CompanyName == "" {
			continue
		}

		var rawData datatypes.JSON
		if raw.Raw != nil {
			if encoded, err := json.Marshal(raw.Raw); err == nil {
				rawData = datatypes.JSON(encoded)
			}
		}

		lead := &models.Lead{
			SourceID:       source.ID,
			JobID:          &job.ID,
			CompanyName:    raw.CompanyName,
			ContactName:    raw.ContactName,
			Email:          raw.Email,
			Phone:          phone.NormalizeOrKeep(raw.Phone, region),
			Website:        raw.Website,
			Address:        raw.Address,
			City:           raw.City,
			Industry:       raw.Industry,
			ReviewStatus:   models.ReviewStatusPending,
			PipelineStatus: models.PipelineStatusNew,
			RawData:        rawData,
			ScrapedAt:      now,
		}
		if err := e.db.WithContext(ctx).Create(lead).Error; err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// enrichLeads runs AI analysis on each persisted lead. A failure on one
// lead is logged and skipped; it never fails the job or the other leads.
// Reports true when the job was cancelled mid-enrichment so the caller
// leaves the CANCELLED row untouched.
func (e *Executor) enrichLeads(ctx context.Context, job *models.ScrapingJob, source *models.LeadSource, leads []*models.Lead) bool {
	provider, providerID := e.providerFor(ctx, source)
	if provider == nil {
		return false
	}

	for i, lead := range leads {
		if e.cancelled(ctx, job.ID) {
			e.logger.Info("job cancelled during enrichment", "job_id", job.ID, "enriched", i)
			return true
		}

		analysis, err := provider.AnalyzeLead(ctx, ai.LeadInput{
			CompanyName: lead.CompanyName,
			Industry:    lead.Industry,
			Website:     lead.Website,
			Address:     lead.Address,
		})
		if err != nil {
			metrics.AIRequests.WithLabelValues(provider.Name(), "error").Inc()
			e.logger.Warn("lead enrichment failed",
				"job_id", job.ID, "lead_id", lead.ID, "error", err)
			continue
		}
		metrics.AIRequests.WithLabelValues(provider.Name(), "success").Inc()

		now := time.Now().UTC()
		score := analysis.Score
		lead.AIScore = &score
		lead.AIInsights = analysis.Insights
		lead.AIRecommendations = analysis.Recommendations
		lead.AISuggestedPitch = analysis.SuggestedPitch
		lead.AIProviderID = providerID
		lead.AIProcessedAt = &now

		if err := e.db.WithContext(ctx).Save(lead).Error; err != nil {
			e.logger.Warn("failed to store enrichment",
				"job_id", job.ID, "lead_id", lead.ID, "error", err)
		}
	}
	return false
}

// providerFor resolves the source's assigned AI provider from the
// registry. Returns nil when no usable provider is configured.
func (e *Executor) providerFor(ctx context.Context, source *models.LeadSource) (ai.Provider, *uuid.UUID) {
	if source.AIProviderID == nil {
		return nil, nil
	}

	var row models.AIProvider
	if err := e.db.WithContext(ctx).First(&row, "id = ?", *source.AIProviderID).Error; err != nil {
		e.logger.Warn("assigned AI provider not found", "source", source.Name)
		return nil, nil
	}
	if !row.IsActive {
		e.logger.Warn("assigned AI provider is inactive", "source", source.Name, "provider", row.Name)
		return nil, nil
	}

	provider, ok := e.providers.Get(row.Name)
	if !ok {
		e.logger.Warn("assigned AI provider not registered", "source", source.Name, "provider", row.Name)
		return nil, nil
	}
	return provider, &row.ID
}

// cancelled re-reads the job row and reports whether it was cancelled
// from the API while running.
func (e *Executor) cancelled(ctx context.Context, jobID uuid.UUID) bool {
	var job models.ScrapingJob
	if err := e.db.WithContext(ctx).Select("status").First(&job, "id = ?", jobID).Error; err != nil {
		return false
	}
	return job.Status == models.JobStatusCancelled
}

// complete finalizes a successful run: job counters, source schedule and
// metrics.
func (e *Executor) complete(ctx context.Context, job *models.ScrapingJob, source *models.LeadSource, leadCount int, started time.Time) error {
	now := time.Now().UTC()

	job.Status = models.JobStatusCompleted
	job.CompletedAt = &now
	job.Progress = 100
	job.LeadsGenerated = leadCount
	if err := e.db.WithContext(ctx).Save(job).Error; err != nil {
		return err
	}

	source.LastRun = &now
	source.LeadsGenerated += leadCount
	if source.IsActive && source.Frequency != models.FrequencyManual {
		next := source.Frequency.NextAfter(now)
		source.NextRun = &next
	}
	if err := e.db.WithContext(ctx).Save(source).Error; err != nil {
		return err
	}

	metrics.JobsFinished.WithLabelValues(string(models.JobStatusCompleted)).Inc()
	metrics.LeadsGenerated.WithLabelValues(string(source.Type)).Add(float64(leadCount))
	metrics.JobDuration.Observe(now.Sub(started).Seconds())

	e.logger.Info("job completed",
		"job_id", job.ID, "source", source.Name, "leads", leadCount,
		"duration", now.Sub(started))
	return nil
}

// fail marks the job FAILED and propagates the error so the queue can
// apply its retry policy.
func (e *Executor) fail(ctx context.Context, job *models.ScrapingJob, cause error) error {
	now := time.Now().UTC()
	msg := cause.Error()

	job.Status = models.JobStatusFailed
	job.CompletedAt = &now
	job.Error = &msg
	if err := e.db.WithContext(ctx).Save(job).Error; err != nil {
		e.logger.Error("failed to record job failure", "job_id", job.ID, "error", err)
	}

	metrics.JobsFinished.WithLabelValues(string(models.JobStatusFailed)).Inc()
	e.logger.Error("job failed", "job_id", job.ID, "error", cause)
	return cause
}
