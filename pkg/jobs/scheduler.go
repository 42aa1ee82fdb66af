package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lapublica/leadgen/pkg/logger"
	"github.com/lapublica/leadgen/pkg/models"
)

// Scheduler turns source schedules into queued jobs. Every minute it
// scans for active sources whose NextRun has passed, creates a PENDING
// job for each and pushes NextRun forward. Old terminal jobs are swept
// nightly.
type Scheduler struct {
	db          *gorm.DB
	service     *Service
	enqueuer    ScrapeEnqueuer
	logger      logger.Logger
	cleanupDays int

	cron *cron.Cron
}

// NewScheduler creates a new scheduler.
func NewScheduler(db *gorm.DB, service *Service, enqueuer ScrapeEnqueuer, log logger.Logger, cleanupDays int) *Scheduler {
	return &Scheduler{
		db:          db,
		service:     service,
		enqueuer:    enqueuer,
		logger:      log,
		cleanupDays: cleanupDays,
		cron:        cron.New(),
	}
}

// Start registers the cron entries and starts the scheduler loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("* * * * *", s.runDueSources); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("30 3 * * *", s.runCleanup); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "cleanup_days", s.cleanupDays)
	return nil
}

// Stop stops the scheduler and waits for in-flight entries.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runDueSources() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := time.Now().UTC()
	var due []models.LeadSource
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND frequency <> ? AND next_run IS NOT NULL AND next_run <= ?",
			true, models.FrequencyManual, now).
		Find(&due).Error
	if err != nil {
		s.logger.Error("failed to scan due sources", "error", err)
		return
	}

	for i := range due {
		source := &due[i]
		if err := s.scheduleSource(ctx, source, now); err != nil {
			s.logger.Error("failed to schedule source", "source", source.Name, "error", err)
		}
	}
}

// scheduleSource creates a job for one due source and advances its
// NextRun so the next scan does not pick it up again.
func (s *Scheduler) scheduleSource(ctx context.Context, source *models.LeadSource, now time.Time) error {
	// A source with a job already in flight is not scheduled twice.
	var active int64
	err := s.db.WithContext(ctx).Model(&models.ScrapingJob{}).
		Where("source_id = ? AND status IN ?", source.ID,
			[]models.JobStatus{models.JobStatusPending, models.JobStatusRunning}).
		Count(&active).Error
	if err != nil {
		return err
	}

	next := source.Frequency.NextAfter(now)
	source.NextRun = &next
	if err := s.db.WithContext(ctx).Save(source).Error; err != nil {
		return err
	}

	if active > 0 {
		s.logger.Info("skipping source with active job", "source", source.Name)
		return nil
	}

	cfg, err := source.DecodeConfig()
	if err != nil {
		return err
	}
	tasks, err := source.DecodeAITasks()
	if err != nil {
		return err
	}

	configJSON, err := json.Marshal(models.JobConfig{
		MaxResults: cfg.MaxResults,
		RunAI:      tasks.Enabled(),
	})
	if err != nil {
		return err
	}

	job := &models.ScrapingJob{
		SourceID:     source.ID,
		Status:       models.JobStatusPending,
		Priority:     models.JobPriorityNormal,
		ScheduledFor: now,
		Config:       datatypes.JSON(configJSON),
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return err
	}
	if err := s.enqueuer.EnqueueScrapeJob(ctx, job.ID); err != nil {
		return err
	}

	s.logger.Info("scheduled job for due source", "source", source.Name, "job_id", job.ID)
	return nil
}

func (s *Scheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.service.CleanupOldJobs(ctx, s.cleanupDays); err != nil {
		s.logger.Error("job cleanup failed", "error", err)
	}
}
