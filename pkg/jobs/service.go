package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lapublica/leadgen/pkg/domain"
	"github.com/lapublica/leadgen/pkg/logger"
	"github.com/lapublica/leadgen/pkg/models"
)

const cancelledByUser = "Cancelled by user"

// ScrapeEnqueuer pushes a job onto the background queue. Enqueuer is the
// Redis-backed implementation.
type ScrapeEnqueuer interface {
	EnqueueScrapeJob(ctx context.Context, jobID uuid.UUID) error
}

// Service manages the scraping job lifecycle: listing, cancellation,
// retries, cleanup and aggregate stats. Execution itself lives in the
// Executor.
type Service struct {
	db       *gorm.DB
	enqueuer ScrapeEnqueuer
	logger   logger.Logger
}

// NewService creates a new job service.
func NewService(db *gorm.DB, enqueuer ScrapeEnqueuer, log logger.Logger) *Service {
	return &Service{db: db, enqueuer: enqueuer, logger: log}
}

// GetJob fetches one job by id.
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*models.ScrapingJob, error) {
	var job models.ScrapingJob
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Job")
		}
		return nil, domain.NewInternalError(err)
	}
	return &job, nil
}

// GetAllJobs lists jobs matching the filter, newest first, with pagination.
func (s *Service) GetAllJobs(ctx context.Context, filter models.JobFilter) ([]models.ScrapingJob, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.ScrapingJob{})
	if filter.SourceID != "" {
		query = query.Where("source_id = ?", filter.SourceID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, domain.NewInternalError(err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var jobs []models.ScrapingJob
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, domain.NewInternalError(err)
	}
	return jobs, total, nil
}

// GetActiveJobs returns jobs that are pending or running.
func (s *Service) GetActiveJobs(ctx context.Context) ([]models.ScrapingJob, error) {
	var jobs []models.ScrapingJob
	err := s.db.WithContext(ctx).
		Where("status IN ?", []models.JobStatus{models.JobStatusPending, models.JobStatusRunning}).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	return jobs, nil
}

// GetJobHistory returns terminal jobs for one source, newest first.
func (s *Service) GetJobHistory(ctx context.Context, sourceID uuid.UUID, limit int) ([]models.ScrapingJob, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var jobs []models.ScrapingJob
	err := s.db.WithContext(ctx).
		Where("source_id = ? AND status IN ?", sourceID, []models.JobStatus{
			models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled,
		}).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	return jobs, nil
}

// CancelJob moves a pending or running job to CANCELLED. Running jobs
// observe the status change cooperatively between execution steps.
func (s *Service) CancelJob(ctx context.Context, id uuid.UUID) (*models.ScrapingJob, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusPending && job.Status != models.JobStatusRunning {
		return nil, domain.NewInvalidStateError(
			fmt.Sprintf("Cannot cancel job with status %s", job.Status))
	}

	now := time.Now().UTC()
	msg := cancelledByUser
	job.Status = models.JobStatusCancelled
	job.CompletedAt = &now
	job.Error = &msg

	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	s.logger.Info("job cancelled", "job_id", job.ID)
	return job, nil
}

// RetryJob creates a fresh PENDING job from a failed or cancelled one,
// copying its source, priority and config. The original row is untouched.
func (s *Service) RetryJob(ctx context.Context, id uuid.UUID) (*models.ScrapingJob, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusFailed && job.Status != models.JobStatusCancelled {
		return nil, domain.NewInvalidStateError(
			fmt.Sprintf("Cannot retry job with status %s", job.Status))
	}

	retry := &models.ScrapingJob{
		SourceID:     job.SourceID,
		Status:       models.JobStatusPending,
		Priority:     job.Priority,
		ScheduledFor: time.Now().UTC(),
		Config:       job.Config,
	}
	if err := s.db.WithContext(ctx).Create(retry).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}
	if err := s.enqueuer.EnqueueScrapeJob(ctx, retry.ID); err != nil {
		return nil, domain.NewExternalError("failed to enqueue retried job", err)
	}

	s.logger.Info("job retried", "original_job_id", job.ID, "new_job_id", retry.ID)
	return retry, nil
}

// DeleteJob removes a terminal job row. Pending and running jobs must be
// cancelled first.
func (s *Service) DeleteJob(ctx context.Context, id uuid.UUID) error {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == models.JobStatusPending || job.Status == models.JobStatusRunning {
		return domain.NewInvalidStateError(
			fmt.Sprintf("Cannot delete job with status %s", job.Status))
	}

	if err := s.db.WithContext(ctx).Delete(job).Error; err != nil {
		return domain.NewInternalError(err)
	}
	return nil
}

// CleanupOldJobs removes terminal jobs that completed more than the given
// number of days ago. Returns the number of rows deleted.
func (s *Service) CleanupOldJobs(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, domain.NewValidationError("cleanup window must be positive")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	result := s.db.WithContext(ctx).
		Where("status IN ? AND completed_at IS NOT NULL AND completed_at <= ?",
			[]models.JobStatus{models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled},
			cutoff).
		Delete(&models.ScrapingJob{})
	if result.Error != nil {
		return 0, domain.NewInternalError(result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.Info("old jobs cleaned up", "deleted", result.RowsAffected, "cutoff", cutoff)
	}
	return result.RowsAffected, nil
}

// GetStats aggregates the job table. Success rate is computed over
// completed and failed jobs only; cancelled runs do not count against it.
func (s *Service) GetStats(ctx context.Context, sourceID string) (*models.JobStats, error) {
	query := s.db.WithContext(ctx).Model(&models.ScrapingJob{})
	if sourceID != "" {
		query = query.Where("source_id = ?", sourceID)
	}

	type row struct {
		Status models.JobStatus
		Count  int64
		Leads  int64
	}
	var rows []row
	err := query.Session(&gorm.Session{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(leads_generated), 0) AS leads").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	stats := &models.JobStats{}
	for _, r := range rows {
		stats.Total += r.Count
		stats.LeadsGenerated += r.Leads
		switch r.Status {
		case models.JobStatusPending:
			stats.Pending = r.Count
		case models.JobStatusRunning:
			stats.Running = r.Count
		case models.JobStatusCompleted:
			stats.Completed = r.Count
		case models.JobStatusFailed:
			stats.Failed = r.Count
		case models.JobStatusCancelled:
			stats.Cancelled = r.Count
		}
	}

	if finished := stats.Completed + stats.Failed; finished > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(finished)
	}

	type span struct {
		StartedAt   *time.Time
		CompletedAt *time.Time
	}
	var spans []span
	err = query.Session(&gorm.Session{}).
		Where("status = ? AND started_at IS NOT NULL AND completed_at IS NOT NULL", models.JobStatusCompleted).
		Select("started_at, completed_at").
		Scan(&spans).Error
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	if len(spans) > 0 {
		var totalMs float64
		for _, sp := range spans {
			totalMs += float64(sp.CompletedAt.Sub(*sp.StartedAt).Milliseconds())
		}
		stats.AvgExecutionMs = totalMs / float64(len(spans))
	}

	return stats, nil
}
