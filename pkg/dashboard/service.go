package dashboard

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/lapublica/leadgen/pkg/domain"
	"github.com/lapublica/leadgen/pkg/logger"
	"github.com/lapublica/leadgen/pkg/models"
)

// Stats is the full dashboard aggregation.
type Stats struct {
	Leads     LeadStats     `json:"leads"`
	Sources   SourceStats   `json:"sources"`
	Providers ProviderStats `json:"providers"`
	Jobs      JobCounts     `json:"jobs"`
}

// LeadStats breaks the lead table down by both status machines.
type LeadStats struct {
	Total      int64                           `json:"total"`
	ByReview   map[models.ReviewStatus]int64   `json:"byReviewStatus"`
	ByPipeline map[models.PipelineStatus]int64 `json:"byPipelineStatus"`
	Enriched   int64                           `json:"enriched"`
	Last7Days  int64                           `json:"last7Days"`
}

// SourceStats counts configured lead sources.
type SourceStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// ProviderStats counts configured AI providers.
type ProviderStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// JobCounts groups jobs by status.
type JobCounts struct {
	Total    int64                      `json:"total"`
	Active   int64                      `json:"active"`
	ByStatus map[models.JobStatus]int64 `json:"byStatus"`
}

// QuickStats is the lightweight header widget payload.
type QuickStats struct {
	PendingReview int64 `json:"pendingReview"`
	ActiveJobs    int64 `json:"activeJobs"`
	LeadsToday    int64 `json:"leadsToday"`
}

// Service aggregates counts for the admin dashboard.
type Service struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewService creates a new dashboard service.
func NewService(db *gorm.DB, log logger.Logger) *Service {
	return &Service{db: db, logger: log}
}

// GetStats computes the full dashboard aggregation.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Leads: LeadStats{
			ByReview:   make(map[models.ReviewStatus]int64),
			ByPipeline: make(map[models.PipelineStatus]int64),
		},
		Jobs: JobCounts{ByStatus: make(map[models.JobStatus]int64)},
	}

	type statusCount struct {
		Status string
		Count  int64
	}

	var reviewRows []statusCount
	err := s.db.WithContext(ctx).Model(&models.Lead{}).
		Select("review_status AS status, COUNT(*) AS count").
		Group("review_status").
		Scan(&reviewRows).Error
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	for _, r := range reviewRows {
		stats.Leads.Total += r.Count
		stats.Leads.ByReview[models.ReviewStatus(r.Status)] = r.Count
	}

	var pipelineRows []statusCount
	err = s.db.WithContext(ctx).Model(&models.Lead{}).
		Select("pipeline_status AS status, COUNT(*) AS count").
		Group("pipeline_status").
		Scan(&pipelineRows).Error
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	for _, r := range pipelineRows {
		stats.Leads.ByPipeline[models.PipelineStatus(r.Status)] = r.Count
	}

	if err := s.db.WithContext(ctx).Model(&models.Lead{}).
		Where("ai_processed_at IS NOT NULL").
		Count(&stats.Leads.Enriched).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	if err := s.db.WithContext(ctx).Model(&models.Lead{}).
		Where("created_at >= ?", weekAgo).
		Count(&stats.Leads.Last7Days).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	if err := s.db.WithContext(ctx).Model(&models.LeadSource{}).
		Count(&stats.Sources.Total).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}
	if err := s.db.WithContext(ctx).Model(&models.LeadSource{}).
		Where("is_active = ?", true).
		Count(&stats.Sources.Active).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	if err := s.db.WithContext(ctx).Model(&models.AIProvider{}).
		Count(&stats.Providers.Total).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}
	if err := s.db.WithContext(ctx).Model(&models.AIProvider{}).
		Where("is_active = ?", true).
		Count(&stats.Providers.Active).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	var jobRows []statusCount
	err = s.db.WithContext(ctx).Model(&models.ScrapingJob{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&jobRows).Error
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	for _, r := range jobRows {
		status := models.JobStatus(r.Status)
		stats.Jobs.Total += r.Count
		stats.Jobs.ByStatus[status] = r.Count
		if status == models.JobStatusPending || status == models.JobStatusRunning {
			stats.Jobs.Active += r.Count
		}
	}

	return stats, nil
}

// GetQuickStats computes the header widget counts.
func (s *Service) GetQuickStats(ctx context.Context) (*QuickStats, error) {
	quick := &QuickStats{}

	if err := s.db.WithContext(ctx).Model(&models.Lead{}).
		Where("review_status = ?", models.ReviewStatusPending).
		Count(&quick.PendingReview).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	if err := s.db.WithContext(ctx).Model(&models.ScrapingJob{}).
		Where("status IN ?", []models.JobStatus{models.JobStatusPending, models.JobStatusRunning}).
		Count(&quick.ActiveJobs).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	if err := s.db.WithContext(ctx).Model(&models.Lead{}).
		Where("created_at >= ?", midnight).
		Count(&quick.LeadsToday).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	return quick, nil
}
