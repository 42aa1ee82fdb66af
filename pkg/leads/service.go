package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lapublica/leadgen/pkg/cache"
	"github.com/lapublica/leadgen/pkg/domain"
	"github.com/lapublica/leadgen/pkg/logger"
	"github.com/lapublica/leadgen/pkg/models"
)

const (
	listCacheTTL     = 5 * time.Minute
	listCachePattern = "leads:list:*"
)

// pipelineTransitions is the CRM stage machine. Review status is a
// separate machine; the two never drive each other.
var pipelineTransitions = map[models.PipelineStatus][]models.PipelineStatus{
	models.PipelineStatusNew:         {models.PipelineStatusContacted},
	models.PipelineStatusContacted:   {models.PipelineStatusQualified, models.PipelineStatusLost},
	models.PipelineStatusQualified:   {models.PipelineStatusProposal, models.PipelineStatusLost},
	models.PipelineStatusProposal:    {models.PipelineStatusNegotiation, models.PipelineStatusLost},
	models.PipelineStatusNegotiation: {models.PipelineStatusWon, models.PipelineStatusLost},
}

// CanTransitionPipeline reports whether a CRM stage change is allowed.
func CanTransitionPipeline(from, to models.PipelineStatus) bool {
	for _, allowed := range pipelineTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ListResult is a page of leads with the matching total.
type ListResult struct {
	Leads []models.Lead `json:"leads"`
	Total int64         `json:"total"`
}

// Service handles lead review, CRM pipeline moves and listing with a
// Redis read-through cache on list queries.
type Service struct {
	db     *gorm.DB
	cache  *cache.Client
	logger logger.Logger
}

// NewService creates a new lead service. The cache client may be nil;
// listing then always hits the database.
func NewService(db *gorm.DB, cacheClient *cache.Client, log logger.Logger) *Service {
	return &Service{db: db, cache: cacheClient, logger: log}
}

// ListLeads returns a filtered, paginated page of leads, newest first.
func (s *Service) ListLeads(ctx context.Context, filter models.LeadFilter) (*ListResult, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	cacheKey := fmt.Sprintf("leads:list:%s:%s:%s:%s:%s:%d:%d",
		filter.SourceID, filter.JobID, filter.ReviewStatus, filter.PipelineStatus,
		filter.Search, page, limit)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			var result ListResult
			if err := json.Unmarshal([]byte(cached), &result); err == nil {
				return &result, nil
			}
		}
	}

	query := s.db.WithContext(ctx).Model(&models.Lead{})
	if filter.SourceID != "" {
		query = query.Where("source_id = ?", filter.SourceID)
	}
	if filter.JobID != "" {
		query = query.Where("job_id = ?", filter.JobID)
	}
	if filter.ReviewStatus != "" {
		query = query.Where("review_status = ?", filter.ReviewStatus)
	}
	if filter.PipelineStatus != "" {
		query = query.Where("pipeline_status = ?", filter.PipelineStatus)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("company_name LIKE ? OR email LIKE ? OR city LIKE ?",
			pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}

	var rows []models.Lead
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	result := &ListResult{Leads: rows, Total: total}

	if s.cache != nil {
		if encoded, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, cacheKey, encoded, listCacheTTL); err != nil {
				s.logger.Warn("failed to cache lead list", "error", err)
			}
		}
	}

	return result, nil
}

// GetLead fetches one lead by id.
func (s *Service) GetLead(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.WithContext(ctx).First(&lead, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Lead")
		}
		return nil, domain.NewInternalError(err)
	}
	return &lead, nil
}

// UpdateLead applies a partial edit to a lead's contact fields.
func (s *Service) UpdateLead(ctx context.Context, id uuid.UUID, req models.UpdateLeadRequest) (*models.Lead, error) {
	lead, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CompanyName != nil {
		if *req.CompanyName == "" {
			return nil, domain.NewValidationError("companyName cannot be empty")
		}
		lead.CompanyName = *req.CompanyName
	}
	if req.ContactName != nil {
		lead.ContactName = *req.ContactName
	}
	if req.Email != nil {
		lead.Email = *req.Email
	}
	if req.Phone != nil {
		lead.Phone = *req.Phone
	}
	if req.Website != nil {
		lead.Website = *req.Website
	}
	if req.Address != nil {
		lead.Address = *req.Address
	}
	if req.City != nil {
		lead.City = *req.City
	}
	if req.Industry != nil {
		lead.Industry = *req.Industry
	}

	if err := s.db.WithContext(ctx).Save(lead).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}
	s.invalidateListCache(ctx)
	return lead, nil
}

// ApproveLead moves a pending lead to APPROVED.
func (s *Service) ApproveLead(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	return s.review(ctx, id, models.ReviewStatusApproved)
}

// RejectLead moves a pending lead to REJECTED.
func (s *Service) RejectLead(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	return s.review(ctx, id, models.ReviewStatusRejected)
}

func (s *Service) review(ctx context.Context, id uuid.UUID, to models.ReviewStatus) (*models.Lead, error) {
	lead, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.ReviewStatus != models.ReviewStatusPending {
		return nil, domain.NewInvalidStateError(
			fmt.Sprintf("Cannot review lead with status %s", lead.ReviewStatus))
	}

	lead.ReviewStatus = to
	if err := s.db.WithContext(ctx).Save(lead).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}
	s.invalidateListCache(ctx)

	s.logger.Info("lead reviewed", "lead_id", lead.ID, "review_status", to)
	return lead, nil
}

// MovePipeline advances a lead through the CRM stages.
func (s *Service) MovePipeline(ctx context.Context, id uuid.UUID, to models.PipelineStatus) (*models.Lead, error) {
	lead, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransitionPipeline(lead.PipelineStatus, to) {
		return nil, domain.NewInvalidStateError(
			fmt.Sprintf("Cannot move lead from %s to %s", lead.PipelineStatus, to))
	}

	lead.PipelineStatus = to
	if err := s.db.WithContext(ctx).Save(lead).Error; err != nil {
		return nil, domain.NewInternalError(err)
	}
	s.invalidateListCache(ctx)
	return lead, nil
}

// DeleteLead removes a lead.
func (s *Service) DeleteLead(ctx context.Context, id uuid.UUID) error {
	lead, err := s.GetLead(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(lead).Error; err != nil {
		return domain.NewInternalError(err)
	}
	s.invalidateListCache(ctx)
	return nil
}

func (s *Service) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, listCachePattern); err != nil {
		s.logger.Warn("failed to invalidate lead cache", "error", err)
	}
}
