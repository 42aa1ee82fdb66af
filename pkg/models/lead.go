package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReviewStatus is the admin review state of a lead. It is independent of
// the CRM pipeline status; the two are never synchronized automatically.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "PENDING"
	ReviewStatusApproved ReviewStatus = "APPROVED"
	ReviewStatusRejected ReviewStatus = "REJECTED"
)

// PipelineStatus is the CRM sales stage of a lead.
type PipelineStatus string

const (
	PipelineStatusNew         PipelineStatus = "NEW"
	PipelineStatusContacted   PipelineStatus = "CONTACTED"
	PipelineStatusQualified   PipelineStatus = "QUALIFIED"
	PipelineStatusProposal    PipelineStatus = "PROPOSAL"
	PipelineStatusNegotiation PipelineStatus = "NEGOTIATION"
	PipelineStatusWon         PipelineStatus = "WON"
	PipelineStatusLost        PipelineStatus = "LOST"
)

// Lead is a prospective company record, optionally AI-enriched, subject to
// human review.
type Lead struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SourceID uuid.UUID  `gorm:"type:uuid;index;not null" json:"sourceId"`
	JobID    *uuid.UUID `gorm:"type:uuid;index" json:"jobId,omitempty"`

	CompanyName string `gorm:"not null" json:"companyName"`
	ContactName string `json:"contactName,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	Industry    string `json:"industry,omitempty"`

	ReviewStatus   ReviewStatus   `gorm:"index;not null;default:PENDING" json:"reviewStatus"`
	PipelineStatus PipelineStatus `gorm:"index;not null;default:NEW" json:"pipelineStatus"`

	AIScore           *float64       `gorm:"column:ai_score" json:"aiScore,omitempty"`
	AIInsights        string         `gorm:"column:ai_insights" json:"aiInsights,omitempty"`
	AIRecommendations string         `gorm:"column:ai_recommendations" json:"aiRecommendations,omitempty"`
	AISuggestedPitch  string         `gorm:"column:ai_suggested_pitch" json:"aiSuggestedPitch,omitempty"`
	AIProviderID      *uuid.UUID     `gorm:"column:ai_provider_id;type:uuid" json:"aiProviderId,omitempty"`
	AIProcessedAt     *time.Time     `gorm:"column:ai_processed_at" json:"aiProcessedAt,omitempty"`
	RawData           datatypes.JSON `json:"rawData,omitempty"`

	ScrapedAt time.Time `json:"scrapedAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID if none was provided.
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
