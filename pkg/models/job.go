package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobStatus is the lifecycle state of a scraping job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// JobPriority orders pending jobs in the queue.
type JobPriority string

const (
	JobPriorityLow    JobPriority = "LOW"
	JobPriorityNormal JobPriority = "NORMAL"
	JobPriorityHigh   JobPriority = "HIGH"
)

// JobConfig carries per-run overrides for one execution of a source.
type JobConfig struct {
	MaxResults int  `json:"maxResults,omitempty"`
	RunAI      bool `json:"runAI"`
}

// ScrapingJob is one execution attempt of a LeadSource.
type ScrapingJob struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SourceID uuid.UUID `gorm:"type:uuid;index;not null" json:"sourceId"`

	Status   JobStatus   `gorm:"index;not null;default:PENDING" json:"status"`
	Priority JobPriority `gorm:"not null;default:NORMAL" json:"priority"`

	ScheduledFor time.Time  `json:"scheduledFor"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `gorm:"index" json:"completedAt,omitempty"`

	Progress       int            `json:"progress"`
	LeadsGenerated int            `json:"leadsGenerated"`
	Error          *string        `json:"error,omitempty"`
	Config         datatypes.JSON `json:"config"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID if none was provided.
func (j *ScrapingJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// DecodeConfig unmarshals the stored per-run config.
func (j *ScrapingJob) DecodeConfig() (JobConfig, error) {
	var cfg JobConfig
	if len(j.Config) == 0 {
		return cfg, nil
	}
	err := json.Unmarshal(j.Config, &cfg)
	return cfg, err
}
