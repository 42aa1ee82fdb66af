package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SourceType identifies how a lead source produces leads.
type SourceType string

const (
	SourceTypeGoogleMaps  SourceType = "GOOGLE_MAPS"
	SourceTypeWebScraping SourceType = "WEB_SCRAPING"
	SourceTypeAPI         SourceType = "API"
	SourceTypeCSVImport   SourceType = "CSV_IMPORT"
	SourceTypeManual      SourceType = "MANUAL"
)

// Frequency controls how often an active source is scheduled.
type Frequency string

const (
	FrequencyManual  Frequency = "MANUAL"
	FrequencyHourly  Frequency = "HOURLY"
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// NextAfter derives the next scheduled run from a reference time.
// MANUAL and unrecognized frequencies fall through to the reference time;
// callers store nil for sources that are not schedulable.
func (f Frequency) NextAfter(now time.Time) time.Time {
	switch f {
	case FrequencyHourly:
		return now.Add(time.Hour)
	case FrequencyDaily:
		return now.Add(24 * time.Hour)
	case FrequencyWeekly:
		return now.Add(7 * 24 * time.Hour)
	case FrequencyMonthly:
		return now.AddDate(0, 1, 0)
	default:
		return now
	}
}

// SourceConfig is the typed shape of a LeadSource's config column.
// Which fields are required depends on the source type.
type SourceConfig struct {
	// GOOGLE_MAPS
	Query    string `json:"query,omitempty"`
	Location string `json:"location,omitempty"`

	// WEB_SCRAPING
	URL       string            `json:"url,omitempty"`
	Selectors map[string]string `json:"selectors,omitempty"`

	// API
	Endpoint string            `json:"endpoint,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`

	// CSV_IMPORT
	FilePath string `json:"filePath,omitempty"`
	FileURL  string `json:"fileUrl,omitempty"`

	// Shared
	MaxResults  int    `json:"maxResults,omitempty"`
	PhoneRegion string `json:"phoneRegion,omitempty"`
}

// AITasks flags which enrichment passes run on freshly scraped leads.
type AITasks struct {
	Analyze       bool `json:"analyze"`
	Score         bool `json:"score"`
	GeneratePitch bool `json:"generatePitch"`
	Enrich        bool `json:"enrich"`
	Classify      bool `json:"classify"`
	Validate      bool `json:"validate"`
}

// Enabled reports whether any enrichment task is switched on.
func (t AITasks) Enabled() bool {
	return t.Analyze || t.Score || t.GeneratePitch || t.Enrich || t.Classify || t.Validate
}

// LeadSource is a configured origin of prospective leads.
type LeadSource struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string         `gorm:"not null" json:"name"`
	Type         SourceType     `gorm:"index;not null" json:"type"`
	Config       datatypes.JSON `json:"config"`
	AIProviderID *uuid.UUID     `gorm:"column:ai_provider_id;type:uuid;index" json:"aiProviderId,omitempty"`
	AITasks      datatypes.JSON `gorm:"column:ai_tasks" json:"aiTasks"`
	Frequency    Frequency      `gorm:"not null;default:MANUAL" json:"frequency"`
	IsActive     bool           `gorm:"index" json:"isActive"`
	NextRun      *time.Time     `gorm:"index" json:"nextRun,omitempty"`
	LastRun      *time.Time     `json:"lastRun,omitempty"`

	LeadsGenerated int `json:"leadsGenerated"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID if none was provided.
func (s *LeadSource) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// DecodeConfig unmarshals the stored config blob into its typed form.
func (s *LeadSource) DecodeConfig() (SourceConfig, error) {
	var cfg SourceConfig
	if len(s.Config) == 0 {
		return cfg, nil
	}
	err := json.Unmarshal(s.Config, &cfg)
	return cfg, err
}

// DecodeAITasks unmarshals the stored AI task flags.
func (s *LeadSource) DecodeAITasks() (AITasks, error) {
	var tasks AITasks
	if len(s.AITasks) == 0 {
		return tasks, nil
	}
	err := json.Unmarshal(s.AITasks, &tasks)
	return tasks, err
}
