package models

// Envelope is the uniform JSON response shape for the admin API.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Error      string      `json:"error,omitempty"`
	Count      *int64      `json:"count,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes a page window over a filtered set.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// ErrorResponse is the error body used by middleware-level rejections.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateProviderRequest is the payload for creating an AI provider.
type CreateProviderRequest struct {
	Name         string               `json:"name" validate:"required"`
	DisplayName  string               `json:"displayName"`
	Type         ProviderType         `json:"type" validate:"required,oneof=CLAUDE OPENAI GEMINI AZURE_OPENAI"`
	Config       ProviderConfig       `json:"config"`
	Capabilities ProviderCapabilities `json:"capabilities"`
	IsActive     bool                 `json:"isActive"`
	IsDefault    bool                 `json:"isDefault"`
}

// UpdateProviderRequest is the payload for updating an AI provider.
// Nil fields are left untouched; provider type is immutable.
type UpdateProviderRequest struct {
	DisplayName  *string               `json:"displayName,omitempty"`
	Config       *ProviderConfig       `json:"config,omitempty"`
	Capabilities *ProviderCapabilities `json:"capabilities,omitempty"`
	IsActive     *bool                 `json:"isActive,omitempty"`
	IsDefault    *bool                 `json:"isDefault,omitempty"`
}

// TestProviderResult is returned by the provider self-test. Failures are
// reported in-band, never as an HTTP error.
type TestProviderResult struct {
	Success   bool   `json:"success"`
	LatencyMs int64  `json:"latencyMs"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CreateSourceRequest is the payload for creating a lead source.
type CreateSourceRequest struct {
	Name         string       `json:"name" validate:"required"`
	Type         SourceType   `json:"type" validate:"required,oneof=GOOGLE_MAPS WEB_SCRAPING API CSV_IMPORT MANUAL"`
	Config       SourceConfig `json:"config"`
	AIProviderID *string      `json:"aiProviderId,omitempty"`
	AITasks      AITasks      `json:"aiTasks"`
	Frequency    Frequency    `json:"frequency" validate:"omitempty,oneof=MANUAL HOURLY DAILY WEEKLY MONTHLY"`
	IsActive     bool         `json:"isActive"`
}

// UpdateSourceRequest is the payload for updating a lead source.
type UpdateSourceRequest struct {
	Name         *string       `json:"name,omitempty"`
	Config       *SourceConfig `json:"config,omitempty"`
	AIProviderID *string       `json:"aiProviderId,omitempty"`
	AITasks      *AITasks      `json:"aiTasks,omitempty"`
	Frequency    *Frequency    `json:"frequency,omitempty" validate:"omitempty,oneof=MANUAL HOURLY DAILY WEEKLY MONTHLY"`
	IsActive     *bool         `json:"isActive,omitempty"`
}

// ExecuteSourceRequest carries per-run overrides for a manual execution.
// RunAI left unset falls back to the source's configured AI tasks.
type ExecuteSourceRequest struct {
	MaxResults int   `json:"maxResults,omitempty"`
	RunAI      *bool `json:"runAI,omitempty"`
}

// JobFilter narrows job listing queries.
type JobFilter struct {
	SourceID string    `query:"sourceId"`
	Status   JobStatus `query:"status" validate:"omitempty,oneof=PENDING RUNNING COMPLETED FAILED CANCELLED"`
	Page     int       `query:"page"`
	Limit    int       `query:"limit"`
}

// JobStats aggregates the job table over a filtered set.
type JobStats struct {
	Total           int64   `json:"total"`
	Pending         int64   `json:"pending"`
	Running         int64   `json:"running"`
	Completed       int64   `json:"completed"`
	Failed          int64   `json:"failed"`
	Cancelled       int64   `json:"cancelled"`
	SuccessRate     float64 `json:"successRate"`
	AvgExecutionMs  float64 `json:"avgExecutionMs"`
	LeadsGenerated  int64   `json:"leadsGenerated"`
}

// LeadFilter narrows lead listing queries.
type LeadFilter struct {
	SourceID       string         `query:"sourceId"`
	JobID          string         `query:"jobId"`
	ReviewStatus   ReviewStatus   `query:"reviewStatus" validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
	PipelineStatus PipelineStatus `query:"pipelineStatus" validate:"omitempty,oneof=NEW CONTACTED QUALIFIED PROPOSAL NEGOTIATION WON LOST"`
	Search         string         `query:"search"`
	Page           int            `query:"page"`
	Limit          int            `query:"limit"`
}

// UpdateLeadRequest is the payload for editing a lead during review.
type UpdateLeadRequest struct {
	CompanyName *string `json:"companyName,omitempty"`
	ContactName *string `json:"contactName,omitempty"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string `json:"phone,omitempty"`
	Website     *string `json:"website,omitempty"`
	Address     *string `json:"address,omitempty"`
	City        *string `json:"city,omitempty"`
	Industry    *string `json:"industry,omitempty"`
}
