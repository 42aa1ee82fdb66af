package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypeScrapeJob is the asynq task type for executing a scraping job.
const TypeScrapeJob = "scrape:job"

// ScrapeJobPayload identifies the job row the worker should execute.
type ScrapeJobPayload struct {
	JobID uuid.UUID `json:"jobId"`
}

// NewScrapeJobTask builds the asynq task for a job id.
func NewScrapeJobTask(jobID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(ScrapeJobPayload{JobID: jobID})
	if err != nil {
		return nil, fmt.Errorf("marshal scrape payload: %w", err)
	}
	return asynq.NewTask(TypeScrapeJob, payload), nil
}

// Enqueuer pushes scrape tasks onto the Redis-backed queue. It satisfies
// sources.JobEnqueuer.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates an enqueuer on top of an asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueScrapeJob submits the job to the default queue.
func (e *Enqueuer) EnqueueScrapeJob(ctx context.Context, jobID uuid.UUID) error {
	task, err := NewScrapeJobTask(jobID)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue scrape task: %w", err)
	}
	return nil
}
