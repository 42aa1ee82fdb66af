package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lapublica/leadgen/pkg/domain"
	"github.com/lapublica/leadgen/pkg/logger"
	"github.com/lapublica/leadgen/pkg/models"
	"github.com/lapublica/leadgen/pkg/testdata"
)

type fakeEnqueuer struct {
	enqueued []uuid.UUID
	err      error
}

func (f *fakeEnqueuer) EnqueueScrapeJob(ctx context.Context, jobID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, jobID)
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.AIProvider{},
		&models.LeadSource{},
		&models.ScrapingJob{},
		&models.Lead{},
	))
	return db
}

func newTestService(t *testing.T) (*Service, *fakeEnqueuer, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	enqueuer := &fakeEnqueuer{}
	return NewService(db, enqueuer, logger.Default()), enqueuer, db
}

func createJob(t *testing.T, db *gorm.DB, status models.JobStatus) *models.ScrapingJob {
	t.Helper()

	source := testdata.FakeSource(models.SourceTypeGoogleMaps)
	require.NoError(t, db.Create(source).Error)

	job := &models.ScrapingJob{
		SourceID:     source.ID,
		Status:       status,
		Priority:     models.JobPriorityNormal,
		ScheduledFor: time.Now().UTC(),
	}
	if status == models.JobStatusRunning || status.Terminal() {
		started := time.Now().UTC().Add(-time.Minute)
		job.StartedAt = &started
	}
	if status.Terminal() {
		completed := time.Now().UTC()
		job.CompletedAt = &completed
	}
	require.NoError(t, db.Create(job).Error)
	return job
}

func TestCancelJob_StateMatrix(t *testing.T) {
	tests := []struct {
		status  models.JobStatus
		allowed bool
	}{
		{models.JobStatusPending, true},
		{models.JobStatusRunning, true},
		{models.JobStatusCompleted, false},
		{models.JobStatusFailed, false},
		{models.JobStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			service, _, db := newTestService(t)
			job := createJob(t, db, tt.status)

			cancelled, err := service.CancelJob(context.Background(), job.ID)
			if !tt.allowed {
				require.Error(t, err)
				assert.True(t, domain.IsInvalidState(err))
				assert.Contains(t, err.Error(), string(tt.status))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, models.JobStatusCancelled, cancelled.Status)
			require.NotNil(t, cancelled.Error)
			assert.Equal(t, "Cancelled by user", *cancelled.Error)
			assert.NotNil(t, cancelled.CompletedAt)
		})
	}
}

func TestRetryJob_StateMatrix(t *testing.T) {
	tests := []struct {
		status  models.JobStatus
		allowed bool
	}{
		{models.JobStatusFailed, true},
		{models.JobStatusCancelled, true},
		{models.JobStatusPending, false},
		{models.JobStatusRunning, false},
		{models.JobStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			service, enqueuer, db := newTestService(t)
			job := createJob(t, db, tt.status)

			retry, err := service.RetryJob(context.Background(), job.ID)
			if !tt.allowed {
				require.Error(t, err)
				assert.True(t, domain.IsInvalidState(err))
				assert.Contains(t, err.Error(), string(tt.status))
				assert.Empty(t, enqueuer.enqueued)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, job.ID, retry.ID, "retry must be a fresh row")
			assert.Equal(t, models.JobStatusPending, retry.Status)
			assert.Equal(t, job.SourceID, retry.SourceID)
			assert.Equal(t, job.Priority, retry.Priority)
			require.Len(t, enqueuer.enqueued, 1)
			assert.Equal(t, retry.ID, enqueuer.enqueued[0])

			// The original row keeps its terminal state.
			original, err := service.GetJob(context.Background(), job.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, original.Status)
		})
	}
}

func TestDeleteJob_BlockedWhileActive(t *testing.T) {
	service, _, db := newTestService(t)
	ctx := context.Background()

	for _, status := range []models.JobStatus{models.JobStatusPending, models.JobStatusRunning} {
		job := createJob(t, db, status)
		err := service.DeleteJob(ctx, job.ID)
		require.Error(t, err)
		assert.True(t, domain.IsInvalidState(err))
	}

	done := createJob(t, db, models.JobStatusCompleted)
	require.NoError(t, service.DeleteJob(ctx, done.ID))
	_, err := service.GetJob(ctx, done.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestCleanupOldJobs_RespectsRetentionBoundary(t *testing.T) {
	service, _, db := newTestService(t)
	ctx := context.Background()

	old := createJob(t, db, models.JobStatusCompleted)
	oldCompleted := time.Now().UTC().AddDate(0, 0, -31)
	require.NoError(t, db.Model(old).Update("completed_at", oldCompleted).Error)

	recent := createJob(t, db, models.JobStatusFailed)
	recentCompleted := time.Now().UTC().AddDate(0, 0, -29)
	require.NoError(t, db.Model(recent).Update("completed_at", recentCompleted).Error)

	// An old but still running job is never swept.
	running := createJob(t, db, models.JobStatusRunning)

	deleted, err := service.CleanupOldJobs(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = service.GetJob(ctx, old.ID)
	assert.True(t, domain.IsNotFound(err))
	_, err = service.GetJob(ctx, recent.ID)
	assert.NoError(t, err)
	_, err = service.GetJob(ctx, running.ID)
	assert.NoError(t, err)

	_, err = service.CleanupOldJobs(ctx, 0)
	assert.True(t, domain.IsValidation(err))
}

func TestGetStats_SuccessRateIgnoresCancelled(t *testing.T) {
	service, _, db := newTestService(t)
	ctx := context.Background()

	createJob(t, db, models.JobStatusCompleted)
	createJob(t, db, models.JobStatusCompleted)
	createJob(t, db, models.JobStatusCompleted)
	createJob(t, db, models.JobStatusFailed)
	createJob(t, db, models.JobStatusCancelled)
	createJob(t, db, models.JobStatusPending)

	stats, err := service.GetStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.Total)
	assert.Equal(t, int64(3), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Cancelled)
	assert.Equal(t, int64(1), stats.Pending)
	assert.InDelta(t, 0.75, stats.SuccessRate, 0.0001)
	assert.Greater(t, stats.AvgExecutionMs, 0.0)
}

func TestGetStats_EmptyTableHasZeroRate(t *testing.T) {
	service, _, _ := newTestService(t)

	stats, err := service.GetStats(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.SuccessRate)
}

func TestGetAllJobs_FiltersAndPaginates(t *testing.T) {
	service, _, db := newTestService(t)
	ctx := context.Background()

	source := testdata.FakeSource(models.SourceTypeGoogleMaps)
	require.NoError(t, db.Create(source).Error)
	for i := 0; i < 25; i++ {
		job := &models.ScrapingJob{
			SourceID:     source.ID,
			Status:       models.JobStatusCompleted,
			Priority:     models.JobPriorityNormal,
			ScheduledFor: time.Now().UTC(),
		}
		require.NoError(t, db.Create(job).Error)
	}
	createJob(t, db, models.JobStatusFailed)

	page1, total, err := service.GetAllJobs(ctx, models.JobFilter{
		SourceID: source.ID.String(),
		Status:   models.JobStatusCompleted,
		Page:     1,
		Limit:    20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, page1, 20)

	page2, _, err := service.GetAllJobs(ctx, models.JobFilter{
		SourceID: source.ID.String(),
		Status:   models.JobStatusCompleted,
		Page:     2,
		Limit:    20,
	})
	require.NoError(t, err)
	assert.Len(t, page2, 5)
}

func TestGetActiveJobs(t *testing.T) {
	service, _, db := newTestService(t)

	createJob(t, db, models.JobStatusPending)
	createJob(t, db, models.JobStatusRunning)
	createJob(t, db, models.JobStatusCompleted)

	active, err := service.GetActiveJobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 2)
}
