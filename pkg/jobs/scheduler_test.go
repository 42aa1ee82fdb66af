package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapublica/leadgen/pkg/logger"
	"github.com/lapublica/leadgen/pkg/models"
	"github.com/lapublica/leadgen/pkg/testdata"
)

func TestScheduleSource_CreatesJobAndAdvancesNextRun(t *testing.T) {
	service, enqueuer, db := newTestService(t)
	scheduler := NewScheduler(db, service, enqueuer, logger.Default(), 30)

	now := time.Now().UTC()
	overdue := now.Add(-time.Minute)

	source := testdata.FakeSource(models.SourceTypeGoogleMaps)
	source.Frequency = models.FrequencyHourly
	source.NextRun = &overdue
	require.NoError(t, db.Create(source).Error)

	require.NoError(t, scheduler.scheduleSource(context.Background(), source, now))

	var job models.ScrapingJob
	require.NoError(t, db.First(&job, "source_id = ?", source.ID).Error)
	assert.Equal(t, models.JobStatusPending, job.Status)
	require.Len(t, enqueuer.enqueued, 1)
	assert.Equal(t, job.ID, enqueuer.enqueued[0])

	var reloaded models.LeadSource
	require.NoError(t, db.First(&reloaded, "id = ?", source.ID).Error)
	require.NotNil(t, reloaded.NextRun)
	assert.Equal(t, now.Add(time.Hour).Unix(), reloaded.NextRun.Unix())
}

func TestScheduleSource_SkipsSourceWithActiveJob(t *testing.T) {
	service, enqueuer, db := newTestService(t)
	scheduler := NewScheduler(db, service, enqueuer, logger.Default(), 30)

	now := time.Now().UTC()
	overdue := now.Add(-time.Minute)

	source := testdata.FakeSource(models.SourceTypeGoogleMaps)
	source.Frequency = models.FrequencyHourly
	source.NextRun = &overdue
	require.NoError(t, db.Create(source).Error)

	inFlight := &models.ScrapingJob{
		SourceID:     source.ID,
		Status:       models.JobStatusRunning,
		Priority:     models.JobPriorityNormal,
		ScheduledFor: now,
	}
	require.NoError(t, db.Create(inFlight).Error)

	require.NoError(t, scheduler.scheduleSource(context.Background(), source, now))

	var jobCount int64
	require.NoError(t, db.Model(&models.ScrapingJob{}).Where("source_id = ?", source.ID).Count(&jobCount).Error)
	assert.Equal(t, int64(1), jobCount, "no second job while one is in flight")
	assert.Empty(t, enqueuer.enqueued)

	// NextRun still advances so the scan does not spin on this source.
	var reloaded models.LeadSource
	require.NoError(t, db.First(&reloaded, "id = ?", source.ID).Error)
	require.NotNil(t, reloaded.NextRun)
	assert.True(t, reloaded.NextRun.After(now))
}
