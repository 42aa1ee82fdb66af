package sources

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
	"github.com/lapublica/leadgen/pkg/scraper"
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

type fakeScraper struct {
	leads []scraper.RawLead
	err   error
}

func (f *fakeScraper) Scrape(ctx context.Context, maxResults int) ([]scraper.RawLead, error) {
	if f.err != nil {
		return nil, f.err
	}
	if maxResults > 0 && len(f.leads) > maxResults {
		return f.leads[:maxResults], nil
	}
	return f.leads, nil
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

func newTestService(t *testing.T, sc scraper.Scraper) (*Service, *fakeEnqueuer, *scraper.Manager) {
	t.Helper()

	enqueuer := &fakeEnqueuer{}
	manager := scraper.NewManager()
	factory := func(source *models.LeadSource) (scraper.Scraper, error) {
		return sc, nil
	}
	service := NewService(setupTestDB(t), manager, factory, enqueuer, logger.Default(), 0, 0)
	return service, enqueuer, manager
}

func googleMapsRequest(name string) models.CreateSourceRequest {
	return models.CreateSourceRequest{
		Name: name,
		Type: models.SourceTypeGoogleMaps,
		Config: models.SourceConfig{
			Query:    "law firms",
			Location: "Barcelona",
		},
		Frequency: models.FrequencyDaily,
	}
}

func TestCreateSource_ConfigValidationPerType(t *testing.T) {
	service, _, _ := newTestService(t, &fakeScraper{})

	tests := []struct {
		name string
		req  models.CreateSourceRequest
	}{
		{
			name: "google maps without location",
			req: models.CreateSourceRequest{
				Name: "gm", Type: models.SourceTypeGoogleMaps,
				Config: models.SourceConfig{Query: "law firms"},
			},
		},
		{
			name: "web scraping without selectors",
			req: models.CreateSourceRequest{
				Name: "web", Type: models.SourceTypeWebScraping,
				Config: models.SourceConfig{URL: "https://example.com"},
			},
		},
		{
			name: "api without endpoint",
			req: models.CreateSourceRequest{
				Name: "api", Type: models.SourceTypeAPI,
				Config: models.SourceConfig{Headers: map[string]string{"X-Key": "v"}},
			},
		},
		{
			name: "csv without file",
			req: models.CreateSourceRequest{
				Name: "csv", Type: models.SourceTypeCSVImport,
				Config: models.SourceConfig{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateSource(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
			assert.Contains(t, err.Error(), string(tt.req.Type))
		})
	}
}

func TestCreateSource_NextRunInvariant(t *testing.T) {
	service, _, _ := newTestService(t, &fakeScraper{})
	ctx := context.Background()

	t.Run("active scheduled source gets a next run", func(t *testing.T) {
		req := googleMapsRequest("scheduled")
		req.IsActive = true
		before := time.Now().UTC()

		source, err := service.CreateSource(ctx, req)
		require.NoError(t, err)
		require.NotNil(t, source.NextRun)
		assert.WithinDuration(t, before.Add(24*time.Hour), *source.NextRun, 5*time.Second)
	})

	t.Run("inactive source has no next run", func(t *testing.T) {
		req := googleMapsRequest("dormant")
		req.IsActive = false

		source, err := service.CreateSource(ctx, req)
		require.NoError(t, err)
		assert.Nil(t, source.NextRun)
	})

	t.Run("manual source has no next run even when active", func(t *testing.T) {
		req := googleMapsRequest("manual")
		req.IsActive = true
		req.Frequency = models.FrequencyManual

		source, err := service.CreateSource(ctx, req)
		require.NoError(t, err)
		assert.Nil(t, source.NextRun)
	})
}

func TestFrequencyNextAfter(t *testing.T) {
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(time.Hour), models.FrequencyHourly.NextAfter(now))
	assert.Equal(t, now.Add(24*time.Hour), models.FrequencyDaily.NextAfter(now))
	assert.Equal(t, now.Add(7*24*time.Hour), models.FrequencyWeekly.NextAfter(now))
	// Month arithmetic follows the calendar, including normalization.
	assert.Equal(t, now.AddDate(0, 1, 0), models.FrequencyMonthly.NextAfter(now))
	assert.Equal(t, now, models.FrequencyManual.NextAfter(now))
}

func TestToggleSource_RecomputesScheduleAndRegistry(t *testing.T) {
	sc := &fakeScraper{}
	service, _, manager := newTestService(t, sc)
	ctx := context.Background()

	req := googleMapsRequest("toggle-me")
	req.IsActive = true
	source, err := service.CreateSource(ctx, req)
	require.NoError(t, err)
	_, ok := manager.Get(source.ID.String())
	require.True(t, ok)

	toggled, err := service.ToggleSource(ctx, source.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	assert.Nil(t, toggled.NextRun)
	_, ok = manager.Get(source.ID.String())
	assert.False(t, ok)

	toggled, err = service.ToggleSource(ctx, source.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)
	require.NotNil(t, toggled.NextRun)
	_, ok = manager.Get(source.ID.String())
	assert.True(t, ok)
}

func TestCreateSource_ProviderMustBeActive(t *testing.T) {
	service, _, _ := newTestService(t, &fakeScraper{})
	ctx := context.Background()

	provider := testdata.FakeProvider(models.ProviderTypeClaude)
	provider.IsActive = false
	require.NoError(t, service.db.Create(provider).Error)

	req := googleMapsRequest("with-provider")
	providerID := provider.ID.String()
	req.AIProviderID = &providerID

	_, err := service.CreateSource(ctx, req)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	require.NoError(t, service.db.Model(provider).Update("is_active", true).Error)
	source, err := service.CreateSource(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, source.AIProviderID)
	assert.Equal(t, provider.ID, *source.AIProviderID)
}

func TestExecuteSource_CreatesPendingJobAndEnqueues(t *testing.T) {
	service, enqueuer, _ := newTestService(t, &fakeScraper{})
	ctx := context.Background()

	req := googleMapsRequest("runnable")
	req.IsActive = true
	source, err := service.CreateSource(ctx, req)
	require.NoError(t, err)

	runAI := true
	job, err := service.ExecuteSource(ctx, source.ID, models.ExecuteSourceRequest{MaxResults: 10, RunAI: &runAI})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, models.JobPriorityNormal, job.Priority)
	assert.Equal(t, source.ID, job.SourceID)
	require.Len(t, enqueuer.enqueued, 1)
	assert.Equal(t, job.ID, enqueuer.enqueued[0])

	cfg, err := job.DecodeConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxResults)
	assert.True(t, cfg.RunAI)
}

func TestExecuteSource_DefaultsRunAIFromSourceTasks(t *testing.T) {
	service, _, _ := newTestService(t, &fakeScraper{})
	ctx := context.Background()

	req := googleMapsRequest("ai-configured")
	req.IsActive = true
	req.AITasks = models.AITasks{Analyze: true, Score: true}
	source, err := service.CreateSource(ctx, req)
	require.NoError(t, err)

	// No explicit override: the source's AI tasks decide.
	job, err := service.ExecuteSource(ctx, source.ID, models.ExecuteSourceRequest{})
	require.NoError(t, err)
	cfg, err := job.DecodeConfig()
	require.NoError(t, err)
	assert.True(t, cfg.RunAI)

	// An explicit false wins over the configured tasks.
	off := false
	job, err = service.ExecuteSource(ctx, source.ID, models.ExecuteSourceRequest{RunAI: &off})
	require.NoError(t, err)
	cfg, err = job.DecodeConfig()
	require.NoError(t, err)
	assert.False(t, cfg.RunAI)
}

func TestExecuteSource_RejectsInactiveSource(t *testing.T) {
	service, enqueuer, _ := newTestService(t, &fakeScraper{})
	ctx := context.Background()

	source, err := service.CreateSource(ctx, googleMapsRequest("paused"))
	require.NoError(t, err)

	_, err = service.ExecuteSource(ctx, source.ID, models.ExecuteSourceRequest{})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, enqueuer.enqueued)
}

func TestTestSource_CapsResultsWithoutPersisting(t *testing.T) {
	raw := make([]scraper.RawLead, 8)
	for i := range raw {
		raw[i] = testdata.FakeRawLead()
	}
	service, _, _ := newTestService(t, &fakeScraper{leads: raw})
	ctx := context.Background()

	req := googleMapsRequest("sampler")
	req.IsActive = true
	source, err := service.CreateSource(ctx, req)
	require.NoError(t, err)

	sample, err := service.TestSource(ctx, source.ID)
	require.NoError(t, err)
	assert.Len(t, sample, 5)

	var leadCount int64
	require.NoError(t, service.db.Model(&models.Lead{}).Count(&leadCount).Error)
	assert.Zero(t, leadCount, "test runs must not persist leads")
}

func TestTestSource_PrefersRegisteredScraper(t *testing.T) {
	factoryLead := scraper.RawLead{CompanyName: "From Factory"}
	service, _, manager := newTestService(t, &fakeScraper{leads: []scraper.RawLead{factoryLead}})
	ctx := context.Background()

	// Inactive source: nothing registered, the factory serves the test.
	source, err := service.CreateSource(ctx, googleMapsRequest("mirrored"))
	require.NoError(t, err)

	sample, err := service.TestSource(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, sample, 1)
	assert.Equal(t, "From Factory", sample[0].CompanyName)

	registered := scraper.RawLead{CompanyName: "From Registry"}
	manager.Register(source.ID.String(), &fakeScraper{leads: []scraper.RawLead{registered}})

	sample, err = service.TestSource(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, sample, 1)
	assert.Equal(t, "From Registry", sample[0].CompanyName)
}

func TestDeleteSource_BlockedWhileReferenced(t *testing.T) {
	service, _, manager := newTestService(t, &fakeScraper{})
	ctx := context.Background()

	req := googleMapsRequest("referenced")
	req.IsActive = true
	source, err := service.CreateSource(ctx, req)
	require.NoError(t, err)

	lead := testdata.FakeLead(source.ID)
	require.NoError(t, service.db.Create(lead).Error)

	err = service.DeleteSource(ctx, source.ID)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	require.NoError(t, service.db.Delete(lead).Error)
	require.NoError(t, service.DeleteSource(ctx, source.ID))

	_, ok := manager.Get(source.ID.String())
	assert.False(t, ok)
	_, err = service.GetSource(ctx, source.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestUpdateSource_FrequencyChangeRecomputesNextRun(t *testing.T) {
	service, _, _ := newTestService(t, &fakeScraper{})
	ctx := context.Background()

	req := googleMapsRequest("retimed")
	req.IsActive = true
	source, err := service.CreateSource(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, source.NextRun)
	dailyNext := *source.NextRun

	hourly := models.FrequencyHourly
	updated, err := service.UpdateSource(ctx, source.ID, models.UpdateSourceRequest{Frequency: &hourly})
	require.NoError(t, err)
	require.NotNil(t, updated.NextRun)
	assert.True(t, updated.NextRun.Before(dailyNext))
}

func TestDueSources_ReturnsOnlySchedulableOverdueRows(t *testing.T) {
	service, _, _ := newTestService(t, &fakeScraper{})
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	overdue := testdata.FakeSource(models.SourceTypeGoogleMaps)
	overdue.Frequency = models.FrequencyHourly
	overdue.NextRun = &past
	require.NoError(t, service.db.Create(overdue).Error)

	notYet := testdata.FakeSource(models.SourceTypeGoogleMaps)
	notYet.Frequency = models.FrequencyHourly
	notYet.NextRun = &future
	require.NoError(t, service.db.Create(notYet).Error)

	inactive := testdata.FakeSource(models.SourceTypeGoogleMaps)
	inactive.Frequency = models.FrequencyHourly
	inactive.IsActive = false
	inactive.NextRun = &past
	require.NoError(t, service.db.Create(inactive).Error)

	due, err := service.DueSources(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, overdue.ID, due[0].ID)
}
