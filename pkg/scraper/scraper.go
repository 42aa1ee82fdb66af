// Package scraper contains the per-type lead scrapers and the registry
// that mirrors active lead sources.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lapublica/leadgen/pkg/models"
)

// RawLead is one record produced by a scrape, before persistence.
type RawLead struct {
	CompanyName string
	ContactName string
	Email       string
	Phone       string
	Website     string
	Address     string
	City        string
	Industry    string
	Raw         map[string]interface{}
}

// Scraper produces raw lead records for one configured source.
// maxResults <= 0 means no cap.
type Scraper interface {
	Scrape(ctx context.Context, maxResults int) ([]RawLead, error)
}

// Factory builds a scraper for a source row. Swappable in tests.
type Factory func(source *models.LeadSource) (Scraper, error)

// Options carries process-level settings shared by the real scrapers.
type Options struct {
	HTTPClient       *http.Client
	GoogleMapsAPIKey string
}

// NewFactory returns the default factory wiring the real scrapers.
func NewFactory(opts Options) Factory {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return func(source *models.LeadSource) (Scraper, error) {
		cfg, err := source.DecodeConfig()
		if err != nil {
			return nil, fmt.Errorf("invalid source config: %w", err)
		}

		switch source.Type {
		case models.SourceTypeGoogleMaps:
			return NewGoogleMapsScraper(cfg, opts.GoogleMapsAPIKey, httpClient), nil
		case models.SourceTypeWebScraping:
			return NewWebScraper(cfg, httpClient), nil
		case models.SourceTypeAPI:
			return NewAPIScraper(cfg, httpClient), nil
		case models.SourceTypeCSVImport:
			return NewCSVImportScraper(cfg, httpClient), nil
		case models.SourceTypeManual:
			return ManualScraper{}, nil
		default:
			return nil, fmt.Errorf("unsupported source type: %s", source.Type)
		}
	}
}

// Manager is the process-wide registry of scrapers for active sources,
// keyed by source id. Mutations serialize through the mutex.
type Manager struct {
	mu       sync.RWMutex
	scrapers map[string]Scraper
}

// NewManager creates an empty scraper registry.
func NewManager() *Manager {
	return &Manager{
		scrapers: make(map[string]Scraper),
	}
}

// Register inserts or replaces the scraper for a source id.
func (m *Manager) Register(sourceID string, s Scraper) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scrapers[sourceID] = s
}

// Remove drops the scraper for a source id, if any.
func (m *Manager) Remove(sourceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scrapers, sourceID)
}

// Get returns the scraper for a source id.
func (m *Manager) Get(sourceID string) (Scraper, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scrapers[sourceID]
	return s, ok
}

// ManualScraper is the no-op scraper for MANUAL sources; their leads are
// entered through the admin UI, never scraped.
type ManualScraper struct{}

// Scrape returns no records.
func (ManualScraper) Scrape(ctx context.Context, maxResults int) ([]RawLead, error) {
	return nil, nil
}

// capResults truncates a result set to maxResults when a cap is set.
func capResults(leads []RawLead, maxResults int) []RawLead {
	if maxResults > 0 && len(leads) > maxResults {
		return leads[:maxResults]
	}
	return leads
}
