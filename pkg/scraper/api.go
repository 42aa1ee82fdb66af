package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lapublica/leadgen/pkg/models"
)

// APIScraper pulls leads from an external JSON endpoint. The endpoint must
// return either a top-level array of objects or an object with a "data"
// array; field names are matched against a set of common aliases.
type APIScraper struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
}

// NewAPIScraper creates a JSON endpoint scraper.
func NewAPIScraper(cfg models.SourceConfig, client *http.Client) *APIScraper {
	return &APIScraper{
		endpoint: cfg.Endpoint,
		headers:  cfg.Headers,
		client:   client,
	}
}

// Scrape fetches the endpoint and maps each record to a raw lead.
func (s *APIScraper) Scrape(ctx context.Context, maxResults int) ([]RawLead, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read api response: %w", err)
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(body, &records); err != nil {
		// Retry as an envelope object with a data array.
		var envelope struct {
			Data []map[string]interface{} `json:"data"`
		}
		if envErr := json.Unmarshal(body, &envelope); envErr != nil || envelope.Data == nil {
			return nil, fmt.Errorf("failed to decode api response: %w", err)
		}
		records = envelope.Data
	}

	leads := make([]RawLead, 0, len(records))
	for _, record := range records {
		lead := RawLead{
			CompanyName: pickString(record, "companyName", "company", "name", "businessName"),
			ContactName: pickString(record, "contactName", "contact"),
			Email:       pickString(record, "email", "contactEmail"),
			Phone:       pickString(record, "phone", "phoneNumber", "telephone"),
			Website:     pickString(record, "website", "url"),
			Address:     pickString(record, "address"),
			City:        pickString(record, "city", "locality"),
			Industry:    pickString(record, "industry", "sector"),
			Raw:         record,
		}
		if lead.CompanyName == "" {
			continue
		}
		leads = append(leads, lead)
	}

	return capResults(leads, maxResults), nil
}

func pickString(record map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := record[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
