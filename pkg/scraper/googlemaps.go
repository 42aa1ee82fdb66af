package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/lapublica/leadgen/pkg/models"
)

const placesTextSearchURL = "https://maps.googleapis.com/maps/api/place/textsearch/json"

// GoogleMapsScraper pulls business listings from the Places text search API.
type GoogleMapsScraper struct {
	query    string
	location string
	apiKey   string
	client   *http.Client
}

// NewGoogleMapsScraper creates a Places-backed scraper.
func NewGoogleMapsScraper(cfg models.SourceConfig, apiKey string, client *http.Client) *GoogleMapsScraper {
	return &GoogleMapsScraper{
		query:    cfg.Query,
		location: cfg.Location,
		apiKey:   apiKey,
		client:   client,
	}
}

type placesResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name             string   `json:"name"`
		FormattedAddress string   `json:"formatted_address"`
		Website          string   `json:"website"`
		Rating           float64  `json:"rating"`
		Types            []string `json:"types"`
	} `json:"results"`
	NextPageToken string `json:"next_page_token"`
	ErrorMessage  string `json:"error_message"`
}

// Scrape runs one text search and maps the listings to raw leads.
func (s *GoogleMapsScraper) Scrape(ctx context.Context, maxResults int) ([]RawLead, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("google maps API key is not configured")
	}

	params := url.Values{}
	params.Set("query", fmt.Sprintf("%s in %s", s.query, s.location))
	params.Set("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		placesTextSearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places request returned status %d", resp.StatusCode)
	}

	var body placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode places response: %w", err)
	}

	if body.Status != "OK" && body.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("places API error: %s (%s)", body.Status, body.ErrorMessage)
	}

	leads := make([]RawLead, 0, len(body.Results))
	for _, r := range body.Results {
		industry := ""
		if len(r.Types) > 0 {
			industry = r.Types[0]
		}
		leads = append(leads, RawLead{
			CompanyName: r.Name,
			Address:     r.FormattedAddress,
			Website:     r.Website,
			City:        s.location,
			Industry:    industry,
			Raw: map[string]interface{}{
				"rating": r.Rating,
				"types":  r.Types,
			},
		})
	}

	return capResults(leads, maxResults), nil
}
