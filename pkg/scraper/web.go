package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lapublica/leadgen/pkg/models"
)

// WebScraper extracts leads from an HTML page using configured CSS
// selectors. The "item" selector picks the per-lead containers; the other
// selectors resolve fields relative to each container.
type WebScraper struct {
	url       string
	selectors map[string]string
	client    *http.Client
}

// NewWebScraper creates a selector-driven HTML scraper.
func NewWebScraper(cfg models.SourceConfig, client *http.Client) *WebScraper {
	return &WebScraper{
		url:       cfg.URL,
		selectors: cfg.Selectors,
		client:    client,
	}
}

// Scrape fetches the page and maps each matched container to a raw lead.
func (s *WebScraper) Scrape(ctx context.Context, maxResults int) ([]RawLead, error) {
	itemSelector := s.selectors["item"]
	if itemSelector == "" {
		return nil, fmt.Errorf("web scraping config is missing the item selector")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "leadgen-scraper/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("page fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page fetch returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var leads []RawLead
	doc.Find(itemSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		lead := RawLead{
			CompanyName: s.field(sel, "companyName"),
			ContactName: s.field(sel, "contactName"),
			Email:       s.field(sel, "email"),
			Phone:       s.field(sel, "phone"),
			Website:     s.attrField(sel, "website", "href"),
			Address:     s.field(sel, "address"),
			City:        s.field(sel, "city"),
			Industry:    s.field(sel, "industry"),
		}
		if lead.CompanyName == "" {
			return true // skip containers without a name
		}

		leads = append(leads, lead)
		return maxResults <= 0 || len(leads) < maxResults
	})

	return leads, nil
}

func (s *WebScraper) field(sel *goquery.Selection, name string) string {
	css, ok := s.selectors[name]
	if !ok || css == "" {
		return ""
	}
	return strings.TrimSpace(sel.Find(css).First().Text())
}

func (s *WebScraper) attrField(sel *goquery.Selection, name, attr string) string {
	css, ok := s.selectors[name]
	if !ok || css == "" {
		return ""
	}
	node := sel.Find(css).First()
	if val, exists := node.Attr(attr); exists {
		return strings.TrimSpace(val)
	}
	return strings.TrimSpace(node.Text())
}
