package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapublica/leadgen/pkg/models"
)

const directoryHTML = `<!DOCTYPE html>
<html><body>
<div class="listing">
  <div class="company">
    <h2 class="name">Acme Asesores</h2>
    <span class="mail">info@acme.example</span>
    <span class="tel">912 345 678</span>
    <a class="site" href="https://acme.example">web</a>
    <span class="town">Madrid</span>
  </div>
  <div class="company">
    <h2 class="name">Globex Consulting</h2>
    <span class="mail">hola@globex.example</span>
  </div>
  <div class="company">
    <span class="mail">orphan@nowhere.example</span>
  </div>
  <div class="company">
    <h2 class="name">Initech Iberia</h2>
  </div>
</div>
</body></html>`

func directorySelectors() map[string]string {
	return map[string]string{
		"item":        ".company",
		"companyName": ".name",
		"email":       ".mail",
		"phone":       ".tel",
		"website":     ".site",
		"city":        ".town",
	}
}

func TestWebScraper_ExtractsConfiguredFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(directoryHTML))
	}))
	defer srv.Close()

	s := NewWebScraper(models.SourceConfig{
		URL:       srv.URL,
		Selectors: directorySelectors(),
	}, srv.Client())

	leads, err := s.Scrape(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, leads, 3, "nameless containers are skipped")

	first := leads[0]
	assert.Equal(t, "Acme Asesores", first.CompanyName)
	assert.Equal(t, "info@acme.example", first.Email)
	assert.Equal(t, "912 345 678", first.Phone)
	assert.Equal(t, "https://acme.example", first.Website, "website resolves from href")
	assert.Equal(t, "Madrid", first.City)

	assert.Equal(t, "Globex Consulting", leads[1].CompanyName)
	assert.Empty(t, leads[1].Website)
}

func TestWebScraper_HonorsMaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(directoryHTML))
	}))
	defer srv.Close()

	s := NewWebScraper(models.SourceConfig{
		URL:       srv.URL,
		Selectors: directorySelectors(),
	}, srv.Client())

	leads, err := s.Scrape(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, leads, 2)
}

func TestWebScraper_Errors(t *testing.T) {
	t.Run("missing item selector", func(t *testing.T) {
		s := NewWebScraper(models.SourceConfig{
			URL:       "https://example.com",
			Selectors: map[string]string{"companyName": ".name"},
		}, http.DefaultClient)

		_, err := s.Scrape(context.Background(), 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "item selector")
	})

	t.Run("non-200 response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		s := NewWebScraper(models.SourceConfig{
			URL:       srv.URL,
			Selectors: directorySelectors(),
		}, srv.Client())

		_, err := s.Scrape(context.Background(), 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})
}
