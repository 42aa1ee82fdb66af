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

const recordsJSON = `[
  {"company": "Acme Asesores", "email": "info@acme.example", "locality": "Madrid"},
  {"name": "Globex Consulting", "phoneNumber": "+34912345678"},
  {"email": "nameless@nowhere.example"}
]`

func newAPIScraperFor(srv *httptest.Server, headers map[string]string) *APIScraper {
	return NewAPIScraper(models.SourceConfig{
		Endpoint: srv.URL,
		Headers:  headers,
	}, srv.Client())
}

func TestAPIScraper_TopLevelArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(recordsJSON))
	}))
	defer srv.Close()

	leads, err := newAPIScraperFor(srv, nil).Scrape(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Acme Asesores", leads[0].CompanyName)
	assert.Equal(t, "Madrid", leads[0].City)
	assert.Equal(t, "Globex Consulting", leads[1].CompanyName)
	assert.Equal(t, "+34912345678", leads[1].Phone)
}

func TestAPIScraper_DataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total": 3, "data": ` + recordsJSON + `}`))
	}))
	defer srv.Close()

	leads, err := newAPIScraperFor(srv, nil).Scrape(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Acme Asesores", leads[0].CompanyName)
}

func TestAPIScraper_SendsConfiguredHeaders(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := newAPIScraperFor(srv, map[string]string{"Authorization": "Bearer token"}).
		Scrape(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token", gotAuth)
}

func TestAPIScraper_RejectsNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	_, err := newAPIScraperFor(srv, nil).Scrape(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode api response")
}
