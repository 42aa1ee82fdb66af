package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/lapublica/leadgen/pkg/models"
)

const sampleCSV = `Empresa, Correo, Telefono, Ciudad, Sector
Acme Asesores, info@acme.example, 912345678, Madrid, Legal
Globex Consulting, hola@globex.example, , Barcelona, Consultoria
, orphan@nowhere.example, , ,
Initech Iberia, , , Valencia, Software
`

func writeTempCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	return path
}

func TestCSVImportScraper_LocalFileWithSpanishHeaders(t *testing.T) {
	s := NewCSVImportScraper(models.SourceConfig{FilePath: writeTempCSV(t)}, http.DefaultClient)

	leads, err := s.Scrape(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, leads, 3, "rows without a company name are skipped")

	first := leads[0]
	assert.Equal(t, "Acme Asesores", first.CompanyName)
	assert.Equal(t, "info@acme.example", first.Email)
	assert.Equal(t, "912345678", first.Phone)
	assert.Equal(t, "Madrid", first.City)
	assert.Equal(t, "Legal", first.Industry)

	assert.Equal(t, "Initech Iberia", leads[2].CompanyName)
	assert.Empty(t, leads[2].Phone)
}

func TestCSVImportScraper_MaxResultsCap(t *testing.T) {
	s := NewCSVImportScraper(models.SourceConfig{FilePath: writeTempCSV(t)}, http.DefaultClient)

	leads, err := s.Scrape(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}

func TestCSVImportScraper_DownloadsFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	s := NewCSVImportScraper(models.SourceConfig{FileURL: srv.URL + "/leads.csv"}, srv.Client())

	leads, err := s.Scrape(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, leads, 3)
}

func TestCSVImportScraper_XLSXWorkbook(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Company", "Email", "City"},
		{"Acme Asesores", "info@acme.example", "Madrid"},
		{"Globex Consulting", "hola@globex.example", "Barcelona"},
	}
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &row))
	}

	path := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, f.SaveAs(path))

	s := NewCSVImportScraper(models.SourceConfig{FilePath: path}, http.DefaultClient)
	leads, err := s.Scrape(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Acme Asesores", leads[0].CompanyName)
	assert.Equal(t, "Barcelona", leads[1].City)
}

func TestCSVImportScraper_MissingConfig(t *testing.T) {
	s := NewCSVImportScraper(models.SourceConfig{}, http.DefaultClient)
	_, err := s.Scrape(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filePath or fileUrl")
}

func TestCSVImportScraper_DownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewCSVImportScraper(models.SourceConfig{FileURL: srv.URL + "/missing.csv"}, srv.Client())
	_, err := s.Scrape(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
