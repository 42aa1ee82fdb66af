package scraper

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/lapublica/leadgen/pkg/models"
)

// CSVImportScraper reads leads from a local file or a downloadable URL.
// Plain CSV and XLSX workbooks are both accepted; the first row is treated
// as a header and matched against known column aliases.
type CSVImportScraper struct {
	filePath string
	fileURL  string
	client   *http.Client
}

// NewCSVImportScraper creates a file-import scraper.
func NewCSVImportScraper(cfg models.SourceConfig, client *http.Client) *CSVImportScraper {
	return &CSVImportScraper{
		filePath: cfg.FilePath,
		fileURL:  cfg.FileURL,
		client:   client,
	}
}

// Scrape loads the configured file and maps its rows to raw leads.
func (s *CSVImportScraper) Scrape(ctx context.Context, maxResults int) ([]RawLead, error) {
	path := s.filePath
	cleanup := func() {}

	if path == "" && s.fileURL != "" {
		downloaded, err := s.download(ctx)
		if err != nil {
			return nil, err
		}
		path = downloaded
		cleanup = func() { _ = os.Remove(downloaded) }
	}
	if path == "" {
		return nil, fmt.Errorf("csv import config needs filePath or fileUrl")
	}
	defer cleanup()

	var rows [][]string
	var err error
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		rows, err = readXLSX(path)
	} else {
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, nil // header only, or empty
	}

	columns := mapColumns(rows[0])
	leads := make([]RawLead, 0, len(rows)-1)
	for _, row := range rows[1:] {
		lead := RawLead{
			CompanyName: cell(row, columns, "companyname"),
			ContactName: cell(row, columns, "contactname"),
			Email:       cell(row, columns, "email"),
			Phone:       cell(row, columns, "phone"),
			Website:     cell(row, columns, "website"),
			Address:     cell(row, columns, "address"),
			City:        cell(row, columns, "city"),
			Industry:    cell(row, columns, "industry"),
		}
		if lead.CompanyName == "" {
			continue
		}
		leads = append(leads, lead)
	}

	return capResults(leads, maxResults), nil
}

func (s *CSVImportScraper) download(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.fileURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("file download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("file download returned status %d", resp.StatusCode)
	}

	pattern := "leadgen-import-*.csv"
	if strings.HasSuffix(strings.ToLower(s.fileURL), ".xlsx") {
		pattern = "leadgen-import-*.xlsx"
	}

	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save downloaded file: %w", err)
	}

	return tmp.Name(), nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook rows: %w", err)
	}
	return rows, nil
}

// columnAliases maps normalized header names to canonical lead fields.
var columnAliases = map[string]string{
	"companyname": "companyname",
	"company":     "companyname",
	"name":        "companyname",
	"empresa":     "companyname",
	"contactname": "contactname",
	"contact":     "contactname",
	"contacto":    "contactname",
	"email":       "email",
	"correo":      "email",
	"phone":       "phone",
	"telephone":   "phone",
	"telefono":    "phone",
	"website":     "website",
	"web":         "website",
	"url":         "website",
	"address":     "address",
	"direccion":   "address",
	"city":        "city",
	"ciudad":      "city",
	"industry":    "industry",
	"sector":      "industry",
}

func mapColumns(header []string) map[string]int {
	columns := make(map[string]int)
	for i, h := range header {
		normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
		if field, ok := columnAliases[normalized]; ok {
			if _, taken := columns[field]; !taken {
				columns[field] = i
			}
		}
	}
	return columns
}

func cell(row []string, columns map[string]int, field string) string {
	idx, ok := columns[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
