package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"fieldserve-api/internal/auth"
	"fieldserve-api/pkg/importer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImportRequest(t *testing.T, body *bytes.Buffer, contentType string) *http.Request {
	t.Helper()
	req := httptest.NewRequest("POST", "/imports/skus", body)
	req.Header.Set("Content-Type", contentType)
	ctx := context.WithValue(req.Context(), auth.TenantIDKey, "7b0f7a38-4f2e-4a57-9a9f-1f1a0c1a2b3c")
	return req.WithContext(ctx)
}

func TestImportsHandler_UploadSkuCatalog(t *testing.T) {
	// No real database for the validation paths
	handler := &ImportsHandler{
		DB:         nil,
		MaxBytes:   20 << 20,
		DefaultMap: "configs/mapping/sku_catalog.yaml",
	}

	t.Run("Rejects non-multipart content type", func(t *testing.T) {
		req := newImportRequest(t, &bytes.Buffer{}, "application/json")

		w := httptest.NewRecorder()
		handler.UploadSkuCatalog(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "multipart/form-data")
	})

	t.Run("Rejects missing file", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		writer.WriteField("dry_run", "true")
		writer.Close()

		w := httptest.NewRecorder()
		handler.UploadSkuCatalog(w, newImportRequest(t, body, writer.FormDataContentType()))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "file is required")
	})

	t.Run("Rejects non-xlsx file", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		fileWriter, _ := writer.CreateFormFile("file", "catalog.csv")
		fileWriter.Write([]byte("sku_code,name\n"))
		writer.Close()

		w := httptest.NewRecorder()
		handler.UploadSkuCatalog(w, newImportRequest(t, body, writer.FormDataContentType()))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "only .xlsx files are accepted")
	})

	t.Run("Accepts xlsx past validation", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		writer.WriteField("dry_run", "true")
		fileWriter, _ := writer.CreateFormFile("file", "catalog.xlsx")
		fileWriter.Write([]byte("not really a workbook"))
		writer.Close()

		w := httptest.NewRecorder()
		handler.UploadSkuCatalog(w, newImportRequest(t, body, writer.FormDataContentType()))

		// Fails inside the importer on the bogus workbook, not on validation
		assert.NotEqual(t, http.StatusBadRequest, w.Code)
	})
}

func TestIsXLSX(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		expected bool
	}{
		{"Valid xlsx", "catalog.xlsx", true},
		{"Valid xlsx uppercase", "CATALOG.XLSX", true},
		{"Valid xlsx mixed case", "Catalog.XlSx", true},
		{"Invalid xls", "catalog.xls", false},
		{"Invalid xlsm", "catalog.xlsm", false},
		{"Invalid csv", "catalog.csv", false},
		{"No extension", "catalog", false},
		{"Empty filename", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := &multipart.FileHeader{
				Filename: tt.filename,
			}
			assert.Equal(t, tt.expected, isXLSX(header))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]interface{}{
		"message": "test",
		"count":   42,
	}

	writeJSON(w, http.StatusOK, data)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "test", response["message"])
	assert.Equal(t, float64(42), response["count"])
}

func TestImportSummaryShapes(t *testing.T) {
	t.Run("RowError structure", func(t *testing.T) {
		rowErr := importer.RowError{
			Sheet:   "Catalog",
			Row:     5,
			Message: "unknown service category",
		}

		assert.Equal(t, "Catalog", rowErr.Sheet)
		assert.Equal(t, 5, rowErr.Row)
		assert.Equal(t, "unknown service category", rowErr.Message)
	})

	t.Run("ImportSummary accumulates sheets", func(t *testing.T) {
		summary := importer.ImportSummary{
			Inserted: 15,
			Updated:  8,
			Skipped:  3,
			Errors:   2,
			Sheets: []importer.SheetSummary{
				{Name: "Catalog", Inserted: 15, Updated: 8, Skipped: 3, Errors: 2},
			},
			DryRun: true,
		}

		assert.Len(t, summary.Sheets, 1)
		assert.True(t, summary.DryRun)
		assert.Equal(t, 15, summary.Inserted)
	})
}
