package internal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterVendorValidation(t *testing.T) {
	server := &Server{}

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			name:     "invalid json",
			body:     "{not json",
			wantCode: "INVALID_BODY",
		},
		{
			name:     "missing company name and email",
			body:     `{"categories":["plumbing"]}`,
			wantCode: "MISSING_FIELDS",
		},
		{
			name:     "missing categories",
			body:     `{"company_name":"Acme Plumbing","business_email":"ops@acme.test"}`,
			wantCode: "MISSING_CATEGORIES",
		},
		{
			name:     "unknown service area type",
			body:     `{"company_name":"Acme Plumbing","business_email":"ops@acme.test","categories":["cat"],"service_area":{"type":"county"}}`,
			wantCode: "INVALID_SERVICE_AREA",
		},
		{
			name:     "radius area without coordinates",
			body:     `{"company_name":"Acme Plumbing","business_email":"ops@acme.test","categories":["cat"],"service_area":{"type":"radius"}}`,
			wantCode: "INVALID_SERVICE_AREA",
		},
		{
			name:     "radius area with non-positive radius",
			body:     `{"company_name":"Acme Plumbing","business_email":"ops@acme.test","categories":["cat"],"service_area":{"type":"radius","center_latitude":33.7,"center_longitude":-84.4,"radius_miles":0}}`,
			wantCode: "INVALID_SERVICE_AREA",
		},
		{
			name:     "zipcode area without zipcodes",
			body:     `{"company_name":"Acme Plumbing","business_email":"ops@acme.test","categories":["cat"],"service_area":{"type":"zipcodes"}}`,
			wantCode: "INVALID_SERVICE_AREA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/vendors/register", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			server.registerVendor(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decodeErrorCode(t, w))
		})
	}
}

func TestUpdateVendorValidation(t *testing.T) {
	server := &Server{}

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/api/v1/vendors/abc", strings.NewReader("{not json"))
		w := httptest.NewRecorder()

		server.updateVendor(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_BODY", decodeErrorCode(t, w))
	})

	t.Run("empty payload has no fields to update", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/api/v1/vendors/abc", strings.NewReader(`{}`))
		w := httptest.NewRecorder()

		server.updateVendor(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "NO_FIELDS", decodeErrorCode(t, w))
	})
}
