package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fieldserve-api/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error.Code
}

func TestCreateWorkOrderInvalidBody(t *testing.T) {
	server := &Server{}

	req := httptest.NewRequest("POST", "/api/v1/work-orders", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	server.createWorkOrder(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_BODY", decodeErrorCode(t, w))
}

func TestCreateWorkOrderMissingTenant(t *testing.T) {
	server := &Server{}

	// No tenant in the token and none in the payload
	req := httptest.NewRequest("POST", "/api/v1/work-orders", strings.NewReader(`{"title":"Leaky faucet"}`))
	w := httptest.NewRecorder()

	server.createWorkOrder(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "MISSING_TENANT", decodeErrorCode(t, w))
}

func TestCreateWorkOrderMissingFields(t *testing.T) {
	server := &Server{}

	req := httptest.NewRequest("POST", "/api/v1/work-orders", strings.NewReader(`{"title":"Leaky faucet"}`))
	ctx := context.WithValue(req.Context(), auth.TenantIDKey, "6a0f3f7e-0000-0000-0000-000000000001")
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	server.createWorkOrder(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "MISSING_FIELDS", decodeErrorCode(t, w))
}

func TestAcceptWorkOrderInvalidBody(t *testing.T) {
	server := &Server{}

	req := httptest.NewRequest("POST", "/api/v1/work-orders/abc/accept", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	server.acceptWorkOrder(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_BODY", decodeErrorCode(t, w))
}

func TestAcceptWorkOrderMissingVendor(t *testing.T) {
	server := &Server{}

	// No vendor in the token and none in the payload
	req := httptest.NewRequest("POST", "/api/v1/work-orders/abc/accept", nil)
	w := httptest.NewRecorder()

	server.acceptWorkOrder(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "MISSING_VENDOR", decodeErrorCode(t, w))
}

func TestCompleteWorkOrderInvalidBody(t *testing.T) {
	server := &Server{}

	req := httptest.NewRequest("POST", "/api/v1/work-orders/abc/complete", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	server.completeWorkOrder(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_BODY", decodeErrorCode(t, w))
}
