//go:build integration

package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fieldserve-api/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createApprovedDocument(t *testing.T, vendorID, expirationDate string) string {
	t.Helper()
	var docTypeID string
	require.NoError(t, testDB.QueryRow(`
		INSERT INTO document_types (name, validity_period_days)
		VALUES ($1, 365) RETURNING id`,
		"Policy "+uuid.NewString()[:8]).Scan(&docTypeID))

	var id string
	require.NoError(t, testDB.QueryRow(`
		INSERT INTO vendor_documents (vendor_id, document_type_id, file_name, file_path, status, expiration_date)
		VALUES ($1, $2, 'policy.pdf', '/uploads/policy.pdf', 'approved', $3)
		RETURNING id`, vendorID, docTypeID, expirationDate).Scan(&id))
	return id
}

func runSweep(t *testing.T) (created, expired int) {
	t.Helper()
	token := bearerToken(t, uuid.NewString(), "", "", "platform_admin")
	req := httptest.NewRequest("POST", "/api/v1/reminders/run", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	w := httptest.NewRecorder()

	testServer.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		RemindersCreated int `json:"reminders_created"`
		DocumentsExpired int `json:"documents_expired"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.RemindersCreated, resp.DocumentsExpired
}

func TestReminderSweep(t *testing.T) {
	testutil.RequireIntegration(t)

	categoryID := createCategory(t, "Sweep "+uuid.NewString()[:8])
	vendorID := createVendor(t, categoryID, "30301")

	// Expires in 10 days: inside the 60 and 30 day windows, outside the 5 day one
	expiringID := createApprovedDocument(t, vendorID, "2030-01-01")
	_, err := testDB.Exec(
		`UPDATE vendor_documents SET expiration_date = CURRENT_DATE + 10 WHERE id = $1`, expiringID)
	require.NoError(t, err)

	// Already past its expiration date
	lapsedID := createApprovedDocument(t, vendorID, "2020-01-01")

	_, expired := runSweep(t)
	assert.GreaterOrEqual(t, expired, 1)

	// The lapsed document was flipped to expired
	var status string
	require.NoError(t, testDB.QueryRow(
		`SELECT status FROM vendor_documents WHERE id = $1`, lapsedID).Scan(&status))
	assert.Equal(t, "expired", status)

	// The expiring document got one reminder per applicable window
	var days []int
	rows, err := testDB.Query(`
		SELECT reminder_days FROM document_reminders
		WHERE vendor_document_id = $1 ORDER BY reminder_days`, expiringID)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var d int
		require.NoError(t, rows.Scan(&d))
		days = append(days, d)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []int{30, 60}, days)

	// No reminders for the lapsed document; it is no longer approved
	var lapsedCount int
	require.NoError(t, testDB.QueryRow(
		`SELECT COUNT(*) FROM document_reminders WHERE vendor_document_id = $1`,
		lapsedID).Scan(&lapsedCount))
	assert.Equal(t, 0, lapsedCount)

	// A second sweep fires nothing new for the same document
	runSweep(t)
	var count int
	require.NoError(t, testDB.QueryRow(
		`SELECT COUNT(*) FROM document_reminders WHERE vendor_document_id = $1`,
		expiringID).Scan(&count))
	assert.Equal(t, 2, count)
}
