//go:build integration

package tests

import (
	"context"
	"sync"
	"testing"

	"fieldserve-api/internal/match"
	"fieldserve-api/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOpenWorkOrder(t *testing.T, categoryName string) (workOrderID string, tenantID string) {
	t.Helper()
	categoryID := createCategory(t, categoryName)
	tenantID = createTenant(t, "Assign Tenant "+uuid.NewString()[:8])
	skuID := createSku(t, tenantID, categoryID)
	workOrderID = createWorkOrder(t, tenantID, skuID, "30301")
	return workOrderID, tenantID
}

func TestConcurrentAcceptanceSingleWinner(t *testing.T) {
	testutil.RequireIntegration(t)

	workOrderID, _ := seedOpenWorkOrder(t, "Assign Concurrent "+uuid.NewString()[:8])
	categoryID := createCategory(t, "Assign Concurrent Cap "+uuid.NewString()[:8])

	const contenders = 8
	vendorIDs := make([]string, contenders)
	for i := range vendorIDs {
		vendorIDs[i] = createVendor(t, categoryID, "30301")
	}

	ledger := &match.Ledger{DB: testDB}
	require.NoError(t, ledger.RecordOffers(context.Background(), workOrderID, vendorIDs))

	coordinator := &match.Coordinator{DB: testDB}

	results := make([]match.AcceptResult, contenders)
	errs := make([]error, contenders)
	var wg sync.WaitGroup
	for i, vendorID := range vendorIDs {
		wg.Add(1)
		go func(i int, vendorID string) {
			defer wg.Done()
			results[i], errs[i] = coordinator.Accept(context.Background(), workOrderID, vendorID, nil)
		}(i, vendorID)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	var winner string
	assigned, conflicts := 0, 0
	for _, res := range results {
		switch res.Outcome {
		case match.OutcomeAssigned:
			assigned++
			winner = res.VendorID
			assert.Equal(t, "assigned", res.CurrentStatus)
			assert.False(t, res.AssignedAt.IsZero())
		case match.OutcomeConflict:
			conflicts++
			assert.Equal(t, "assigned", res.CurrentStatus)
			require.NotNil(t, res.AssignedVendorID)
		default:
			t.Fatalf("Unexpected outcome %v", res.Outcome)
		}
	}
	assert.Equal(t, 1, assigned, "exactly one contender must win")
	assert.Equal(t, contenders-1, conflicts)

	// Every loser's conflict result names the winner
	for _, res := range results {
		if res.Outcome == match.OutcomeConflict {
			assert.Equal(t, winner, *res.AssignedVendorID)
		}
	}

	var status string
	var assignedVendorID string
	err := testDB.QueryRow(
		`SELECT status, assigned_vendor_id FROM work_orders WHERE id = $1`,
		workOrderID).Scan(&status, &assignedVendorID)
	require.NoError(t, err)
	assert.Equal(t, "assigned", status)
	assert.Equal(t, winner, assignedVendorID)

	// Winner's offer flipped to accepted, every other offer auto-declined
	var accepted, declined int
	require.NoError(t, testDB.QueryRow(`
		SELECT COUNT(*) FILTER (WHERE response = 'accepted'),
		       COUNT(*) FILTER (WHERE response = 'declined_auto')
		FROM work_order_vendor_responses WHERE work_order_id = $1`,
		workOrderID).Scan(&accepted, &declined))
	assert.Equal(t, 1, accepted)
	assert.Equal(t, contenders-1, declined)
}

func TestRecordOffersIdempotent(t *testing.T) {
	testutil.RequireIntegration(t)

	workOrderID, _ := seedOpenWorkOrder(t, "Assign Idem "+uuid.NewString()[:8])
	categoryID := createCategory(t, "Assign Idem Cap "+uuid.NewString()[:8])
	vendorIDs := []string{
		createVendor(t, categoryID, "30301"),
		createVendor(t, categoryID, "30301"),
	}

	ledger := &match.Ledger{DB: testDB}
	require.NoError(t, ledger.RecordOffers(context.Background(), workOrderID, vendorIDs))
	require.NoError(t, ledger.RecordOffers(context.Background(), workOrderID, vendorIDs))

	var count int
	require.NoError(t, testDB.QueryRow(
		`SELECT COUNT(*) FROM work_order_vendor_responses WHERE work_order_id = $1`,
		workOrderID).Scan(&count))
	assert.Equal(t, len(vendorIDs), count)
}

func TestAcceptWithoutPriorOffer(t *testing.T) {
	testutil.RequireIntegration(t)

	workOrderID, _ := seedOpenWorkOrder(t, "Assign Walkup "+uuid.NewString()[:8])
	categoryID := createCategory(t, "Assign Walkup Cap "+uuid.NewString()[:8])
	vendorID := createVendor(t, categoryID, "30301")

	coordinator := &match.Coordinator{DB: testDB}
	res, err := coordinator.Accept(context.Background(), workOrderID, vendorID, nil)
	require.NoError(t, err)
	assert.Equal(t, match.OutcomeAssigned, res.Outcome)

	// An accepted response row is created even though the vendor was never notified
	var response string
	require.NoError(t, testDB.QueryRow(`
		SELECT response FROM work_order_vendor_responses
		WHERE work_order_id = $1 AND vendor_id = $2`,
		workOrderID, vendorID).Scan(&response))
	assert.Equal(t, "accepted", response)
}

func TestAcceptUnknownWorkOrder(t *testing.T) {
	testutil.RequireIntegration(t)

	coordinator := &match.Coordinator{DB: testDB}
	res, err := coordinator.Accept(context.Background(), uuid.NewString(), uuid.NewString(), nil)
	require.NoError(t, err)
	assert.Equal(t, match.OutcomeNotFound, res.Outcome)
}

func TestCompleteLifecycle(t *testing.T) {
	testutil.RequireIntegration(t)

	workOrderID, _ := seedOpenWorkOrder(t, "Assign Complete "+uuid.NewString()[:8])
	categoryID := createCategory(t, "Assign Complete Cap "+uuid.NewString()[:8])
	vendorID := createVendor(t, categoryID, "30301")

	coordinator := &match.Coordinator{DB: testDB}

	// Completing an unassigned work order is a conflict
	res, err := coordinator.Complete(context.Background(), workOrderID, nil)
	require.NoError(t, err)
	assert.Equal(t, match.OutcomeConflict, res.Outcome)
	assert.Equal(t, "created", res.CurrentStatus)

	acceptRes, err := coordinator.Accept(context.Background(), workOrderID, vendorID, nil)
	require.NoError(t, err)
	require.Equal(t, match.OutcomeAssigned, acceptRes.Outcome)

	notes := "All fixtures replaced"
	res, err = coordinator.Complete(context.Background(), workOrderID, &notes)
	require.NoError(t, err)
	assert.Equal(t, match.OutcomeCompleted, res.Outcome)
	assert.Equal(t, "completed", res.CurrentStatus)

	// Completion is not repeatable
	res, err = coordinator.Complete(context.Background(), workOrderID, nil)
	require.NoError(t, err)
	assert.Equal(t, match.OutcomeConflict, res.Outcome)
	assert.Equal(t, "completed", res.CurrentStatus)

	var storedNotes string
	require.NoError(t, testDB.QueryRow(
		`SELECT completion_notes FROM work_orders WHERE id = $1`,
		workOrderID).Scan(&storedNotes))
	assert.Equal(t, notes, storedNotes)

	res, err = coordinator.Complete(context.Background(), uuid.NewString(), nil)
	require.NoError(t, err)
	assert.Equal(t, match.OutcomeNotFound, res.Outcome)
}
