//go:build integration

package tests

import (
	"context"
	"testing"

	"fieldserve-api/internal/match"
	"fieldserve-api/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchedVendorIDs(matches []match.VendorMatch) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.VendorID)
	}
	return ids
}

func addRadiusArea(t *testing.T, vendorID string, lat, lng, radiusMiles float64) {
	t.Helper()
	_, err := testDB.Exec(`
		INSERT INTO vendor_service_areas_radius (vendor_id, center_latitude, center_longitude, radius_miles)
		VALUES ($1, $2, $3, $4)`, vendorID, lat, lng, radiusMiles)
	require.NoError(t, err)
}

func addRequiredDocument(t *testing.T, vendorID, status, expirationDate string) {
	t.Helper()
	var docTypeID string
	require.NoError(t, testDB.QueryRow(`
		INSERT INTO document_types (name, is_required)
		VALUES ($1, true) RETURNING id`,
		"Required Doc "+uuid.NewString()[:8]).Scan(&docTypeID))
	var expiration interface{}
	if expirationDate != "" {
		expiration = expirationDate
	}
	_, err := testDB.Exec(`
		INSERT INTO vendor_documents (vendor_id, document_type_id, file_name, file_path, status, expiration_date)
		VALUES ($1, $2, 'doc.pdf', '/uploads/doc.pdf', $3, $4)`,
		vendorID, docTypeID, status, expiration)
	require.NoError(t, err)
}

func TestEligibilityZipCoverage(t *testing.T) {
	testutil.RequireIntegration(t)

	categoryID := createCategory(t, "Elig Zip "+uuid.NewString()[:8])
	inArea := createVendor(t, categoryID, "30301", "30302")
	outOfArea := createVendor(t, categoryID, "60601")

	filter := &match.Filter{DB: testDB}
	matches, err := filter.FindEligibleVendors(context.Background(), match.WorkOrderSite{
		CategoryID: categoryID,
		Zip:        "30301",
	})
	require.NoError(t, err)

	ids := matchedVendorIDs(matches)
	assert.Contains(t, ids, inArea)
	assert.NotContains(t, ids, outOfArea)
}

func TestEligibilityCategoryMismatch(t *testing.T) {
	testutil.RequireIntegration(t)

	plumbingID := createCategory(t, "Elig Plumbing "+uuid.NewString()[:8])
	electricalID := createCategory(t, "Elig Electrical "+uuid.NewString()[:8])
	plumber := createVendor(t, plumbingID, "30301")

	filter := &match.Filter{DB: testDB}
	matches, err := filter.FindEligibleVendors(context.Background(), match.WorkOrderSite{
		CategoryID: electricalID,
		Zip:        "30301",
	})
	require.NoError(t, err)
	assert.NotContains(t, matchedVendorIDs(matches), plumber)
}

func TestEligibilityRadiusCoverage(t *testing.T) {
	testutil.RequireIntegration(t)

	categoryID := createCategory(t, "Elig Radius "+uuid.NewString()[:8])

	// Downtown Atlanta center, 50 mile radius
	nearby := createVendor(t, categoryID)
	addRadiusArea(t, nearby, 33.749, -84.388, 50)

	// Chicago center, far outside the site
	distant := createVendor(t, categoryID)
	addRadiusArea(t, distant, 41.878, -87.630, 50)

	filter := &match.Filter{DB: testDB}

	// Site a few miles from the Atlanta center
	site := match.WorkOrderSite{
		CategoryID: categoryID,
		Zip:        "30305",
		Coord:      &match.Point{Lat: 33.839, Lng: -84.379},
	}
	matches, err := filter.FindEligibleVendors(context.Background(), site)
	require.NoError(t, err)

	ids := matchedVendorIDs(matches)
	require.Contains(t, ids, nearby)
	assert.NotContains(t, ids, distant)

	for _, m := range matches {
		if m.VendorID == nearby {
			require.NotNil(t, m.DistanceMiles)
			assert.Less(t, *m.DistanceMiles, 50.0)
		}
	}

	// Without coordinates radius areas cannot cover the site
	matches, err = filter.FindEligibleVendors(context.Background(), match.WorkOrderSite{
		CategoryID: categoryID,
		Zip:        "30305",
	})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEligibilityDocumentCompliance(t *testing.T) {
	testutil.RequireIntegration(t)

	categoryID := createCategory(t, "Elig Docs "+uuid.NewString()[:8])

	clean := createVendor(t, categoryID, "30301")
	expired := createVendor(t, categoryID, "30301")
	addRequiredDocument(t, expired, "approved", "2020-01-01")
	pending := createVendor(t, categoryID, "30301")
	addRequiredDocument(t, pending, "pending", "")
	current := createVendor(t, categoryID, "30301")
	addRequiredDocument(t, current, "approved", "2030-01-01")

	filter := &match.Filter{DB: testDB}
	matches, err := filter.FindEligibleVendors(context.Background(), match.WorkOrderSite{
		CategoryID: categoryID,
		Zip:        "30301",
	})
	require.NoError(t, err)

	ids := matchedVendorIDs(matches)
	assert.Contains(t, ids, clean)
	assert.Contains(t, ids, current)
	assert.NotContains(t, ids, expired, "expired required document must exclude the vendor")
	assert.NotContains(t, ids, pending, "unapproved required document must exclude the vendor")
}

func TestEligibilityTenantQualificationGating(t *testing.T) {
	testutil.RequireIntegration(t)

	categoryID := createCategory(t, "Elig Qual "+uuid.NewString()[:8])
	tenantID := createTenant(t, "Elig Qual Tenant "+uuid.NewString()[:8])

	qualified := createVendor(t, categoryID, "30301")
	unvetted := createVendor(t, categoryID, "30301")

	filter := &match.Filter{DB: testDB}
	site := match.WorkOrderSite{
		CategoryID: categoryID,
		Zip:        "30301",
		TenantID:   tenantID,
	}

	// No qualification rows: the tenant has no qualification program and
	// every covered vendor passes.
	matches, err := filter.FindEligibleVendors(context.Background(), site)
	require.NoError(t, err)
	ids := matchedVendorIDs(matches)
	assert.Contains(t, ids, qualified)
	assert.Contains(t, ids, unvetted)

	// One qualified row activates gating for the whole tenant
	_, err = testDB.Exec(`
		INSERT INTO vendor_tenant_qualifications (vendor_id, tenant_id, status, qualified_at)
		VALUES ($1, $2, 'qualified', now())`, qualified, tenantID)
	require.NoError(t, err)

	matches, err = filter.FindEligibleVendors(context.Background(), site)
	require.NoError(t, err)
	ids = matchedVendorIDs(matches)
	assert.Contains(t, ids, qualified)
	assert.NotContains(t, ids, unvetted)

	// A pending qualification does not readmit the vendor
	_, err = testDB.Exec(`
		INSERT INTO vendor_tenant_qualifications (vendor_id, tenant_id, status)
		VALUES ($1, $2, 'pending')`, unvetted, tenantID)
	require.NoError(t, err)

	matches, err = filter.FindEligibleVendors(context.Background(), site)
	require.NoError(t, err)
	assert.NotContains(t, matchedVendorIDs(matches), unvetted)
}
