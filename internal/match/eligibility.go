package match

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the subset of *sql.DB / *sql.Conn the matching queries need.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WorkOrderSite describes the work order attributes eligibility depends on.
type WorkOrderSite struct {
	CategoryID string
	Zip        string
	Coord      *Point // nil when the work order has no latitude/longitude
	TenantID   string // empty disables tenant-qualification gating
}

// VendorMatch is one eligible vendor for a work order.
type VendorMatch struct {
	VendorID      string   `json:"vendor_id"`
	CompanyName   string   `json:"company_name"`
	BusinessEmail string   `json:"business_email"`
	DistanceMiles *float64 `json:"distance_miles,omitempty"`
}

// Filter computes the candidate vendor set for a work order: category
// capability, registered status, document compliance, and service-area
// coverage, optionally restricted to vendors the tenant has qualified.
type Filter struct {
	DB Querier
}

// documentCompliance excludes vendors holding any required document that is
// not approved or has expired. Missing compliance fails closed.
const documentCompliance = `NOT EXISTS (
		SELECT 1 FROM vendor_documents vd
		INNER JOIN document_types dt ON vd.document_type_id = dt.id
		WHERE vd.vendor_id = v.id
		AND dt.is_required = true
		AND (vd.status != 'approved' OR vd.expiration_date < CURRENT_DATE)
	)`

// FindEligibleVendors returns the deduplicated set of vendors whose service
// area covers the site. A vendor qualifies through either its ZIP set or a
// radius area; radius matches carry the computed distance. An empty result
// means no coverage and is not an error.
func (f *Filter) FindEligibleVendors(ctx context.Context, wo WorkOrderSite) ([]VendorMatch, error) {
	site := Site{Zip: wo.Zip, Coord: wo.Coord}

	matched := map[string]*VendorMatch{}
	var order []string

	zipRows, err := f.DB.QueryContext(ctx, `
		SELECT v.id, v.company_name, v.business_email, vsaz.zipcode
		FROM vendors v
		INNER JOIN vendor_service_areas_zipcodes vsaz ON vsaz.vendor_id = v.id
		INNER JOIN vendor_capabilities vc ON vc.vendor_id = v.id
		WHERE vc.category_id = $1
		AND v.registration_status = 'registered'
		AND `+documentCompliance, wo.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("query zipcode candidates: %w", err)
	}
	defer zipRows.Close()

	type zipCandidate struct {
		match VendorMatch
		zips  []string
	}
	zipCandidates := map[string]*zipCandidate{}
	var zipOrder []string
	for zipRows.Next() {
		var m VendorMatch
		var zip string
		if err := zipRows.Scan(&m.VendorID, &m.CompanyName, &m.BusinessEmail, &zip); err != nil {
			return nil, err
		}
		c, ok := zipCandidates[m.VendorID]
		if !ok {
			c = &zipCandidate{match: m}
			zipCandidates[m.VendorID] = c
			zipOrder = append(zipOrder, m.VendorID)
		}
		c.zips = append(c.zips, zip)
	}
	if err := zipRows.Err(); err != nil {
		return nil, err
	}

	for _, id := range zipOrder {
		c := zipCandidates[id]
		if NewZipSetArea(c.zips).Covers(site) {
			m := c.match
			matched[id] = &m
			order = append(order, id)
		}
	}

	radiusRows, err := f.DB.QueryContext(ctx, `
		SELECT v.id, v.company_name, v.business_email,
		       vsar.center_latitude, vsar.center_longitude, vsar.radius_miles
		FROM vendors v
		INNER JOIN vendor_service_areas_radius vsar ON vsar.vendor_id = v.id
		INNER JOIN vendor_capabilities vc ON vc.vendor_id = v.id
		WHERE vc.category_id = $1
		AND v.registration_status = 'registered'
		AND `+documentCompliance, wo.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("query radius candidates: %w", err)
	}
	defer radiusRows.Close()

	for radiusRows.Next() {
		var m VendorMatch
		var area RadiusArea
		if err := radiusRows.Scan(&m.VendorID, &m.CompanyName, &m.BusinessEmail,
			&area.Center.Lat, &area.Center.Lng, &area.RadiusMiles); err != nil {
			return nil, err
		}
		if !area.Covers(site) {
			continue
		}
		if existing, ok := matched[m.VendorID]; ok {
			// Already matched by ZIP; record the distance on the same entry.
			if existing.DistanceMiles == nil && site.Coord != nil {
				d := Haversine(area.Center, *site.Coord)
				existing.DistanceMiles = &d
			}
			continue
		}
		d := Haversine(area.Center, *site.Coord)
		m.DistanceMiles = &d
		matched[m.VendorID] = &m
		order = append(order, m.VendorID)
	}
	if err := radiusRows.Err(); err != nil {
		return nil, err
	}

	results := make([]VendorMatch, 0, len(order))
	for _, id := range order {
		results = append(results, *matched[id])
	}

	if wo.TenantID == "" {
		return results, nil
	}
	return f.filterQualified(ctx, wo.TenantID, results)
}

// filterQualified restricts matches to vendors the tenant has marked
// qualified. Gating is opt-in per tenant: a tenant with no qualification
// rows at all has no qualification program, and its matches pass through
// untouched.
func (f *Filter) filterQualified(ctx context.Context, tenantID string, matches []VendorMatch) ([]VendorMatch, error) {
	rows, err := f.DB.QueryContext(ctx, `
		SELECT vendor_id, status FROM vendor_tenant_qualifications
		WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query tenant qualifications: %w", err)
	}
	defer rows.Close()

	total := 0
	qualified := map[string]struct{}{}
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		total++
		if status == "qualified" {
			qualified[id] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if total == 0 {
		return matches, nil
	}

	kept := make([]VendorMatch, 0, len(matches))
	for _, m := range matches {
		if _, ok := qualified[m.VendorID]; ok {
			kept = append(kept, m)
		}
	}
	return kept, nil
}
