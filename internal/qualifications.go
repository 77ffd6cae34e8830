package internal

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"fieldserve-api/internal/auth"
	"fieldserve-api/internal/models"

	"github.com/go-chi/chi/v5"
)

func scanQualification(scan func(...any) error, qual *models.Qualification) error {
	return scan(&qual.ID, &qual.VendorID, &qual.TenantID, &qual.Status,
		&qual.QualifiedAt, &qual.QualifiedBy,
		&qual.DisqualifiedAt, &qual.DisqualifiedBy, &qual.DisqualificationReason,
		&qual.Notes, &qual.CreatedAt, &qual.UpdatedAt)
}

const qualificationColumns = `id, vendor_id, tenant_id, status,
		       qualified_at, qualified_by,
		       disqualified_at, disqualified_by, disqualification_reason,
		       notes, created_at, updated_at`

// qualifyVendor marks a vendor qualified for the caller's tenant. The row is
// upserted; re-qualifying a disqualified vendor clears the disqualification.
func (s *Server) qualifyVendor(w http.ResponseWriter, r *http.Request) {
	vendorID := chi.URLParam(r, "id")
	tenantID := auth.TenantIDFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	if tenantID == "" {
		writeError(w, http.StatusForbidden, "MISSING_TENANT", "Qualification requires a tenant context")
		return
	}

	var req models.QualifyVendorRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
			return
		}
	}

	q := dbFrom(r.Context(), s.DB)
	var qual models.Qualification
	err := scanQualification(q.QueryRowContext(r.Context(), `
		INSERT INTO vendor_tenant_qualifications (vendor_id, tenant_id, status, qualified_at, qualified_by, notes)
		VALUES ($1, $2, 'qualified', CURRENT_TIMESTAMP, $3, $4)
		ON CONFLICT (vendor_id, tenant_id) DO UPDATE
		SET status = 'qualified', qualified_at = CURRENT_TIMESTAMP, qualified_by = $3,
		    disqualified_at = NULL, disqualified_by = NULL, disqualification_reason = NULL,
		    notes = COALESCE($4, vendor_tenant_qualifications.notes),
		    updated_at = CURRENT_TIMESTAMP
		RETURNING `+qualificationColumns,
		vendorID, tenantID, userID, req.Notes).Scan, &qual)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Vendor not found")
			return
		}
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, qual)
}

// disqualifyVendor marks a vendor disqualified for the caller's tenant.
// A reason is mandatory.
func (s *Server) disqualifyVendor(w http.ResponseWriter, r *http.Request) {
	vendorID := chi.URLParam(r, "id")
	tenantID := auth.TenantIDFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	if tenantID == "" {
		writeError(w, http.StatusForbidden, "MISSING_TENANT", "Disqualification requires a tenant context")
		return
	}

	var req models.DisqualifyVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "MISSING_REASON", "A disqualification reason is required")
		return
	}

	q := dbFrom(r.Context(), s.DB)
	var qual models.Qualification
	err := scanQualification(q.QueryRowContext(r.Context(), `
		INSERT INTO vendor_tenant_qualifications (vendor_id, tenant_id, status, disqualified_at, disqualified_by, disqualification_reason)
		VALUES ($1, $2, 'disqualified', CURRENT_TIMESTAMP, $3, $4)
		ON CONFLICT (vendor_id, tenant_id) DO UPDATE
		SET status = 'disqualified', disqualified_at = CURRENT_TIMESTAMP, disqualified_by = $3,
		    disqualification_reason = $4,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING `+qualificationColumns,
		vendorID, tenantID, userID, req.Reason).Scan, &qual)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Vendor not found")
			return
		}
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, qual)
}

// listVendorQualifications returns a vendor's qualification rows. Tenant
// callers see only their own tenant's row.
func (s *Server) listVendorQualifications(w http.ResponseWriter, r *http.Request) {
	vendorID := chi.URLParam(r, "id")
	tenantID := auth.TenantIDFromContext(r.Context())

	query := `
		SELECT ` + qualificationColumns + `
		FROM vendor_tenant_qualifications
		WHERE vendor_id = $1`
	args := []interface{}{vendorID}
	if tenantID != "" {
		query += " AND tenant_id = $2"
		args = append(args, tenantID)
	}
	query += " ORDER BY updated_at DESC"

	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), query, args...)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	qualifications := []models.Qualification{}
	for rows.Next() {
		var qual models.Qualification
		if err := scanQualification(rows.Scan, &qual); err != nil {
			serverError(w)
			return
		}
		qualifications = append(qualifications, qual)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vendor_id":      vendorID,
		"qualifications": qualifications,
		"total":          len(qualifications),
	})
}

// listPendingQualifications returns registered vendors the caller's tenant
// has not yet decided on.
func (s *Server) listPendingQualifications(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		writeError(w, http.StatusForbidden, "MISSING_TENANT", "A tenant context is required")
		return
	}

	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), `
		SELECT v.id, v.company_name, v.business_email, v.registration_status, v.created_at
		FROM vendors v
		WHERE v.registration_status = 'registered'
		AND NOT EXISTS (
			SELECT 1 FROM vendor_tenant_qualifications vtq
			WHERE vtq.vendor_id = v.id AND vtq.tenant_id = $1
			AND vtq.status IN ('qualified', 'disqualified')
		)
		ORDER BY v.created_at`, tenantID)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	type pendingVendor struct {
		VendorID           string `json:"vendor_id"`
		CompanyName        string `json:"company_name"`
		BusinessEmail      string `json:"business_email"`
		RegistrationStatus string `json:"registration_status"`
		RegisteredAt       string `json:"registered_at"`
	}

	pending := []pendingVendor{}
	for rows.Next() {
		var pv pendingVendor
		var createdAt sql.NullTime
		if err := rows.Scan(&pv.VendorID, &pv.CompanyName, &pv.BusinessEmail, &pv.RegistrationStatus, &createdAt); err != nil {
			serverError(w)
			return
		}
		if createdAt.Valid {
			pv.RegisteredAt = createdAt.Time.Format("2006-01-02")
		}
		pending = append(pending, pv)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vendors": pending,
		"total":   len(pending),
	})
}

// listQualifiedVendors returns the vendors the caller's tenant has qualified
func (s *Server) listQualifiedVendors(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		writeError(w, http.StatusForbidden, "MISSING_TENANT", "A tenant context is required")
		return
	}

	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), `
		SELECT v.id, v.company_name, v.business_email, v.business_phone,
		       vtq.qualified_at, vtq.notes
		FROM vendors v
		INNER JOIN vendor_tenant_qualifications vtq ON vtq.vendor_id = v.id
		WHERE vtq.tenant_id = $1 AND vtq.status = 'qualified'
		ORDER BY v.company_name`, tenantID)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	type qualifiedVendor struct {
		VendorID      string  `json:"vendor_id"`
		CompanyName   string  `json:"company_name"`
		BusinessEmail string  `json:"business_email"`
		BusinessPhone *string `json:"business_phone,omitempty"`
		QualifiedAt   *string `json:"qualified_at,omitempty"`
		Notes         *string `json:"notes,omitempty"`
	}

	vendors := []qualifiedVendor{}
	for rows.Next() {
		var qv qualifiedVendor
		var qualifiedAt sql.NullTime
		if err := rows.Scan(&qv.VendorID, &qv.CompanyName, &qv.BusinessEmail, &qv.BusinessPhone,
			&qualifiedAt, &qv.Notes); err != nil {
			serverError(w)
			return
		}
		if qualifiedAt.Valid {
			formatted := qualifiedAt.Time.Format("2006-01-02")
			qv.QualifiedAt = &formatted
		}
		vendors = append(vendors, qv)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vendors": vendors,
		"total":   len(vendors),
	})
}
