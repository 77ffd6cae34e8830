package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"fieldserve-api/internal/models"

	"github.com/go-chi/chi/v5"
)

// registerVendor creates a vendor with its service area and capabilities in
// one transaction. Registration is open; the vendor starts as 'registered'
// and individual tenants decide qualification separately.
func (s *Server) registerVendor(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if req.CompanyName == "" || req.BusinessEmail == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "company_name and business_email are required")
		return
	}
	if len(req.Categories) == 0 {
		writeError(w, http.StatusBadRequest, "MISSING_CATEGORIES", "At least one service category is required")
		return
	}

	switch req.ServiceArea.Type {
	case "radius":
		if req.ServiceArea.CenterLatitude == nil || req.ServiceArea.CenterLongitude == nil ||
			req.ServiceArea.RadiusMiles == nil || *req.ServiceArea.RadiusMiles <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_SERVICE_AREA",
				"Radius service area requires center_latitude, center_longitude, and a positive radius_miles")
			return
		}
	case "zipcodes":
		if len(req.ServiceArea.Zipcodes) == 0 {
			writeError(w, http.StatusBadRequest, "INVALID_SERVICE_AREA",
				"Zipcode service area requires at least one zipcode")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "INVALID_SERVICE_AREA",
			"service_area.type must be 'radius' or 'zipcodes'")
		return
	}

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		serverError(w)
		return
	}
	defer tx.Rollback()

	vendor := models.Vendor{
		CompanyName:        req.CompanyName,
		BusinessEmail:      req.BusinessEmail,
		BusinessPhone:      req.BusinessPhone,
		BusinessAddress:    req.BusinessAddress,
		RegistrationStatus: "registered",
	}

	err = tx.QueryRowContext(r.Context(), `
		INSERT INTO vendors (company_name, business_email, business_phone, business_address, registration_status)
		VALUES ($1, $2, $3, $4, 'registered')
		RETURNING id, created_at, updated_at`,
		req.CompanyName, req.BusinessEmail, nullIfEmpty(req.BusinessPhone), nullIfEmpty(req.BusinessAddress)).
		Scan(&vendor.ID, &vendor.CreatedAt, &vendor.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			writeError(w, http.StatusConflict, "DUPLICATE_EMAIL", "A vendor with this business email already exists")
			return
		}
		serverError(w)
		return
	}

	switch req.ServiceArea.Type {
	case "radius":
		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO vendor_service_areas_radius (vendor_id, center_address, center_latitude, center_longitude, radius_miles)
			VALUES ($1, $2, $3, $4, $5)`,
			vendor.ID, req.ServiceArea.CenterAddress,
			*req.ServiceArea.CenterLatitude, *req.ServiceArea.CenterLongitude, *req.ServiceArea.RadiusMiles)
		if err != nil {
			serverError(w)
			return
		}
	case "zipcodes":
		for _, zip := range req.ServiceArea.Zipcodes {
			_, err = tx.ExecContext(r.Context(), `
				INSERT INTO vendor_service_areas_zipcodes (vendor_id, zipcode)
				VALUES ($1, $2)
				ON CONFLICT (vendor_id, zipcode) DO NOTHING`, vendor.ID, zip)
			if err != nil {
				serverError(w)
				return
			}
		}
	}

	for _, categoryID := range req.Categories {
		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO vendor_capabilities (vendor_id, category_id)
			VALUES ($1, $2)
			ON CONFLICT (vendor_id, category_id) DO NOTHING`, vendor.ID, categoryID)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
				writeError(w, http.StatusBadRequest, "INVALID_CATEGORY", "Unknown service category: "+categoryID)
				return
			}
			serverError(w)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusCreated, vendor)
}

// listVendors with filters & pagination
func (s *Server) listVendors(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if status := r.URL.Query().Get("status"); status != "" {
		clauses = append(clauses, fmt.Sprintf("v.registration_status = $%d", arg))
		args = append(args, status)
		arg++
	}
	if zipcode := r.URL.Query().Get("zipcode"); zipcode != "" {
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM vendor_service_areas_zipcodes z WHERE z.vendor_id = v.id AND z.zipcode = $%d)", arg))
		args = append(args, zipcode)
		arg++
	}
	if category := r.URL.Query().Get("category_id"); category != "" {
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM vendor_capabilities c WHERE c.vendor_id = v.id AND c.category_id = $%d)", arg))
		args = append(args, category)
		arg++
	}
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(v.company_name ILIKE $%d OR v.business_email ILIKE $%d)", arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	sqlStr := fmt.Sprintf(`
		SELECT v.id, v.company_name, v.business_email, v.business_phone, v.business_address,
		       v.website, v.registration_status, v.created_at, v.updated_at,
		       COUNT(*) OVER() as total_count
		FROM vendors v%s`, whereClause)

	allowedSort := map[string]string{
		"company_name": "v.company_name",
		"created_at":   "v.created_at",
		"updated_at":   "v.updated_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort, "v.created_at DESC")
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	vendors := []interface{}{}
	var totalCount int
	for rows.Next() {
		var v models.Vendor
		if err := rows.Scan(&v.ID, &v.CompanyName, &v.BusinessEmail, &v.BusinessPhone, &v.BusinessAddress,
			&v.Website, &v.RegistrationStatus, &v.CreatedAt, &v.UpdatedAt, &totalCount); err != nil {
			serverError(w)
			return
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	sendListResponse(w, "vendors", vendors, totalCount, params)
}

// getVendorProfile returns a vendor with its service areas and capabilities
func (s *Server) getVendorProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := dbFrom(r.Context(), s.DB)

	var profile models.VendorProfile
	err := q.QueryRowContext(r.Context(), `
		SELECT id, company_name, business_email, business_phone, business_address,
		       website, registration_status, created_at, updated_at
		FROM vendors WHERE id = $1`, id).Scan(
		&profile.ID, &profile.CompanyName, &profile.BusinessEmail, &profile.BusinessPhone,
		&profile.BusinessAddress, &profile.Website, &profile.RegistrationStatus,
		&profile.CreatedAt, &profile.UpdatedAt)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Vendor not found")
		return
	}
	if err != nil {
		serverError(w)
		return
	}

	profile.ServiceAreas.Radius = []models.RadiusServiceArea{}
	radRows, err := q.QueryContext(r.Context(), `
		SELECT id, vendor_id, center_address, center_latitude, center_longitude, radius_miles
		FROM vendor_service_areas_radius WHERE vendor_id = $1`, id)
	if err != nil {
		serverError(w)
		return
	}
	defer radRows.Close()
	for radRows.Next() {
		var area models.RadiusServiceArea
		if err := radRows.Scan(&area.ID, &area.VendorID, &area.CenterAddress,
			&area.CenterLatitude, &area.CenterLongitude, &area.RadiusMiles); err != nil {
			serverError(w)
			return
		}
		profile.ServiceAreas.Radius = append(profile.ServiceAreas.Radius, area)
	}
	if err := radRows.Err(); err != nil {
		serverError(w)
		return
	}

	profile.ServiceAreas.Zipcodes = []string{}
	zipRows, err := q.QueryContext(r.Context(),
		`SELECT zipcode FROM vendor_service_areas_zipcodes WHERE vendor_id = $1 ORDER BY zipcode`, id)
	if err != nil {
		serverError(w)
		return
	}
	defer zipRows.Close()
	for zipRows.Next() {
		var zip string
		if err := zipRows.Scan(&zip); err != nil {
			serverError(w)
			return
		}
		profile.ServiceAreas.Zipcodes = append(profile.ServiceAreas.Zipcodes, zip)
	}
	if err := zipRows.Err(); err != nil {
		serverError(w)
		return
	}

	profile.Capabilities = []models.VendorCapability{}
	capRows, err := q.QueryContext(r.Context(), `
		SELECT vc.category_id, sc.name
		FROM vendor_capabilities vc
		INNER JOIN service_categories sc ON sc.id = vc.category_id
		WHERE vc.vendor_id = $1
		ORDER BY sc.name`, id)
	if err != nil {
		serverError(w)
		return
	}
	defer capRows.Close()
	for capRows.Next() {
		var c models.VendorCapability
		if err := capRows.Scan(&c.CategoryID, &c.CategoryName); err != nil {
			serverError(w)
			return
		}
		profile.Capabilities = append(profile.Capabilities, c)
	}
	if err := capRows.Err(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) updateVendor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	if req.CompanyName != nil {
		setParts = append(setParts, fmt.Sprintf("company_name = $%d", argIndex))
		args = append(args, *req.CompanyName)
		argIndex++
	}
	if req.BusinessEmail != nil {
		setParts = append(setParts, fmt.Sprintf("business_email = $%d", argIndex))
		args = append(args, *req.BusinessEmail)
		argIndex++
	}
	// Blank strings clear the stored value rather than persisting ""
	if req.BusinessPhone != nil {
		setParts = append(setParts, fmt.Sprintf("business_phone = $%d", argIndex))
		args = append(args, nullIfEmpty(req.BusinessPhone))
		argIndex++
	}
	if req.BusinessAddress != nil {
		setParts = append(setParts, fmt.Sprintf("business_address = $%d", argIndex))
		args = append(args, nullIfEmpty(req.BusinessAddress))
		argIndex++
	}
	if req.Website != nil {
		setParts = append(setParts, fmt.Sprintf("website = $%d", argIndex))
		args = append(args, nullIfEmpty(req.Website))
		argIndex++
	}

	if len(setParts) == 0 {
		writeError(w, http.StatusBadRequest, "NO_FIELDS", "No fields to update")
		return
	}

	setParts = append(setParts, "updated_at = now()")
	updateQuery := fmt.Sprintf(`
		UPDATE vendors
		SET %s
		WHERE id = $%d
		RETURNING id, company_name, business_email, business_phone, business_address,
		          website, registration_status, created_at, updated_at`,
		strings.Join(setParts, ", "), argIndex)
	args = append(args, id)

	q := dbFrom(r.Context(), s.DB)
	var v models.Vendor
	err := q.QueryRowContext(r.Context(), updateQuery, args...).Scan(
		&v.ID, &v.CompanyName, &v.BusinessEmail, &v.BusinessPhone, &v.BusinessAddress,
		&v.Website, &v.RegistrationStatus, &v.CreatedAt, &v.UpdatedAt)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Vendor not found")
		return
	}
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			writeError(w, http.StatusConflict, "DUPLICATE_EMAIL", "A vendor with this business email already exists")
			return
		}
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, v)
}
