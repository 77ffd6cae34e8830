package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"fieldserve-api/internal/auth"
	"fieldserve-api/internal/match"
	"fieldserve-api/internal/models"

	"github.com/go-chi/chi/v5"
)

// workOrderDetail is a work order plus its line items
type workOrderDetail struct {
	models.WorkOrder
	LineItems []models.LineItem `json:"line_items"`
}

// LIST with filters & pagination, scoped by the caller's role
func (s *Server) listWorkOrders(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	claims := auth.ClaimsFromContext(r.Context())

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	// Tenant admins see their tenant's orders, vendors see their assignments,
	// platform admins see everything (optionally filtered by tenant_id).
	switch {
	case claims.HasRole("platform_admin"):
		if tid := r.URL.Query().Get("tenant_id"); tid != "" {
			clauses = append(clauses, fmt.Sprintf("tenant_id = $%d", arg))
			args = append(args, tid)
			arg++
		}
	case claims.HasRole("vendor"):
		clauses = append(clauses, fmt.Sprintf("assigned_vendor_id = $%d", arg))
		args = append(args, auth.VendorIDFromContext(r.Context()))
		arg++
	default:
		clauses = append(clauses, fmt.Sprintf("tenant_id = $%d", arg))
		args = append(args, auth.TenantIDFromContext(r.Context()))
		arg++
	}

	if status := r.URL.Query().Get("status"); status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", arg))
		args = append(args, status)
		arg++
	}
	if priority := r.URL.Query().Get("priority"); priority != "" {
		clauses = append(clauses, fmt.Sprintf("priority = $%d", arg))
		args = append(args, priority)
		arg++
	}
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR address ILIKE $%d)", arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	sqlStr := fmt.Sprintf(`
		SELECT id, tenant_id, created_by, sku_id, title, description, priority,
		       address, zipcode, latitude, longitude,
		       customer_name, customer_phone, customer_email,
		       preferred_date, preferred_time_start, preferred_time_end,
		       vendor_selection_method, status, assigned_vendor_id, assigned_at,
		       completed_at, completion_notes, created_at, updated_at,
		       COUNT(*) OVER() as total_count
		FROM work_orders%s`, whereClause)

	allowedSort := map[string]string{
		"created_at":     "created_at",
		"updated_at":     "updated_at",
		"preferred_date": "preferred_date",
		"priority":       "priority",
		"status":         "status",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort, "created_at DESC")
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	orders := []interface{}{}
	var totalCount int
	for rows.Next() {
		var wo models.WorkOrder
		if err := scanWorkOrder(rows.Scan, &wo, &totalCount); err != nil {
			serverError(w)
			return
		}
		orders = append(orders, wo)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	sendListResponse(w, "work_orders", orders, totalCount, params)
}

// scanWorkOrder maps one work_orders row through a scan function. extra
// receivers (e.g. a COUNT(*) OVER() column) are appended after the row fields.
func scanWorkOrder(scan func(...any) error, wo *models.WorkOrder, extra ...any) error {
	dest := []any{
		&wo.ID, &wo.TenantID, &wo.CreatedBy, &wo.SkuID, &wo.Title, &wo.Description, &wo.Priority,
		&wo.Address, &wo.Zipcode, &wo.Latitude, &wo.Longitude,
		&wo.CustomerName, &wo.CustomerPhone, &wo.CustomerEmail,
		&wo.PreferredDate, &wo.PreferredTimeStart, &wo.PreferredTimeEnd,
		&wo.VendorSelectionMethod, &wo.Status, &wo.AssignedVendorID, &wo.AssignedAt,
		&wo.CompletedAt, &wo.CompletionNotes, &wo.CreatedAt, &wo.UpdatedAt,
	}
	dest = append(dest, extra...)
	return scan(dest...)
}

func (s *Server) getWorkOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var detail workOrderDetail
	q := dbFrom(r.Context(), s.DB)
	row := q.QueryRowContext(r.Context(), `
		SELECT id, tenant_id, created_by, sku_id, title, description, priority,
		       address, zipcode, latitude, longitude,
		       customer_name, customer_phone, customer_email,
		       preferred_date, preferred_time_start, preferred_time_end,
		       vendor_selection_method, status, assigned_vendor_id, assigned_at,
		       completed_at, completion_notes, created_at, updated_at
		FROM work_orders WHERE id = $1`, id)
	err := scanWorkOrder(row.Scan, &detail.WorkOrder)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Work order not found")
		return
	}
	if err != nil {
		serverError(w)
		return
	}

	rows, err := q.QueryContext(r.Context(), `
		SELECT li.id, li.work_order_id, li.sku_id, s.sku_code, s.name,
		       li.quantity, li.unit_price, li.total_price, li.is_addon, li.status
		FROM work_order_line_items li
		INNER JOIN skus s ON s.id = li.sku_id
		WHERE li.work_order_id = $1
		ORDER BY li.is_addon, li.id`, id)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	detail.LineItems = []models.LineItem{}
	for rows.Next() {
		var li models.LineItem
		if err := rows.Scan(&li.ID, &li.WorkOrderID, &li.SkuID, &li.SkuCode, &li.SkuName,
			&li.Quantity, &li.UnitPrice, &li.TotalPrice, &li.IsAddon, &li.Status); err != nil {
			serverError(w)
			return
		}
		detail.LineItems = append(detail.LineItems, li)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) createWorkOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateWorkOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		// Platform admins act on behalf of a tenant named in the payload
		tenantID = req.TenantID
	}
	if tenantID == "" {
		writeError(w, http.StatusUnprocessableEntity, "MISSING_TENANT", "tenant_id is required")
		return
	}

	if req.SkuID == "" || req.Title == "" || req.Address == "" || req.Zipcode == "" ||
		req.PreferredDate == "" || req.PreferredTimeStart == "" {
		writeError(w, http.StatusUnprocessableEntity, "MISSING_FIELDS",
			"sku_id, title, address, zipcode, preferred_date, and preferred_time_start are required")
		return
	}

	createdBy := auth.UserIDFromContext(r.Context())
	if createdBy == "" {
		createdBy = req.CreatedBy
	}

	priority := "medium"
	if req.Priority != nil && *req.Priority != "" {
		priority = *req.Priority
	}
	selection := models.SelectionAutoNotify
	if req.VendorSelectionMethod != nil && *req.VendorSelectionMethod != "" {
		selection = *req.VendorSelectionMethod
	}

	q := dbFrom(r.Context(), s.DB)

	// The SKU must belong to the tenant and be active; its current price
	// becomes the primary line item price.
	var currentPrice float64
	err := q.QueryRowContext(r.Context(), `
		SELECT current_price FROM skus
		WHERE id = $1 AND tenant_id = $2 AND is_active = true`,
		req.SkuID, tenantID).Scan(&currentPrice)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "SKU_NOT_FOUND", "SKU not found or inactive for this tenant")
		return
	}
	if err != nil {
		serverError(w)
		return
	}

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		serverError(w)
		return
	}
	defer tx.Rollback()

	wo := models.WorkOrder{
		TenantID:              tenantID,
		CreatedBy:             createdBy,
		SkuID:                 req.SkuID,
		Title:                 req.Title,
		Description:           req.Description,
		Priority:              priority,
		Address:               req.Address,
		Zipcode:               req.Zipcode,
		Latitude:              req.Latitude,
		Longitude:             req.Longitude,
		CustomerName:          req.CustomerName,
		CustomerPhone:         req.CustomerPhone,
		CustomerEmail:         req.CustomerEmail,
		PreferredDate:         req.PreferredDate,
		PreferredTimeStart:    req.PreferredTimeStart,
		PreferredTimeEnd:      req.PreferredTimeEnd,
		VendorSelectionMethod: selection,
		Status:                models.WorkOrderCreated,
	}

	err = tx.QueryRowContext(r.Context(), `
		INSERT INTO work_orders (tenant_id, created_by, sku_id, title, description, priority,
			address, zipcode, latitude, longitude,
			customer_name, customer_phone, customer_email,
			preferred_date, preferred_time_start, preferred_time_end,
			vendor_selection_method, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,'created')
		RETURNING id, created_at, updated_at`,
		wo.TenantID, wo.CreatedBy, wo.SkuID, wo.Title, wo.Description, wo.Priority,
		wo.Address, wo.Zipcode, wo.Latitude, wo.Longitude,
		wo.CustomerName, wo.CustomerPhone, wo.CustomerEmail,
		wo.PreferredDate, wo.PreferredTimeStart, wo.PreferredTimeEnd,
		wo.VendorSelectionMethod).Scan(&wo.ID, &wo.CreatedAt, &wo.UpdatedAt)
	if err != nil {
		serverError(w)
		return
	}

	// Primary line item at the SKU's current price
	_, err = tx.ExecContext(r.Context(), `
		INSERT INTO work_order_line_items (work_order_id, sku_id, quantity, unit_price, total_price, is_addon, status)
		VALUES ($1, $2, 1, $3, $3, false, 'active')`,
		wo.ID, wo.SkuID, currentPrice)
	if err != nil {
		serverError(w)
		return
	}

	if err := tx.Commit(); err != nil {
		serverError(w)
		return
	}

	// The response carries the order total alongside the row; with a single
	// primary line item that is the SKU's current price.
	writeJSON(w, http.StatusCreated, struct {
		models.WorkOrder
		TotalAmount float64 `json:"total_amount"`
	}{wo, currentPrice})
}

// listAvailableWorkOrders returns open work orders the calling vendor could
// take: category capability matches and the vendor's service area covers the
// site. Coverage is evaluated in process against the vendor's stored areas.
func (s *Server) listAvailableWorkOrders(w http.ResponseWriter, r *http.Request) {
	vendorID := auth.VendorIDFromContext(r.Context())
	if vendorID == "" {
		vendorID = r.URL.Query().Get("vendor_id")
	}
	if vendorID == "" {
		writeError(w, http.StatusUnprocessableEntity, "MISSING_VENDOR", "vendor_id is required")
		return
	}

	q := dbFrom(r.Context(), s.DB)

	// Load the vendor's service areas once; coverage runs in Go.
	var zips []string
	zipRows, err := q.QueryContext(r.Context(),
		`SELECT zipcode FROM vendor_service_areas_zipcodes WHERE vendor_id = $1`, vendorID)
	if err != nil {
		serverError(w)
		return
	}
	defer zipRows.Close()
	for zipRows.Next() {
		var z string
		if err := zipRows.Scan(&z); err != nil {
			serverError(w)
			return
		}
		zips = append(zips, z)
	}
	if err := zipRows.Err(); err != nil {
		serverError(w)
		return
	}

	var radiusAreas []match.RadiusArea
	radRows, err := q.QueryContext(r.Context(), `
		SELECT center_latitude, center_longitude, radius_miles
		FROM vendor_service_areas_radius WHERE vendor_id = $1`, vendorID)
	if err != nil {
		serverError(w)
		return
	}
	defer radRows.Close()
	for radRows.Next() {
		var area match.RadiusArea
		if err := radRows.Scan(&area.Center.Lat, &area.Center.Lng, &area.RadiusMiles); err != nil {
			serverError(w)
			return
		}
		radiusAreas = append(radiusAreas, area)
	}
	if err := radRows.Err(); err != nil {
		serverError(w)
		return
	}

	zipArea := match.NewZipSetArea(zips)

	rows, err := q.QueryContext(r.Context(), `
		SELECT wo.id, wo.title, wo.description, wo.priority, wo.zipcode,
		       wo.latitude, wo.longitude,
		       wo.preferred_date, wo.preferred_time_start, wo.preferred_time_end,
		       wo.status, wo.created_at, s.sku_code, s.name, s.current_price
		FROM work_orders wo
		INNER JOIN skus s ON s.id = wo.sku_id
		INNER JOIN vendor_capabilities vc ON vc.category_id = s.category_id AND vc.vendor_id = $1
		WHERE wo.status = 'created'
		AND wo.vendor_selection_method IN ('auto_notify', 'discoverable', 'open')
		ORDER BY wo.preferred_date, wo.created_at`, vendorID)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	available := []models.AvailableWorkOrder{}
	for rows.Next() {
		var awo models.AvailableWorkOrder
		var lat, lng *float64
		if err := rows.Scan(&awo.ID, &awo.Title, &awo.Description, &awo.Priority, &awo.Zipcode,
			&lat, &lng,
			&awo.PreferredDate, &awo.PreferredTimeStart, &awo.PreferredTimeEnd,
			&awo.Status, &awo.CreatedAt, &awo.SkuCode, &awo.SkuName, &awo.CurrentPrice); err != nil {
			serverError(w)
			return
		}

		site := match.Site{Zip: awo.Zipcode}
		if lat != nil && lng != nil {
			site.Coord = &match.Point{Lat: *lat, Lng: *lng}
		}

		covered := zipArea.Covers(site)
		for _, area := range radiusAreas {
			if covered {
				break
			}
			covered = area.Covers(site)
		}
		if covered {
			available = append(available, awo)
		}
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"work_orders": available,
		"total":       len(available),
	})
}

// notifyVendors computes the eligible vendor set for a work order and records
// one notified offer per vendor in the response ledger.
func (s *Server) notifyVendors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	q := dbFrom(r.Context(), s.DB)

	var site match.WorkOrderSite
	var lat, lng *float64
	var status string
	err := q.QueryRowContext(r.Context(), `
		SELECT wo.tenant_id, wo.zipcode, wo.latitude, wo.longitude, wo.status, s.category_id
		FROM work_orders wo
		INNER JOIN skus s ON s.id = wo.sku_id
		WHERE wo.id = $1`, id).Scan(&site.TenantID, &site.Zip, &lat, &lng, &status, &site.CategoryID)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Work order not found")
		return
	}
	if err != nil {
		serverError(w)
		return
	}

	if status != models.WorkOrderCreated {
		writeErrorWith(w, http.StatusConflict, "INVALID_STATE",
			"Vendors can only be notified for open work orders",
			map[string]interface{}{"current_status": status})
		return
	}

	// Tenant admins can only notify for their own tenant's work orders
	if callerTenant := auth.TenantIDFromContext(r.Context()); callerTenant != "" && callerTenant != site.TenantID {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Work order not found")
		return
	}

	if lat != nil && lng != nil {
		site.Coord = &match.Point{Lat: *lat, Lng: *lng}
	}

	filter := &match.Filter{DB: q}
	matches, err := filter.FindEligibleVendors(r.Context(), site)
	if err != nil {
		serverError(w)
		return
	}

	vendorIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		vendorIDs = append(vendorIDs, m.VendorID)
	}
	if err := s.ledger.RecordOffers(r.Context(), id, vendorIDs); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"work_order_id":    id,
		"vendors_notified": len(matches),
		"vendors":          matches,
	})
}

// acceptWorkOrder resolves the first-acceptance-wins race for a work order.
// A conflict is a normal outcome for every vendor after the first.
func (s *Server) acceptWorkOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.AcceptWorkOrderRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
			return
		}
	}

	vendorID := auth.VendorIDFromContext(r.Context())
	if vendorID == "" {
		vendorID = req.VendorID
	}
	if vendorID == "" {
		writeError(w, http.StatusUnprocessableEntity, "MISSING_VENDOR", "vendor_id is required")
		return
	}

	res, err := s.coordinator.Accept(r.Context(), id, vendorID, req.Notes)
	if err != nil {
		serverError(w)
		return
	}

	switch res.Outcome {
	case match.OutcomeAssigned:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"work_order_id":      res.WorkOrderID,
			"assigned_vendor_id": res.VendorID,
			"status":             models.WorkOrderAssigned,
			"assigned_at":        res.AssignedAt,
		})
	case match.OutcomeNotFound:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Work order not found")
	default:
		context := map[string]interface{}{"current_status": res.CurrentStatus}
		if res.AssignedVendorID != nil {
			context["assigned_vendor_id"] = *res.AssignedVendorID
		}
		writeErrorWith(w, http.StatusConflict, "WORK_ORDER_ALREADY_ASSIGNED",
			"Work order has already been accepted", context)
	}
}

func (s *Server) completeWorkOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.CompleteWorkOrderRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
			return
		}
	}

	// Only the assigned vendor can complete its own work order
	if vendorID := auth.VendorIDFromContext(r.Context()); vendorID != "" {
		var assigned sql.NullString
		err := s.DB.QueryRowContext(r.Context(),
			`SELECT assigned_vendor_id FROM work_orders WHERE id = $1`, id).Scan(&assigned)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Work order not found")
			return
		}
		if err != nil {
			serverError(w)
			return
		}
		if !assigned.Valid || assigned.String != vendorID {
			writeError(w, http.StatusForbidden, "NOT_ASSIGNED", "Work order is not assigned to this vendor")
			return
		}
	}

	res, err := s.coordinator.Complete(r.Context(), id, req.CompletionNotes)
	if err != nil {
		serverError(w)
		return
	}

	switch res.Outcome {
	case match.OutcomeCompleted:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"work_order_id": id,
			"status":        models.WorkOrderCompleted,
		})
	case match.OutcomeNotFound:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Work order not found")
	default:
		writeErrorWith(w, http.StatusConflict, "INVALID_STATE",
			"Work order cannot be completed from its current state",
			map[string]interface{}{"current_status": res.CurrentStatus})
	}
}

// listWorkOrderResponses returns the notification ledger for a work order
func (s *Server) listWorkOrderResponses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), `
		SELECT id, work_order_id, vendor_id, response, response_at, notes
		FROM work_order_vendor_responses
		WHERE work_order_id = $1
		ORDER BY response_at`, id)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	responses := []models.VendorResponse{}
	for rows.Next() {
		var vr models.VendorResponse
		if err := rows.Scan(&vr.ID, &vr.WorkOrderID, &vr.VendorID, &vr.Response, &vr.ResponseAt, &vr.Notes); err != nil {
			serverError(w)
			return
		}
		responses = append(responses, vr)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"work_order_id": id,
		"responses":     responses,
		"total":         len(responses),
	})
}
