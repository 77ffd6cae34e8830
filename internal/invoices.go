package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fieldserve-api/internal/auth"
	"fieldserve-api/internal/models"

	"github.com/go-chi/chi/v5"
)

// listInvoices with filters & pagination, scoped to the caller's tenant
func (s *Server) listInvoices(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if tenantID := auth.TenantIDFromContext(r.Context()); tenantID != "" {
		clauses = append(clauses, fmt.Sprintf("i.tenant_id = $%d", arg))
		args = append(args, tenantID)
		arg++
	}
	if status := r.URL.Query().Get("status"); status != "" {
		clauses = append(clauses, fmt.Sprintf("i.status = $%d", arg))
		args = append(args, status)
		arg++
	}
	if vendorID := r.URL.Query().Get("vendor_id"); vendorID != "" {
		clauses = append(clauses, fmt.Sprintf("i.vendor_id = $%d", arg))
		args = append(args, vendorID)
		arg++
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	sqlStr := fmt.Sprintf(`
		SELECT i.id, i.work_order_id, i.tenant_id, i.vendor_id, i.invoice_number,
		       i.subtotal, i.tax_amount, i.total_amount, i.status,
		       i.due_date, i.issued_at, i.paid_at,
		       t.name, v.company_name, wo.title, i.created_at,
		       COUNT(*) OVER() as total_count
		FROM invoices i
		INNER JOIN tenants t ON t.id = i.tenant_id
		INNER JOIN vendors v ON v.id = i.vendor_id
		INNER JOIN work_orders wo ON wo.id = i.work_order_id%s`, whereClause)

	allowedSort := map[string]string{
		"created_at":     "i.created_at",
		"due_date":       "i.due_date",
		"total_amount":   "i.total_amount",
		"invoice_number": "i.invoice_number",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort, "i.created_at DESC")
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	invoices := []interface{}{}
	var totalCount int
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(&inv.ID, &inv.WorkOrderID, &inv.TenantID, &inv.VendorID, &inv.InvoiceNumber,
			&inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount, &inv.Status,
			&inv.DueDate, &inv.IssuedAt, &inv.PaidAt,
			&inv.TenantName, &inv.VendorName, &inv.WorkOrderTitle, &inv.CreatedAt, &totalCount); err != nil {
			serverError(w)
			return
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	sendListResponse(w, "invoices", invoices, totalCount, params)
}

func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	q := dbFrom(r.Context(), s.DB)
	var inv models.Invoice
	err := q.QueryRowContext(r.Context(), `
		SELECT i.id, i.work_order_id, i.tenant_id, i.vendor_id, i.invoice_number,
		       i.subtotal, i.tax_amount, i.total_amount, i.status,
		       i.due_date, i.issued_at, i.paid_at,
		       t.name, v.company_name, wo.title, i.created_at
		FROM invoices i
		INNER JOIN tenants t ON t.id = i.tenant_id
		INNER JOIN vendors v ON v.id = i.vendor_id
		INNER JOIN work_orders wo ON wo.id = i.work_order_id
		WHERE i.id = $1`, id).Scan(
		&inv.ID, &inv.WorkOrderID, &inv.TenantID, &inv.VendorID, &inv.InvoiceNumber,
		&inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount, &inv.Status,
		&inv.DueDate, &inv.IssuedAt, &inv.PaidAt,
		&inv.TenantName, &inv.VendorName, &inv.WorkOrderTitle, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Invoice not found")
		return
	}
	if err != nil {
		serverError(w)
		return
	}

	type invoiceDetail struct {
		models.Invoice
		LineItems []models.InvoiceLineItem `json:"line_items"`
	}
	detail := invoiceDetail{Invoice: inv, LineItems: []models.InvoiceLineItem{}}

	rows, err := q.QueryContext(r.Context(), `
		SELECT ili.id, ili.invoice_id, ili.description, ili.quantity,
		       ili.unit_price, ili.total_price, ili.sku_id, s.name, s.sku_code
		FROM invoice_line_items ili
		LEFT JOIN skus s ON s.id = ili.sku_id
		WHERE ili.invoice_id = $1
		ORDER BY ili.id`, id)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()
	for rows.Next() {
		var li models.InvoiceLineItem
		if err := rows.Scan(&li.ID, &li.InvoiceID, &li.Description, &li.Quantity,
			&li.UnitPrice, &li.TotalPrice, &li.SkuID, &li.SkuName, &li.SkuCode); err != nil {
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

// createInvoice generates an invoice from a completed work order's line
// items. One invoice per work order.
func (s *Server) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if req.WorkOrderID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "work_order_id is required")
		return
	}

	taxRate := 0.0
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	if taxRate < 0 || taxRate > 1 {
		writeError(w, http.StatusBadRequest, "INVALID_TAX_RATE", "tax_rate must be between 0 and 1")
		return
	}
	dueDays := 30
	if req.DueDays != nil && *req.DueDays > 0 {
		dueDays = *req.DueDays
	}

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		serverError(w)
		return
	}
	defer tx.Rollback()

	var tenantID string
	var status string
	var vendorID sql.NullString
	err = tx.QueryRowContext(r.Context(), `
		SELECT tenant_id, status, assigned_vendor_id
		FROM work_orders WHERE id = $1`, req.WorkOrderID).Scan(&tenantID, &status, &vendorID)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Work order not found")
		return
	}
	if err != nil {
		serverError(w)
		return
	}
	if status != models.WorkOrderCompleted {
		writeErrorWith(w, http.StatusConflict, "NOT_COMPLETED",
			"Invoices can only be generated for completed work orders",
			map[string]interface{}{"current_status": status})
		return
	}
	if !vendorID.Valid {
		writeError(w, http.StatusConflict, "NO_VENDOR", "Work order has no assigned vendor")
		return
	}
	if callerTenant := auth.TenantIDFromContext(r.Context()); callerTenant != "" && callerTenant != tenantID {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Work order not found")
		return
	}

	// Sum the active line items into the invoice body
	type pendingLine struct {
		skuID       string
		description string
		quantity    int
		unitPrice   float64
		totalPrice  float64
	}
	lineRows, err := tx.QueryContext(r.Context(), `
		SELECT li.sku_id, s.name, li.quantity, li.unit_price, li.total_price
		FROM work_order_line_items li
		INNER JOIN skus s ON s.id = li.sku_id
		WHERE li.work_order_id = $1 AND li.status = 'active'
		ORDER BY li.is_addon, li.id`, req.WorkOrderID)
	if err != nil {
		serverError(w)
		return
	}
	defer lineRows.Close()

	var lines []pendingLine
	subtotal := 0.0
	for lineRows.Next() {
		var pl pendingLine
		if err := lineRows.Scan(&pl.skuID, &pl.description, &pl.quantity, &pl.unitPrice, &pl.totalPrice); err != nil {
			serverError(w)
			return
		}
		subtotal += pl.totalPrice
		lines = append(lines, pl)
	}
	if err := lineRows.Err(); err != nil {
		serverError(w)
		return
	}
	if len(lines) == 0 {
		writeError(w, http.StatusConflict, "NO_LINE_ITEMS", "Work order has no billable line items")
		return
	}

	taxAmount := subtotal * taxRate
	total := subtotal + taxAmount
	dueDate := time.Now().AddDate(0, 0, dueDays)
	woRef := req.WorkOrderID
	if len(woRef) > 8 {
		woRef = woRef[:8]
	}
	invoiceNumber := fmt.Sprintf("INV-%s-%s", time.Now().Format("20060102"), strings.ToUpper(woRef))

	inv := models.Invoice{
		WorkOrderID:   req.WorkOrderID,
		TenantID:      tenantID,
		VendorID:      vendorID.String,
		InvoiceNumber: invoiceNumber,
		Subtotal:      subtotal,
		TaxAmount:     taxAmount,
		TotalAmount:   total,
		Status:        "issued",
		DueDate:       &dueDate,
	}

	err = tx.QueryRowContext(r.Context(), `
		INSERT INTO invoices (work_order_id, tenant_id, vendor_id, invoice_number,
			subtotal, tax_amount, total_amount, status, due_date, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'issued', $8, CURRENT_TIMESTAMP)
		RETURNING id, issued_at, created_at`,
		inv.WorkOrderID, inv.TenantID, inv.VendorID, inv.InvoiceNumber,
		inv.Subtotal, inv.TaxAmount, inv.TotalAmount, dueDate).
		Scan(&inv.ID, &inv.IssuedAt, &inv.CreatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			writeError(w, http.StatusConflict, "DUPLICATE_INVOICE", "An invoice already exists for this work order")
			return
		}
		serverError(w)
		return
	}

	for _, pl := range lines {
		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO invoice_line_items (invoice_id, description, quantity, unit_price, total_price, sku_id)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			inv.ID, pl.description, pl.quantity, pl.unitPrice, pl.totalPrice, pl.skuID)
		if err != nil {
			serverError(w)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) markInvoicePaid(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	q := dbFrom(r.Context(), s.DB)
	var inv models.Invoice
	err := q.QueryRowContext(r.Context(), `
		UPDATE invoices
		SET status = 'paid', paid_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'issued'
		RETURNING id, work_order_id, tenant_id, vendor_id, invoice_number,
		          subtotal, tax_amount, total_amount, status, due_date, issued_at, paid_at, created_at`,
		id).Scan(
		&inv.ID, &inv.WorkOrderID, &inv.TenantID, &inv.VendorID, &inv.InvoiceNumber,
		&inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount, &inv.Status,
		&inv.DueDate, &inv.IssuedAt, &inv.PaidAt, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		// Distinguish missing from wrong-state
		var status string
		err2 := q.QueryRowContext(r.Context(), `SELECT status FROM invoices WHERE id = $1`, id).Scan(&status)
		if err2 == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Invoice not found")
			return
		}
		if err2 != nil {
			serverError(w)
			return
		}
		writeErrorWith(w, http.StatusConflict, "INVALID_STATE",
			"Only issued invoices can be marked paid",
			map[string]interface{}{"current_status": status})
		return
	}
	if err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, inv)
}
