package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"fieldserve-api/internal/auth"
	"fieldserve-api/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), `
		SELECT id, name, description, status, created_at
		FROM service_categories
		WHERE status = 'active'
		ORDER BY name`)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Status, &c.CreatedAt); err != nil {
			serverError(w)
			return
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"total":      len(categories),
	})
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	q := dbFrom(r.Context(), s.DB)
	var c models.Category
	err := q.QueryRowContext(r.Context(), `
		SELECT id, name, description, status, created_at
		FROM service_categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.Status, &c.CreatedAt)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Category not found")
		return
	}
	if err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// listSkus with filters & pagination. Tenant users see their own catalog plus
// platform-wide SKUs; platform admins see everything.
func (s *Server) listSkus(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if tenantID := auth.TenantIDFromContext(r.Context()); tenantID != "" {
		clauses = append(clauses, fmt.Sprintf("(s.tenant_id = $%d OR s.tenant_id IS NULL)", arg))
		args = append(args, tenantID)
		arg++
	}
	if category := r.URL.Query().Get("category_id"); category != "" {
		clauses = append(clauses, fmt.Sprintf("s.category_id = $%d", arg))
		args = append(args, category)
		arg++
	}
	if active := r.URL.Query().Get("active"); active == "true" {
		clauses = append(clauses, "s.is_active = true")
	}
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(s.name ILIKE $%d OR s.sku_code ILIKE $%d)", arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	sqlStr := fmt.Sprintf(`
		SELECT s.id, s.tenant_id, s.category_id, s.sku_code, s.name, s.description,
		       s.current_price, s.estimated_duration_minutes, s.is_active, s.is_addon_allowed,
		       sc.name, t.name, s.created_at, s.updated_at,
		       COUNT(*) OVER() as total_count
		FROM skus s
		INNER JOIN service_categories sc ON sc.id = s.category_id
		LEFT JOIN tenants t ON t.id = s.tenant_id%s`, whereClause)

	allowedSort := map[string]string{
		"sku_code":      "s.sku_code",
		"name":          "s.name",
		"current_price": "s.current_price",
		"created_at":    "s.created_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort, "s.sku_code")
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	skus := []interface{}{}
	var totalCount int
	for rows.Next() {
		var sku models.Sku
		var isActive bool
		if err := rows.Scan(&sku.ID, &sku.TenantID, &sku.CategoryID, &sku.SkuCode, &sku.Name, &sku.Description,
			&sku.CurrentPrice, &sku.EstimatedDurationMinutes, &isActive, &sku.IsAddonAllowed,
			&sku.CategoryName, &sku.TenantName, &sku.CreatedAt, &sku.UpdatedAt, &totalCount); err != nil {
			serverError(w)
			return
		}
		sku.Status = skuStatus(isActive)
		skus = append(skus, sku)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	sendListResponse(w, "skus", skus, totalCount, params)
}

func skuStatus(isActive bool) string {
	if isActive {
		return "active"
	}
	return "inactive"
}

func (s *Server) getSku(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	q := dbFrom(r.Context(), s.DB)
	var sku models.Sku
	var isActive bool
	err := q.QueryRowContext(r.Context(), `
		SELECT s.id, s.tenant_id, s.category_id, s.sku_code, s.name, s.description,
		       s.current_price, s.estimated_duration_minutes, s.is_active, s.is_addon_allowed,
		       sc.name, t.name, s.created_at, s.updated_at
		FROM skus s
		INNER JOIN service_categories sc ON sc.id = s.category_id
		LEFT JOIN tenants t ON t.id = s.tenant_id
		WHERE s.id = $1`, id).Scan(
		&sku.ID, &sku.TenantID, &sku.CategoryID, &sku.SkuCode, &sku.Name, &sku.Description,
		&sku.CurrentPrice, &sku.EstimatedDurationMinutes, &isActive, &sku.IsAddonAllowed,
		&sku.CategoryName, &sku.TenantName, &sku.CreatedAt, &sku.UpdatedAt)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "SKU not found")
		return
	}
	if err != nil {
		serverError(w)
		return
	}
	sku.Status = skuStatus(isActive)

	writeJSON(w, http.StatusOK, sku)
}

func (s *Server) createSku(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSkuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if req.CategoryID == "" || req.SkuCode == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "category_id, sku_code, and name are required")
		return
	}

	tenantID := req.TenantID
	if callerTenant := auth.TenantIDFromContext(r.Context()); callerTenant != "" {
		tenantID = &callerTenant
	}

	price := 0.0
	if req.CurrentPrice != nil {
		price = *req.CurrentPrice
	}
	if price < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PRICE", "current_price must not be negative")
		return
	}
	addonAllowed := false
	if req.IsAddonAllowed != nil {
		addonAllowed = *req.IsAddonAllowed
	}

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		serverError(w)
		return
	}
	defer tx.Rollback()

	sku := models.Sku{
		TenantID:                 tenantID,
		CategoryID:               req.CategoryID,
		SkuCode:                  req.SkuCode,
		Name:                     req.Name,
		Description:              req.Description,
		CurrentPrice:             price,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		Status:                   "active",
		IsAddonAllowed:           addonAllowed,
	}

	err = tx.QueryRowContext(r.Context(), `
		INSERT INTO skus (tenant_id, category_id, sku_code, name, description,
			current_price, estimated_duration_minutes, is_active, is_addon_allowed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true, $8)
		RETURNING id, created_at, updated_at`,
		tenantID, req.CategoryID, req.SkuCode, req.Name, req.Description,
		price, req.EstimatedDurationMinutes, addonAllowed).
		Scan(&sku.ID, &sku.CreatedAt, &sku.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			writeError(w, http.StatusConflict, "DUPLICATE_SKU", "A SKU with this code already exists for the tenant")
			return
		}
		serverError(w)
		return
	}

	// Opening price-history entry
	_, err = tx.ExecContext(r.Context(), `
		INSERT INTO sku_price_history (sku_id, price, effective_date, reason)
		VALUES ($1, $2, CURRENT_DATE, 'initial')`, sku.ID, price)
	if err != nil {
		serverError(w)
		return
	}

	if err := tx.Commit(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusCreated, sku)
}

func (s *Server) updateSku(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateSkuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	if req.Name != nil {
		setParts = append(setParts, fmt.Sprintf("name = $%d", argIndex))
		args = append(args, *req.Name)
		argIndex++
	}
	if req.Description != nil {
		setParts = append(setParts, fmt.Sprintf("description = $%d", argIndex))
		args = append(args, req.Description)
		argIndex++
	}
	if req.CurrentPrice != nil {
		if *req.CurrentPrice < 0 {
			writeError(w, http.StatusBadRequest, "INVALID_PRICE", "current_price must not be negative")
			return
		}
		setParts = append(setParts, fmt.Sprintf("current_price = $%d", argIndex))
		args = append(args, *req.CurrentPrice)
		argIndex++
	}
	if req.EstimatedDurationMinutes != nil {
		setParts = append(setParts, fmt.Sprintf("estimated_duration_minutes = $%d", argIndex))
		args = append(args, *req.EstimatedDurationMinutes)
		argIndex++
	}
	if req.Status != nil {
		setParts = append(setParts, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *req.Status == "active")
		argIndex++
	}
	if req.IsAddonAllowed != nil {
		setParts = append(setParts, fmt.Sprintf("is_addon_allowed = $%d", argIndex))
		args = append(args, *req.IsAddonAllowed)
		argIndex++
	}

	if len(setParts) == 0 {
		writeError(w, http.StatusBadRequest, "NO_FIELDS", "No fields to update")
		return
	}

	setParts = append(setParts, "updated_at = now()")
	updateQuery := fmt.Sprintf(`
		UPDATE skus
		SET %s
		WHERE id = $%d
		RETURNING id, tenant_id, category_id, sku_code, name, description,
		          current_price, estimated_duration_minutes, is_active, is_addon_allowed,
		          created_at, updated_at`,
		strings.Join(setParts, ", "), argIndex)
	args = append(args, id)

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		serverError(w)
		return
	}
	defer tx.Rollback()

	var sku models.Sku
	var isActive bool
	err = tx.QueryRowContext(r.Context(), updateQuery, args...).Scan(
		&sku.ID, &sku.TenantID, &sku.CategoryID, &sku.SkuCode, &sku.Name, &sku.Description,
		&sku.CurrentPrice, &sku.EstimatedDurationMinutes, &isActive, &sku.IsAddonAllowed,
		&sku.CreatedAt, &sku.UpdatedAt)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "SKU not found")
		return
	}
	if err != nil {
		serverError(w)
		return
	}
	sku.Status = skuStatus(isActive)

	// Price changes append to the history
	if req.CurrentPrice != nil {
		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO sku_price_history (sku_id, price, effective_date, reason)
			VALUES ($1, $2, CURRENT_DATE, 'price_update')`, sku.ID, *req.CurrentPrice)
		if err != nil {
			serverError(w)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, sku)
}

func (s *Server) getSkuPriceHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	q := dbFrom(r.Context(), s.DB)

	var exists bool
	if err := q.QueryRowContext(r.Context(),
		`SELECT EXISTS (SELECT 1 FROM skus WHERE id = $1)`, id).Scan(&exists); err != nil {
		serverError(w)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "SKU not found")
		return
	}

	rows, err := q.QueryContext(r.Context(), `
		SELECT id, sku_id, price, effective_date, reason, created_at
		FROM sku_price_history
		WHERE sku_id = $1
		ORDER BY effective_date DESC, created_at DESC`, id)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	history := []models.SkuPriceEntry{}
	for rows.Next() {
		var e models.SkuPriceEntry
		if err := rows.Scan(&e.ID, &e.SkuID, &e.Price, &e.EffectiveDate, &e.Reason, &e.CreatedAt); err != nil {
			serverError(w)
			return
		}
		history = append(history, e)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sku_id":  id,
		"history": history,
		"total":   len(history),
	})
}

func (s *Server) listAddons(w http.ResponseWriter, r *http.Request) {
	q := dbFrom(r.Context(), s.DB)

	clauses := []string{}
	args := []interface{}{}
	if parent := r.URL.Query().Get("parent_sku_id"); parent != "" {
		clauses = append(clauses, "parent_sku_id = $1")
		args = append(args, parent)
	}
	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := q.QueryContext(r.Context(), `
		SELECT id, parent_sku_id, addon_sku_id, is_auto_approved, created_at
		FROM addon_skus`+whereClause+`
		ORDER BY created_at`, args...)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	addons := []models.AddonSku{}
	for rows.Next() {
		var a models.AddonSku
		if err := rows.Scan(&a.ID, &a.ParentSkuID, &a.AddonSkuID, &a.IsAutoApproved, &a.CreatedAt); err != nil {
			serverError(w)
			return
		}
		addons = append(addons, a)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"addons": addons,
		"total":  len(addons),
	})
}

func (s *Server) createAddon(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAddonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if req.ParentSkuID == "" || req.AddonSkuID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "parent_sku_id and addon_sku_id are required")
		return
	}
	if req.ParentSkuID == req.AddonSkuID {
		writeError(w, http.StatusBadRequest, "INVALID_ADDON", "A SKU cannot be an add-on of itself")
		return
	}

	q := dbFrom(r.Context(), s.DB)

	// The parent must allow add-ons
	var addonAllowed bool
	err := q.QueryRowContext(r.Context(),
		`SELECT is_addon_allowed FROM skus WHERE id = $1`, req.ParentSkuID).Scan(&addonAllowed)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusBadRequest, "INVALID_SKU", "Parent SKU not found")
		return
	}
	if err != nil {
		serverError(w)
		return
	}
	if !addonAllowed {
		writeError(w, http.StatusBadRequest, "ADDONS_NOT_ALLOWED", "Parent SKU does not allow add-ons")
		return
	}

	autoApproved := false
	if req.IsAutoApproved != nil {
		autoApproved = *req.IsAutoApproved
	}

	addon := models.AddonSku{
		ParentSkuID:    req.ParentSkuID,
		AddonSkuID:     req.AddonSkuID,
		IsAutoApproved: autoApproved,
	}

	err = q.QueryRowContext(r.Context(), `
		INSERT INTO addon_skus (parent_sku_id, addon_sku_id, is_auto_approved)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		req.ParentSkuID, req.AddonSkuID, autoApproved).Scan(&addon.ID, &addon.CreatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			writeError(w, http.StatusConflict, "DUPLICATE_ADDON", "This add-on link already exists")
			return
		}
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			writeError(w, http.StatusBadRequest, "INVALID_SKU", "Add-on SKU not found")
			return
		}
		serverError(w)
		return
	}

	writeJSON(w, http.StatusCreated, addon)
}

func (s *Server) deleteAddon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	q := dbFrom(r.Context(), s.DB)
	res, err := q.ExecContext(r.Context(), `DELETE FROM addon_skus WHERE id = $1`, id)
	if err != nil {
		serverError(w)
		return
	}
	n, err := res.RowsAffected()
	if err != nil {
		serverError(w)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Add-on link not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
