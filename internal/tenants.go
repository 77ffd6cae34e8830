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

func (s *Server) listTenants(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if status := r.URL.Query().Get("status"); status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", arg))
		args = append(args, status)
		arg++
	}
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("name ILIKE $%d", arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	sqlStr := fmt.Sprintf(`
		SELECT id, name, status, created_at, updated_at,
		       COUNT(*) OVER() as total_count
		FROM tenants%s`, whereClause)

	allowedSort := map[string]string{
		"name":       "name",
		"created_at": "created_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort, "name")
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	tenants := []interface{}{}
	var totalCount int
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt, &totalCount); err != nil {
			serverError(w)
			return
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	sendListResponse(w, "tenants", tenants, totalCount, params)
}

func (s *Server) getTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var t models.Tenant
	err := s.DB.QueryRowContext(r.Context(), `
		SELECT id, name, status, created_at, updated_at
		FROM tenants WHERE id = $1`, id).Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Tenant not found")
		return
	}
	if err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

func (s *Server) createTenant(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "name is required")
		return
	}

	t := models.Tenant{Name: req.Name, Status: "active"}
	err := s.DB.QueryRowContext(r.Context(), `
		INSERT INTO tenants (name, status)
		VALUES ($1, 'active')
		RETURNING id, created_at, updated_at`, req.Name).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			writeError(w, http.StatusConflict, "DUPLICATE_NAME", "A tenant with this name already exists")
			return
		}
		serverError(w)
		return
	}

	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Name   *string `json:"name,omitempty"`
		Status *string `json:"status,omitempty"`
	}
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
	if req.Status != nil {
		if *req.Status != "active" && *req.Status != "suspended" {
			writeError(w, http.StatusBadRequest, "INVALID_STATUS", "status must be 'active' or 'suspended'")
			return
		}
		setParts = append(setParts, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *req.Status)
		argIndex++
	}

	if len(setParts) == 0 {
		writeError(w, http.StatusBadRequest, "NO_FIELDS", "No fields to update")
		return
	}

	setParts = append(setParts, "updated_at = now()")
	updateQuery := fmt.Sprintf(`
		UPDATE tenants
		SET %s
		WHERE id = $%d
		RETURNING id, name, status, created_at, updated_at`,
		strings.Join(setParts, ", "), argIndex)
	args = append(args, id)

	var t models.Tenant
	err := s.DB.QueryRowContext(r.Context(), updateQuery, args...).
		Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Tenant not found")
		return
	}
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			writeError(w, http.StatusConflict, "DUPLICATE_NAME", "A tenant with this name already exists")
			return
		}
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, t)
}
