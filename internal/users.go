package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"fieldserve-api/internal/auth"
	"fieldserve-api/internal/models"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// loginUser handles user authentication
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "Email and password are required")
		return
	}

	// Login runs without the tenant session; the user row carries the tenant
	query := `
		SELECT id, email, password_hash, first_name, last_name, tenant_id, vendor_id, roles,
		       is_active, created_at, updated_at, last_login_at
		FROM users
		WHERE email = $1 AND is_active = true`

	var user models.User
	var firstName, lastName, tenantID, vendorID sql.NullString
	var lastLoginAt sql.NullTime
	var roles pq.StringArray

	err := s.DB.QueryRowContext(r.Context(), query, req.Email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &firstName, &lastName,
		&tenantID, &vendorID, &roles, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &lastLoginAt,
	)

	if err == sql.ErrNoRows {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
		return
	}
	if err != nil {
		serverError(w)
		return
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
		return
	}

	// Update last login time
	_, err = s.DB.ExecContext(r.Context(), "UPDATE users SET last_login_at = now() WHERE id = $1", user.ID)
	if err != nil {
		// Log error but don't fail login
		fmt.Printf("Failed to update last_login_at: %v\n", err)
	}

	if firstName.Valid {
		user.FirstName = &firstName.String
	}
	if lastName.Valid {
		user.LastName = &lastName.String
	}
	if tenantID.Valid {
		user.TenantID = &tenantID.String
	}
	if vendorID.Valid {
		user.VendorID = &vendorID.String
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}
	user.Roles = roles

	token, err := s.JWTManager.GenerateToken(user.ID, tenantID.String, vendorID.String, user.Roles)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token: token,
		User:  user.Redacted(),
	})
}

// createUser handles user creation with multi-tenant logic
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" || len(req.Roles) == 0 {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "Email, password, and roles are required")
		return
	}

	if !models.ValidateRoles(req.Roles) {
		writeError(w, http.StatusBadRequest, "INVALID_ROLES", "Invalid roles provided")
		return
	}

	// Tenant admins may only create users for their own tenant.
	// Platform admins may target any tenant, or none for platform users.
	claims := auth.ClaimsFromContext(r.Context())
	targetTenantID := req.TenantID
	if !claims.HasRole("platform_admin") {
		callerTenant := auth.TenantIDFromContext(r.Context())
		if callerTenant == "" {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Cannot create users without a tenant")
			return
		}
		if targetTenantID != nil && *targetTenantID != callerTenant {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Cannot create users for another tenant")
			return
		}
		targetTenantID = &callerTenant
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "HASH_ERROR", "Failed to hash password")
		return
	}

	q := dbFrom(r.Context(), s.DB)
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, tenant_id, vendor_id, roles)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	user := models.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		TenantID:  targetTenantID,
		VendorID:  req.VendorID,
		Roles:     req.Roles,
		IsActive:  true,
	}

	err = q.QueryRowContext(r.Context(), query,
		req.Email, string(hashedPassword), req.FirstName, req.LastName,
		targetTenantID, req.VendorID, pq.Array(req.Roles)).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			writeError(w, http.StatusConflict, "DUPLICATE_EMAIL", "User with this email already exists")
			return
		}
		serverError(w)
		return
	}

	writeJSON(w, http.StatusCreated, user.Redacted())
}

// getUserProfile handles getting current user's profile
func (s *Server) getUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "User ID not found in context")
		return
	}

	query := `
		SELECT id, email, first_name, last_name, tenant_id, vendor_id, roles, is_active,
		       created_at, updated_at, last_login_at
		FROM users
		WHERE id = $1`

	var user models.User
	var firstName, lastName, tenantID, vendorID sql.NullString
	var lastLoginAt sql.NullTime
	var roles pq.StringArray

	err := s.DB.QueryRowContext(r.Context(), query, userID).Scan(
		&user.ID, &user.Email, &firstName, &lastName,
		&tenantID, &vendorID, &roles, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &lastLoginAt,
	)

	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		return
	}
	if err != nil {
		serverError(w)
		return
	}

	if firstName.Valid {
		user.FirstName = &firstName.String
	}
	if lastName.Valid {
		user.LastName = &lastName.String
	}
	if tenantID.Valid {
		user.TenantID = &tenantID.String
	}
	if vendorID.Valid {
		user.VendorID = &vendorID.String
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}
	user.Roles = roles

	writeJSON(w, http.StatusOK, user.Redacted())
}
