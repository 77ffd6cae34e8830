package internal

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fieldserve-api/internal/auth"
	"fieldserve-api/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listDocumentTypes(w http.ResponseWriter, r *http.Request) {
	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), `
		SELECT id, name, description, category, validity_period_days, is_required, created_at
		FROM document_types
		ORDER BY is_required DESC, name`)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	types := []models.DocumentType{}
	for rows.Next() {
		var dt models.DocumentType
		if err := rows.Scan(&dt.ID, &dt.Name, &dt.Description, &dt.Category,
			&dt.ValidityPeriodDays, &dt.IsRequired, &dt.CreatedAt); err != nil {
			serverError(w)
			return
		}
		types = append(types, dt)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document_types": types,
		"total":          len(types),
	})
}

// uploadVendorDocument records an uploaded document's metadata. The document
// enters review as 'pending'; matching treats non-approved required documents
// as non-compliant.
func (s *Server) uploadVendorDocument(w http.ResponseWriter, r *http.Request) {
	vendorID := chi.URLParam(r, "id")

	// Vendors can only upload for themselves
	if callerVendor := auth.VendorIDFromContext(r.Context()); callerVendor != "" && callerVendor != vendorID {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Cannot upload documents for another vendor")
		return
	}

	var req models.UploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if req.DocumentTypeID == "" || req.FileName == "" || req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "document_type_id, file_name, and file_path are required")
		return
	}

	var expirationDate *time.Time
	if req.ExpirationDate != nil && *req.ExpirationDate != "" {
		parsed, err := time.Parse("2006-01-02", *req.ExpirationDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_DATE", "expiration_date must be YYYY-MM-DD")
			return
		}
		expirationDate = &parsed
	}

	q := dbFrom(r.Context(), s.DB)
	doc := models.VendorDocument{
		VendorID:       vendorID,
		DocumentTypeID: req.DocumentTypeID,
		FileName:       req.FileName,
		FilePath:       req.FilePath,
		FileSize:       req.FileSize,
		MimeType:       req.MimeType,
		ExpirationDate: expirationDate,
		CoverageAmount: req.CoverageAmount,
		Status:         "pending",
	}

	err := q.QueryRowContext(r.Context(), `
		INSERT INTO vendor_documents (vendor_id, document_type_id, file_name, file_path,
			file_size, mime_type, expiration_date, coverage_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
		RETURNING id, created_at`,
		vendorID, req.DocumentTypeID, req.FileName, req.FilePath,
		req.FileSize, req.MimeType, expirationDate, req.CoverageAmount).
		Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			writeError(w, http.StatusBadRequest, "INVALID_REFERENCE", "Unknown vendor or document type")
			return
		}
		serverError(w)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) listVendorDocuments(w http.ResponseWriter, r *http.Request) {
	vendorID := chi.URLParam(r, "id")

	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), `
		SELECT vd.id, vd.vendor_id, vd.document_type_id, dt.name, vd.file_name, vd.file_path,
		       vd.file_size, vd.mime_type, vd.expiration_date, vd.coverage_amount, vd.status,
		       vd.reviewed_by, vd.reviewed_at, vd.review_notes, vd.created_at
		FROM vendor_documents vd
		INNER JOIN document_types dt ON dt.id = vd.document_type_id
		WHERE vd.vendor_id = $1
		ORDER BY vd.created_at DESC`, vendorID)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	documents := []models.VendorDocument{}
	for rows.Next() {
		var doc models.VendorDocument
		if err := rows.Scan(&doc.ID, &doc.VendorID, &doc.DocumentTypeID, &doc.DocumentTypeName,
			&doc.FileName, &doc.FilePath, &doc.FileSize, &doc.MimeType,
			&doc.ExpirationDate, &doc.CoverageAmount, &doc.Status,
			&doc.ReviewedBy, &doc.ReviewedAt, &doc.ReviewNotes, &doc.CreatedAt); err != nil {
			serverError(w)
			return
		}
		documents = append(documents, doc)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vendor_id": vendorID,
		"documents": documents,
		"total":     len(documents),
	})
}

// reviewDocument approves or rejects a pending document
func (s *Server) reviewDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.ReviewDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if req.Status != "approved" && req.Status != "rejected" {
		writeError(w, http.StatusBadRequest, "INVALID_STATUS", "status must be 'approved' or 'rejected'")
		return
	}

	reviewedBy := auth.UserIDFromContext(r.Context())
	if reviewedBy == "" && req.ReviewedBy != nil {
		reviewedBy = *req.ReviewedBy
	}

	q := dbFrom(r.Context(), s.DB)
	var doc models.VendorDocument
	err := q.QueryRowContext(r.Context(), `
		UPDATE vendor_documents
		SET status = $2, reviewed_by = $3, reviewed_at = CURRENT_TIMESTAMP, review_notes = $4
		WHERE id = $1
		RETURNING id, vendor_id, document_type_id, file_name, file_path,
		          file_size, mime_type, expiration_date, coverage_amount, status,
		          reviewed_by, reviewed_at, review_notes, created_at`,
		id, req.Status, reviewedBy, req.ReviewNotes).Scan(
		&doc.ID, &doc.VendorID, &doc.DocumentTypeID, &doc.FileName, &doc.FilePath,
		&doc.FileSize, &doc.MimeType, &doc.ExpirationDate, &doc.CoverageAmount, &doc.Status,
		&doc.ReviewedBy, &doc.ReviewedAt, &doc.ReviewNotes, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Document not found")
		return
	}
	if err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// listExpiringDocuments returns approved documents expiring within the given
// window (default 60 days)
func (s *Server) listExpiringDocuments(w http.ResponseWriter, r *http.Request) {
	days := 60
	if d := r.URL.Query().Get("days"); d != "" {
		v, err := strconv.Atoi(d)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_DAYS", "days must be a positive integer")
			return
		}
		days = v
	}

	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), `
		SELECT vd.id, vd.vendor_id, v.company_name, vd.document_type_id, dt.name,
		       vd.file_name, vd.expiration_date, vd.status
		FROM vendor_documents vd
		INNER JOIN vendors v ON v.id = vd.vendor_id
		INNER JOIN document_types dt ON dt.id = vd.document_type_id
		WHERE vd.status = 'approved'
		AND vd.expiration_date IS NOT NULL
		AND vd.expiration_date BETWEEN CURRENT_DATE AND CURRENT_DATE + $1 * INTERVAL '1 day'
		ORDER BY vd.expiration_date`, days)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	expiring := []models.ExpiringDocument{}
	for rows.Next() {
		var ed models.ExpiringDocument
		if err := rows.Scan(&ed.ID, &ed.VendorID, &ed.CompanyName, &ed.DocumentTypeID,
			&ed.DocumentTypeName, &ed.FileName, &ed.ExpirationDate, &ed.Status); err != nil {
			serverError(w)
			return
		}
		expiring = append(expiring, ed)
	}
	if err := rows.Err(); err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":      days,
		"documents": expiring,
		"total":     len(expiring),
	})
}
