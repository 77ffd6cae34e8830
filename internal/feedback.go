package internal

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"fieldserve-api/internal/models"

	"github.com/go-chi/chi/v5"
)

// submitFeedback records customer feedback for a completed work order.
// One feedback row per work order; duplicates conflict.
func (s *Server) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if req.WorkOrderID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "work_order_id is required")
		return
	}
	if req.SatisfactionRating == nil {
		writeError(w, http.StatusBadRequest, "MISSING_RATING", "satisfaction_rating is required")
		return
	}
	if *req.SatisfactionRating < 1 || *req.SatisfactionRating > 5 {
		writeError(w, http.StatusBadRequest, "INVALID_RATING", "satisfaction_rating must be between 1 and 5")
		return
	}
	if req.NpsScore != nil && (*req.NpsScore < 0 || *req.NpsScore > 10) {
		writeError(w, http.StatusBadRequest, "INVALID_RATING", "nps_score must be between 0 and 10")
		return
	}

	q := dbFrom(r.Context(), s.DB)

	// Feedback only applies to completed, assigned work orders
	var status string
	var vendorID sql.NullString
	var customerName, customerEmail sql.NullString
	err := q.QueryRowContext(r.Context(), `
		SELECT status, assigned_vendor_id, customer_name, customer_email
		FROM work_orders WHERE id = $1`, req.WorkOrderID).
		Scan(&status, &vendorID, &customerName, &customerEmail)
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
			"Feedback can only be submitted for completed work orders",
			map[string]interface{}{"current_status": status})
		return
	}
	if !vendorID.Valid {
		writeError(w, http.StatusConflict, "NO_VENDOR", "Work order has no assigned vendor")
		return
	}

	fb := models.Feedback{
		WorkOrderID:           req.WorkOrderID,
		VendorID:              vendorID.String,
		SatisfactionRating:    *req.SatisfactionRating,
		NpsScore:              req.NpsScore,
		QualityRating:         req.QualityRating,
		TimelinessRating:      req.TimelinessRating,
		ProfessionalismRating: req.ProfessionalismRating,
		Comments:              req.Comments,
		WouldRecommend:        req.WouldRecommend,
	}
	if customerName.Valid {
		fb.CustomerName = &customerName.String
	}
	if customerEmail.Valid {
		fb.CustomerEmail = &customerEmail.String
	}

	err = q.QueryRowContext(r.Context(), `
		INSERT INTO customer_feedback (work_order_id, vendor_id, customer_name, customer_email,
			satisfaction_rating, nps_score, quality_rating, timeliness_rating,
			professionalism_rating, comments, would_recommend)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		fb.WorkOrderID, fb.VendorID, fb.CustomerName, fb.CustomerEmail,
		fb.SatisfactionRating, fb.NpsScore, fb.QualityRating, fb.TimelinessRating,
		fb.ProfessionalismRating, fb.Comments, fb.WouldRecommend).
		Scan(&fb.ID, &fb.CreatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			writeError(w, http.StatusConflict, "DUPLICATE_FEEDBACK", "Feedback has already been submitted for this work order")
			return
		}
		serverError(w)
		return
	}

	writeJSON(w, http.StatusCreated, fb)
}

func (s *Server) getWorkOrderFeedback(w http.ResponseWriter, r *http.Request) {
	workOrderID := chi.URLParam(r, "id")

	q := dbFrom(r.Context(), s.DB)
	var fb models.Feedback
	err := q.QueryRowContext(r.Context(), `
		SELECT cf.id, cf.work_order_id, cf.vendor_id, v.company_name,
		       cf.customer_name, cf.customer_email,
		       cf.satisfaction_rating, cf.nps_score, cf.quality_rating,
		       cf.timeliness_rating, cf.professionalism_rating,
		       cf.comments, cf.would_recommend, cf.created_at
		FROM customer_feedback cf
		INNER JOIN vendors v ON v.id = cf.vendor_id
		WHERE cf.work_order_id = $1`, workOrderID).Scan(
		&fb.ID, &fb.WorkOrderID, &fb.VendorID, &fb.VendorName,
		&fb.CustomerName, &fb.CustomerEmail,
		&fb.SatisfactionRating, &fb.NpsScore, &fb.QualityRating,
		&fb.TimelinessRating, &fb.ProfessionalismRating,
		&fb.Comments, &fb.WouldRecommend, &fb.CreatedAt)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No feedback for this work order")
		return
	}
	if err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, fb)
}

// getVendorFeedbackSummary aggregates a vendor's ratings across all feedback
func (s *Server) getVendorFeedbackSummary(w http.ResponseWriter, r *http.Request) {
	vendorID := chi.URLParam(r, "id")

	q := dbFrom(r.Context(), s.DB)

	var exists bool
	if err := q.QueryRowContext(r.Context(),
		`SELECT EXISTS (SELECT 1 FROM vendors WHERE id = $1)`, vendorID).Scan(&exists); err != nil {
		serverError(w)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Vendor not found")
		return
	}

	summary := models.VendorFeedbackSummary{VendorID: vendorID}
	err := q.QueryRowContext(r.Context(), `
		SELECT COUNT(*),
		       AVG(satisfaction_rating),
		       AVG(quality_rating),
		       AVG(timeliness_rating),
		       AVG(professionalism_rating),
		       AVG(nps_score),
		       COUNT(*) FILTER (WHERE would_recommend = true)
		FROM customer_feedback
		WHERE vendor_id = $1`, vendorID).Scan(
		&summary.TotalReviews, &summary.AvgSatisfaction, &summary.AvgQuality,
		&summary.AvgTimeliness, &summary.AvgProfessionalism, &summary.AvgNps,
		&summary.RecommendCount)
	if err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
