package models

import "time"

// Feedback is a customer's review of a completed work order
type Feedback struct {
	ID                    string    `json:"id"`
	WorkOrderID           string    `json:"work_order_id"`
	VendorID              string    `json:"vendor_id"`
	VendorName            *string   `json:"vendor_name,omitempty"`
	CustomerName          *string   `json:"customer_name,omitempty"`
	CustomerEmail         *string   `json:"customer_email,omitempty"`
	SatisfactionRating    int       `json:"satisfaction_rating"`
	NpsScore              *int      `json:"nps_score,omitempty"`
	QualityRating         *int      `json:"quality_rating,omitempty"`
	TimelinessRating      *int      `json:"timeliness_rating,omitempty"`
	ProfessionalismRating *int      `json:"professionalism_rating,omitempty"`
	Comments              *string   `json:"comments,omitempty"`
	WouldRecommend        *bool     `json:"would_recommend,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// SubmitFeedbackRequest represents the request body for submitting feedback
type SubmitFeedbackRequest struct {
	WorkOrderID           string  `json:"work_order_id"`
	SatisfactionRating    *int    `json:"satisfaction_rating,omitempty"`
	NpsScore              *int    `json:"nps_score,omitempty"`
	QualityRating         *int    `json:"quality_rating,omitempty"`
	TimelinessRating      *int    `json:"timeliness_rating,omitempty"`
	ProfessionalismRating *int    `json:"professionalism_rating,omitempty"`
	Comments              *string `json:"comments,omitempty"`
	WouldRecommend        *bool   `json:"would_recommend,omitempty"`
}

// VendorFeedbackSummary aggregates a vendor's feedback scores
type VendorFeedbackSummary struct {
	VendorID           string   `json:"vendor_id"`
	TotalReviews       int      `json:"total_reviews"`
	AvgSatisfaction    *float64 `json:"avg_satisfaction,omitempty"`
	AvgQuality         *float64 `json:"avg_quality,omitempty"`
	AvgTimeliness      *float64 `json:"avg_timeliness,omitempty"`
	AvgProfessionalism *float64 `json:"avg_professionalism,omitempty"`
	AvgNps             *float64 `json:"avg_nps,omitempty"`
	RecommendCount     int      `json:"recommend_count"`
}
