package models

import "time"

// DocumentType is a compliance document category (insurance, license, ...)
type DocumentType struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Description        *string   `json:"description,omitempty"`
	Category           string    `json:"category"`
	ValidityPeriodDays *int      `json:"validity_period_days,omitempty"`
	IsRequired         bool      `json:"is_required"`
	CreatedAt          time.Time `json:"created_at"`
}

// VendorDocument is an uploaded compliance document's metadata record.
// Binary storage is handled elsewhere; only the file pointer is tracked.
type VendorDocument struct {
	ID               string     `json:"id"`
	VendorID         string     `json:"vendor_id"`
	DocumentTypeID   string     `json:"document_type_id"`
	DocumentTypeName string     `json:"document_type_name,omitempty"`
	FileName         string     `json:"file_name"`
	FilePath         string     `json:"file_path,omitempty"`
	FileSize         *int64     `json:"file_size,omitempty"`
	MimeType         *string    `json:"mime_type,omitempty"`
	ExpirationDate   *time.Time `json:"expiration_date,omitempty"`
	CoverageAmount   *float64   `json:"coverage_amount,omitempty"`
	Status           string     `json:"status"` // pending | approved | rejected | expired
	ReviewedBy       *string    `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	ReviewNotes      *string    `json:"review_notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// UploadDocumentRequest represents the request body for recording an upload
type UploadDocumentRequest struct {
	VendorID       string   `json:"vendor_id"`
	DocumentTypeID string   `json:"document_type_id"`
	FileName       string   `json:"file_name"`
	FilePath       string   `json:"file_path"`
	FileSize       *int64   `json:"file_size,omitempty"`
	MimeType       *string  `json:"mime_type,omitempty"`
	ExpirationDate *string  `json:"expiration_date,omitempty"`
	CoverageAmount *float64 `json:"coverage_amount,omitempty"`
}

// ReviewDocumentRequest represents the request body for document review
type ReviewDocumentRequest struct {
	Status      string  `json:"status"` // approved | rejected
	ReviewNotes *string `json:"review_notes,omitempty"`
	ReviewedBy  *string `json:"reviewed_by,omitempty"`
}

// ExpiringDocument is a reminder-sweep row for a document nearing expiry
type ExpiringDocument struct {
	ID               string    `json:"id"`
	VendorID         string    `json:"vendor_id"`
	CompanyName      string    `json:"company_name"`
	DocumentTypeID   string    `json:"document_type_id"`
	DocumentTypeName string    `json:"document_type_name"`
	FileName         string    `json:"file_name"`
	ExpirationDate   time.Time `json:"expiration_date"`
	Status           string    `json:"status"`
}
