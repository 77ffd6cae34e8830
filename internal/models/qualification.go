package models

import "time"

// Qualification is the per-tenant admin decision gating whether a vendor may
// be matched to that tenant's work orders. At most one row exists per
// (vendor, tenant) pair; qualify/disqualify upsert it.
type Qualification struct {
	ID                     string     `json:"id"`
	VendorID               string     `json:"vendor_id"`
	TenantID               string     `json:"tenant_id"`
	Status                 string     `json:"status"` // pending | qualified | disqualified
	QualifiedAt            *time.Time `json:"qualified_at,omitempty"`
	QualifiedBy            *string    `json:"qualified_by,omitempty"`
	DisqualifiedAt         *time.Time `json:"disqualified_at,omitempty"`
	DisqualifiedBy         *string    `json:"disqualified_by,omitempty"`
	DisqualificationReason *string    `json:"disqualification_reason,omitempty"`
	Notes                  *string    `json:"notes,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// QualifyVendorRequest represents the request body for qualifying a vendor
type QualifyVendorRequest struct {
	VendorID string  `json:"vendor_id"`
	TenantID string  `json:"tenant_id"`
	Notes    *string `json:"notes,omitempty"`
}

// DisqualifyVendorRequest represents the request body for disqualification
type DisqualifyVendorRequest struct {
	VendorID string `json:"vendor_id"`
	TenantID string `json:"tenant_id"`
	Reason   string `json:"reason"`
}
