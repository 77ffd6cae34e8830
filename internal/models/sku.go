package models

import "time"

// Sku is a catalog entry describing a purchasable unit of service
type Sku struct {
	ID                       string    `json:"id"`
	TenantID                 *string   `json:"tenant_id,omitempty"` // nil for platform-wide SKUs
	CategoryID               string    `json:"category_id"`
	SkuCode                  string    `json:"sku_code"`
	Name                     string    `json:"name"`
	Description              *string   `json:"description,omitempty"`
	CurrentPrice             float64   `json:"current_price"`
	EstimatedDurationMinutes *int      `json:"estimated_duration_minutes,omitempty"`
	Status                   string    `json:"status"`
	IsAddonAllowed           bool      `json:"is_addon_allowed"`
	CategoryName             *string   `json:"category_name,omitempty"`
	TenantName               *string   `json:"tenant_name,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// CreateSkuRequest represents the request body for creating a SKU
type CreateSkuRequest struct {
	TenantID                 *string  `json:"tenant_id,omitempty"`
	CategoryID               string   `json:"category_id"`
	SkuCode                  string   `json:"sku_code"`
	Name                     string   `json:"name"`
	Description              *string  `json:"description,omitempty"`
	CurrentPrice             *float64 `json:"current_price,omitempty"`
	EstimatedDurationMinutes *int     `json:"estimated_duration_minutes,omitempty"`
	IsAddonAllowed           *bool    `json:"is_addon_allowed,omitempty"`
}

// UpdateSkuRequest represents the request body for updating a SKU
type UpdateSkuRequest struct {
	Name                     *string  `json:"name,omitempty"`
	Description              *string  `json:"description,omitempty"`
	CurrentPrice             *float64 `json:"current_price,omitempty"`
	EstimatedDurationMinutes *int     `json:"estimated_duration_minutes,omitempty"`
	Status                   *string  `json:"status,omitempty"`
	IsAddonAllowed           *bool    `json:"is_addon_allowed,omitempty"`
}

// SkuPriceEntry is one row of a SKU's price history
type SkuPriceEntry struct {
	ID            string    `json:"id"`
	SkuID         string    `json:"sku_id"`
	Price         float64   `json:"price"`
	EffectiveDate time.Time `json:"effective_date"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
}

// Category is a service category grouping SKUs and vendor capabilities
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// AddonSku links a parent SKU to an add-on SKU
type AddonSku struct {
	ID             string    `json:"id"`
	ParentSkuID    string    `json:"parent_sku_id"`
	AddonSkuID     string    `json:"addon_sku_id"`
	IsAutoApproved bool      `json:"is_auto_approved"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateAddonRequest represents the request body for creating an add-on link
type CreateAddonRequest struct {
	ParentSkuID    string `json:"parent_sku_id"`
	AddonSkuID     string `json:"addon_sku_id"`
	IsAutoApproved *bool  `json:"is_auto_approved,omitempty"`
}
