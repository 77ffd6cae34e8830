package models

import "time"

// Work-order lifecycle states. A work order moves
// created -> assigned -> in_progress -> completed; cancelled is terminal.
const (
	WorkOrderCreated    = "created"
	WorkOrderAssigned   = "assigned"
	WorkOrderInProgress = "in_progress"
	WorkOrderCompleted  = "completed"
	WorkOrderCancelled  = "cancelled"
)

// Vendor selection methods controlling how vendors learn about a work order
const (
	SelectionAutoNotify     = "auto_notify"
	SelectionInviteSpecific = "invite_specific"
	SelectionDiscoverable   = "discoverable"
	SelectionOpen           = "open"
)

// WorkOrder is a single job request tied to a tenant, a SKU, a location,
// and a schedule.
type WorkOrder struct {
	ID                    string     `json:"id"`
	TenantID              string     `json:"tenant_id"`
	CreatedBy             string     `json:"created_by"`
	SkuID                 string     `json:"sku_id"`
	Title                 string     `json:"title"`
	Description           *string    `json:"description,omitempty"`
	Priority              string     `json:"priority"`
	Address               string     `json:"address"`
	Zipcode               string     `json:"zipcode"`
	Latitude              *float64   `json:"latitude,omitempty"`
	Longitude             *float64   `json:"longitude,omitempty"`
	CustomerName          *string    `json:"customer_name,omitempty"`
	CustomerPhone         *string    `json:"customer_phone,omitempty"`
	CustomerEmail         *string    `json:"customer_email,omitempty"`
	PreferredDate         string     `json:"preferred_date"`
	PreferredTimeStart    string     `json:"preferred_time_start"`
	PreferredTimeEnd      *string    `json:"preferred_time_end,omitempty"`
	VendorSelectionMethod string     `json:"vendor_selection_method"`
	Status                string     `json:"status"`
	AssignedVendorID      *string    `json:"assigned_vendor_id,omitempty"`
	AssignedAt            *time.Time `json:"assigned_at,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	CompletionNotes       *string    `json:"completion_notes,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// LineItem is a billed unit on a work order: the primary SKU or an add-on
type LineItem struct {
	ID          string  `json:"id"`
	WorkOrderID string  `json:"work_order_id"`
	SkuID       string  `json:"sku_id"`
	SkuCode     string  `json:"sku_code,omitempty"`
	SkuName     string  `json:"sku_name,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
	IsAddon     bool    `json:"is_addon"`
	Status      string  `json:"status"`
}

// CreateWorkOrderRequest represents the request body for work-order creation
type CreateWorkOrderRequest struct {
	TenantID              string   `json:"tenant_id"`
	CreatedBy             string   `json:"created_by"`
	SkuID                 string   `json:"sku_id"`
	Title                 string   `json:"title"`
	Description           *string  `json:"description,omitempty"`
	Priority              *string  `json:"priority,omitempty"`
	Address               string   `json:"address"`
	Zipcode               string   `json:"zipcode"`
	Latitude              *float64 `json:"latitude,omitempty"`
	Longitude             *float64 `json:"longitude,omitempty"`
	CustomerName          *string  `json:"customer_name,omitempty"`
	CustomerPhone         *string  `json:"customer_phone,omitempty"`
	CustomerEmail         *string  `json:"customer_email,omitempty"`
	PreferredDate         string   `json:"preferred_date"`
	PreferredTimeStart    string   `json:"preferred_time_start"`
	PreferredTimeEnd      *string  `json:"preferred_time_end,omitempty"`
	VendorSelectionMethod *string  `json:"vendor_selection_method,omitempty"`
}

// AcceptWorkOrderRequest represents the request body for vendor acceptance
type AcceptWorkOrderRequest struct {
	VendorID string  `json:"vendor_id"`
	Notes    *string `json:"notes,omitempty"`
}

// CompleteWorkOrderRequest represents the request body for completion
type CompleteWorkOrderRequest struct {
	CompletionNotes *string `json:"completion_notes,omitempty"`
}

// AvailableWorkOrder is the vendor-facing listing row for open work orders
type AvailableWorkOrder struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        *string   `json:"description,omitempty"`
	Priority           string    `json:"priority"`
	Zipcode            string    `json:"zipcode"`
	PreferredDate      string    `json:"preferred_date"`
	PreferredTimeStart string    `json:"preferred_time_start"`
	PreferredTimeEnd   *string   `json:"preferred_time_end,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	SkuCode            string    `json:"sku_code"`
	SkuName            string    `json:"sku_name"`
	CurrentPrice       float64   `json:"current_price"`
}

// VendorResponse is the notification-ledger row for a (work order, vendor)
// pair: notified, accepted, or declined_auto.
type VendorResponse struct {
	ID          string    `json:"id"`
	WorkOrderID string    `json:"work_order_id"`
	VendorID    string    `json:"vendor_id"`
	Response    string    `json:"response"`
	ResponseAt  time.Time `json:"response_at"`
	Notes       *string   `json:"notes,omitempty"`
}
