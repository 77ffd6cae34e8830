package models

import "time"

// Invoice bills a tenant for a completed work order
type Invoice struct {
	ID             string     `json:"id"`
	WorkOrderID    string     `json:"work_order_id"`
	TenantID       string     `json:"tenant_id"`
	VendorID       string     `json:"vendor_id"`
	InvoiceNumber  string     `json:"invoice_number"`
	Subtotal       float64    `json:"subtotal"`
	TaxAmount      float64    `json:"tax_amount"`
	TotalAmount    float64    `json:"total_amount"`
	Status         string     `json:"status"` // draft | issued | paid
	DueDate        *time.Time `json:"due_date,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	TenantName     *string    `json:"tenant_name,omitempty"`
	VendorName     *string    `json:"vendor_name,omitempty"`
	WorkOrderTitle *string    `json:"work_order_title,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// InvoiceLineItem is one billed line on an invoice
type InvoiceLineItem struct {
	ID          string  `json:"id"`
	InvoiceID   string  `json:"invoice_id"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
	SkuID       *string `json:"sku_id,omitempty"`
	SkuName     *string `json:"sku_name,omitempty"`
	SkuCode     *string `json:"sku_code,omitempty"`
}

// CreateInvoiceRequest represents the request body for invoice generation
type CreateInvoiceRequest struct {
	WorkOrderID string   `json:"work_order_id"`
	TaxRate     *float64 `json:"tax_rate,omitempty"`
	DueDays     *int     `json:"due_days,omitempty"`
}
