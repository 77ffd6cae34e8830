package models

import "time"

// Vendor represents a registered service vendor
type Vendor struct {
	ID                 string    `json:"id"`
	CompanyName        string    `json:"company_name"`
	BusinessEmail      string    `json:"business_email"`
	BusinessPhone      *string   `json:"business_phone,omitempty"`
	BusinessAddress    *string   `json:"business_address,omitempty"`
	Website            *string   `json:"website,omitempty"`
	RegistrationStatus string    `json:"registration_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ServiceAreaRequest is the polymorphic service-area payload used at
/// registration: type "radius" with a center point, or type "zipcodes"
// with a ZIP list.
type ServiceAreaRequest struct {
	Type            string   `json:"type"`
	CenterAddress   *string  `json:"center_address,omitempty"`
	CenterLatitude  *float64 `json:"center_latitude,omitempty"`
	CenterLongitude *float64 `json:"center_longitude,omitempty"`
	RadiusMiles     *float64 `json:"radius_miles,omitempty"`
	Zipcodes        []string `json:"zipcodes,omitempty"`
}

// RegisterVendorRequest represents the request body for vendor registration
type RegisterVendorRequest struct {
	CompanyName     string             `json:"company_name"`
	BusinessEmail   string             `json:"business_email"`
	BusinessPhone   *string            `json:"business_phone,omitempty"`
	BusinessAddress *string            `json:"business_address,omitempty"`
	ServiceArea     ServiceAreaRequest `json:"service_area"`
	Categories      []string           `json:"categories"`
}

// UpdateVendorRequest represents the request body for vendor profile updates
type UpdateVendorRequest struct {
	CompanyName     *string `json:"company_name,omitempty"`
	BusinessEmail   *string `json:"business_email,omitempty"`
	BusinessPhone   *string `json:"business_phone,omitempty"`
	BusinessAddress *string `json:"business_address,omitempty"`
	Website         *string `json:"website,omitempty"`
}

// RadiusServiceArea is a stored center-point service area
type RadiusServiceArea struct {
	ID              string  `json:"id"`
	VendorID        string  `json:"vendor_id"`
	CenterAddress   *string `json:"center_address,omitempty"`
	CenterLatitude  float64 `json:"center_latitude"`
	CenterLongitude float64 `json:"center_longitude"`
	RadiusMiles     float64 `json:"radius_miles"`
}

// VendorCapability links a vendor to a service category it can perform
type VendorCapability struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name,omitempty"`
}

// ServiceAreaSet groups a vendor's stored service areas by kind
type ServiceAreaSet struct {
	Radius   []RadiusServiceArea `json:"radius"`
	Zipcodes []string            `json:"zipcodes"`
}

// VendorProfile is a vendor plus its service areas and capabilities
type VendorProfile struct {
	Vendor
	ServiceAreas ServiceAreaSet     `json:"service_areas"`
	Capabilities []VendorCapability `json:"capabilities"`
}
