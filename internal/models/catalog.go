package models

import "time"

// Vendor represents a configured supplier and its connector bookkeeping
type Vendor struct {
	VendorID       int64   `gorm:"primaryKey;autoIncrement:false" json:"vendorId"`
	VendorName     string  `gorm:"type:varchar(255);not null" json:"vendorName"`
	VendorURL      *string `gorm:"type:varchar(500)" json:"vendorUrl,omitempty"`
	ConnectionType string  `gorm:"type:varchar(50);not null" json:"connectionType"`
	ConfigPath     string  `gorm:"type:varchar(500)" json:"configPath"`

	// Last connector outcome, one pair per completed run.
	ResponseCode  *int       `json:"responseCode,omitempty"`
	ResponseText  *string    `gorm:"type:text" json:"responseText,omitempty"`
	LastFetchDate *time.Time `json:"lastFetchDate,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for Vendor
func (Vendor) TableName() string {
	return "li_vendors"
}

// VendorCodeMapping links one vendor item code to one internal product id.
// A vendor code may map to several internal ids; each pair is its own row.
type VendorCodeMapping struct {
	VendorID   int64  `gorm:"primaryKey;autoIncrement:false;index:idx_vendor_codes_vendor" json:"vendorId"`
	VendorCode string `gorm:"primaryKey;type:varchar(255)" json:"vendorCode"`
	InternalID int64  `gorm:"primaryKey;autoIncrement:false;index:idx_vendor_codes_internal" json:"internalId"`

	Error            *bool   `json:"error,omitempty"`
	ErrorDescription *string `gorm:"type:text" json:"errorDescription,omitempty"`

	LastFetchDate *time.Time `json:"lastFetchDate,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName specifies the table name for VendorCodeMapping
func (VendorCodeMapping) TableName() string {
	return "li_vendor_codes"
}

// InventoryLive is one canonical live-inventory row, keyed by
// (vendor, vendor code, internal id).
type InventoryLive struct {
	VendorID   int64  `gorm:"primaryKey;autoIncrement:false;index:idx_inventory_live_vendor" json:"vendorId"`
	VendorCode string `gorm:"primaryKey;type:varchar(255)" json:"vendorCode"`
	InternalID int64  `gorm:"primaryKey;autoIncrement:false;index:idx_inventory_live_internal" json:"internalId"`

	Cost                 *float64 `gorm:"type:decimal(12,4)" json:"cost,omitempty"`
	Currency             *string  `gorm:"type:varchar(10)" json:"currency,omitempty"`
	AvailabilityCount    *int64   `json:"availabilityCount,omitempty"`
	AvailabilityStatus   *bool    `json:"availabilityStatus,omitempty"`
	NextAvailabilityDate *string  `gorm:"type:varchar(64)" json:"nextAvailabilityDate,omitempty"`

	ModifiedOn string `gorm:"type:varchar(32);not null" json:"modifiedOn"`
}

// TableName specifies the table name for InventoryLive
func (InventoryLive) TableName() string {
	return "li_inventory_live"
}
