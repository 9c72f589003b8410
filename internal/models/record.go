package models

// FlatItem is one vendor response item reduced to a dotted-path → value map.
type FlatItem map[string]interface{}

// CanonicalItem is the mapped but not yet joined form of a vendor item:
// canonical field names, no internal id.
type CanonicalItem map[string]interface{}

// CanonicalInventoryRecord is the normalized inventory row keyed by
// (vendor_id, vendor_code, internal_id).
type CanonicalInventoryRecord struct {
	VendorID             int64    `json:"vendor_id"`
	VendorCode           string   `json:"vendor_code"`
	InternalID           int64    `json:"internal_id"`
	Cost                 *float64 `json:"cost"`
	Currency             *string  `json:"currency"`
	AvailabilityCount    *int64   `json:"availability_count"`
	AvailabilityStatus   *bool    `json:"availability_status"`
	NextAvailabilityDate *string  `json:"next_availability_date"`
	ModifiedOn           string   `json:"modified_on"`
}
