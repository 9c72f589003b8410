package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"inventory-connector-service/internal/models"
)

// ListOptions contains pagination options for listing queries
type ListOptions struct {
	Limit  int
	Offset int
}

// CatalogRepository reads vendors and vendor-code mappings from the catalog
// database
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetVendor retrieves a vendor by its id
func (r *CatalogRepository) GetVendor(ctx context.Context, vendorID int64) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "vendor_id = ?", vendorID).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// ListVendors retrieves configured vendors with pagination
func (r *CatalogRepository) ListVendors(ctx context.Context, opts ListOptions) ([]models.Vendor, int64, error) {
	var vendors []models.Vendor
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Vendor{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}

	if err := query.Order("vendor_id").Find(&vendors).Error; err != nil {
		return nil, 0, err
	}

	return vendors, total, nil
}

// VendorCodes retrieves the distinct item codes mapped for a vendor. A sync
// job with no explicit code list runs against this set.
func (r *CatalogRepository) VendorCodes(ctx context.Context, vendorID int64) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).Model(&models.VendorCodeMapping{}).
		Where("vendor_id = ?", vendorID).
		Distinct("vendor_code").
		Pluck("vendor_code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// ListInventory retrieves live inventory rows for a vendor with pagination
func (r *CatalogRepository) ListInventory(ctx context.Context, vendorID int64, opts ListOptions) ([]models.InventoryLive, int64, error) {
	var rows []models.InventoryLive
	var total int64

	query := r.db.WithContext(ctx).Model(&models.InventoryLive{}).Where("vendor_id = ?", vendorID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}

	if err := query.Order("vendor_code, internal_id").Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

// VendorCodeToInternalIDs retrieves the vendor-code → internal-id fan-out for
// a vendor. Keys are lowercased so lookups are case-insensitive.
func (r *CatalogRepository) VendorCodeToInternalIDs(ctx context.Context, vendorID int64) (map[string][]int64, error) {
	var mappings []models.VendorCodeMapping
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Find(&mappings).Error; err != nil {
		return nil, err
	}

	out := make(map[string][]int64, len(mappings))
	for _, m := range mappings {
		key := strings.ToLower(m.VendorCode)
		out[key] = append(out[key], m.InternalID)
	}
	return out, nil
}
