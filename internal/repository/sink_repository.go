package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inventory-connector-service/internal/models"
)

// SinkRepository writes sync results back to the catalog database: live
// inventory rows, per-code error states and per-vendor response bookkeeping
type SinkRepository struct {
	db *gorm.DB
}

// NewSinkRepository creates a new sink repository
func NewSinkRepository(db *gorm.DB) *SinkRepository {
	return &SinkRepository{db: db}
}

// UpsertRecords writes canonical inventory records, replacing existing rows
// for the same (vendor, vendor code, internal id) key
func (r *SinkRepository) UpsertRecords(ctx context.Context, records []models.CanonicalInventoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]models.InventoryLive, 0, len(records))
	for _, rec := range records {
		rows = append(rows, models.InventoryLive{
			VendorID:             rec.VendorID,
			VendorCode:           rec.VendorCode,
			InternalID:           rec.InternalID,
			Cost:                 rec.Cost,
			Currency:             rec.Currency,
			AvailabilityCount:    rec.AvailabilityCount,
			AvailabilityStatus:   rec.AvailabilityStatus,
			NextAvailabilityDate: rec.NextAvailabilityDate,
			ModifiedOn:           rec.ModifiedOn,
		})
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "vendor_id"}, {Name: "vendor_code"}, {Name: "internal_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"cost", "currency", "availability_count", "availability_status",
			"next_availability_date", "modified_on",
		}),
	}).CreateInBatches(rows, 500).Error
}

// UpsertVendorCodeStatuses writes the per-code error classification onto the
// vendor-code mapping rows
func (r *SinkRepository) UpsertVendorCodeStatuses(ctx context.Context, statuses []models.VendorCodeStatus, fetchedAt time.Time) error {
	if len(statuses) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, s := range statuses {
			err := tx.Model(&models.VendorCodeMapping{}).
				Where("vendor_id = ? AND LOWER(vendor_code) = LOWER(?) AND internal_id = ?",
					s.VendorID, s.VendorCode, s.InternalID).
				Updates(map[string]interface{}{
					"error":             s.Error,
					"error_description": s.ErrorDescription,
					"last_fetch_date":   fetchedAt,
					"updated_at":        time.Now(),
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkInvalidCodes flags codes rejected by the vendor's validation rules so
// they stop being reported as stale
func (r *SinkRepository) MarkInvalidCodes(ctx context.Context, vendorID int64, codes []string, description string) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.VendorCodeMapping{}).
		Where("vendor_id = ? AND vendor_code IN ?", vendorID, codes).
		Updates(map[string]interface{}{
			"error":             true,
			"error_description": description,
			"updated_at":        time.Now(),
		}).Error
}

// RecordVendorResponse writes the terminal (code, text) pair of one sync job
// onto the vendor row
func (r *SinkRepository) RecordVendorResponse(ctx context.Context, info models.ResponseInfo) error {
	updates := map[string]interface{}{
		"response_code": info.ResponseCode,
		"response_text": info.ResponseText,
		"updated_at":    time.Now(),
	}
	if info.ResponseText == "" {
		updates["response_text"] = nil
	}
	return r.db.WithContext(ctx).Model(&models.Vendor{}).
		Where("vendor_id = ?", info.VendorID).
		Updates(updates).Error
}

// TouchLastFetch stamps the vendor's last successful fetch time
func (r *SinkRepository) TouchLastFetch(ctx context.Context, vendorID int64, fetchedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Vendor{}).
		Where("vendor_id = ?", vendorID).
		Updates(map[string]interface{}{
			"last_fetch_date": fetchedAt,
			"updated_at":      time.Now(),
		}).Error
}
