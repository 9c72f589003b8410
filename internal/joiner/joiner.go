// Package joiner expands mapped items against the catalog's vendor-code to
// internal-id mapping and removes duplicate identity triples.
package joiner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"inventory-connector-service/internal/mapper"
	"inventory-connector-service/internal/models"
)

// Joiner fans mapped items out to canonical records.
type Joiner struct {
	log *logrus.Logger
}

// New creates a Joiner.
func New(log *logrus.Logger) *Joiner {
	return &Joiner{log: log}
}

// Join produces one canonical record per (item, mapped internal id) pair.
// Items whose vendor code is outside the Job's requested set are dropped
// silently; codes with no internal-id mapping are logged and skipped. Items
// classified as errored keep only their identity fields and modified_on.
// Duplicate (vendor_id, vendor_code, internal_id) triples collapse to the
// first occurrence.
func (j *Joiner) Join(items []models.CanonicalItem, vendorID int64, codeToInternal map[string][]int64, statuses []mapper.CodeStatus, jobCodes []string) []models.CanonicalInventoryRecord {
	errored := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		errored[strings.ToLower(s.VendorCode)] = s.Error
	}

	seen := make(map[string]struct{})
	var out []models.CanonicalInventoryRecord
	for _, item := range items {
		code, _ := item["vendor_code"].(string)
		if code == "" || !codeInSet(code, jobCodes) {
			continue
		}
		folded := strings.ToLower(code)
		ids := codeToInternal[folded]
		if len(ids) == 0 {
			j.log.WithFields(logrus.Fields{
				"vendor_id":   vendorID,
				"vendor_code": code,
			}).Info("No internal_id is mapped for vendor code")
			continue
		}
		for _, id := range ids {
			key := folded + "/" + strconv.FormatInt(id, 10)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, j.buildRecord(item, vendorID, code, id, errored[folded]))
		}
	}
	return out
}

// ExpandStatuses fans per-code statuses out to every mapped internal id so
// the Sink can address each (vendor_id, vendor_code, internal_id) row.
func (j *Joiner) ExpandStatuses(statuses []mapper.CodeStatus, vendorID int64, codeToInternal map[string][]int64) []models.VendorCodeStatus {
	var out []models.VendorCodeStatus
	for _, s := range statuses {
		ids := codeToInternal[strings.ToLower(s.VendorCode)]
		for _, id := range ids {
			out = append(out, models.VendorCodeStatus{
				VendorID:         vendorID,
				VendorCode:       s.VendorCode,
				InternalID:       id,
				Error:            s.Error,
				ErrorDescription: s.ErrorDescription,
			})
		}
	}
	return out
}

func (j *Joiner) buildRecord(item models.CanonicalItem, vendorID int64, code string, internalID int64, errored bool) models.CanonicalInventoryRecord {
	rec := models.CanonicalInventoryRecord{
		VendorID:   vendorID,
		VendorCode: code,
		InternalID: internalID,
	}
	if s, ok := item["modified_on"].(string); ok {
		rec.ModifiedOn = s
	}
	if errored {
		// Errored codes never carry stale business data.
		return rec
	}
	rec.Cost = j.toFloatPtr(item["cost"])
	rec.Currency = toStringPtr(item["currency"])
	rec.AvailabilityCount = j.toInt64Ptr(item["availability_count"])
	rec.AvailabilityStatus = toBoolPtr(item["availability_status"])
	rec.NextAvailabilityDate = toStringPtr(item["next_availability_date"])
	return rec
}

func (j *Joiner) toFloatPtr(v interface{}) *float64 {
	switch tv := v.(type) {
	case nil:
		return nil
	case float64:
		return &tv
	case int:
		f := float64(tv)
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(tv), 64)
		if err != nil {
			j.log.WithField("value", tv).Warn("Dropping non-numeric cost value")
			return nil
		}
		return &f
	default:
		return nil
	}
}

func (j *Joiner) toInt64Ptr(v interface{}) *int64 {
	switch tv := v.(type) {
	case nil:
		return nil
	case float64:
		n := int64(tv)
		return &n
	case int:
		n := int64(tv)
		return &n
	case int64:
		return &tv
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(tv), 10, 64)
		if err != nil {
			j.log.WithField("value", tv).Warn("Dropping non-numeric availability count")
			return nil
		}
		return &n
	default:
		return nil
	}
}

func toBoolPtr(v interface{}) *bool {
	switch tv := v.(type) {
	case bool:
		return &tv
	case string:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(tv)))
		if err != nil {
			return nil
		}
		return &b
	case float64:
		b := tv != 0
		return &b
	default:
		return nil
	}
}

func toStringPtr(v interface{}) *string {
	switch tv := v.(type) {
	case nil:
		return nil
	case string:
		if tv == "" {
			return nil
		}
		return &tv
	default:
		s := fmt.Sprint(tv)
		return &s
	}
}

func codeInSet(code string, codes []string) bool {
	for _, c := range codes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}
