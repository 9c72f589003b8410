// Package mapper maps normalized vendor items onto canonical inventory
// fields and classifies per-code error status.
package mapper

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"inventory-connector-service/internal/dateutil"
	"inventory-connector-service/internal/flatten"
	"inventory-connector-service/internal/models"
)

const (
	// multiVendorCodeField marks a mapping whose vendor code arrives in one
	// of two identifier fields depending on the code kind.
	multiVendorCodeField = "multi_vendor_code"

	distributorIdentifier  = "DistributorItemIdentifier"
	manufacturerIdentifier = "ManufacturerItemIdentifier"

	// loopMarker addresses a nested array whose elements are summed.
	loopMarker = "[i]"
	// dateMarker separates the path to a date-candidate array from the key
	// holding each candidate's date string.
	dateMarker = "[date]."

	failedConvertPrefix = "Failed to convert: "
)

// FieldMapper applies a vendor config's ordered field mappings to FlatItems.
type FieldMapper struct {
	log *logrus.Logger
}

// NewFieldMapper creates a FieldMapper.
func NewFieldMapper(log *logrus.Logger) *FieldMapper {
	return &FieldMapper{log: log}
}

// Map maps every FlatItem to a CanonicalItem. An item whose shape defeats a
// rule is skipped with a log entry; siblings are unaffected. now stamps the
// whole batch's modified_on.
func (m *FieldMapper) Map(items []models.FlatItem, cfg *models.ConnectorConfig, jobCodes []string, now time.Time) []models.CanonicalItem {
	mappings := cfg.Mapping.InventoryTable
	dateFormat := sourceFormatFor(mappings, "next_availability_date")
	modifiedOn := now.Format(dateutil.TimestampLayout)

	out := make([]models.CanonicalItem, 0, len(items))
	for _, item := range items {
		mapped, err := m.mapItem(item, mappings, jobCodes, dateFormat)
		if err != nil {
			m.log.WithError(err).Warn("Skipping item with unexpected shape")
			continue
		}
		mapped["modified_on"] = modifiedOn
		m.normalizeAvailabilityDate(mapped, dateFormat)
		out = append(out, mapped)
	}
	return out
}

func (m *FieldMapper) mapItem(item models.FlatItem, mappings []models.FieldMapping, jobCodes []string, dateFormat string) (models.CanonicalItem, error) {
	dst := make(models.CanonicalItem, len(mappings))
	for _, fm := range mappings {
		dest := fm.DestinationField
		src := fm.SourceField

		// Identifier-kind pick: whichever of the two identifier fields is
		// present, in the requested set and type-correct wins.
		if dest == multiVendorCodeField {
			if code := pickIdentifier(item, jobCodes); code != "" {
				dst["vendor_code"] = code
			}
			continue
		}

		// Currency-signed cost strings get the sign stripped before parse.
		if dest == "cost" && fm.CurrencySign != "" {
			if s, ok := item[src].(string); ok {
				v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, fm.CurrencySign, "")), 64)
				if err != nil {
					return nil, fmt.Errorf("parsing cost %q: %w", s, err)
				}
				dst[dest] = v
				continue
			}
		}

		// Earliest date out of a candidate array.
		if dest == "next_availability_date" && strings.Contains(src, dateMarker) {
			if t, ok := m.minDate(item, src, dateFormat); ok {
				dst[dest] = t
				continue
			}
		}

		// The vendor code may arrive in any of several fields, listed
		// comma-separated; the first non-empty one wins.
		if dest == "vendor_code" && strings.Contains(src, ",") {
			for _, candidate := range strings.Split(src, ",") {
				candidate = strings.TrimSpace(candidate)
				if v := lookupPath(item, candidate); v != nil && fmt.Sprint(v) != "" {
					src = candidate
					break
				}
			}
		}

		// Direct flat-key lookup.
		if v, ok := item[src]; ok && truthy(v) {
			dst[dest] = v
			continue
		}

		// Loop mapping: sum a nested array, or pick a key from a nested
		// object, addressed by the prefix before the marker.
		if idx := strings.Index(src, loopMarker); idx != -1 {
			segs := strings.Split(src[:idx], ".")
			node := item[segs[0]]
			switch nv := node.(type) {
			case []interface{}:
				if len(segs) < 2 {
					return nil, fmt.Errorf("loop mapping %q: no element key", src)
				}
				sum := 0
				for _, el := range nv {
					obj, ok := el.(map[string]interface{})
					if !ok {
						return nil, fmt.Errorf("loop mapping %q: element is not an object", src)
					}
					n, err := toInt(obj[segs[1]])
					if err != nil {
						return nil, fmt.Errorf("loop mapping %q: %w", src, err)
					}
					sum += n
				}
				dst[dest] = sum
			case map[string]interface{}:
				dst[dest] = nv[segs[len(segs)-1]]
			default:
				dst[dest] = 0
			}
			continue
		}

		// Multi-segment path: the compound dotted key first, then a walk
		// through whatever structure survived flattening.
		if segs := strings.Split(src, "."); len(segs) > 1 {
			dst[dest] = lookupPath(item, src)
			continue
		}

		dst[dest] = nil
	}
	return dst, nil
}

// normalizeAvailabilityDate rewrites next_availability_date into the
// canonical layout, an explicit failure-marker string, or null. A value
// already canonical is kept as-is, so normalizing twice is a no-op.
func (m *FieldMapper) normalizeAvailabilityDate(item models.CanonicalItem, dateFormat string) {
	raw, ok := item["next_availability_date"]
	if !ok || raw == nil || raw == "" {
		item["next_availability_date"] = nil
		return
	}
	switch v := raw.(type) {
	case time.Time:
		item["next_availability_date"] = v.Format(dateutil.CanonicalLayout)
	case string:
		if _, err := time.Parse(dateutil.CanonicalLayout, v); err == nil {
			return
		}
		if dateFormat == "" {
			item["next_availability_date"] = failedConvertPrefix + v
			return
		}
		t, err := dateutil.Parse(v, dateFormat)
		if err != nil {
			m.log.WithError(err).WithField("value", v).Warn("Could not normalize next_availability_date")
			item["next_availability_date"] = failedConvertPrefix + v
			return
		}
		item["next_availability_date"] = t.Format(dateutil.CanonicalLayout)
	default:
		item["next_availability_date"] = fmt.Sprintf("%s%v", failedConvertPrefix, v)
	}
}

func (m *FieldMapper) minDate(item models.FlatItem, src, dateFormat string) (time.Time, bool) {
	if dateFormat == "" {
		return time.Time{}, false
	}
	parts := strings.SplitN(src, dateMarker, 2)
	root, leaf := parts[0], parts[1]
	array, ok := item[root].([]interface{})
	if !ok {
		return time.Time{}, false
	}

	var candidates []time.Time
	for _, el := range array {
		obj, ok := el.(map[string]interface{})
		if !ok {
			continue
		}
		s, ok := obj[leaf].(string)
		if !ok || s == "" {
			continue
		}
		t, err := dateutil.Parse(s, dateFormat)
		if err != nil {
			m.log.WithError(err).WithField("value", s).Warn("Skipping unparseable date candidate")
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return time.Time{}, false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })
	return candidates[0], true
}

// pickIdentifier chooses the vendor code between the distributor identifier
// (all-digit codes) and the manufacturer identifier.
func pickIdentifier(item models.FlatItem, jobCodes []string) string {
	if v, ok := item[distributorIdentifier].(string); ok && codeInSet(v, jobCodes) && isAllDigits(v) {
		return v
	}
	if v, ok := item[manufacturerIdentifier].(string); ok && codeInSet(v, jobCodes) {
		return v
	}
	return ""
}

// lookupPath resolves a dotted expression against a FlatItem: the longest
// flat-key prefix wins, then the remainder walks whatever nested value
// survived depth-bounded flattening.
func lookupPath(item models.FlatItem, expr string) interface{} {
	segs := strings.Split(expr, ".")
	for i := len(segs); i >= 1; i-- {
		key := strings.Join(segs[:i], ".")
		v, ok := item[key]
		if !ok {
			continue
		}
		if i == len(segs) {
			return v
		}
		return flatten.Path(segs[i:]).Get(v)
	}
	return nil
}

func sourceFormatFor(mappings []models.FieldMapping, dest string) string {
	for _, fm := range mappings {
		if fm.DestinationField == dest && fm.SourceFormat != "" {
			return fm.SourceFormat
		}
	}
	return ""
}

func codeInSet(code string, codes []string) bool {
	for _, c := range codes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func truthy(v interface{}) bool {
	switch tv := v.(type) {
	case nil:
		return false
	case string:
		return tv != ""
	case bool:
		return tv
	case float64:
		return tv != 0
	case int:
		return tv != 0
	default:
		return true
	}
}

func toInt(v interface{}) (int, error) {
	switch tv := v.(type) {
	case float64:
		return int(tv), nil
	case int:
		return tv, nil
	case string:
		return strconv.Atoi(strings.TrimSpace(tv))
	default:
		return 0, fmt.Errorf("value %v is not numeric", v)
	}
}
