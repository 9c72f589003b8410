package mapper

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-connector-service/internal/models"
)

func newTestMapper() *FieldMapper {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewFieldMapper(log)
}

func invCfg(mappings ...models.FieldMapping) *models.ConnectorConfig {
	return &models.ConnectorConfig{Mapping: models.Mapping{InventoryTable: mappings}}
}

var batchTime = time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC)

func TestMapDirectLookup(t *testing.T) {
	m := newTestMapper()
	cfg := invCfg(
		models.FieldMapping{DestinationField: "vendor_code", SourceField: "code"},
		models.FieldMapping{DestinationField: "cost", SourceField: "p"},
	)
	items := []models.FlatItem{{"code": "A1", "p": "10.00"}}

	out := m.Map(items, cfg, []string{"A1"}, batchTime)

	require.Len(t, out, 1)
	assert.Equal(t, "A1", out[0]["vendor_code"])
	assert.Equal(t, "10.00", out[0]["cost"])
	assert.Equal(t, "2024-05-10T12:30:00.000000", out[0]["modified_on"])
}

func TestMapCurrencySignStripping(t *testing.T) {
	m := newTestMapper()
	cfg := invCfg(
		models.FieldMapping{DestinationField: "cost", SourceField: "price", CurrencySign: "$"},
	)
	items := []models.FlatItem{{"price": "$ 10.50"}}

	out := m.Map(items, cfg, nil, batchTime)

	require.Len(t, out, 1)
	assert.Equal(t, 10.50, out[0]["cost"])
}

func TestMapEarliestDateFromArray(t *testing.T) {
	m := newTestMapper()
	cfg := invCfg(
		models.FieldMapping{
			DestinationField: "next_availability_date",
			SourceField:      "shipments[date].eta",
			SourceFormat:     "%Y-%m-%d",
		},
	)
	items := []models.FlatItem{{
		"shipments": []interface{}{
			map[string]interface{}{"eta": "2024-06-01"},
			map[string]interface{}{"eta": "2024-05-20"},
			map[string]interface{}{"eta": nil},
		},
	}}

	out := m.Map(items, cfg, nil, batchTime)

	require.Len(t, out, 1)
	assert.Equal(t, "2024-05-20 00:00:00", out[0]["next_availability_date"])
}

func TestMapCommaSeparatedVendorCodeFallback(t *testing.T) {
	m := newTestMapper()
	cfg := invCfg(
		models.FieldMapping{DestinationField: "vendor_code", SourceField: "productNumber, longProductNumber"},
	)
	items := []models.FlatItem{{"longProductNumber": "LP-77"}}

	out := m.Map(items, cfg, nil, batchTime)

	require.Len(t, out, 1)
	assert.Equal(t, "LP-77", out[0]["vendor_code"])
}

func TestMapLoopSum(t *testing.T) {
	m := newTestMapper()
	cfg := invCfg(
		models.FieldMapping{DestinationField: "availability_count", SourceField: "warehouses.qty[i]"},
	)
	items := []models.FlatItem{{
		"warehouses": []interface{}{
			map[string]interface{}{"qty": float64(3)},
			map[string]interface{}{"qty": "4"},
		},
	}}

	out := m.Map(items, cfg, nil, batchTime)

	require.Len(t, out, 1)
	assert.Equal(t, 7, out[0]["availability_count"])
}

func TestMapLoopOverArrayWithoutElementKeySkipsItem(t *testing.T) {
	m := newTestMapper()
	cfg := invCfg(
		models.FieldMapping{DestinationField: "availability_count", SourceField: "warehouses[i]"},
		models.FieldMapping{DestinationField: "vendor_code", SourceField: "code"},
	)
	items := []models.FlatItem{
		{"code": "BAD", "warehouses": []interface{}{map[string]interface{}{"qty": float64(3)}}},
		{"code": "OK", "warehouses": float64(0)},
	}

	out := m.Map(items, cfg, nil, batchTime)

	require.Len(t, out, 1)
	assert.Equal(t, "OK", out[0]["vendor_code"])
}

func TestMapLoopDictPick(t *testing.T) {
	m := newTestMapper()
	cfg := invCfg(
		models.FieldMapping{DestinationField: "availability_count", SourceField: "stock.total[i]"},
	)
	items := []models.FlatItem{{
		"stock": map[string]interface{}{"total": float64(12)},
	}}

	out := m.Map(items, cfg, nil, batchTime)

	require.Len(t, out, 1)
	assert.Equal(t, float64(12), out[0]["availability_count"])
}

func TestMapMultiSegmentCompoundKeyFirst(t *testing.T) {
	m := newTestMapper()
	cfg := invCfg(
		models.FieldMapping{DestinationField: "availability_status", SourceField: "stock.available"},
	)

	// Depth-bounded flattening produced the compound key directly.
	out := m.Map([]models.FlatItem{{"stock.available": true}}, cfg, nil, batchTime)
	require.Len(t, out, 1)
	assert.Equal(t, true, out[0]["availability_status"])

	// Or the prefix survived as a nested leaf.
	out = m.Map([]models.FlatItem{{"stock": map[string]interface{}{"available": false}}}, cfg, nil, batchTime)
	require.Len(t, out, 1)
	assert.Equal(t, false, out[0]["availability_status"])
}

func TestMapMultiVendorCodePick(t *testing.T) {
	m := newTestMapper()
	cfg := invCfg(models.FieldMapping{DestinationField: "multi_vendor_code", SourceField: "ignored"})

	out := m.Map([]models.FlatItem{
		{"DistributorItemIdentifier": "12345", "ManufacturerItemIdentifier": "AB-1"},
		{"DistributorItemIdentifier": "none", "ManufacturerItemIdentifier": "AB-1"},
	}, cfg, []string{"12345", "AB-1"}, batchTime)

	require.Len(t, out, 2)
	assert.Equal(t, "12345", out[0]["vendor_code"], "all-digit distributor identifier wins")
	assert.Equal(t, "AB-1", out[1]["vendor_code"], "manufacturer identifier is the fallback")
}

func TestMapUnmappedFieldFallsBackToNull(t *testing.T) {
	m := newTestMapper()
	cfg := invCfg(models.FieldMapping{DestinationField: "cost", SourceField: "missing"})

	out := m.Map([]models.FlatItem{{"code": "A1"}}, cfg, nil, batchTime)

	require.Len(t, out, 1)
	assert.Nil(t, out[0]["cost"])
}

func TestNormalizeDateFailureMarker(t *testing.T) {
	m := newTestMapper()
	cfg := invCfg(
		models.FieldMapping{
			DestinationField: "next_availability_date",
			SourceField:      "eta",
			SourceFormat:     "%Y-%m-%d",
		},
	)

	out := m.Map([]models.FlatItem{{"eta": "2024-13-40"}}, cfg, nil, batchTime)

	require.Len(t, out, 1)
	assert.Equal(t, "Failed to convert: 2024-13-40", out[0]["next_availability_date"])
}

func TestNormalizeDateIdempotent(t *testing.T) {
	m := newTestMapper()
	item := models.CanonicalItem{"next_availability_date": "2022-09-14 00:00:00"}

	m.normalizeAvailabilityDate(item, "%d/%m/%Y")
	assert.Equal(t, "2022-09-14 00:00:00", item["next_availability_date"])

	m.normalizeAvailabilityDate(item, "%d/%m/%Y")
	assert.Equal(t, "2022-09-14 00:00:00", item["next_availability_date"])
}

func TestNormalizeDateMissingBecomesNull(t *testing.T) {
	m := newTestMapper()
	cfg := invCfg(models.FieldMapping{DestinationField: "vendor_code", SourceField: "code"})

	out := m.Map([]models.FlatItem{{"code": "A1"}}, cfg, nil, batchTime)

	require.Len(t, out, 1)
	v, present := out[0]["next_availability_date"]
	assert.True(t, present)
	assert.Nil(t, v)
}
