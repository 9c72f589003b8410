package mapper

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-connector-service/internal/models"
)

func newTestClassifier() *Classifier {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewClassifier(log)
}

func statusCfg(statusMapping []string, mappings ...models.FieldMapping) *models.ConnectorConfig {
	return &models.ConnectorConfig{Mapping: models.Mapping{
		VendorCodeTable:    mappings,
		MessageWhenNoError: statusMapping,
	}}
}

func TestClassifyWithStatusMapping(t *testing.T) {
	c := newTestClassifier()
	cfg := statusCfg([]string{"SUCCESS", "OK"},
		models.FieldMapping{DestinationField: "vendor_code", SourceField: "sku"},
		models.FieldMapping{DestinationField: "error_description", SourceField: "status"},
	)
	items := []models.FlatItem{
		{"sku": "A1", "status": "SUCCESS"},
		{"sku": "B2", "status": "ITEM_NOT_FOUND"},
	}

	out := c.Classify(items, cfg, []string{"A1", "B2"})

	require.Len(t, out, 2)
	assert.Equal(t, CodeStatus{VendorCode: "A1", Error: false, ErrorDescription: "SUCCESS"}, out[0])
	assert.Equal(t, CodeStatus{VendorCode: "B2", Error: true, ErrorDescription: "ITEM_NOT_FOUND"}, out[1])
}

func TestClassifyHeuristicsWithoutStatusMapping(t *testing.T) {
	c := newTestClassifier()
	cfg := statusCfg(nil,
		models.FieldMapping{DestinationField: "vendor_code", SourceField: "sku"},
		models.FieldMapping{DestinationField: "error_description", SourceField: "failureReason"},
	)
	items := []models.FlatItem{
		{"sku": "A1", "failureReason": "no such item"},
		{"sku": "B2"},
	}

	out := c.Classify(items, cfg, []string{"A1", "B2"})

	require.Len(t, out, 2)
	assert.True(t, out[0].Error)
	assert.Equal(t, "no such item", out[0].ErrorDescription)
	assert.False(t, out[1].Error)
	assert.Equal(t, "No Error", out[1].ErrorDescription)
}

func TestClassifyAnyValueQuirk(t *testing.T) {
	cfg := statusCfg(nil,
		models.FieldMapping{DestinationField: "vendor_code", SourceField: "sku"},
		models.FieldMapping{DestinationField: "error", SourceField: "state"},
	)
	items := []models.FlatItem{{"sku": "A1", "state": "FAILED"}}

	c := newTestClassifier()
	out := c.Classify(items, cfg, []string{"A1"})
	require.Len(t, out, 1)
	assert.True(t, out[0].Error, "observed behavior: any value raises the flag")

	c.TreatAnyValueAsError = false
	out = c.Classify(items, cfg, []string{"A1"})
	require.Len(t, out, 1)
	assert.False(t, out[0].Error, "strict mode lets the FAILED sentinel through")
}

func TestClassifyCommaSeparatedSource(t *testing.T) {
	c := newTestClassifier()
	cfg := statusCfg([]string{"OK"},
		models.FieldMapping{DestinationField: "vendor_code", SourceField: "sku"},
		models.FieldMapping{DestinationField: "error_description", SourceField: "result, fallbackResult"},
	)
	items := []models.FlatItem{{"sku": "A1", "fallbackResult": "OK"}}

	out := c.Classify(items, cfg, []string{"A1"})

	require.Len(t, out, 1)
	assert.False(t, out[0].Error)
	assert.Equal(t, "OK", out[0].ErrorDescription)
}

func TestClassifyFiltersAndDeduplicates(t *testing.T) {
	c := newTestClassifier()
	cfg := statusCfg([]string{"OK"},
		models.FieldMapping{DestinationField: "vendor_code", SourceField: "sku"},
		models.FieldMapping{DestinationField: "error_description", SourceField: "status"},
	)
	items := []models.FlatItem{
		{"sku": "A1", "status": "OK"},
		{"sku": "a1", "status": "BROKEN"}, // duplicate, first wins
		{"sku": "ZZ", "status": "OK"},    // not requested
		{"status": "OK"},                 // no code at all
	}

	out := c.Classify(items, cfg, []string{"A1"})

	require.Len(t, out, 1)
	assert.Equal(t, "A1", out[0].VendorCode)
	assert.False(t, out[0].Error)
}
