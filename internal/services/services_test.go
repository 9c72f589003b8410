package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-connector-service/internal/models"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestVendorSemaphoreLimitsPerVendor(t *testing.T) {
	sem := NewVendorSemaphore(&ConcurrencyConfig{MaxConcurrentJobs: 5, MaxConcurrentPerVendor: 1})

	release, ok := sem.TryAcquire(7)
	require.True(t, ok)
	assert.True(t, sem.VendorActive(7))

	_, ok = sem.TryAcquire(7)
	assert.False(t, ok, "second job for the same vendor should be rejected")

	otherRelease, ok := sem.TryAcquire(8)
	require.True(t, ok, "a different vendor should still get a slot")
	otherRelease()

	release()
	assert.False(t, sem.VendorActive(7))

	_, ok = sem.TryAcquire(7)
	assert.True(t, ok)
}

func TestVendorSemaphoreGlobalLimit(t *testing.T) {
	sem := NewVendorSemaphore(&ConcurrencyConfig{MaxConcurrentJobs: 2, MaxConcurrentPerVendor: 1})

	r1, ok := sem.TryAcquire(1)
	require.True(t, ok)
	r2, ok := sem.TryAcquire(2)
	require.True(t, ok)

	_, ok = sem.TryAcquire(3)
	assert.False(t, ok, "global limit should reject a third job")
	assert.Equal(t, 2, sem.ActiveJobCount())

	r1()
	r2()
	assert.Equal(t, 0, sem.ActiveJobCount())
}

func TestVendorSemaphoreReleaseIsIdempotent(t *testing.T) {
	sem := NewVendorSemaphore(&ConcurrencyConfig{MaxConcurrentJobs: 1, MaxConcurrentPerVendor: 1})

	release, ok := sem.TryAcquire(1)
	require.True(t, ok)
	release()
	release()

	assert.Equal(t, 0, sem.ActiveJobCount())
}

func TestConfigLoaderInlineDocument(t *testing.T) {
	loader := NewConfigLoader("", time.Second, newTestLogger())

	job := &models.Job{
		VendorID:   1,
		ConfigJSON: []byte(`{"protocol":"rest-json","chunk_limit":25}`),
	}
	doc, err := loader.Load(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "rest-json", doc["protocol"])
}

func TestConfigLoaderFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vendor-5.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"protocol":"ftp-csv"}`), 0o644))

	loader := NewConfigLoader(dir, time.Second, newTestLogger())
	job := &models.Job{VendorID: 5, ConfigPath: "vendor-5.json"}

	doc, err := loader.Load(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "ftp-csv", doc["protocol"])
}

func TestConfigLoaderFromHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/configs/vendor-9.json", r.URL.Path)
		w.Write([]byte(`{"protocol":"rest-xml"}`))
	}))
	defer server.Close()

	loader := NewConfigLoader(server.URL+"/configs", time.Second, newTestLogger())
	job := &models.Job{VendorID: 9, ConfigPath: "vendor-9.json"}

	doc, err := loader.Load(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "rest-xml", doc["protocol"])
}

func TestConfigLoaderRejectsMalformedDocument(t *testing.T) {
	loader := NewConfigLoader("", time.Second, newTestLogger())
	job := &models.Job{VendorID: 1, ConfigJSON: []byte(`{not json`)}

	_, err := loader.Load(context.Background(), job)
	assert.Error(t, err)
}

func TestConfigLoaderRequiresSource(t *testing.T) {
	loader := NewConfigLoader("", time.Second, newTestLogger())
	_, err := loader.Load(context.Background(), &models.Job{VendorID: 1})
	assert.Error(t, err)
}

func TestFilterKnownCodes(t *testing.T) {
	valid, unknown := filterKnownCodes(
		[]string{"AB-12", "cd-34", "GHOST"},
		[]string{"ab-12", "CD-34", "EF-56"},
	)

	assert.Equal(t, []string{"AB-12", "cd-34"}, valid)
	assert.Equal(t, []string{"GHOST"}, unknown)
}

func TestFilterKnownCodesAllUnknown(t *testing.T) {
	valid, unknown := filterKnownCodes([]string{"X1", "X2"}, []string{"A1"})

	assert.Empty(t, valid)
	assert.Equal(t, []string{"X1", "X2"}, unknown)
}
