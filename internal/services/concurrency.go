package services

import (
	"sync"
)

// ConcurrencyConfig defines how many sync jobs may run at once. Vendors are
// limited to one running job so chunked requests never interleave with a
// second sync of the same vendor.
type ConcurrencyConfig struct {
	MaxConcurrentJobs      int // Max concurrent jobs across all vendors
	MaxConcurrentPerVendor int // Max concurrent jobs per vendor
}

// DefaultConcurrencyConfig returns production-ready defaults
func DefaultConcurrencyConfig() *ConcurrencyConfig {
	return &ConcurrencyConfig{
		MaxConcurrentJobs:      5,
		MaxConcurrentPerVendor: 1,
	}
}

// VendorSemaphore manages per-vendor sync concurrency limits
type VendorSemaphore struct {
	mu               sync.RWMutex
	config           *ConcurrencyConfig
	activeJobs       int
	activeVendorJobs map[int64]int
}

// NewVendorSemaphore creates a new vendor semaphore manager
func NewVendorSemaphore(config *ConcurrencyConfig) *VendorSemaphore {
	if config == nil {
		config = DefaultConcurrencyConfig()
	}
	return &VendorSemaphore{
		config:           config,
		activeVendorJobs: make(map[int64]int),
	}
}

// TryAcquire attempts to claim a job slot for a vendor without blocking.
// The returned release function must be called when the job finishes.
func (vs *VendorSemaphore) TryAcquire(vendorID int64) (func(), bool) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.activeJobs >= vs.config.MaxConcurrentJobs {
		return nil, false
	}
	if vs.activeVendorJobs[vendorID] >= vs.config.MaxConcurrentPerVendor {
		return nil, false
	}

	vs.activeJobs++
	vs.activeVendorJobs[vendorID]++

	var once sync.Once
	release := func() {
		once.Do(func() {
			vs.mu.Lock()
			vs.activeJobs--
			vs.activeVendorJobs[vendorID]--
			if vs.activeVendorJobs[vendorID] == 0 {
				delete(vs.activeVendorJobs, vendorID)
			}
			vs.mu.Unlock()
		})
	}
	return release, true
}

// ActiveJobCount returns the number of running jobs across all vendors
func (vs *VendorSemaphore) ActiveJobCount() int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.activeJobs
}

// VendorActive reports whether a vendor has a running job
func (vs *VendorSemaphore) VendorActive(vendorID int64) bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.activeVendorJobs[vendorID] > 0
}
