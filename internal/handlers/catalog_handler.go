package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"inventory-connector-service/internal/repository"
)

// CatalogHandler handles vendor catalog endpoints
type CatalogHandler struct {
	catalogRepo *repository.CatalogRepository
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogRepo *repository.CatalogRepository) *CatalogHandler {
	return &CatalogHandler{catalogRepo: catalogRepo}
}

// ListVendors returns the configured vendors
func (h *CatalogHandler) ListVendors(c *gin.Context) {
	opts := listOptions(c)

	vendors, total, err := h.catalogRepo.ListVendors(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  vendors,
		"total": total,
	})
}

// GetVendor returns a single vendor
func (h *CatalogHandler) GetVendor(c *gin.Context) {
	vendorID, err := strconv.ParseInt(c.Param("vendorId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor id"})
		return
	}

	vendor, err := h.catalogRepo.GetVendor(c.Request.Context(), vendorID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "vendor not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vendor})
}

// ListVendorCodes returns the item codes mapped for a vendor
func (h *CatalogHandler) ListVendorCodes(c *gin.Context) {
	vendorID, err := strconv.ParseInt(c.Param("vendorId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor id"})
		return
	}

	codes, err := h.catalogRepo.VendorCodes(c.Request.Context(), vendorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  codes,
		"total": len(codes),
	})
}

func listOptions(c *gin.Context) repository.ListOptions {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return repository.ListOptions{Limit: limit, Offset: offset}
}
