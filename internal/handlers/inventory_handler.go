package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"inventory-connector-service/internal/repository"
)

// InventoryHandler handles live inventory endpoints
type InventoryHandler struct {
	catalogRepo *repository.CatalogRepository
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(catalogRepo *repository.CatalogRepository) *InventoryHandler {
	return &InventoryHandler{catalogRepo: catalogRepo}
}

// ListInventory returns the live inventory rows for a vendor
func (h *InventoryHandler) ListInventory(c *gin.Context) {
	vendorID, err := strconv.ParseInt(c.Param("vendorId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor id"})
		return
	}

	rows, total, err := h.catalogRepo.ListInventory(c.Request.Context(), vendorID, listOptions(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  rows,
		"total": total,
	})
}
