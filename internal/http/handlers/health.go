package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/normscout/normscout-backend/internal/catalog"
)

type HealthHandler struct {
	catalog *catalog.Catalog
}

func NewHealthHandler(cat *catalog.Catalog) *HealthHandler {
	return &HealthHandler{catalog: cat}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// CatalogStats exposes the norm cache state for debugging.
func (h *HealthHandler) CatalogStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.GetStats())
}
