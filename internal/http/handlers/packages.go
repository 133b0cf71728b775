package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/normscout/normscout-backend/internal/platform/logger"
	"github.com/normscout/normscout-backend/internal/requestdata"
	"github.com/normscout/normscout-backend/internal/services"
)

type PackagesHandler struct {
	log         *logger.Logger
	entitlement services.EntitlementService
}

func NewPackagesHandler(log *logger.Logger, entitlement services.EntitlementService) *PackagesHandler {
	return &PackagesHandler{
		log:         log.With("handler", "PackagesHandler"),
		entitlement: entitlement,
	}
}

func (h *PackagesHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"packages": h.entitlement.Packages()})
}

// AllowedDatabases reports which norm database files the caller's current
// grants unlock. Anonymous callers see the free tier.
func (h *PackagesHandler) AllowedDatabases(c *gin.Context) {
	ctx := c.Request.Context()
	databases := h.entitlement.AllowedDatabases(ctx, requestdata.UserID(ctx))
	c.JSON(http.StatusOK, gin.H{"allowed_databases": databases})
}

type activateRequest struct {
	PackageID string `json:"package_id"`
	Trial     bool   `json:"trial"`
}

func (h *PackagesHandler) Activate(c *gin.Context) {
	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PackageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	ctx := c.Request.Context()
	grant, err := h.entitlement.ActivatePackage(ctx, requestdata.UserID(ctx), req.PackageID, req.Trial)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grant": grant})
}

type deactivateRequest struct {
	PackageID string `json:"package_id"`
}

func (h *PackagesHandler) Deactivate(c *gin.Context) {
	var req deactivateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PackageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	ctx := c.Request.Context()
	if err := h.entitlement.DeactivatePackage(ctx, requestdata.UserID(ctx), req.PackageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
