package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/service"
)

// DataHandler implements data portability endpoints
type DataHandler struct {
	service *service.DataService
	logger  *zap.Logger
}

// NewDataHandler creates a new DataHandler
func NewDataHandler(service *service.DataService, logger *zap.Logger) *DataHandler {
	return &DataHandler{
		service: service,
		logger:  logger,
	}
}

// Export downloads the regimen and dose log as JSON, or stores the snapshot
// in blob storage when store=true
// GET /api/v1/data/export
func (h *DataHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()

	h.logger.Info("processing data export request",
		zap.String("ip", c.ClientIP()),
	)

	if c.Query("store") == "true" {
		blobName, err := h.service.ExportToStorage(ctx)
		if err != nil {
			respondError(c, h.logger, err, "Failed to store data export")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"blob_name": blobName})
		return
	}

	data, err := h.service.Export(ctx)
	if err != nil {
		respondError(c, h.logger, err, "Failed to export data")
		return
	}

	filename := fmt.Sprintf("regimen-export-%s.json", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/json", data)
}

// StoredExport downloads a snapshot previously written with store=true
// GET /api/v1/data/exports?name=exports/regimen-export-....json
func (h *DataHandler) StoredExport(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		respondBadRequest(c, h.logger, fmt.Errorf("name query parameter is required"), "Missing export name")
		return
	}

	data, err := h.service.StoredExport(c.Request.Context(), name)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch stored export")
		return
	}

	c.Data(http.StatusOK, "application/json", data)
}

// ClearDoses deletes the whole dose log
// DELETE /api/v1/data/doses
func (h *DataHandler) ClearDoses(c *gin.Context) {
	n, err := h.service.ClearDoseLog(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to clear dose log")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// AuditTrail lists recent regimen, dose log and settings changes
// GET /api/v1/data/audit?limit=50
func (h *DataHandler) AuditTrail(c *gin.Context) {
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		respondError(c, h.logger, err, "Invalid limit")
		return
	}

	entries, err := h.service.AuditTrail(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err, "Failed to load audit trail")
		return
	}

	c.JSON(http.StatusOK, entries)
}
