package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/reminder"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/service"
)

// ReminderHandler implements reminder status and settings endpoints
type ReminderHandler struct {
	service *service.ReminderService
	logger  *zap.Logger
}

// NewReminderHandler creates a new ReminderHandler
func NewReminderHandler(service *service.ReminderService, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{
		service: service,
		logger:  logger,
	}
}

// Status reports issued triggers and whether notifications are permitted
// GET /api/v1/reminders
func (h *ReminderHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Status(c.Request.Context()))
}

// RequestPermission asks for notification permission
// POST /api/v1/reminders/permission
func (h *ReminderHandler) RequestPermission(c *gin.Context) {
	granted, err := h.service.RequestPermission(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to schedule reminders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"permission_granted": granted})
}

// Reschedule reissues every reminder category from the stored regimen
// POST /api/v1/reminders/reschedule
func (h *ReminderHandler) Reschedule(c *gin.Context) {
	if err := h.service.RescheduleAll(c.Request.Context()); err != nil {
		respondError(c, h.logger, err, "Failed to schedule reminders")
		return
	}

	c.JSON(http.StatusOK, h.service.Status(c.Request.Context()))
}

// GetSettings returns the reminder settings
// GET /api/v1/reminders/settings
func (h *ReminderHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Settings())
}

// PutSettings replaces the reminder settings and reschedules
// PUT /api/v1/reminders/settings
func (h *ReminderHandler) PutSettings(c *gin.Context) {
	var req reminder.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.logger, err, "Invalid request body")
		return
	}

	if err := h.service.UpdateSettings(c.Request.Context(), req); err != nil {
		respondError(c, h.logger, err, "Failed to update reminder settings")
		return
	}

	c.JSON(http.StatusOK, h.service.Settings())
}
