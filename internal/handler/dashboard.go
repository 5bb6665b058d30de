package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/service"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

// TakenRequest marks a scheduled dose as taken
type TakenRequest struct {
	MedicationID string `json:"medication_id" binding:"required"`
}

// DashboardHandler implements the day schedule, dose log, adherence and
// warning endpoints
type DashboardHandler struct {
	doses     *service.DoseService
	adherence *service.AdherenceService
	warnings  *service.WarningService
	logger    *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(doses *service.DoseService, adherence *service.AdherenceService, warnings *service.WarningService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		doses:     doses,
		adherence: adherence,
		warnings:  warnings,
		logger:    logger,
	}
}

// TodaySchedule returns today's classified schedule
// GET /api/v1/schedule/today
func (h *DashboardHandler) TodaySchedule(c *gin.Context) {
	view, err := h.doses.TodaySchedule(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to build today's schedule")
		return
	}

	c.JSON(http.StatusOK, view)
}

// MarkTaken logs a dose of a scheduled medication
// POST /api/v1/schedule/taken
func (h *DashboardHandler) MarkTaken(c *gin.Context) {
	var req TakenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.logger, err, "Invalid request body")
		return
	}

	event, err := h.doses.MarkTaken(c.Request.Context(), req.MedicationID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to log dose")
		return
	}

	c.JSON(http.StatusCreated, event)
}

// Doses lists the doses logged on a date, today by default
// GET /api/v1/doses?date=YYYY-MM-DD
func (h *DashboardHandler) Doses(c *gin.Context) {
	date, ok, err := dateQuery(c, "date")
	if err != nil {
		respondError(c, h.logger, err, "Invalid date")
		return
	}
	if !ok {
		date = h.doses.Today()
	}

	doses, err := h.doses.DosesOn(c.Request.Context(), date)
	if err != nil {
		respondError(c, h.logger, err, "Failed to load doses")
		return
	}
	if doses == nil {
		doses = []model.DoseEvent{}
	}

	c.JSON(http.StatusOK, gin.H{
		"date":  date,
		"doses": doses,
	})
}

// Adherence returns rolling adherence over the last days days
// GET /api/v1/adherence?days=7
func (h *DashboardHandler) Adherence(c *gin.Context) {
	days, err := intQuery(c, "days", service.DefaultAdherenceDays)
	if err != nil {
		respondError(c, h.logger, err, "Invalid days")
		return
	}

	report, err := h.adherence.Report(c.Request.Context(), days)
	if err != nil {
		respondError(c, h.logger, err, "Failed to compute adherence")
		return
	}

	c.JSON(http.StatusOK, report)
}

// Warnings returns interaction warnings for the active regimen
// GET /api/v1/warnings
func (h *DashboardHandler) Warnings(c *gin.Context) {
	warnings, err := h.warnings.Warnings(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to evaluate warnings")
		return
	}

	c.JSON(http.StatusOK, warnings)
}
