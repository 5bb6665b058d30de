package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/formulary"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/service"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

// MedicationRequest is the body of create and update requests
type MedicationRequest struct {
	Name          string                 `json:"name"`
	Dosage        string                 `json:"dosage"`
	Frequency     model.Frequency        `json:"frequency"`
	ReminderTimes []timeutil.MinuteOfDay `json:"reminder_times"`
	Active        *bool                  `json:"active"`
}

func (r MedicationRequest) input() service.MedicationInput {
	return service.MedicationInput{
		Name:          r.Name,
		Dosage:        r.Dosage,
		Frequency:     r.Frequency,
		ReminderTimes: r.ReminderTimes,
		Active:        r.Active,
	}
}

// ActiveRequest toggles a medication
type ActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// MedicationHandler implements medication API endpoints
type MedicationHandler struct {
	service *service.MedicationService
	doses   *service.DoseService
	catalog *formulary.Catalog
	logger  *zap.Logger
}

// NewMedicationHandler creates a new MedicationHandler
func NewMedicationHandler(service *service.MedicationService, doses *service.DoseService, catalog *formulary.Catalog, logger *zap.Logger) *MedicationHandler {
	return &MedicationHandler{
		service: service,
		doses:   doses,
		catalog: catalog,
		logger:  logger,
	}
}

// ListMedications lists the whole regimen
// GET /api/v1/medications
func (h *MedicationHandler) ListMedications(c *gin.Context) {
	meds, err := h.service.ListMedications(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to list medications")
		return
	}
	if meds == nil {
		meds = []model.Medication{}
	}

	c.JSON(http.StatusOK, meds)
}

// CreateMedication adds a medication
// POST /api/v1/medications
func (h *MedicationHandler) CreateMedication(c *gin.Context) {
	var req MedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.logger, err, "Invalid request body")
		return
	}

	med, err := h.service.AddMedication(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, h.logger, err, "Could not save medication")
		return
	}

	c.JSON(http.StatusCreated, med)
}

// UpdateMedication replaces the editable fields of a medication
// PUT /api/v1/medications/:id
func (h *MedicationHandler) UpdateMedication(c *gin.Context) {
	var req MedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.logger, err, "Invalid request body")
		return
	}

	med, err := h.service.UpdateMedication(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		respondError(c, h.logger, err, "Could not save medication")
		return
	}

	c.JSON(http.StatusOK, med)
}

// SetActive toggles a medication on or off
// PATCH /api/v1/medications/:id/active
func (h *MedicationHandler) SetActive(c *gin.Context) {
	var req ActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.logger, err, "Invalid request body")
		return
	}

	med, err := h.service.SetActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		respondError(c, h.logger, err, "Could not save medication")
		return
	}

	c.JSON(http.StatusOK, med)
}

// DeleteMedication removes a medication from the regimen
// DELETE /api/v1/medications/:id
func (h *MedicationHandler) DeleteMedication(c *gin.Context) {
	if err := h.service.DeleteMedication(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to delete medication")
		return
	}

	c.Status(http.StatusNoContent)
}

// TakeNow logs an unscheduled dose of a medication
// POST /api/v1/medications/:id/take
func (h *MedicationHandler) TakeNow(c *gin.Context) {
	event, err := h.doses.TakeNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to log dose")
		return
	}

	c.JSON(http.StatusCreated, event)
}

// Formulary lists common medications with default dosages
// GET /api/v1/formulary
func (h *MedicationHandler) Formulary(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.All())
}
