package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/api"
)

// Handlers groups every endpoint handler of the API
type Handlers struct {
	Medication *MedicationHandler
	Dashboard  *DashboardHandler
	Reminder   *ReminderHandler
	Data       *DataHandler
	Health     *HealthHandler
}

// RegisterRoutes mounts the API on r
func RegisterRoutes(r gin.IRouter, h Handlers) {
	r.GET("/health", h.Health.GetHealth)
	r.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", api.Spec())
	})

	v1 := r.Group("/api/v1")

	v1.GET("/medications", h.Medication.ListMedications)
	v1.POST("/medications", h.Medication.CreateMedication)
	v1.PUT("/medications/:id", h.Medication.UpdateMedication)
	v1.DELETE("/medications/:id", h.Medication.DeleteMedication)
	v1.PATCH("/medications/:id/active", h.Medication.SetActive)
	v1.POST("/medications/:id/take", h.Medication.TakeNow)
	v1.GET("/formulary", h.Medication.Formulary)

	v1.GET("/schedule/today", h.Dashboard.TodaySchedule)
	v1.POST("/schedule/taken", h.Dashboard.MarkTaken)
	v1.GET("/doses", h.Dashboard.Doses)
	v1.GET("/adherence", h.Dashboard.Adherence)
	v1.GET("/warnings", h.Dashboard.Warnings)

	v1.GET("/reminders", h.Reminder.Status)
	v1.POST("/reminders/permission", h.Reminder.RequestPermission)
	v1.POST("/reminders/reschedule", h.Reminder.Reschedule)
	v1.GET("/reminders/settings", h.Reminder.GetSettings)
	v1.PUT("/reminders/settings", h.Reminder.PutSettings)

	v1.GET("/data/export", h.Data.Export)
	v1.GET("/data/exports", h.Data.StoredExport)
	v1.DELETE("/data/doses", h.Data.ClearDoses)
	v1.GET("/data/audit", h.Data.AuditTrail)
}
