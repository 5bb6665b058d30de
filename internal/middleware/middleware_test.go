package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/metrics"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/api"
)

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	t.Run("generates", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))

		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("echoes caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "abc-123", w.Body.String())
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryMiddleware(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("scheduler exploded")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":"INTERNAL_ERROR","message":"Internal server error"}`, w.Body.String())
	require.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
	assert.Equal(t, "scheduler exploded", logs.All()[0].ContextMap()["error"])
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/api/v1/medications/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	counter := metrics.HTTPRequests.WithLabelValues("/api/v1/medications/:id", http.MethodGet, "404")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/medications/"+id, nil))
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))

	unmatched := metrics.HTTPRequests.WithLabelValues("unmatched", http.MethodGet, "404")
	before = testutil.ToFloat64(unmatched)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(unmatched))
}

func newValidatedRouter(t *testing.T) *gin.Engine {
	t.Helper()
	doc, err := api.LoadSpec(context.Background())
	require.NoError(t, err)

	validator, err := OpenAPIValidator(doc, zap.NewNop())
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(validator)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	router.POST("/api/v1/medications", ok)
	router.GET("/api/v1/adherence", ok)
	router.PUT("/api/v1/reminders/settings", ok)
	router.GET("/metrics", ok)
	return router
}

func TestOpenAPIValidator(t *testing.T) {
	router := newValidatedRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"valid medication", http.MethodPost, "/api/v1/medications", `{"name":"Allopurinol","dosage":"300mg","frequency":"once-daily"}`, http.StatusOK},
		{"custom times", http.MethodPost, "/api/v1/medications", `{"name":"A","dosage":"1mg","frequency":"custom","reminder_times":["07:30","21:00"]}`, http.StatusOK},
		{"missing dosage", http.MethodPost, "/api/v1/medications", `{"name":"Allopurinol","frequency":"once-daily"}`, http.StatusBadRequest},
		{"unknown frequency", http.MethodPost, "/api/v1/medications", `{"name":"A","dosage":"1mg","frequency":"hourly"}`, http.StatusBadRequest},
		{"clock out of range", http.MethodPost, "/api/v1/medications", `{"name":"A","dosage":"1mg","frequency":"custom","reminder_times":["24:00"]}`, http.StatusBadRequest},
		{"days in range", http.MethodGet, "/api/v1/adherence?days=30", "", http.StatusOK},
		{"days too large", http.MethodGet, "/api/v1/adherence?days=365", "", http.StatusBadRequest},
		{"days not a number", http.MethodGet, "/api/v1/adherence?days=week", "", http.StatusBadRequest},
		{"weekday out of range", http.MethodPut, "/api/v1/reminders/settings", `{"check_in":{"weekday":7}}`, http.StatusBadRequest},
		{"undescribed path passes", http.MethodGet, "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.want == http.StatusBadRequest {
				assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
			}
		})
	}
}

func TestOpenAPIValidator_BodyStillReadable(t *testing.T) {
	doc, err := api.LoadSpec(context.Background())
	require.NoError(t, err)
	validator, err := OpenAPIValidator(doc, zap.NewNop())
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(validator)
	router.POST("/api/v1/schedule/taken", func(c *gin.Context) {
		var body struct {
			MedicationID string `json:"medication_id"`
		}
		require.NoError(t, c.ShouldBindJSON(&body))
		c.String(http.StatusOK, body.MedicationID)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/taken", bytes.NewBufferString(`{"medication_id":"med-1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "med-1", w.Body.String())
}
