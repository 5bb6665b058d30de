package integration_tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/audit"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/azure"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/formulary"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/handler"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/interaction"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/middleware"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/notify"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/reminder"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/repository"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/schedule"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/service"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/api"
)

// stack is the whole HTTP application with a recording notification service
type stack struct {
	router   *gin.Engine
	notifier *notify.Recorder
	exports  *azure.MockBlobStorageClient
	audit    audit.Store
}

// newStack wires the application the way main does. It runs against
// PostgreSQL when TEST_DATABASE_URL is set and in-memory stores otherwise.
func newStack(t *testing.T) stack {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	logger := zap.NewNop()
	ctx := context.Background()

	var (
		meds       repository.RegimenStore
		doses      repository.DoseLogAdmin
		auditStore audit.Store
		pinger     handler.Pinger
	)
	if dbURL := os.Getenv("TEST_DATABASE_URL"); dbURL != "" {
		pool := setupTestDatabase(t, ctx, dbURL)
		meds = repository.NewPostgresMedicationRepository(pool, logger)
		doses = repository.NewPostgresDoseLogRepository(pool, logger)
		auditStore = audit.NewPostgresStore(pool)
		pinger = pool
	} else {
		meds = repository.NewMemoryMedicationRepository()
		doses = repository.NewMemoryDoseLogRepository()
		auditStore = audit.NewMemoryStore()
	}

	notifier := notify.NewRecorder()
	scheduler := reminder.NewScheduler(notifier, reminder.DefaultSettings(), logger)
	exports := azure.NewMockBlobStorageClient(logger)
	auditLogger := audit.NewLogger(auditStore, logger)

	catalog, err := formulary.Load()
	require.NoError(t, err)

	medicationService := service.NewMedicationService(meds, auditLogger, scheduler, logger)
	doseService := service.NewDoseService(meds, doses, schedule.DefaultPolicy(), time.Local, logger)

	doc, err := api.LoadSpec(ctx)
	require.NoError(t, err)
	validator, err := middleware.OpenAPIValidator(doc, logger)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLoggingMiddleware(logger))
	router.Use(validator)

	adherenceService := service.NewAdherenceService(meds, doses, time.Local, logger)
	warningService := service.NewWarningService(meds, interaction.DefaultRules())

	handler.RegisterRoutes(router, handler.Handlers{
		Medication: handler.NewMedicationHandler(medicationService, doseService, catalog, logger),
		Dashboard:  handler.NewDashboardHandler(doseService, adherenceService, warningService, logger),
		Reminder:   handler.NewReminderHandler(service.NewReminderService(scheduler, meds, auditLogger, time.Local, logger), logger),
		Data:       handler.NewDataHandler(service.NewDataService(meds, doses, exports, auditLogger, logger), logger),
		Health:     handler.NewHealthHandler(pinger, "test", "test", logger),
	})

	return stack{router: router, notifier: notifier, exports: exports, audit: auditStore}
}

// setupTestDatabase migrates the database at dbURL and empties every table
func setupTestDatabase(t *testing.T, ctx context.Context, dbURL string) *pgxpool.Pool {
	t.Helper()
	t.Logf("Connecting to database: %s", dbURL)

	require.NoError(t, repository.Migrate(dbURL, zap.NewNop()), "Should be able to migrate database")

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "Should be able to connect to database")
	require.NoError(t, pool.Ping(ctx), "Should be able to ping database")

	_, err = pool.Exec(ctx, "TRUNCATE medications, dose_events, audit_logs")
	require.NoError(t, err, "Should be able to reset tables")

	t.Cleanup(pool.Close)
	return pool
}

func (s stack) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}

// triggerIDs returns the live trigger IDs of the recorder in [from, to)
func triggerIDs(r *notify.Recorder, from, to int) []int {
	ids := []int{}
	for _, trigger := range r.Active() {
		if trigger.ID >= from && trigger.ID < to {
			ids = append(ids, trigger.ID)
		}
	}
	return ids
}
