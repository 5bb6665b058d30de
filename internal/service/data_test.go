package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/audit"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/azure"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/repository"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/security"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

type dataFixture struct {
	svc   *DataService
	meds  *repository.MemoryMedicationRepository
	doses *repository.MemoryDoseLogRepository
	blobs *azure.MockBlobStorageClient
	audit *audit.MemoryStore
}

func newDataFixture(t *testing.T) dataFixture {
	t.Helper()
	logger := zap.NewNop()
	meds := repository.NewMemoryMedicationRepository()
	doses := repository.NewMemoryDoseLogRepository()
	blobs := azure.NewMockBlobStorageClient(logger)
	auditStore := audit.NewMemoryStore()

	seedRegimen(t, meds, allopurinol())
	require.NoError(t, doses.Append(context.Background(), model.DoseEvent{
		MedicationID: "med-allo", MedicationName: "Allopurinol", Timestamp: testNow, Taken: true,
	}, timeutil.DateOf(testNow)))

	svc := NewDataService(meds, doses, blobs, audit.NewLogger(auditStore, logger), logger)
	svc.now = func() time.Time { return testNow }

	return dataFixture{svc: svc, meds: meds, doses: doses, blobs: blobs, audit: auditStore}
}

func TestExport(t *testing.T) {
	f := newDataFixture(t)
	ctx := context.Background()

	data, err := f.svc.Export(ctx)
	require.NoError(t, err)

	var export DataExport
	require.NoError(t, json.Unmarshal(data, &export))
	require.Len(t, export.Medications, 1)
	assert.Equal(t, "Allopurinol", export.Medications[0].Name)
	require.Len(t, export.DoseLog, 1)
	assert.Equal(t, timeutil.DateOf(testNow), export.DoseLog[0].Date)
	assert.Equal(t, testNow, export.ExportedAt)

	entries, err := f.audit.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.OperationExport, entries[0].OperationType)
}

func TestExport_EmptyStoresGiveEmptyArrays(t *testing.T) {
	svc := NewDataService(repository.NewMemoryMedicationRepository(), repository.NewMemoryDoseLogRepository(), nil, nil, zap.NewNop())

	data, err := svc.Export(context.Background())
	require.NoError(t, err)

	assert.Contains(t, string(data), `"medications": []`)
	assert.Contains(t, string(data), `"dose_log": []`)
}

func TestExportToStorage(t *testing.T) {
	f := newDataFixture(t)
	ctx := context.Background()

	name, err := f.svc.ExportToStorage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "exports/regimen-export-20250310T110500Z.json", name)

	stored, err := f.blobs.DownloadExport(ctx, name)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(stored), "Allopurinol"))
}

func TestExportToStorage_NotConfigured(t *testing.T) {
	svc := NewDataService(repository.NewMemoryMedicationRepository(), repository.NewMemoryDoseLogRepository(), nil, nil, zap.NewNop())

	_, err := svc.ExportToStorage(context.Background())

	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestClearDoseLog_KeepsRegimen(t *testing.T) {
	f := newDataFixture(t)
	ctx := context.Background()

	n, err := f.svc.ClearDoseLog(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	logged, err := f.doses.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, logged)

	meds, err := f.meds.List(ctx)
	require.NoError(t, err)
	assert.Len(t, meds, 1)

	entries, err := f.audit.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.OperationDelete, entries[0].OperationType)
	assert.Equal(t, audit.ResourceDoseLog, entries[0].ResourceType)
}

func TestAuditTrail(t *testing.T) {
	f := newDataFixture(t)
	ctx := context.Background()

	_, err := f.svc.Export(ctx)
	require.NoError(t, err)
	_, err = f.svc.ClearDoseLog(ctx)
	require.NoError(t, err)

	entries, err := f.svc.AuditTrail(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, audit.OperationDelete, entries[0].OperationType)
	assert.Equal(t, audit.OperationExport, entries[1].OperationType)

	entries, err = f.svc.AuditTrail(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	for _, limit := range []int{0, -1, MaxAuditEntries + 1} {
		_, err := f.svc.AuditTrail(ctx, limit)
		assert.ErrorIs(t, err, ErrInvalidArgument, "limit %d", limit)
	}
}

func TestAuditTrail_NoAuditLogger(t *testing.T) {
	svc := NewDataService(repository.NewMemoryMedicationRepository(), repository.NewMemoryDoseLogRepository(), nil, nil, zap.NewNop())

	entries, err := svc.AuditTrail(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestStoredExport_Plain(t *testing.T) {
	f := newDataFixture(t)
	ctx := context.Background()

	name, err := f.svc.ExportToStorage(ctx)
	require.NoError(t, err)

	data, err := f.svc.StoredExport(ctx, name)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Allopurinol")

	_, err = f.svc.StoredExport(ctx, "exports/missing.json")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.svc.StoredExport(ctx, "../secrets.json")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestStoredExport_Sealed(t *testing.T) {
	f := newDataFixture(t)
	ctx := context.Background()

	encryptor, err := security.NewEncryptor([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	f.svc.WithSealer(encryptor)

	name, err := f.svc.ExportToStorage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "exports/regimen-export-20250310T110500Z.json.enc", name)

	stored, err := f.blobs.DownloadExport(ctx, name)
	require.NoError(t, err)
	assert.NotContains(t, string(stored), "Allopurinol", "blob holds ciphertext")

	data, err := f.svc.StoredExport(ctx, name)
	require.NoError(t, err)
	var export DataExport
	require.NoError(t, json.Unmarshal(data, &export))
	require.Len(t, export.Medications, 1)
	assert.Equal(t, "Allopurinol", export.Medications[0].Name)

	// a service without the key cannot read it back
	plain := NewDataService(f.meds, f.doses, f.blobs, nil, zap.NewNop())
	_, err = plain.StoredExport(ctx, name)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
