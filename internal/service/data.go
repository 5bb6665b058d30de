package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/audit"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/azure"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/repository"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

// DataExport is a portable snapshot of everything the patient entered
type DataExport struct {
	Medications []model.Medication          `json:"medications"`
	DoseLog     []repository.DatedDoseEvent `json:"dose_log"`
	ExportedAt  time.Time                   `json:"exported_at"`
}

// Sealer encrypts export snapshots before they are written to blob storage
type Sealer interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(sealed []byte) ([]byte, error)
}

// sealedSuffix marks blob names holding an encrypted snapshot
const sealedSuffix = ".enc"

// DataService handles data portability and reset of the dose log
type DataService struct {
	meds    repository.RegimenStore
	doses   repository.DoseLogAdmin
	exports azure.ExportStorage
	sealer  Sealer
	audit   *audit.Logger
	now     Clock
	logger  *zap.Logger
}

// NewDataService creates a new DataService. exports may be nil when no
// export storage is configured.
func NewDataService(meds repository.RegimenStore, doses repository.DoseLogAdmin, exports azure.ExportStorage, auditLogger *audit.Logger, logger *zap.Logger) *DataService {
	return &DataService{
		meds:    meds,
		doses:   doses,
		exports: exports,
		audit:   auditLogger,
		now:     systemClock(time.UTC),
		logger:  logger,
	}
}

// WithSealer encrypts every snapshot written by ExportToStorage
func (s *DataService) WithSealer(sealer Sealer) *DataService {
	s.sealer = sealer
	return s
}

// Export collects the regimen and the whole dose log as indented JSON
func (s *DataService) Export(ctx context.Context) ([]byte, error) {
	s.logger.Info("Starting data export")

	export := DataExport{
		ExportedAt: s.now().UTC(),
	}

	meds, err := s.meds.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get medications: %w", err)
	}
	export.Medications = meds

	doses, err := s.doses.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get dose log: %w", err)
	}
	export.DoseLog = doses

	if export.Medications == nil {
		export.Medications = []model.Medication{}
	}
	if export.DoseLog == nil {
		export.DoseLog = []repository.DatedDoseEvent{}
	}

	jsonData, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export data: %w", err)
	}

	s.logger.Info("Data export completed",
		zap.Int("medications", len(export.Medications)),
		zap.Int("dose_events", len(export.DoseLog)),
	)

	if s.audit != nil {
		if err := s.audit.Log(ctx, audit.Entry{
			OperationType: audit.OperationExport,
			ResourceType:  audit.ResourceDoseLog,
			ResourceID:    "all",
		}); err != nil {
			s.logger.Error("Failed to log audit entry for data export", zap.Error(err))
		}
	}

	return jsonData, nil
}

// ExportToStorage writes an export snapshot to blob storage and returns its blob name
func (s *DataService) ExportToStorage(ctx context.Context) (string, error) {
	if s.exports == nil {
		return "", fmt.Errorf("%w: export storage is not configured", ErrInvalidArgument)
	}

	data, err := s.Export(ctx)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("regimen-export-%s.json", s.now().UTC().Format("20060102T150405Z"))
	if s.sealer != nil {
		if data, err = s.sealer.Encrypt(data); err != nil {
			return "", fmt.Errorf("failed to encrypt export: %w", err)
		}
		filename += sealedSuffix
	}

	blobName, err := s.exports.UploadExport(ctx, filename, data)
	if err != nil {
		return "", fmt.Errorf("failed to store export: %w", err)
	}

	return blobName, nil
}

// StoredExport returns a snapshot previously written by ExportToStorage,
// decrypted when it was sealed
func (s *DataService) StoredExport(ctx context.Context, blobName string) ([]byte, error) {
	if s.exports == nil {
		return nil, fmt.Errorf("%w: export storage is not configured", ErrInvalidArgument)
	}
	if !strings.HasPrefix(blobName, "exports/") {
		return nil, fmt.Errorf("%w: %q is not an export blob", ErrInvalidArgument, blobName)
	}

	data, err := s.exports.DownloadExport(ctx, blobName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stored export: %w", err)
	}

	if !strings.HasSuffix(blobName, sealedSuffix) {
		return data, nil
	}
	if s.sealer == nil {
		return nil, fmt.Errorf("%w: %s is encrypted and no export key is configured", ErrInvalidArgument, blobName)
	}

	data, err = s.sealer.Decrypt(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt stored export: %w", err)
	}
	return data, nil
}

// ClearDoseLog deletes every logged dose. The regimen is kept.
func (s *DataService) ClearDoseLog(ctx context.Context) (int64, error) {
	n, err := s.doses.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear dose log: %w", err)
	}

	if s.audit != nil {
		if err := s.audit.LogDelete(ctx, audit.ResourceDoseLog, "all", map[string]interface{}{"deleted": n}); err != nil {
			s.logger.Error("Failed to log audit entry for dose log reset", zap.Error(err))
		}
	}

	s.logger.Info("Dose log cleared", zap.Int64("deleted", n))

	return n, nil
}

// MaxAuditEntries bounds one audit trail request
const MaxAuditEntries = 500

// AuditTrail returns the newest audit entries first
func (s *DataService) AuditTrail(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit < 1 || limit > MaxAuditEntries {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d, got %d", ErrInvalidArgument, MaxAuditEntries, limit)
	}
	if s.audit == nil {
		return []audit.Entry{}, nil
	}

	entries, err := s.audit.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return entries, nil
}
