package audit

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OperationType represents the type of operation performed
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
	OperationExport OperationType = "EXPORT"
)

// ResourceType represents the type of resource being changed
type ResourceType string

const (
	ResourceMedication       ResourceType = "medication"
	ResourceDoseLog          ResourceType = "dose_log"
	ResourceReminderSettings ResourceType = "reminder_settings"
)

// Entry represents an audit log entry
type Entry struct {
	OperationType  OperationType          `json:"operation_type"`
	ResourceType   ResourceType           `json:"resource_type"`
	ResourceID     string                 `json:"resource_id"`
	Timestamp      time.Time              `json:"timestamp"`
	IPAddress      string                 `json:"ip_address,omitempty"`
	UserAgent      string                 `json:"user_agent,omitempty"`
	AdditionalData map[string]interface{} `json:"additional_data,omitempty"`
}

// Store persists audit entries
type Store interface {
	Insert(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Logger handles audit logging
type Logger struct {
	store  Store
	logger *zap.Logger
}

// NewLogger creates a new audit logger
func NewLogger(store Store, logger *zap.Logger) *Logger {
	return &Logger{
		store:  store,
		logger: logger,
	}
}

// Log writes an audit entry to the structured log and the store
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	l.logger.Info("Audit log entry",
		zap.String("operation", string(entry.OperationType)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
		zap.Time("timestamp", entry.Timestamp),
		zap.String("ip_address", entry.IPAddress),
	)

	if err := l.store.Insert(ctx, entry); err != nil {
		l.logger.Error("Failed to write audit log",
			zap.Error(err),
			zap.String("operation", string(entry.OperationType)),
			zap.String("resource_type", string(entry.ResourceType)),
		)
		return err
	}

	return nil
}

// LogCreate logs a CREATE operation
func (l *Logger) LogCreate(ctx context.Context, resourceType ResourceType, resourceID string, data map[string]interface{}) error {
	return l.Log(ctx, Entry{OperationType: OperationCreate, ResourceType: resourceType, ResourceID: resourceID, AdditionalData: data})
}

// LogUpdate logs an UPDATE operation
func (l *Logger) LogUpdate(ctx context.Context, resourceType ResourceType, resourceID string, data map[string]interface{}) error {
	return l.Log(ctx, Entry{OperationType: OperationUpdate, ResourceType: resourceType, ResourceID: resourceID, AdditionalData: data})
}

// LogDelete logs a DELETE operation
func (l *Logger) LogDelete(ctx context.Context, resourceType ResourceType, resourceID string, data map[string]interface{}) error {
	return l.Log(ctx, Entry{OperationType: OperationDelete, ResourceType: resourceType, ResourceID: resourceID, AdditionalData: data})
}

// Recent returns the newest entries first
func (l *Logger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return l.store.Recent(ctx, limit)
}

// PostgresStore writes audit entries to the audit_logs table
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO audit_logs (
			operation_type, resource_type, resource_id,
			timestamp, ip_address, user_agent, additional_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.Exec(ctx, query,
		string(entry.OperationType),
		string(entry.ResourceType),
		entry.ResourceID,
		entry.Timestamp,
		entry.IPAddress,
		entry.UserAgent,
		entry.AdditionalData,
	)
	return err
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT operation_type, resource_type, resource_id,
		       timestamp, ip_address, user_agent, additional_data
		FROM audit_logs
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []Entry
	for rows.Next() {
		var (
			entry         Entry
			operationType string
			resourceType  string
		)
		err := rows.Scan(
			&operationType,
			&resourceType,
			&entry.ResourceID,
			&entry.Timestamp,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.AdditionalData,
		)
		if err != nil {
			return nil, err
		}
		entry.OperationType = OperationType(operationType)
		entry.ResourceType = ResourceType(resourceType)
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}

// MemoryStore keeps audit entries in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}
