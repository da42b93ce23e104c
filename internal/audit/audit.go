package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OperationType represents the type of operation performed
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationSubmit OperationType = "SUBMIT"
	OperationDelete OperationType = "DELETE"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceDiagnosis     ResourceType = "diagnosis"
	ResourceIntakeSession ResourceType = "intake_session"
	ResourceIntakeArchive ResourceType = "intake_archive"
)

// Outcome of an audited operation
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Entry represents an audit log entry
type Entry struct {
	ID             string
	OperationType  OperationType
	ResourceType   ResourceType
	ResourceID     string
	Outcome        Outcome
	Timestamp      time.Time
	IPAddress      string
	UserAgent      string
	AdditionalData map[string]any
}

// Recorder persists audit entries
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Logger writes audit entries to the structured log and to postgres
type Logger struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

var _ Recorder = (*Logger)(nil)

// NewLogger creates a new audit logger. A nil pool keeps entries in the
// structured log only.
func NewLogger(db *pgxpool.Pool, logger *zap.Logger) *Logger {
	return &Logger{
		db:     db,
		logger: logger,
	}
}

// Record creates an audit log entry
func (l *Logger) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Outcome == "" {
		entry.Outcome = OutcomeSuccess
	}

	l.logger.Info("audit log entry",
		zap.String("audit_id", entry.ID),
		zap.String("operation", string(entry.OperationType)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
		zap.String("outcome", string(entry.Outcome)),
		zap.Time("timestamp", entry.Timestamp),
		zap.String("ip_address", entry.IPAddress),
	)

	if l.db == nil {
		return nil
	}

	query := `
		INSERT INTO audit_logs (
			id, operation_type, resource_type, resource_id, outcome,
			timestamp, ip_address, user_agent, additional_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := l.db.Exec(ctx, query,
		entry.ID,
		entry.OperationType,
		entry.ResourceType,
		entry.ResourceID,
		entry.Outcome,
		entry.Timestamp,
		entry.IPAddress,
		entry.UserAgent,
		entry.AdditionalData,
	)
	if err != nil {
		l.logger.Error("failed to write audit log to database",
			zap.Error(err),
			zap.String("operation", string(entry.OperationType)),
			zap.String("resource_type", string(entry.ResourceType)),
		)
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	return nil
}

// Recent returns the latest entries for a resource type, newest first
func (l *Logger) Recent(ctx context.Context, resourceType ResourceType, limit int) ([]Entry, error) {
	if l.db == nil {
		return nil, fmt.Errorf("audit store is not configured")
	}

	query := `
		SELECT id, operation_type, resource_type, resource_id, outcome,
		       timestamp, ip_address, user_agent, additional_data
		FROM audit_logs
		WHERE resource_type = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := l.db.Query(ctx, query, resourceType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.OperationType,
			&e.ResourceType,
			&e.ResourceID,
			&e.Outcome,
			&e.Timestamp,
			&e.IPAddress,
			&e.UserAgent,
			&e.AdditionalData,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
