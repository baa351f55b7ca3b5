package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"loved-api/internal/database"
	"loved-api/internal/models"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db database.Querier
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db database.Querier) *AuditRepository {
	return &AuditRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *AuditRepository) WithTx(tx *sql.Tx) *AuditRepository {
	return &AuditRepository{db: tx}
}

// Create appends an audit log entry
func (r *AuditRepository) Create(ctx context.Context, logType models.LogType, payload any) (*models.AuditLog, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit payload: %w", err)
	}

	log := &models.AuditLog{Type: logType, Payload: data}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO audit_logs (type, payload)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, logType, data).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}

	return log, nil
}

// ListByType retrieves audit logs newest first. An empty logType matches every type.
func (r *AuditRepository) ListByType(ctx context.Context, logType models.LogType, limit, offset int) ([]models.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at, type, payload
		FROM audit_logs
		WHERE $1::text = '' OR type = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, logType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var log models.AuditLog
		var payload []byte
		if err := rows.Scan(&log.ID, &log.CreatedAt, &log.Type, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		log.Payload = payload
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
