package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"wmsinbound/models"
)

type PostgresAuditRepo struct {
	DB *sql.DB
}

func NewPostgresAuditRepo(db *sql.DB) *PostgresAuditRepo {
	return &PostgresAuditRepo{DB: db}
}

func (r *PostgresAuditRepo) WriteAudit(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	// Convert payload map to JSON manually
	payloadJSON, err := json.Marshal(entry.Payload)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO audit_log(id,action_type,resource_type,resource_id,actor,payload,created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, entry.ActionType, entry.ResourceType, entry.ResourceID, entry.Actor, payloadJSON, entry.CreatedAt)
	return err
}
