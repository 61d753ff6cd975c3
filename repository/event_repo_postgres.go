package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"wmsinbound/models"
)

type PostgresEventRepo struct {
	DB *sql.DB
}

func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{DB: db}
}

func (r *PostgresEventRepo) AppendEvent(ctx context.Context, ev *models.InboundEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	var payload any
	if len(ev.Payload) > 0 {
		payload = []byte(ev.Payload)
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO inbound_events(id,receipt_id,event_type,payload,actor,created_at)
		VALUES($1,$2,$3,$4,$5,$6)
	`, ev.ID, ev.ReceiptID, ev.EventType, payload, ev.Actor, ev.CreatedAt)
	return err
}

func (r *PostgresEventRepo) ListEvents(ctx context.Context, receiptID string) ([]models.InboundEvent, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, receipt_id, event_type, payload, actor, created_at
		FROM inbound_events WHERE receipt_id=$1 ORDER BY created_at, id
	`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.InboundEvent
	for rows.Next() {
		var ev models.InboundEvent
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.ReceiptID, &ev.EventType, &payload, &ev.Actor, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			ev.Payload = json.RawMessage(payload)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
