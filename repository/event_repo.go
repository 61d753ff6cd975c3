package repository

import (
	"context"

	"wmsinbound/models"
)

type EventRepository interface {
	AppendEvent(ctx context.Context, ev *models.InboundEvent) error
	ListEvents(ctx context.Context, receiptID string) ([]models.InboundEvent, error)
}

type AuditRepository interface {
	WriteAudit(ctx context.Context, entry *models.AuditEntry) error
}
