package models

import "time"

type AuditAction string

const (
	AuditCreate  AuditAction = "create"
	AuditUpdate  AuditAction = "update"
	AuditDelete  AuditAction = "delete"
	AuditApprove AuditAction = "approve"
)

// AuditResourceInventory is the resource type of every inbound audit entry.
const AuditResourceInventory = "inventory"

// AuditEntry is a system-wide audit record.
type AuditEntry struct {
	ID           string         `json:"id" bson:"_id" db:"id"`
	ActionType   AuditAction    `json:"action_type" bson:"action_type" db:"action_type"`
	ResourceType string         `json:"resource_type" bson:"resource_type" db:"resource_type"`
	ResourceID   string         `json:"resource_id" bson:"resource_id" db:"resource_id"`
	Actor        string         `json:"actor" bson:"actor" db:"actor"`
	Payload      map[string]any `json:"payload,omitempty" bson:"payload,omitempty" db:"payload"`
	CreatedAt    time.Time      `json:"created_at" bson:"created_at" db:"created_at"`
}
