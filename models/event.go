package models

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventCreated          EventType = "CREATED"
	EventUpdated          EventType = "UPDATED"
	EventPhotoUploaded    EventType = "PHOTO_UPLOADED"
	EventQtyUpdated       EventType = "QTY_UPDATED"
	EventDiscrepancyFound EventType = "DISCREPANCY_FOUND"
	EventConfirmed        EventType = "CONFIRMED"
	EventPutawayReady     EventType = "PUTAWAY_READY"
	EventDeleted          EventType = "DELETED"
)

// InboundEvent is an append-only lifecycle fact of a receipt.
type InboundEvent struct {
	ID        string          `json:"id" db:"id"`
	ReceiptID string          `json:"receipt_id" db:"receipt_id"`
	EventType EventType       `json:"event_type" db:"event_type"`
	Payload   json.RawMessage `json:"payload,omitempty" db:"payload"`
	Actor     string          `json:"actor" db:"actor"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Mismatch is one line whose counted total differs from the expectation.
type Mismatch struct {
	ProductID  string  `json:"product_id"`
	PlanLineID *string `json:"plan_line_id,omitempty"`
	Expected   int64   `json:"expected"`
	Actual     int64   `json:"actual"`
}
