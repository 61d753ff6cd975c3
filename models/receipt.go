package models

import (
	"encoding/json"
	"time"
)

// InboundReceipt is the physical count record spawned 1:1 from a plan.
type InboundReceipt struct {
	ID             string        `json:"id" db:"id"`
	PlanID         string        `json:"plan_id" db:"plan_id"`
	OrganizationID string        `json:"organization_id" db:"organization_id"`
	WarehouseID    string        `json:"warehouse_id" db:"warehouse_id"`
	ClientID       string        `json:"client_id" db:"client_id"`
	ReceiptNo      string        `json:"receipt_no" db:"receipt_no"`
	Status         ReceiptStatus `json:"status" db:"status"`
	CreatedBy      string        `json:"created_by" db:"created_by"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time    `json:"updated_at" db:"updated_at"`
	ConfirmedAt    *time.Time    `json:"confirmed_at,omitempty" db:"confirmed_at"`
	ConfirmedBy    *string       `json:"confirmed_by,omitempty" db:"confirmed_by"`
}

// InboundReceiptLine is the counted reality for one product. The received
// total is always derived from the four condition buckets.
type InboundReceiptLine struct {
	ID          string     `json:"id" db:"id"`
	ReceiptID   string     `json:"receipt_id" db:"receipt_id"`
	PlanLineID  *string    `json:"plan_line_id,omitempty" db:"plan_line_id"`
	ProductID   string     `json:"product_id" db:"product_id"`
	ExpectedQty int64      `json:"expected_qty" db:"expected_qty"`
	AcceptedQty int64      `json:"accepted_qty" db:"accepted_qty"`
	DamagedQty  int64      `json:"damaged_qty" db:"damaged_qty"`
	MissingQty  int64      `json:"missing_qty" db:"missing_qty"`
	OtherQty    int64      `json:"other_qty" db:"other_qty"`
	LocationID  *string    `json:"location_id,omitempty" db:"location_id"`
	Notes       *string    `json:"notes,omitempty" db:"notes"`
	InspectedBy string     `json:"inspected_by" db:"inspected_by"`
	InspectedAt *time.Time `json:"inspected_at,omitempty" db:"inspected_at"`
}

func (l InboundReceiptLine) ReceivedTotal() int64 {
	return l.AcceptedQty + l.DamagedQty + l.MissingQty + l.OtherQty
}

func (l InboundReceiptLine) Matches() bool {
	return l.ReceivedTotal() == l.ExpectedQty
}

// SameCounts reports whether two lines carry identical counted data.
func (l InboundReceiptLine) SameCounts(o InboundReceiptLine) bool {
	return l.ProductID == o.ProductID &&
		l.ExpectedQty == o.ExpectedQty &&
		l.AcceptedQty == o.AcceptedQty &&
		l.DamagedQty == o.DamagedQty &&
		l.MissingQty == o.MissingQty &&
		l.OtherQty == o.OtherQty &&
		equalPtr(l.LocationID, o.LocationID) &&
		equalPtr(l.Notes, o.Notes)
}

// MarshalJSON adds received_qty, recomputed from the buckets.
func (l InboundReceiptLine) MarshalJSON() ([]byte, error) {
	type line InboundReceiptLine
	return json.Marshal(struct {
		line
		ReceivedQty int64 `json:"received_qty"`
	}{line(l), l.ReceivedTotal()})
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
