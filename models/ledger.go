package models

import "time"

// LedgerEntry is an inventory movement posted when a receipt is confirmed.
type LedgerEntry struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	WarehouseID    string    `json:"warehouse_id" db:"warehouse_id"`
	ClientID       string    `json:"client_id" db:"client_id"`
	ProductID      string    `json:"product_id" db:"product_id"`
	LocationID     *string   `json:"location_id,omitempty" db:"location_id"`
	ReceiptID      string    `json:"receipt_id" db:"receipt_id"`
	ReceiptLineID  string    `json:"receipt_line_id" db:"receipt_line_id"`
	AvailableQty   int64     `json:"available_qty" db:"available_qty"`
	DamagedQty     int64     `json:"damaged_qty" db:"damaged_qty"`
	MovementType   string    `json:"movement_type" db:"movement_type"`
	CreatedBy      string    `json:"created_by" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// MovementReceipt is the ledger movement type for confirmed receiving.
const MovementReceipt = "RECEIPT"
