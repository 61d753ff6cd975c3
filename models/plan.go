package models

import "time"

// InboundPlan is one expected shipment.
type InboundPlan struct {
	ID             string        `json:"id" db:"id"`
	OrganizationID string        `json:"organization_id" db:"organization_id"`
	WarehouseID    string        `json:"warehouse_id" db:"warehouse_id"`
	ClientID       string        `json:"client_id" db:"client_id"`
	PlanNo         string        `json:"plan_no" db:"plan_no"`
	PlannedDate    time.Time     `json:"planned_date" db:"planned_date"`
	Manager        *string       `json:"manager,omitempty" db:"manager"`
	Notes          *string       `json:"notes,omitempty" db:"notes"`
	Status         ReceiptStatus `json:"status" db:"status"`
	CreatedBy      string        `json:"created_by" db:"created_by"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time    `json:"updated_at" db:"updated_at"`

	Lines []InboundPlanLine `json:"lines,omitempty"`
}

// InboundPlanLine is the expected quantity of one product. The set is
// replaced wholesale on plan edit.
type InboundPlanLine struct {
	ID          string     `json:"id" db:"id"`
	PlanID      string     `json:"plan_id" db:"plan_id"`
	ProductID   string     `json:"product_id" db:"product_id"`
	ExpectedQty int64      `json:"expected_qty" db:"expected_qty"`
	BoxCount    *int64     `json:"box_count,omitempty" db:"box_count"`
	PalletID    *string    `json:"pallet_id,omitempty" db:"pallet_id"`
	MfgDate     *time.Time `json:"mfg_date,omitempty" db:"mfg_date"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	Notes       *string    `json:"notes,omitempty" db:"notes"`
}

// PlanFilter narrows plan listings. Empty fields match everything.
type PlanFilter struct {
	OrganizationID string
	WarehouseID    string
	Status         ReceiptStatus
	Limit          int
}
