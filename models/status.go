package models

// ReceiptStatus is the receiving state of an inbound receipt.
type ReceiptStatus string

const (
	StatusArrived       ReceiptStatus = "ARRIVED"
	StatusPhotoRequired ReceiptStatus = "PHOTO_REQUIRED"
	StatusCounting      ReceiptStatus = "COUNTING"
	StatusDiscrepancy   ReceiptStatus = "DISCREPANCY"
	StatusConfirmed     ReceiptStatus = "CONFIRMED"
	StatusPutawayReady  ReceiptStatus = "PUTAWAY_READY"
)

// Locked reports whether plan and receipt edits need an elevated actor.
func (s ReceiptStatus) Locked() bool {
	switch s {
	case StatusConfirmed, StatusPutawayReady, StatusDiscrepancy:
		return true
	}
	return false
}

// Final reports whether the receipt has been confirmed.
func (s ReceiptStatus) Final() bool {
	return s == StatusConfirmed || s == StatusPutawayReady
}

func (s ReceiptStatus) Valid() bool {
	switch s {
	case StatusArrived, StatusPhotoRequired, StatusCounting,
		StatusDiscrepancy, StatusConfirmed, StatusPutawayReady:
		return true
	}
	return false
}
