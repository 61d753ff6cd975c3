package models

// ReceiptSlipData feeds the receiving slip template.
type ReceiptSlipData struct {
	Plan          *InboundPlan
	Receipt       *InboundReceipt
	Lines         []InboundReceiptLine
	Date          string
	TotalExpected int64
	TotalReceived int64
	PrintedAt     string
}
