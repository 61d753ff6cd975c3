package repository

import (
	"context"

	"wmsinbound/models"
)

type ReceiptRepository interface {
	GetReceipt(ctx context.Context, id string) (*models.InboundReceipt, error)
	GetReceiptByPlan(ctx context.Context, planID string) (*models.InboundReceipt, error)
	PhotoProgress(ctx context.Context, receiptID string) ([]models.SlotProgress, error)
	// AddPhoto records a photo reference once guard accepts the receipt
	// status read in the same transaction.
	AddPhoto(ctx context.Context, photo *models.InboundPhoto, guard StatusGuard) error
	ListPhotos(ctx context.Context, receiptID string) ([]models.InboundPhoto, error)
	ListLines(ctx context.Context, receiptID string) ([]models.InboundReceiptLine, error)
	// UpsertLine inserts or updates the line keyed by (receipt, plan line), or
	// (receipt, product) when there is no plan line. guard sees the receipt
	// status, share-locked for the write. It reports whether anything was
	// written.
	UpsertLine(ctx context.Context, line *models.InboundReceiptLine, guard StatusGuard) (bool, error)
	// AdvanceStatus moves the receipt to `to` only if its current status is one
	// of `from`.
	AdvanceStatus(ctx context.Context, receiptID string, from []models.ReceiptStatus, to models.ReceiptStatus) (bool, error)
	// WithReceiptLock runs fn with the receipt row locked. Changes made through
	// the ReceiptTx are committed only when fn returns nil.
	WithReceiptLock(ctx context.Context, receiptID string, fn func(tx ReceiptTx) error) error
}

// ReceiptTx is the view of a locked receipt inside WithReceiptLock.
type ReceiptTx interface {
	Receipt() *models.InboundReceipt
	PlanLines(ctx context.Context) ([]models.InboundPlanLine, error)
	Lines(ctx context.Context) ([]models.InboundReceiptLine, error)
	PhotoProgress(ctx context.Context) ([]models.SlotProgress, error)
	SetStatus(ctx context.Context, status models.ReceiptStatus, actor string) error
	PostLedger(ctx context.Context, entries []models.LedgerEntry) error
}
