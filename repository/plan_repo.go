package repository

import (
	"context"

	"wmsinbound/models"
)

// StatusGuard is evaluated against the receipt status read inside the
// mutating transaction. A nil status means the plan has no receipt.
type StatusGuard func(status *models.ReceiptStatus) error

type PlanRepository interface {
	CreatePlanWithReceipt(ctx context.Context, plan *models.InboundPlan, receipt *models.InboundReceipt, slots []models.InboundPhotoSlot) error
	GetPlan(ctx context.Context, id string) (*models.InboundPlan, error)
	ListPlans(ctx context.Context, filter models.PlanFilter) ([]*models.InboundPlan, error)
	UpdatePlan(ctx context.Context, plan *models.InboundPlan, guard StatusGuard) error
	// DeletePlan removes the plan and its receipt as one unit and returns the
	// receipt that was removed, if any.
	DeletePlan(ctx context.Context, planID string, guard StatusGuard) (*models.InboundReceipt, error)
}
