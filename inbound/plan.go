package inbound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wmsinbound/models"
	"wmsinbound/repository"
)

type PlanLineInput struct {
	ProductID   string
	ExpectedQty int64
	BoxCount    *int64
	PalletID    *string
	MfgDate     *time.Time
	ExpiryDate  *time.Time
	Notes       *string
}

// PlanInput is the field set shared by create and update.
type PlanInput struct {
	OrganizationID string
	WarehouseID    string
	ClientID       string
	PlannedDate    time.Time
	Manager        *string
	Notes          *string
	Lines          []PlanLineInput
}

type CreatedPlan struct {
	PlanID    string `json:"plan_id"`
	PlanNo    string `json:"plan_no"`
	ReceiptID string `json:"receipt_id"`
	ReceiptNo string `json:"receipt_no"`
}

func (in PlanInput) validate() error {
	var errs []error
	if in.OrganizationID == "" {
		errs = append(errs, invalid("organization_id", "is required"))
	}
	if in.WarehouseID == "" {
		errs = append(errs, invalid("warehouse_id", "is required"))
	}
	if in.ClientID == "" {
		errs = append(errs, invalid("client_id", "is required"))
	}
	if in.PlannedDate.IsZero() {
		errs = append(errs, invalid("planned_date", "is required"))
	}
	if len(in.Lines) == 0 {
		errs = append(errs, invalid("lines", "at least one line is required"))
	}
	for i, l := range in.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if l.ProductID == "" {
			errs = append(errs, invalid(field+".product_id", "is required"))
		}
		if l.ExpectedQty < 0 {
			errs = append(errs, invalid(field+".expected_qty", "must not be negative"))
		}
		if l.BoxCount != nil && *l.BoxCount < 0 {
			errs = append(errs, invalid(field+".box_count", "must not be negative"))
		}
		if l.MfgDate != nil && l.ExpiryDate != nil && l.ExpiryDate.Before(*l.MfgDate) {
			errs = append(errs, invalid(field+".expiry_date", "is before mfg_date"))
		}
	}
	return errors.Join(errs...)
}

func (in PlanInput) planLines() []models.InboundPlanLine {
	lines := make([]models.InboundPlanLine, len(in.Lines))
	for i, l := range in.Lines {
		lines[i] = models.InboundPlanLine{
			ID:          uuid.NewString(),
			ProductID:   l.ProductID,
			ExpectedQty: l.ExpectedQty,
			BoxCount:    l.BoxCount,
			PalletID:    l.PalletID,
			MfgDate:     l.MfgDate,
			ExpiryDate:  l.ExpiryDate,
			Notes:       l.Notes,
		}
	}
	return lines
}

func newPhotoSlots() []models.InboundPhotoSlot {
	slots := make([]models.InboundPhotoSlot, len(models.PhotoSlotCatalog))
	for i, t := range models.PhotoSlotCatalog {
		slots[i] = models.InboundPhotoSlot{
			ID:         uuid.NewString(),
			SlotKey:    t.Key,
			Title:      t.Title,
			IsRequired: t.Required,
			MinPhotos:  t.MinPhotos,
			SortOrder:  i + 1,
		}
	}
	return slots
}

// CreatePlan stores the plan with its lines and spawns its receipt in the
// ARRIVED state together with the photo slot catalog. Retrying a failed
// create can produce a duplicate plan.
func (s *Service) CreatePlan(ctx context.Context, actor Actor, in PlanInput) (*CreatedPlan, error) {
	if err := errors.Join(actor.validate(), in.validate()); err != nil {
		return nil, err
	}

	now := s.now()
	var plan *models.InboundPlan
	var receipt *models.InboundReceipt
	for attempt := 1; ; attempt++ {
		plan = &models.InboundPlan{
			ID:             uuid.NewString(),
			OrganizationID: in.OrganizationID,
			WarehouseID:    in.WarehouseID,
			ClientID:       in.ClientID,
			PlanNo:         s.numbers(planPrefix, now),
			PlannedDate:    in.PlannedDate,
			Manager:        in.Manager,
			Notes:          in.Notes,
			Status:         models.StatusArrived,
			CreatedBy:      actor.ID,
			CreatedAt:      now,
			Lines:          in.planLines(),
		}
		receipt = &models.InboundReceipt{
			ID:             uuid.NewString(),
			OrganizationID: in.OrganizationID,
			WarehouseID:    in.WarehouseID,
			ClientID:       in.ClientID,
			ReceiptNo:      s.numbers(receiptPrefix, now),
			Status:         models.StatusArrived,
			CreatedBy:      actor.ID,
			CreatedAt:      now,
		}

		err := s.plans.CreatePlanWithReceipt(ctx, plan, receipt, newPhotoSlots())
		if errors.Is(err, repository.ErrDuplicateNumber) && attempt < maxNumberAttempts {
			s.logger.Info("document number collision, regenerating",
				zap.String("plan_no", plan.PlanNo),
				zap.String("receipt_no", receipt.ReceiptNo),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create plan: %w", err)
		}
		break
	}

	s.recorder.Event(receipt.ID, models.EventCreated, actor.ID, map[string]any{
		"plan_id":    plan.ID,
		"plan_no":    plan.PlanNo,
		"receipt_no": receipt.ReceiptNo,
		"lines":      len(plan.Lines),
	})
	s.recorder.Audit(models.AuditCreate, plan.ID, actor.ID, map[string]any{
		"plan_no":    plan.PlanNo,
		"receipt_id": receipt.ID,
	})

	s.logger.Info("inbound plan created",
		zap.String("plan_id", plan.ID),
		zap.String("plan_no", plan.PlanNo),
		zap.String("receipt_id", receipt.ID))

	return &CreatedPlan{
		PlanID:    plan.ID,
		PlanNo:    plan.PlanNo,
		ReceiptID: receipt.ID,
		ReceiptNo: receipt.ReceiptNo,
	}, nil
}

// UpdatePlan replaces the plan fields and its whole line set. The receipt's
// client and warehouse follow the plan.
func (s *Service) UpdatePlan(ctx context.Context, actor Actor, planID string, in PlanInput) (*models.InboundPlan, error) {
	if err := errors.Join(actor.validate(), in.validate()); err != nil {
		return nil, err
	}

	plan := &models.InboundPlan{
		ID:          planID,
		WarehouseID: in.WarehouseID,
		ClientID:    in.ClientID,
		PlannedDate: in.PlannedDate,
		Manager:     in.Manager,
		Notes:       in.Notes,
		Lines:       in.planLines(),
	}
	if err := s.plans.UpdatePlan(ctx, plan, lockGuard(actor)); err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}

	if receipt, err := s.receipts.GetReceiptByPlan(ctx, planID); err == nil {
		s.recorder.Event(receipt.ID, models.EventUpdated, actor.ID, map[string]any{
			"plan_id":  planID,
			"lines":    len(plan.Lines),
			"elevated": actor.Elevated,
		})
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("failed to load receipt for update event", zap.String("plan_id", planID), zap.Error(err))
	}
	s.recorder.Audit(models.AuditUpdate, planID, actor.ID, map[string]any{
		"lines":    len(plan.Lines),
		"elevated": actor.Elevated,
	})

	return s.plans.GetPlan(ctx, planID)
}

// DeletePlan removes the plan and its receipt in one store transaction.
func (s *Service) DeletePlan(ctx context.Context, actor Actor, planID string) error {
	if err := actor.validate(); err != nil {
		return err
	}

	receipt, err := s.plans.DeletePlan(ctx, planID, lockGuard(actor))
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}

	if receipt != nil {
		s.recorder.Event(receipt.ID, models.EventDeleted, actor.ID, map[string]any{
			"plan_id":    planID,
			"receipt_no": receipt.ReceiptNo,
			"status":     receipt.Status,
		})
	}
	s.recorder.Audit(models.AuditDelete, planID, actor.ID, map[string]any{
		"elevated": actor.Elevated,
	})
	return nil
}

func (s *Service) GetPlan(ctx context.Context, planID string) (*models.InboundPlan, error) {
	return s.plans.GetPlan(ctx, planID)
}

func (s *Service) ListPlans(ctx context.Context, filter models.PlanFilter) ([]*models.InboundPlan, error) {
	return s.plans.ListPlans(ctx, filter)
}
