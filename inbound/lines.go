package inbound

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"wmsinbound/models"
)

// LineInput is one counted line submitted by an operator.
type LineInput struct {
	PlanLineID  *string
	ProductID   string
	AcceptedQty int64
	DamagedQty  int64
	MissingQty  int64
	OtherQty    int64
	LocationID  *string
	Notes       *string
}

type SaveLinesResult struct {
	Saved     int                  `json:"saved"`
	Unchanged int                  `json:"unchanged"`
	Status    models.ReceiptStatus `json:"status"`
}

// buildLines validates the whole batch against the plan before anything is
// written.
func buildLines(receiptID string, plan *models.InboundPlan, inputs []LineInput) ([]models.InboundReceiptLine, error) {
	if len(inputs) == 0 {
		return nil, invalid("lines", "at least one line is required")
	}

	planLines := make(map[string]models.InboundPlanLine, len(plan.Lines))
	for _, pl := range plan.Lines {
		planLines[pl.ID] = pl
	}

	var errs []error
	seen := map[string]bool{}
	lines := make([]models.InboundReceiptLine, 0, len(inputs))
	for i, in := range inputs {
		field := fmt.Sprintf("lines[%d]", i)
		line := models.InboundReceiptLine{
			ReceiptID:   receiptID,
			PlanLineID:  in.PlanLineID,
			ProductID:   in.ProductID,
			AcceptedQty: in.AcceptedQty,
			DamagedQty:  in.DamagedQty,
			MissingQty:  in.MissingQty,
			OtherQty:    in.OtherQty,
			LocationID:  in.LocationID,
			Notes:       in.Notes,
		}

		key := "product:" + in.ProductID
		if in.PlanLineID != nil {
			pl, ok := planLines[*in.PlanLineID]
			if !ok {
				errs = append(errs, invalid(field+".plan_line_id", "%s is not on the plan", *in.PlanLineID))
				continue
			}
			if line.ProductID == "" {
				line.ProductID = pl.ProductID
			} else if line.ProductID != pl.ProductID {
				errs = append(errs, invalid(field+".product_id", "does not match plan line product %s", pl.ProductID))
				continue
			}
			line.ExpectedQty = pl.ExpectedQty
			key = "plan_line:" + pl.ID
		} else if in.ProductID == "" {
			errs = append(errs, invalid(field+".product_id", "is required without plan_line_id"))
			continue
		}

		for name, qty := range map[string]int64{
			"accepted_qty": in.AcceptedQty,
			"damaged_qty":  in.DamagedQty,
			"missing_qty":  in.MissingQty,
			"other_qty":    in.OtherQty,
		} {
			if qty < 0 {
				errs = append(errs, invalid(field+"."+name, "must not be negative"))
			}
		}

		if seen[key] {
			errs = append(errs, invalid(field, "duplicate line for %s", line.ProductID))
			continue
		}
		seen[key] = true
		lines = append(lines, line)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return lines, nil
}

// SaveLines upserts counted lines keyed by (receipt, plan line). Each line is
// written independently: failures are collected and reported together while
// the lines that were written stay written.
func (s *Service) SaveLines(ctx context.Context, actor Actor, receiptID string, inputs []LineInput) (*SaveLinesResult, error) {
	if err := actor.validate(); err != nil {
		return nil, err
	}

	receipt, err := s.receipts.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.Status.Final() && !actor.Elevated {
		return nil, ErrAlreadyProcessed
	}
	plan, err := s.plans.GetPlan(ctx, receipt.PlanID)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}

	lines, err := buildLines(receiptID, plan, inputs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &SaveLinesResult{Status: receipt.Status}
	var errs []error
	var failed int
	var changed []map[string]any
	for i := range lines {
		line := &lines[i]
		line.InspectedBy = actor.ID
		line.InspectedAt = &now

		wrote, err := s.receipts.UpsertLine(ctx, line, finalGuard(actor))
		if errors.Is(err, ErrAlreadyProcessed) {
			// Confirmed while the batch was running; the rest is refused too.
			if result.Saved+result.Unchanged == 0 {
				return nil, ErrAlreadyProcessed
			}
			errs = append(errs, err)
			failed += len(lines) - i
			break
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("line %s: %w", line.ProductID, err))
			failed++
			continue
		}
		if !wrote {
			result.Unchanged++
			continue
		}
		result.Saved++
		changed = append(changed, map[string]any{
			"product_id": line.ProductID,
			"expected":   line.ExpectedQty,
			"accepted":   line.AcceptedQty,
			"damaged":    line.DamagedQty,
			"missing":    line.MissingQty,
			"other":      line.OtherQty,
			"received":   line.ReceivedTotal(),
		})
	}

	if result.Saved+result.Unchanged > 0 {
		advanced, err := s.receipts.AdvanceStatus(ctx, receiptID,
			[]models.ReceiptStatus{models.StatusArrived, models.StatusPhotoRequired}, models.StatusCounting)
		if err != nil {
			errs = append(errs, fmt.Errorf("advance receipt status: %w", err))
		} else if advanced {
			result.Status = models.StatusCounting
		}
	}

	if len(changed) > 0 {
		s.recorder.Event(receiptID, models.EventQtyUpdated, actor.ID, map[string]any{"lines": changed})
		s.recorder.Audit(models.AuditUpdate, receiptID, actor.ID, map[string]any{
			"receipt_no": receipt.ReceiptNo,
			"lines":      len(changed),
		})
	}

	if len(errs) > 0 {
		s.logger.Warn("receipt line batch partially failed",
			zap.String("receipt_id", receiptID),
			zap.Int("saved", result.Saved+result.Unchanged),
			zap.Int("failed", failed))
		return nil, &LineBatchError{Saved: result.Saved + result.Unchanged, Failed: failed, Err: errors.Join(errs...)}
	}
	return result, nil
}
