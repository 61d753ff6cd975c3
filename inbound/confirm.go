package inbound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wmsinbound/models"
	"wmsinbound/repository"
)

// ConfirmResult is the outcome of a confirm attempt. A discrepancy is a
// valid outcome, not an error.
type ConfirmResult struct {
	ReceiptID        string               `json:"receipt_id"`
	Status           models.ReceiptStatus `json:"status"`
	Discrepancy      bool                 `json:"discrepancy"`
	Mismatches       []models.Mismatch    `json:"mismatches,omitempty"`
	AlreadyConfirmed bool                 `json:"already_confirmed,omitempty"`
}

// FindMismatches compares counted totals with expectations. Plan lines that
// were never counted are reported with an actual of zero.
func FindMismatches(planLines []models.InboundPlanLine, lines []models.InboundReceiptLine) []models.Mismatch {
	var out []models.Mismatch
	counted := map[string]bool{}
	for _, l := range lines {
		if l.PlanLineID != nil {
			counted[*l.PlanLineID] = true
		}
		if !l.Matches() {
			out = append(out, models.Mismatch{
				ProductID:  l.ProductID,
				PlanLineID: l.PlanLineID,
				Expected:   l.ExpectedQty,
				Actual:     l.ReceivedTotal(),
			})
		}
	}
	for _, pl := range planLines {
		if counted[pl.ID] || pl.ExpectedQty == 0 {
			continue
		}
		id := pl.ID
		out = append(out, models.Mismatch{
			ProductID:  pl.ProductID,
			PlanLineID: &id,
			Expected:   pl.ExpectedQty,
			Actual:     0,
		})
	}
	return out
}

// ledgerEntries posts accepted and damaged stock for counted lines. Lines
// tied to a plan line that is no longer on the plan post nothing.
func ledgerEntries(receipt *models.InboundReceipt, planLines []models.InboundPlanLine, lines []models.InboundReceiptLine, actor string, at time.Time) []models.LedgerEntry {
	onPlan := make(map[string]bool, len(planLines))
	for _, pl := range planLines {
		onPlan[pl.ID] = true
	}

	var entries []models.LedgerEntry
	for _, l := range lines {
		if l.AcceptedQty == 0 && l.DamagedQty == 0 {
			continue
		}
		if l.PlanLineID != nil && !onPlan[*l.PlanLineID] {
			continue
		}
		entries = append(entries, models.LedgerEntry{
			OrganizationID: receipt.OrganizationID,
			WarehouseID:    receipt.WarehouseID,
			ClientID:       receipt.ClientID,
			ProductID:      l.ProductID,
			LocationID:     l.LocationID,
			ReceiptID:      receipt.ID,
			ReceiptLineID:  l.ID,
			AvailableQty:   l.AcceptedQty,
			DamagedQty:     l.DamagedQty,
			MovementType:   models.MovementReceipt,
			CreatedBy:      actor,
			CreatedAt:      at,
		})
	}
	return entries
}

// Confirm checks photo evidence, then quantity agreement, and on success
// flips the receipt to CONFIRMED and posts the inventory ledger in the same
// transaction. Both checks re-read their data under the receipt lock, so
// concurrent confirms have at most one winner.
func (s *Service) Confirm(ctx context.Context, actor Actor, receiptID string) (*ConfirmResult, error) {
	if err := actor.validate(); err != nil {
		return nil, err
	}

	result := &ConfirmResult{ReceiptID: receiptID}
	var receiptNo string
	err := s.receipts.WithReceiptLock(ctx, receiptID, func(tx repository.ReceiptTx) error {
		receipt := tx.Receipt()
		receiptNo = receipt.ReceiptNo
		if receipt.Status.Final() {
			result.Status = receipt.Status
			result.AlreadyConfirmed = true
			return nil
		}

		progress, err := tx.PhotoProgress(ctx)
		if err != nil {
			return fmt.Errorf("load photo progress: %w", err)
		}
		if missing := missingSlots(progress); len(missing) > 0 {
			return &MissingPhotosError{Slots: missing}
		}

		planLines, err := tx.PlanLines(ctx)
		if err != nil {
			return fmt.Errorf("load plan lines: %w", err)
		}
		lines, err := tx.Lines(ctx)
		if err != nil {
			return fmt.Errorf("load receipt lines: %w", err)
		}

		if mismatches := FindMismatches(planLines, lines); len(mismatches) > 0 {
			if err := tx.SetStatus(ctx, models.StatusDiscrepancy, actor.ID); err != nil {
				return err
			}
			result.Status = models.StatusDiscrepancy
			result.Discrepancy = true
			result.Mismatches = mismatches
			return nil
		}

		if err := tx.SetStatus(ctx, models.StatusConfirmed, actor.ID); err != nil {
			return err
		}
		if err := tx.PostLedger(ctx, ledgerEntries(receipt, planLines, lines, actor.ID, s.now())); err != nil {
			return err
		}
		result.Status = models.StatusConfirmed
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrMissingPhotos) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("confirm receipt: %w", err)
	}

	switch {
	case result.AlreadyConfirmed:
		s.logger.Info("receipt already confirmed", zap.String("receipt_id", receiptID))
	case result.Discrepancy:
		s.recorder.Event(receiptID, models.EventDiscrepancyFound, actor.ID, map[string]any{
			"mismatches": result.Mismatches,
		})
		s.logger.Info("receipt discrepancy found",
			zap.String("receipt_id", receiptID),
			zap.Int("mismatched_lines", len(result.Mismatches)))
	default:
		s.recorder.Event(receiptID, models.EventConfirmed, actor.ID, nil)
		s.recorder.Audit(models.AuditApprove, receiptID, actor.ID, map[string]any{
			"receipt_no": receiptNo,
		})
		s.logger.Info("receipt confirmed", zap.String("receipt_id", receiptID))
	}
	return result, nil
}

// MarkPutawayReady is the downstream putaway step: CONFIRMED -> PUTAWAY_READY.
func (s *Service) MarkPutawayReady(ctx context.Context, actor Actor, receiptID string) (*models.InboundReceipt, error) {
	if err := actor.validate(); err != nil {
		return nil, err
	}

	advanced, err := s.receipts.AdvanceStatus(ctx, receiptID,
		[]models.ReceiptStatus{models.StatusConfirmed}, models.StatusPutawayReady)
	if err != nil {
		return nil, fmt.Errorf("advance receipt status: %w", err)
	}
	receipt, err := s.receipts.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if !advanced {
		if receipt.Status == models.StatusPutawayReady {
			return receipt, nil
		}
		return nil, fmt.Errorf("%w: receipt is %s", ErrInvalidTransition, receipt.Status)
	}

	s.recorder.Event(receiptID, models.EventPutawayReady, actor.ID, nil)
	return receipt, nil
}
