package inbound

import (
	"context"
	"fmt"

	"wmsinbound/models"
)

// ReceiptDetail is the read model of one receipt and its progress.
type ReceiptDetail struct {
	Receipt       *models.InboundReceipt      `json:"receipt"`
	Plan          *models.InboundPlan         `json:"plan"`
	Slots         []models.SlotProgress       `json:"slots"`
	MissingSlots  []string                    `json:"missing_slots"`
	Photos        []models.InboundPhoto       `json:"photos"`
	Lines         []models.InboundReceiptLine `json:"lines"`
	Mismatches    []models.Mismatch           `json:"mismatches"`
	Events        []models.InboundEvent       `json:"events"`
	TotalExpected int64                       `json:"total_expected"`
	TotalReceived int64                       `json:"total_received"`
}

func (s *Service) GetReceipt(ctx context.Context, receiptID string) (*ReceiptDetail, error) {
	receipt, err := s.receipts.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.GetPlan(ctx, receipt.PlanID)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	progress, err := s.receipts.PhotoProgress(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("load photo progress: %w", err)
	}
	photos, err := s.receipts.ListPhotos(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("load photos: %w", err)
	}
	lines, err := s.receipts.ListLines(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("load receipt lines: %w", err)
	}

	events, err := s.events.ListEvents(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	d := &ReceiptDetail{
		Receipt:      receipt,
		Plan:         plan,
		Slots:        progress,
		MissingSlots: missingSlots(progress),
		Photos:       photos,
		Lines:        lines,
		Mismatches:   FindMismatches(plan.Lines, lines),
		Events:       events,
	}
	for _, pl := range plan.Lines {
		d.TotalExpected += pl.ExpectedQty
	}
	for _, l := range lines {
		d.TotalReceived += l.ReceivedTotal()
	}
	return d, nil
}

func (s *Service) ListEvents(ctx context.Context, receiptID string) ([]models.InboundEvent, error) {
	if _, err := s.receipts.GetReceipt(ctx, receiptID); err != nil {
		return nil, err
	}
	return s.events.ListEvents(ctx, receiptID)
}
