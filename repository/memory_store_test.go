package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wmsinbound/models"
)

func seedPlan(t *testing.T, s *MemoryStore, planNo, receiptNo string) (*models.InboundPlan, *models.InboundReceipt) {
	t.Helper()
	plan := &models.InboundPlan{
		ID: "plan-" + planNo, OrganizationID: "org", PlanNo: planNo, Status: models.StatusArrived,
		Lines: []models.InboundPlanLine{{ProductID: "SKU-1", ExpectedQty: 3}},
	}
	receipt := &models.InboundReceipt{ID: "rc-" + receiptNo, OrganizationID: "org", ReceiptNo: receiptNo, Status: models.StatusArrived}
	slots := []models.InboundPhotoSlot{{ID: "slot-" + receiptNo, SlotKey: "vehicle_left", Title: "Vehicle (left side)", IsRequired: true, MinPhotos: 1}}
	require.NoError(t, s.CreatePlanWithReceipt(context.Background(), plan, receipt, slots))
	return plan, receipt
}

func TestMemoryStoreDuplicateNumbers(t *testing.T) {
	s := NewMemoryStore()
	seedPlan(t, s, "IB-1", "RC-1")

	err := s.CreatePlanWithReceipt(context.Background(),
		&models.InboundPlan{ID: "p2", OrganizationID: "org", PlanNo: "IB-2"},
		&models.InboundReceipt{ID: "r2", OrganizationID: "org", ReceiptNo: "RC-1"}, nil)
	assert.ErrorIs(t, err, ErrDuplicateNumber)

	// Numbers are unique per organization only.
	err = s.CreatePlanWithReceipt(context.Background(),
		&models.InboundPlan{ID: "p3", OrganizationID: "other", PlanNo: "IB-1"},
		&models.InboundReceipt{ID: "r3", OrganizationID: "other", ReceiptNo: "RC-1"}, nil)
	assert.NoError(t, err)
}

func TestMemoryStoreUpsertLine(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	plan, rc := seedPlan(t, s, "IB-1", "RC-1")
	planLineID := plan.Lines[0].ID
	require.NotEmpty(t, planLineID)

	line := &models.InboundReceiptLine{ReceiptID: rc.ID, PlanLineID: &planLineID, ProductID: "SKU-1", ExpectedQty: 3, AcceptedQty: 3}
	wrote, err := s.UpsertLine(ctx, line, nil)
	require.NoError(t, err)
	assert.True(t, wrote)
	firstID := line.ID

	same := *line
	same.ID = ""
	wrote, err = s.UpsertLine(ctx, &same, nil)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, firstID, same.ID)

	changed := same
	changed.AcceptedQty = 2
	changed.DamagedQty = 1
	wrote, err = s.UpsertLine(ctx, &changed, nil)
	require.NoError(t, err)
	assert.True(t, wrote)

	lines, err := s.ListLines(ctx, rc.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(1), lines[0].DamagedQty)

	_, err = s.UpsertLine(ctx, &models.InboundReceiptLine{ReceiptID: "nope", ProductID: "X"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreReceiptLockRollsBackOnError(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, rc := seedPlan(t, s, "IB-1", "RC-1")

	boom := errors.New("boom")
	err := s.WithReceiptLock(ctx, rc.ID, func(tx ReceiptTx) error {
		require.NoError(t, tx.SetStatus(ctx, models.StatusConfirmed, "op"))
		require.NoError(t, tx.PostLedger(ctx, []models.LedgerEntry{{ReceiptID: rc.ID, ProductID: "SKU-1", AvailableQty: 3}}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetReceipt(ctx, rc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArrived, got.Status)
	assert.Nil(t, got.ConfirmedAt)
	assert.Empty(t, s.Ledger(rc.ID))

	err = s.WithReceiptLock(ctx, rc.ID, func(tx ReceiptTx) error {
		if err := tx.SetStatus(ctx, models.StatusConfirmed, "op"); err != nil {
			return err
		}
		return tx.PostLedger(ctx, []models.LedgerEntry{{ReceiptID: rc.ID, ProductID: "SKU-1", AvailableQty: 3}})
	})
	require.NoError(t, err)

	got, err = s.GetReceipt(ctx, rc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	require.NotNil(t, got.ConfirmedBy)
	assert.Equal(t, "op", *got.ConfirmedBy)
	assert.Len(t, s.Ledger(rc.ID), 1)

	assert.ErrorIs(t, s.WithReceiptLock(ctx, "nope", func(ReceiptTx) error { return nil }), ErrNotFound)
}

func TestMemoryStoreAdvanceStatusSyncsPlan(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	plan, rc := seedPlan(t, s, "IB-1", "RC-1")

	ok, err := s.AdvanceStatus(ctx, rc.ID, []models.ReceiptStatus{models.StatusCounting}, models.StatusConfirmed)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.AdvanceStatus(ctx, rc.ID, []models.ReceiptStatus{models.StatusArrived}, models.StatusPhotoRequired)
	require.NoError(t, err)
	assert.True(t, ok)

	p, err := s.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPhotoRequired, p.Status)
}

func TestMemoryStoreGuardRunsBeforeDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	plan, rc := seedPlan(t, s, "IB-1", "RC-1")

	refused := errors.New("refused")
	_, err := s.DeletePlan(ctx, plan.ID, func(status *models.ReceiptStatus) error {
		require.NotNil(t, status)
		assert.Equal(t, models.StatusArrived, *status)
		return refused
	})
	assert.ErrorIs(t, err, refused)
	_, err = s.GetReceipt(ctx, rc.ID)
	require.NoError(t, err)

	deleted, err := s.DeletePlan(ctx, plan.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, rc.ID, deleted.ID)

	// The number becomes available again.
	seedPlan(t, s, "IB-1", "RC-1")
}

func TestMemoryStoreLineAndPhotoWritesHonorGuard(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	plan, rc := seedPlan(t, s, "IB-1", "RC-1")
	planLineID := plan.Lines[0].ID

	ok, err := s.AdvanceStatus(ctx, rc.ID, []models.ReceiptStatus{models.StatusArrived}, models.StatusConfirmed)
	require.NoError(t, err)
	require.True(t, ok)

	refused := errors.New("refused")
	var seen models.ReceiptStatus
	guard := func(status *models.ReceiptStatus) error {
		require.NotNil(t, status)
		seen = *status
		return refused
	}

	_, err = s.UpsertLine(ctx, &models.InboundReceiptLine{ReceiptID: rc.ID, PlanLineID: &planLineID, ProductID: "SKU-1", AcceptedQty: 1}, guard)
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, models.StatusConfirmed, seen)
	lines, err := s.ListLines(ctx, rc.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	err = s.AddPhoto(ctx, &models.InboundPhoto{ReceiptID: rc.ID, SlotID: "slot-RC-1", StoragePath: "late.jpg"}, guard)
	assert.ErrorIs(t, err, refused)
	photos, err := s.ListPhotos(ctx, rc.ID)
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestMemoryStoreUpdatePlanDropsCountsForRemovedProducts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	plan, rc := seedPlan(t, s, "IB-1", "RC-1")
	oldID := plan.Lines[0].ID

	_, err := s.UpsertLine(ctx, &models.InboundReceiptLine{ReceiptID: rc.ID, PlanLineID: &oldID, ProductID: "SKU-1", ExpectedQty: 3, AcceptedQty: 2}, nil)
	require.NoError(t, err)
	_, err = s.UpsertLine(ctx, &models.InboundReceiptLine{ReceiptID: rc.ID, ProductID: "EXTRA", AcceptedQty: 1}, nil)
	require.NoError(t, err)

	err = s.UpdatePlan(ctx, &models.InboundPlan{
		ID:    plan.ID,
		Lines: []models.InboundPlanLine{{ProductID: "SKU-2", ExpectedQty: 4}},
	}, nil)
	require.NoError(t, err)

	// The unplanned line stays; the count for SKU-1 left with its plan line.
	lines, err := s.ListLines(ctx, rc.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "EXTRA", lines[0].ProductID)
	assert.Nil(t, lines[0].PlanLineID)
}
