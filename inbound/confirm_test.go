package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wmsinbound/models"
)

func TestConfirmWithoutPhotosListsEverySlot(t *testing.T) {
	h := newHarness(t)
	created, _ := h.createPlan(t)

	_, err := h.svc.Confirm(context.Background(), operator, created.ReceiptID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingPhotos)

	var missing *MissingPhotosError
	require.True(t, errors.As(err, &missing))
	titles := make([]string, len(models.PhotoSlotCatalog))
	for i, s := range models.PhotoSlotCatalog {
		titles[i] = s.Title
	}
	assert.Equal(t, titles, missing.Slots)
	assert.Equal(t, models.StatusArrived, h.status(t, created.ReceiptID))
	assert.Empty(t, h.store.Ledger(created.ReceiptID))
}

func TestConfirmWithOneSlotMissing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, plan := h.createPlan(t)

	for _, slot := range models.PhotoSlotCatalog[:5] {
		_, err := h.svc.AddPhoto(ctx, operator, created.ReceiptID, slot.Key, "p/"+slot.Key)
		require.NoError(t, err)
	}
	h.saveLine(t, created.ReceiptID, plan.Lines[0], 10, 0, 0, 0)

	_, err := h.svc.Confirm(ctx, operator, created.ReceiptID)
	var missing *MissingPhotosError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"After unboxing"}, missing.Slots)
	assert.Equal(t, models.StatusCounting, h.status(t, created.ReceiptID))
}

func TestConfirmMatchingCounts(t *testing.T) {
	tests := []struct {
		name                              string
		accepted, damaged, missing, other int64
	}{
		{"all accepted", 10, 0, 0, 0},
		{"split across buckets", 8, 0, 2, 0},
		{"every bucket", 4, 3, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			created, plan := h.createPlan(t)
			h.uploadAllPhotos(t, created.ReceiptID)
			h.saveLine(t, created.ReceiptID, plan.Lines[0], tt.accepted, tt.damaged, tt.missing, tt.other)

			result, err := h.svc.Confirm(ctx, operator, created.ReceiptID)
			require.NoError(t, err)
			assert.False(t, result.Discrepancy)
			assert.False(t, result.AlreadyConfirmed)
			assert.Equal(t, models.StatusConfirmed, result.Status)

			rc, err := h.store.GetReceipt(ctx, created.ReceiptID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusConfirmed, rc.Status)
			require.NotNil(t, rc.ConfirmedBy)
			assert.Equal(t, operator.ID, *rc.ConfirmedBy)

			p, err := h.svc.GetPlan(ctx, created.PlanID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusConfirmed, p.Status)

			assert.Len(t, h.events(t, created.ReceiptID, models.EventConfirmed), 1)
			assert.Empty(t, h.events(t, created.ReceiptID, models.EventDiscrepancyFound))

			ledger := h.store.Ledger(created.ReceiptID)
			if tt.accepted+tt.damaged == 0 {
				assert.Empty(t, ledger)
			} else {
				require.Len(t, ledger, 1)
				assert.Equal(t, tt.accepted, ledger[0].AvailableQty)
				assert.Equal(t, tt.damaged, ledger[0].DamagedQty)
				assert.Equal(t, models.MovementReceipt, ledger[0].MovementType)
				assert.Equal(t, "SKU-1", ledger[0].ProductID)
			}

			var approve int
			for _, e := range h.store.AuditEntries() {
				if e.ActionType == models.AuditApprove {
					approve++
					assert.Equal(t, created.ReceiptID, e.ResourceID)
				}
			}
			assert.Equal(t, 1, approve)
		})
	}
}

func TestConfirmDiscrepancyThenCorrect(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, plan := h.createPlan(t)
	h.uploadAllPhotos(t, created.ReceiptID)
	h.saveLine(t, created.ReceiptID, plan.Lines[0], 7, 0, 0, 0)

	result, err := h.svc.Confirm(ctx, operator, created.ReceiptID)
	require.NoError(t, err)
	assert.True(t, result.Discrepancy)
	assert.Equal(t, models.StatusDiscrepancy, result.Status)
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, int64(10), result.Mismatches[0].Expected)
	assert.Equal(t, int64(7), result.Mismatches[0].Actual)
	assert.Equal(t, models.StatusDiscrepancy, h.status(t, created.ReceiptID))
	assert.Empty(t, h.store.Ledger(created.ReceiptID))

	found := h.events(t, created.ReceiptID, models.EventDiscrepancyFound)
	require.Len(t, found, 1)
	var payload struct {
		Mismatches []models.Mismatch `json:"mismatches"`
	}
	require.NoError(t, json.Unmarshal(found[0].Payload, &payload))
	require.Len(t, payload.Mismatches, 1)
	assert.Equal(t, "SKU-1", payload.Mismatches[0].ProductID)
	assert.Equal(t, int64(10), payload.Mismatches[0].Expected)
	assert.Equal(t, int64(7), payload.Mismatches[0].Actual)

	// Correcting lines keeps DISCREPANCY until the next confirm.
	h.saveLine(t, created.ReceiptID, plan.Lines[0], 10, 0, 0, 0)
	assert.Equal(t, models.StatusDiscrepancy, h.status(t, created.ReceiptID))

	result, err = h.svc.Confirm(ctx, operator, created.ReceiptID)
	require.NoError(t, err)
	assert.False(t, result.Discrepancy)
	assert.Equal(t, models.StatusConfirmed, result.Status)
	assert.Len(t, h.events(t, created.ReceiptID, models.EventConfirmed), 1)
	assert.Len(t, h.store.Ledger(created.ReceiptID), 1)
}

func TestConfirmReportsUncountedPlanLines(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, plan := h.createPlan(t,
		PlanLineInput{ProductID: "SKU-1", ExpectedQty: 10},
		PlanLineInput{ProductID: "SKU-2", ExpectedQty: 5},
	)
	h.uploadAllPhotos(t, created.ReceiptID)
	var first models.InboundPlanLine
	for _, l := range plan.Lines {
		if l.ProductID == "SKU-1" {
			first = l
		}
	}
	h.saveLine(t, created.ReceiptID, first, 10, 0, 0, 0)

	result, err := h.svc.Confirm(ctx, operator, created.ReceiptID)
	require.NoError(t, err)
	require.True(t, result.Discrepancy)
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, "SKU-2", result.Mismatches[0].ProductID)
	assert.Equal(t, int64(5), result.Mismatches[0].Expected)
	assert.Zero(t, result.Mismatches[0].Actual)
}

func TestConcurrentConfirmHasOneWinner(t *testing.T) {
	h := newHarness(t)
	created, plan := h.createPlan(t)
	h.uploadAllPhotos(t, created.ReceiptID)
	h.saveLine(t, created.ReceiptID, plan.Lines[0], 10, 0, 0, 0)

	const callers = 8
	results := make([]*ConfirmResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.svc.Confirm(context.Background(), operator, created.ReceiptID)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, models.StatusConfirmed, results[i].Status)
		if !results[i].AlreadyConfirmed {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Len(t, h.events(t, created.ReceiptID, models.EventConfirmed), 1)
	assert.Len(t, h.store.Ledger(created.ReceiptID), 1)
}

func TestConfirmUnknownReceipt(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Confirm(context.Background(), operator, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkPutawayReady(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, plan := h.createPlan(t)

	_, err := h.svc.MarkPutawayReady(ctx, operator, created.ReceiptID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	h.uploadAllPhotos(t, created.ReceiptID)
	h.saveLine(t, created.ReceiptID, plan.Lines[0], 10, 0, 0, 0)
	_, err = h.svc.Confirm(ctx, operator, created.ReceiptID)
	require.NoError(t, err)

	rc, err := h.svc.MarkPutawayReady(ctx, operator, created.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPutawayReady, rc.Status)

	rc, err = h.svc.MarkPutawayReady(ctx, operator, created.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPutawayReady, rc.Status)
	assert.Len(t, h.events(t, created.ReceiptID, models.EventPutawayReady), 1)

	result, err := h.svc.Confirm(ctx, operator, created.ReceiptID)
	require.NoError(t, err)
	assert.True(t, result.AlreadyConfirmed)
	assert.Equal(t, models.StatusPutawayReady, result.Status)
}

func TestFindMismatches(t *testing.T) {
	pl1, pl2, pl3 := "pl-1", "pl-2", "pl-3"
	planLines := []models.InboundPlanLine{
		{ID: pl1, ProductID: "A", ExpectedQty: 5},
		{ID: pl2, ProductID: "B", ExpectedQty: 3},
		{ID: pl3, ProductID: "C", ExpectedQty: 0},
	}
	lines := []models.InboundReceiptLine{
		{PlanLineID: &pl1, ProductID: "A", ExpectedQty: 5, AcceptedQty: 4, OtherQty: 1},
		{ProductID: "Z", AcceptedQty: 2},
	}

	got := FindMismatches(planLines, lines)
	require.Len(t, got, 2)
	assert.Equal(t, "Z", got[0].ProductID)
	assert.Equal(t, int64(0), got[0].Expected)
	assert.Equal(t, int64(2), got[0].Actual)
	assert.Equal(t, "B", got[1].ProductID)
	assert.Equal(t, int64(3), got[1].Expected)
	assert.Zero(t, got[1].Actual)
}

func TestConfirmAfterPlanDropsCountedProduct(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, plan := h.createPlan(t,
		PlanLineInput{ProductID: "SKU-A", ExpectedQty: 10},
		PlanLineInput{ProductID: "SKU-B", ExpectedQty: 5},
	)
	h.uploadAllPhotos(t, created.ReceiptID)
	h.saveLine(t, created.ReceiptID, plan.Lines[0], 10, 0, 0, 0)
	h.saveLine(t, created.ReceiptID, plan.Lines[1], 3, 0, 0, 0)

	res, err := h.svc.Confirm(ctx, operator, created.ReceiptID)
	require.NoError(t, err)
	require.True(t, res.Discrepancy)

	// SKU-B did not ship after all.
	_, err = h.svc.UpdatePlan(ctx, manager, created.PlanID, planInput(PlanLineInput{ProductID: "SKU-A", ExpectedQty: 10}))
	require.NoError(t, err)

	lines, err := h.store.ListLines(ctx, created.ReceiptID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "SKU-A", lines[0].ProductID)

	res, err = h.svc.Confirm(ctx, operator, created.ReceiptID)
	require.NoError(t, err)
	assert.False(t, res.Discrepancy)
	assert.Equal(t, models.StatusConfirmed, res.Status)

	ledger := h.store.Ledger(created.ReceiptID)
	require.Len(t, ledger, 1)
	assert.Equal(t, "SKU-A", ledger[0].ProductID)
	assert.Equal(t, int64(10), ledger[0].AvailableQty)
}

func TestLedgerSkipsLinesOffThePlan(t *testing.T) {
	receipt := &models.InboundReceipt{ID: "rc-1", OrganizationID: "org-1"}
	current, stale := "pl-current", "pl-stale"
	planLines := []models.InboundPlanLine{{ID: current, ProductID: "SKU-A", ExpectedQty: 4}}
	lines := []models.InboundReceiptLine{
		{ID: "l1", PlanLineID: &current, ProductID: "SKU-A", ExpectedQty: 4, AcceptedQty: 3, DamagedQty: 1},
		{ID: "l2", PlanLineID: &stale, ProductID: "SKU-B", ExpectedQty: 2, AcceptedQty: 2},
		{ID: "l3", PlanLineID: &current, ProductID: "SKU-A", MissingQty: 4},
	}

	entries := ledgerEntries(receipt, planLines, lines, "op-1", fixedNow)
	require.Len(t, entries, 1)
	assert.Equal(t, "l1", entries[0].ReceiptLineID)
	assert.Equal(t, int64(3), entries[0].AvailableQty)
	assert.Equal(t, int64(1), entries[0].DamagedQty)
}
