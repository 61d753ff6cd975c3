package inbound

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wmsinbound/models"
	"wmsinbound/repository"
)

var (
	operator = Actor{ID: "op-1"}
	manager  = Actor{ID: "mgr-1", Elevated: true}
	fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
)

type harness struct {
	store    *repository.MemoryStore
	recorder *Recorder
	svc      *Service
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	store := repository.NewMemoryStore()
	return newHarnessWith(t, store, store, opts...)
}

func newHarnessWith(t *testing.T, store *repository.MemoryStore, receipts repository.ReceiptRepository, opts ...Option) *harness {
	t.Helper()
	rec := NewRecorder(store, store, 64, zap.NewNop())
	t.Cleanup(rec.Close)

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return &harness{
		store:    store,
		recorder: rec,
		svc:      NewService(store, receipts, store, rec, zap.NewNop(), opts...),
	}
}

func (h *harness) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.recorder.Flush(ctx))
}

func (h *harness) eventTypes(t *testing.T, receiptID string) []models.EventType {
	t.Helper()
	h.flush(t)
	events, err := h.store.ListEvents(context.Background(), receiptID)
	require.NoError(t, err)
	out := make([]models.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.EventType
	}
	return out
}

func (h *harness) events(t *testing.T, receiptID string, typ models.EventType) []models.InboundEvent {
	t.Helper()
	h.flush(t)
	all, err := h.store.ListEvents(context.Background(), receiptID)
	require.NoError(t, err)
	var out []models.InboundEvent
	for _, ev := range all {
		if ev.EventType == typ {
			out = append(out, ev)
		}
	}
	return out
}

func planInput(lines ...PlanLineInput) PlanInput {
	if len(lines) == 0 {
		lines = []PlanLineInput{{ProductID: "SKU-1", ExpectedQty: 10}}
	}
	return PlanInput{
		OrganizationID: "org-1",
		WarehouseID:    "wh-1",
		ClientID:       "client-1",
		PlannedDate:    fixedNow,
		Lines:          lines,
	}
}

func (h *harness) createPlan(t *testing.T, lines ...PlanLineInput) (*CreatedPlan, *models.InboundPlan) {
	t.Helper()
	created, err := h.svc.CreatePlan(context.Background(), operator, planInput(lines...))
	require.NoError(t, err)
	plan, err := h.svc.GetPlan(context.Background(), created.PlanID)
	require.NoError(t, err)
	return created, plan
}

func (h *harness) uploadAllPhotos(t *testing.T, receiptID string) {
	t.Helper()
	for _, slot := range models.PhotoSlotCatalog {
		_, err := h.svc.AddPhoto(context.Background(), operator, receiptID, slot.Key,
			fmt.Sprintf("receipts/%s/%s.jpg", receiptID, slot.Key))
		require.NoError(t, err)
	}
}

func (h *harness) saveLine(t *testing.T, receiptID string, planLine models.InboundPlanLine, accepted, damaged, missing, other int64) {
	t.Helper()
	id := planLine.ID
	_, err := h.svc.SaveLines(context.Background(), operator, receiptID, []LineInput{{
		PlanLineID:  &id,
		AcceptedQty: accepted,
		DamagedQty:  damaged,
		MissingQty:  missing,
		OtherQty:    other,
	}})
	require.NoError(t, err)
}

func (h *harness) status(t *testing.T, receiptID string) models.ReceiptStatus {
	t.Helper()
	rc, err := h.store.GetReceipt(context.Background(), receiptID)
	require.NoError(t, err)
	return rc.Status
}

// sequenceNumbers hands out the given numbers in order, ignoring the prefix.
func sequenceNumbers(numbers ...string) NumberGenerator {
	var mu sync.Mutex
	i := 0
	return func(string, time.Time) string {
		mu.Lock()
		defer mu.Unlock()
		n := numbers[i%len(numbers)]
		i++
		return n
	}
}
