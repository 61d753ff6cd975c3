package inbound

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"wmsinbound/models"
	"wmsinbound/repository"
)

type failingEvents struct{}

func (failingEvents) AppendEvent(context.Context, *models.InboundEvent) error {
	return errors.New("event store down")
}

func (failingEvents) ListEvents(context.Context, string) ([]models.InboundEvent, error) {
	return nil, nil
}

func TestRecorderWritesEventsAndAudit(t *testing.T) {
	store := repository.NewMemoryStore()
	rec := NewRecorder(store, store, 8, zap.NewNop())
	defer rec.Close()

	rec.Event("rc-1", models.EventCreated, "op-1", map[string]any{"plan_no": "IB-1"})
	rec.Audit(models.AuditCreate, "plan-1", "op-1", map[string]any{"plan_no": "IB-1"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rec.Flush(ctx))

	events, err := store.ListEvents(ctx, "rc-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.JSONEq(t, `{"plan_no":"IB-1"}`, string(events[0].Payload))

	audit := store.AuditEntries()
	require.Len(t, audit, 1)
	assert.Equal(t, models.AuditResourceInventory, audit[0].ResourceType)
}

func TestRecorderLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rec := NewRecorder(failingEvents{}, nil, 8, zap.New(core))
	defer rec.Close()

	rec.Event("rc-1", models.EventConfirmed, "op-1", nil)
	rec.Audit(models.AuditApprove, "rc-1", "op-1", nil)
	require.NoError(t, rec.Flush(context.Background()))

	entries := logs.FilterMessage("failed to append receipt event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "rc-1", entries[0].ContextMap()["receipt_id"])
}

func TestRecorderCloseDrainsAndDropsLateRecords(t *testing.T) {
	store := repository.NewMemoryStore()
	rec := NewRecorder(store, store, 8, zap.NewNop())

	rec.Event("rc-1", models.EventCreated, "op-1", nil)
	rec.Close()

	events, err := store.ListEvents(context.Background(), "rc-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	assert.NotPanics(t, func() { rec.Event("rc-1", models.EventUpdated, "op-1", nil) })
	assert.NoError(t, rec.Flush(context.Background()))
	assert.NotPanics(t, rec.Close)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.Event("rc-1", models.EventCreated, "op-1", nil)
		rec.Audit(models.AuditCreate, "plan-1", "op-1", nil)
	})
}
