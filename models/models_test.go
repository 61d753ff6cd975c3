package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiptLineTotals(t *testing.T) {
	l := InboundReceiptLine{ExpectedQty: 10, AcceptedQty: 6, DamagedQty: 2, MissingQty: 1, OtherQty: 1}
	assert.Equal(t, int64(10), l.ReceivedTotal())
	assert.True(t, l.Matches())

	l.OtherQty = 0
	assert.False(t, l.Matches())
}

func TestReceiptLineJSONCarriesReceivedQty(t *testing.T) {
	loc := "B-02"
	l := InboundReceiptLine{ID: "l-1", ProductID: "SKU-1", ExpectedQty: 5, AcceptedQty: 3, DamagedQty: 1, LocationID: &loc}

	raw, err := json.Marshal(l)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, float64(4), got["received_qty"])
	assert.Equal(t, "SKU-1", got["product_id"])
	assert.Equal(t, "B-02", got["location_id"])
	assert.NotContains(t, got, "plan_line_id")
}

func TestSameCounts(t *testing.T) {
	a, b := "x", "x"
	l := InboundReceiptLine{ProductID: "P", AcceptedQty: 1, Notes: &a}
	o := InboundReceiptLine{ProductID: "P", AcceptedQty: 1, Notes: &b, InspectedBy: "someone-else"}
	assert.True(t, l.SameCounts(o))

	o.Notes = nil
	assert.False(t, l.SameCounts(o))
}

func TestStatusHelpers(t *testing.T) {
	tests := []struct {
		status        ReceiptStatus
		locked, final bool
	}{
		{StatusArrived, false, false},
		{StatusPhotoRequired, false, false},
		{StatusCounting, false, false},
		{StatusDiscrepancy, true, false},
		{StatusConfirmed, true, true},
		{StatusPutawayReady, true, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.locked, tt.status.Locked(), tt.status)
		assert.Equal(t, tt.final, tt.status.Final(), tt.status)
		assert.True(t, tt.status.Valid(), tt.status)
	}
	assert.False(t, ReceiptStatus("SHIPPED").Valid())
}

func TestSlotProgressSatisfied(t *testing.T) {
	p := SlotProgress{InboundPhotoSlot: InboundPhotoSlot{IsRequired: true, MinPhotos: 2}, PhotoCount: 1}
	assert.False(t, p.Satisfied())
	p.PhotoCount = 2
	assert.True(t, p.Satisfied())
	assert.True(t, SlotProgress{InboundPhotoSlot: InboundPhotoSlot{MinPhotos: 3}}.Satisfied())
}
