package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestPostgresErrorClassification(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "inbound_plans_org_plan_no_key"}
	wrapped := fmt.Errorf("insert plan: %w", dup)

	assert.True(t, isUniqueViolation(wrapped, "inbound_plans_org_plan_no_key"))
	assert.True(t, isUniqueViolation(wrapped, ""))
	assert.False(t, isUniqueViolation(wrapped, "inbound_receipts_org_receipt_no_key"))
	assert.False(t, isUniqueViolation(errors.New("duplicate key value"), ""))

	undefined := fmt.Errorf("upsert: %w", &pq.Error{Code: "42703", Message: `column "location_id" does not exist`})
	assert.True(t, isUndefinedColumn(undefined))
	assert.False(t, isUndefinedColumn(dup))
	assert.False(t, isUndefinedColumn(nil))
	assert.Equal(t, "", pgCode(errors.New("plain")))
}
