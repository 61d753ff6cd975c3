package inbound

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// NumberGenerator produces a human readable document number.
type NumberGenerator func(prefix string, at time.Time) string

const (
	planPrefix    = "IB"
	receiptPrefix = "RC"

	// maxNumberAttempts bounds regeneration after a uniqueness conflict.
	maxNumberAttempts = 5
)

// RandomNumber formats PREFIX-YYYYMMDD-NNNN with a random four digit suffix.
// Uniqueness is enforced by the store, not here.
func RandomNumber(prefix string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, at.Format("20060102"), rand.IntN(10000))
}
