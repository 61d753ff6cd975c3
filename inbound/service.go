// Package inbound implements the receiving reconciliation workflow: plans,
// their receipts, photo evidence, counted lines and the confirm transition.
package inbound

import (
	"time"

	"go.uber.org/zap"

	"wmsinbound/models"
	"wmsinbound/repository"
)

// Actor is the identity resolved by the auth middleware.
type Actor struct {
	ID       string
	Elevated bool
}

func (a Actor) validate() error {
	if a.ID == "" {
		return invalid("actor", "is required")
	}
	return nil
}

type Service struct {
	plans    repository.PlanRepository
	receipts repository.ReceiptRepository
	events   repository.EventRepository
	recorder *Recorder
	logger   *zap.Logger

	now     func() time.Time
	numbers NumberGenerator
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithNumberGenerator(g NumberGenerator) Option {
	return func(s *Service) { s.numbers = g }
}

func NewService(
	plans repository.PlanRepository,
	receipts repository.ReceiptRepository,
	events repository.EventRepository,
	recorder *Recorder,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		plans:    plans,
		receipts: receipts,
		events:   events,
		recorder: recorder,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		numbers:  RandomNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockGuard refuses edits on locked receipts unless the actor is elevated.
// It runs inside the store's mutating transaction.
func lockGuard(actor Actor) repository.StatusGuard {
	return func(status *models.ReceiptStatus) error {
		if status != nil && status.Locked() && !actor.Elevated {
			return ErrAlreadyProcessed
		}
		return nil
	}
}

// finalGuard refuses count and evidence writes once the receipt is confirmed,
// unless the actor is elevated. DISCREPANCY stays open for corrections.
func finalGuard(actor Actor) repository.StatusGuard {
	return func(status *models.ReceiptStatus) error {
		if status != nil && status.Final() && !actor.Elevated {
			return ErrAlreadyProcessed
		}
		return nil
	}
}
