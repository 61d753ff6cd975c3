package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"wmsinbound/models"
)

// MemoryStore keeps plans, receipts, events and audit entries in process
// memory. A single mutex serializes every operation, which gives
// WithReceiptLock the same at-most-one-winner behavior as a row lock.
type MemoryStore struct {
	mu sync.Mutex

	plans      map[string]*models.InboundPlan
	receipts   map[string]*models.InboundReceipt
	slots      map[string][]models.InboundPhotoSlot
	photos     map[string][]models.InboundPhoto
	lines      map[string][]models.InboundReceiptLine
	events     []models.InboundEvent
	audit      []models.AuditEntry
	ledger     []models.LedgerEntry
	planNos    map[string]bool
	receiptNos map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		plans:      map[string]*models.InboundPlan{},
		receipts:   map[string]*models.InboundReceipt{},
		slots:      map[string][]models.InboundPhotoSlot{},
		photos:     map[string][]models.InboundPhoto{},
		lines:      map[string][]models.InboundReceiptLine{},
		planNos:    map[string]bool{},
		receiptNos: map[string]bool{},
	}
}

func copyPlan(p *models.InboundPlan) *models.InboundPlan {
	c := *p
	c.Lines = slices.Clone(p.Lines)
	return &c
}

func copyReceipt(rc *models.InboundReceipt) *models.InboundReceipt {
	c := *rc
	return &c
}

func (s *MemoryStore) receiptByPlan(planID string) *models.InboundReceipt {
	for _, rc := range s.receipts {
		if rc.PlanID == planID {
			return rc
		}
	}
	return nil
}

func (s *MemoryStore) progress(receiptID string) []models.SlotProgress {
	counts := map[string]int{}
	for _, p := range s.photos[receiptID] {
		counts[p.SlotID]++
	}
	out := make([]models.SlotProgress, 0, len(s.slots[receiptID]))
	for _, slot := range s.slots[receiptID] {
		out = append(out, models.SlotProgress{InboundPhotoSlot: slot, PhotoCount: counts[slot.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

func (s *MemoryStore) setStatus(rc *models.InboundReceipt, status models.ReceiptStatus) {
	now := time.Now().UTC()
	rc.Status = status
	rc.UpdatedAt = &now
	if p, ok := s.plans[rc.PlanID]; ok {
		p.Status = status
	}
}

// ------------------------ Plans ------------------------

func (s *MemoryStore) CreatePlanWithReceipt(_ context.Context, plan *models.InboundPlan, receipt *models.InboundReceipt, slots []models.InboundPhotoSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.planNos[plan.OrganizationID+"|"+plan.PlanNo] || s.receiptNos[receipt.OrganizationID+"|"+receipt.ReceiptNo] {
		return ErrDuplicateNumber
	}

	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	for i := range plan.Lines {
		if plan.Lines[i].ID == "" {
			plan.Lines[i].ID = uuid.NewString()
		}
		plan.Lines[i].PlanID = plan.ID
	}
	receipt.PlanID = plan.ID
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = plan.CreatedAt
	}
	for i := range slots {
		slots[i].ReceiptID = receipt.ID
	}

	s.plans[plan.ID] = copyPlan(plan)
	s.receipts[receipt.ID] = copyReceipt(receipt)
	s.slots[receipt.ID] = slices.Clone(slots)
	s.planNos[plan.OrganizationID+"|"+plan.PlanNo] = true
	s.receiptNos[receipt.OrganizationID+"|"+receipt.ReceiptNo] = true
	return nil
}

func (s *MemoryStore) GetPlan(_ context.Context, id string) (*models.InboundPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPlan(p), nil
}

func (s *MemoryStore) ListPlans(_ context.Context, filter models.PlanFilter) ([]*models.InboundPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.InboundPlan
	for _, p := range s.plans {
		if filter.OrganizationID != "" && p.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.WarehouseID != "" && p.WarehouseID != filter.WarehouseID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, copyPlan(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlannedDate.Equal(out[j].PlannedDate) {
			return out[i].PlannedDate.After(out[j].PlannedDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdatePlan(_ context.Context, plan *models.InboundPlan, guard StatusGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.plans[plan.ID]
	if !ok {
		return ErrNotFound
	}
	rc := s.receiptByPlan(plan.ID)
	if guard != nil {
		if err := guard(statusOf(rc)); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	plan.UpdatedAt = &now
	for i := range plan.Lines {
		if plan.Lines[i].ID == "" {
			plan.Lines[i].ID = uuid.NewString()
		}
		plan.Lines[i].PlanID = plan.ID
	}

	existing.WarehouseID = plan.WarehouseID
	existing.ClientID = plan.ClientID
	existing.PlannedDate = plan.PlannedDate
	existing.Manager = plan.Manager
	existing.Notes = plan.Notes
	existing.UpdatedAt = &now
	existing.Lines = slices.Clone(plan.Lines)

	if rc != nil {
		rc.WarehouseID = plan.WarehouseID
		rc.ClientID = plan.ClientID
		rc.UpdatedAt = &now

		byProduct := map[string]models.InboundPlanLine{}
		for _, pl := range plan.Lines {
			if _, ok := byProduct[pl.ProductID]; !ok {
				byProduct[pl.ProductID] = pl
			}
		}
		var kept []models.InboundReceiptLine
		for _, l := range s.lines[rc.ID] {
			if l.PlanLineID == nil {
				kept = append(kept, l)
				continue
			}
			pl, ok := byProduct[l.ProductID]
			if !ok {
				continue
			}
			id := pl.ID
			l.PlanLineID = &id
			l.ExpectedQty = pl.ExpectedQty
			kept = append(kept, l)
		}
		s.lines[rc.ID] = kept
	}
	return nil
}

func (s *MemoryStore) DeletePlan(_ context.Context, planID string, guard StatusGuard) (*models.InboundReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[planID]
	if !ok {
		return nil, ErrNotFound
	}
	rc := s.receiptByPlan(planID)
	if guard != nil {
		if err := guard(statusOf(rc)); err != nil {
			return nil, err
		}
	}

	if rc != nil {
		delete(s.receipts, rc.ID)
		delete(s.slots, rc.ID)
		delete(s.photos, rc.ID)
		delete(s.lines, rc.ID)
		delete(s.receiptNos, rc.OrganizationID+"|"+rc.ReceiptNo)
		rc = copyReceipt(rc)
	}
	delete(s.plans, planID)
	delete(s.planNos, p.OrganizationID+"|"+p.PlanNo)
	return rc, nil
}

// ------------------------ Receipts ------------------------

func (s *MemoryStore) GetReceipt(_ context.Context, id string) (*models.InboundReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc, ok := s.receipts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyReceipt(rc), nil
}

func (s *MemoryStore) GetReceiptByPlan(_ context.Context, planID string) (*models.InboundReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc := s.receiptByPlan(planID)
	if rc == nil {
		return nil, ErrNotFound
	}
	return copyReceipt(rc), nil
}

func (s *MemoryStore) AdvanceStatus(_ context.Context, receiptID string, from []models.ReceiptStatus, to models.ReceiptStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc, ok := s.receipts[receiptID]
	if !ok || !slices.Contains(from, rc.Status) {
		return false, nil
	}
	s.setStatus(rc, to)
	return true, nil
}

func (s *MemoryStore) PhotoProgress(_ context.Context, receiptID string) ([]models.SlotProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress(receiptID), nil
}

func (s *MemoryStore) AddPhoto(_ context.Context, photo *models.InboundPhoto, guard StatusGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc, ok := s.receipts[photo.ReceiptID]
	if !ok {
		return ErrNotFound
	}
	if guard != nil {
		if err := guard(statusOf(rc)); err != nil {
			return err
		}
	}
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if photo.UploadedAt.IsZero() {
		photo.UploadedAt = time.Now().UTC()
	}
	s.photos[photo.ReceiptID] = append(s.photos[photo.ReceiptID], *photo)
	return nil
}

func (s *MemoryStore) ListPhotos(_ context.Context, receiptID string) ([]models.InboundPhoto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.photos[receiptID]), nil
}

func (s *MemoryStore) ListLines(_ context.Context, receiptID string) ([]models.InboundReceiptLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lines[receiptID]), nil
}

func (s *MemoryStore) UpsertLine(_ context.Context, line *models.InboundReceiptLine, guard StatusGuard) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc, ok := s.receipts[line.ReceiptID]
	if !ok {
		return false, ErrNotFound
	}
	if guard != nil {
		if err := guard(statusOf(rc)); err != nil {
			return false, err
		}
	}
	lines := s.lines[line.ReceiptID]
	for i := range lines {
		l := &lines[i]
		sameKey := (line.PlanLineID != nil && l.PlanLineID != nil && *l.PlanLineID == *line.PlanLineID) ||
			(line.PlanLineID == nil && l.PlanLineID == nil && l.ProductID == line.ProductID)
		if !sameKey {
			continue
		}
		line.ID = l.ID
		if l.SameCounts(*line) {
			return false, nil
		}
		*l = *line
		return true, nil
	}
	if line.ID == "" {
		line.ID = uuid.NewString()
	}
	s.lines[line.ReceiptID] = append(lines, *line)
	return true, nil
}

// ------------------------ Locked Receipt ------------------------

func (s *MemoryStore) WithReceiptLock(_ context.Context, receiptID string, fn func(tx ReceiptTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc, ok := s.receipts[receiptID]
	if !ok {
		return ErrNotFound
	}
	tx := &memReceiptTx{store: s, receipt: copyReceipt(rc)}
	if err := fn(tx); err != nil {
		return err
	}

	// commit
	if tx.status != nil {
		s.setStatus(rc, *tx.status)
		if *tx.status == models.StatusConfirmed {
			now := time.Now().UTC()
			actor := tx.actor
			rc.ConfirmedAt = &now
			rc.ConfirmedBy = &actor
		}
	}
	s.ledger = append(s.ledger, tx.ledger...)
	return nil
}

type memReceiptTx struct {
	store   *MemoryStore
	receipt *models.InboundReceipt
	status  *models.ReceiptStatus
	actor   string
	ledger  []models.LedgerEntry
}

func (t *memReceiptTx) Receipt() *models.InboundReceipt {
	return t.receipt
}

func (t *memReceiptTx) PlanLines(context.Context) ([]models.InboundPlanLine, error) {
	p, ok := t.store.plans[t.receipt.PlanID]
	if !ok {
		return nil, nil
	}
	return slices.Clone(p.Lines), nil
}

func (t *memReceiptTx) Lines(context.Context) ([]models.InboundReceiptLine, error) {
	return slices.Clone(t.store.lines[t.receipt.ID]), nil
}

func (t *memReceiptTx) PhotoProgress(context.Context) ([]models.SlotProgress, error) {
	return t.store.progress(t.receipt.ID), nil
}

func (t *memReceiptTx) SetStatus(_ context.Context, status models.ReceiptStatus, actor string) error {
	t.status = &status
	t.actor = actor
	t.receipt.Status = status
	return nil
}

func (t *memReceiptTx) PostLedger(_ context.Context, entries []models.LedgerEntry) error {
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
	}
	t.ledger = append(t.ledger, entries...)
	return nil
}

// ------------------------ Events & Audit ------------------------

func (s *MemoryStore) AppendEvent(_ context.Context, ev *models.InboundEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, *ev)
	return nil
}

func (s *MemoryStore) ListEvents(_ context.Context, receiptID string) ([]models.InboundEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.InboundEvent
	for _, ev := range s.events {
		if ev.ReceiptID == receiptID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *MemoryStore) WriteAudit(_ context.Context, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.audit = append(s.audit, *entry)
	return nil
}

// AuditEntries returns every audit entry written so far.
func (s *MemoryStore) AuditEntries() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.audit)
}

// Ledger returns the ledger rows posted for a receipt.
func (s *MemoryStore) Ledger(receiptID string) []models.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.LedgerEntry
	for _, e := range s.ledger {
		if e.ReceiptID == receiptID {
			out = append(out, e)
		}
	}
	return out
}
