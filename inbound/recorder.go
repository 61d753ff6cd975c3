package inbound

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"wmsinbound/models"
	"wmsinbound/repository"
)

const (
	defaultRecorderBuffer = 256
	recorderWriteTimeout  = 5 * time.Second
)

// Recorder emits receipt events and audit entries off the request path. A
// single worker drains the queue; write failures are logged and dropped.
type Recorder struct {
	events repository.EventRepository
	audit  repository.AuditRepository
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan record
	done   chan struct{}
}

type record struct {
	event *models.InboundEvent
	audit *models.AuditEntry
	flush chan struct{}
}

// NewRecorder starts the worker. audit may be nil.
func NewRecorder(events repository.EventRepository, audit repository.AuditRepository, buffer int, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = defaultRecorderBuffer
	}
	r := &Recorder{
		events: events,
		audit:  audit,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		queue:  make(chan record, buffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		if rec.flush != nil {
			close(rec.flush)
			continue
		}
		r.write(rec)
	}
}

func (r *Recorder) write(rec record) {
	ctx, cancel := context.WithTimeout(context.Background(), recorderWriteTimeout)
	defer cancel()

	if rec.event != nil && r.events != nil {
		if err := r.events.AppendEvent(ctx, rec.event); err != nil {
			r.logger.Warn("failed to append receipt event",
				zap.String("receipt_id", rec.event.ReceiptID),
				zap.String("event_type", string(rec.event.EventType)),
				zap.Error(err))
		}
	}
	if rec.audit != nil && r.audit != nil {
		if err := r.audit.WriteAudit(ctx, rec.audit); err != nil {
			r.logger.Warn("failed to write audit entry",
				zap.String("resource_id", rec.audit.ResourceID),
				zap.String("action", string(rec.audit.ActionType)),
				zap.Error(err))
		}
	}
}

// enqueue never blocks; a full queue drops the record.
func (r *Recorder) enqueue(rec record) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("recorder closed, dropping record")
		return
	}
	select {
	case r.queue <- rec:
	default:
		r.logger.Warn("recorder queue full, dropping record")
	}
}

// Event queues a lifecycle event for a receipt.
func (r *Recorder) Event(receiptID string, eventType models.EventType, actor string, payload any) {
	if r == nil {
		return
	}
	ev := &models.InboundEvent{
		ReceiptID: receiptID,
		EventType: eventType,
		Actor:     actor,
		CreatedAt: r.now(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			r.logger.Warn("failed to encode event payload", zap.String("event_type", string(eventType)), zap.Error(err))
		} else {
			ev.Payload = raw
		}
	}
	r.enqueue(record{event: ev})
}

// Audit queues an entry for the system-wide audit trail.
func (r *Recorder) Audit(action models.AuditAction, resourceID, actor string, payload map[string]any) {
	if r == nil {
		return
	}
	r.enqueue(record{audit: &models.AuditEntry{
		ActionType:   action,
		ResourceType: models.AuditResourceInventory,
		ResourceID:   resourceID,
		Actor:        actor,
		Payload:      payload,
		CreatedAt:    r.now(),
	}})
}

// Flush waits until everything queued before the call has been written.
func (r *Recorder) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil
	}
	select {
	case r.queue <- record{flush: ack}:
		r.mu.RUnlock()
	case <-ctx.Done():
		r.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and stops the worker.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}
