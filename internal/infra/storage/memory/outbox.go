package memory

import (
	"context"
	"errors"
	"time"

	appoutbox "github.com/Eliezelg/villasaas-sub004/internal/app/outbox"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	infraoutbox "github.com/Eliezelg/villasaas-sub004/internal/infra/outbox"
)

type outboxState string

const (
	stateNew     outboxState = "NEW"
	stateClaimed outboxState = "CLAIMED"
	stateSent    outboxState = "SENT"
	stateFailed  outboxState = "FAILED"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	state     outboxState
	attempts  int
	next      time.Time
	claimedBy string
	claimedAt time.Time
	lastError string
}

func (e *outboxEntry) claimable(now time.Time, lease time.Duration) bool {
	switch e.state {
	case stateNew, stateFailed:
		return !e.next.After(now)
	case stateClaimed:
		return !e.claimedAt.Add(lease).After(now)
	}
	return false
}

var errOutboxEntryNotFound = errors.New("memory: outbox entry not found")

// Outbox stages records in the unit of work found in the context and makes
// them claimable by the relay after commit. Records added outside a unit are
// committed immediately.
type Outbox struct {
	Store *Store
	Lease time.Duration
}

func NewOutbox(store *Store) *Outbox {
	return &Outbox{Store: store, Lease: infraoutbox.DefaultClaimLease}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	entry := &outboxEntry{record: record, state: stateNew, next: time.Now().UTC()}
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok && mu.store == o.Store {
			return mu.stage(entry)
		}
	}
	o.Store.mu.Lock()
	defer o.Store.mu.Unlock()
	o.Store.outbox = append(o.Store.outbox, entry)
	return nil
}

func (o *Outbox) Flush(context.Context) error {
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Pending, error) {
	now := time.Now().UTC()
	lease := o.Lease
	if lease <= 0 {
		lease = infraoutbox.DefaultClaimLease
	}
	o.Store.mu.Lock()
	defer o.Store.mu.Unlock()
	for _, e := range o.Store.outbox {
		if e.claimable(now, lease) {
			e.state = stateClaimed
			e.claimedBy = workerID
			e.claimedAt = now
			rec := e.record
			return &infraoutbox.Pending{
				ID:         rec.ID,
				Name:       rec.Name,
				Payload:    rec.Payload,
				OccurredAt: rec.OccurredAt,
				Aggregate:  rec.Aggregate,
				Headers:    rec.Headers,
				Attempts:   e.attempts,
			}, nil
		}
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	return o.update(id, func(e *outboxEntry) { e.state = stateSent })
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return o.update(id, func(e *outboxEntry) {
		e.state = stateFailed
		e.next = next
		e.lastError = errMsg
		e.attempts++
	})
}

func (o *Outbox) update(id string, fn func(*outboxEntry)) error {
	o.Store.mu.Lock()
	defer o.Store.mu.Unlock()
	for _, e := range o.Store.outbox {
		if e.record.ID == id {
			fn(e)
			return nil
		}
	}
	return errOutboxEntryNotFound
}

// Records returns the committed records in insertion order.
func (o *Outbox) Records() []appoutbox.EventRecord {
	o.Store.mu.RLock()
	defer o.Store.mu.RUnlock()
	out := make([]appoutbox.EventRecord, 0, len(o.Store.outbox))
	for _, e := range o.Store.outbox {
		out = append(out, e.record)
	}
	return out
}

var _ appoutbox.Outbox = (*Outbox)(nil)
var _ infraoutbox.Source = (*Outbox)(nil)
