package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/events"
)

// HeaderTenant names the tenant an event belongs to; the relay copies it onto
// the broker message and the CloudEvents envelope.
const HeaderTenant = "tenant-id"

// EventRecord is an encoded event waiting in the outbox.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

func (r EventRecord) Tenant() string { return r.Headers[HeaderTenant] }

// Outbox stages records in the caller's unit of work.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

// JSONEventEncoder encodes the event struct as JSON and ids records with
// random UUIDs unless NewID is set.
type JSONEventEncoder struct {
	NewID func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("outbox: encode %s: %w", ev.EventName(), err)
	}
	rec := EventRecord{
		ID:         e.id(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}
	if tenantID := ev.Tenant(); tenantID != "" {
		rec.Headers[HeaderTenant] = tenantID
	}
	return rec, nil
}

func (e JSONEventEncoder) id() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

// Stage encodes evs and adds them to box in order.
func Stage(ctx context.Context, box Outbox, encoder EventEncoder, evs ...events.DomainEvent) error {
	if box == nil {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Recorder is an aggregate carrying pending domain events.
type Recorder interface {
	PendingEvents() []events.DomainEvent
	ClearEvents()
}

// Drain stages the pending events of every aggregate and clears them.
func Drain(ctx context.Context, box Outbox, encoder EventEncoder, aggregates ...Recorder) error {
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		pending := agg.PendingEvents()
		agg.ClearEvents()
		if err := Stage(ctx, box, encoder, pending...); err != nil {
			return err
		}
	}
	return nil
}
