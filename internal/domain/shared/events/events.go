package events

import (
	"slices"
	"time"
)

// DomainEvent is a fact recorded by an aggregate and relayed through the outbox.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
	Tenant() string
}

// Meta holds the fields every event carries. Embedded, its fields stay at the
// top level of the JSON payload.
type Meta struct {
	TenantID string
	At       time.Time
}

func NewMeta(tenantID string, at time.Time) Meta {
	return Meta{TenantID: tenantID, At: at}
}

func (m Meta) Tenant() string        { return m.TenantID }
func (m Meta) OccurredAt() time.Time { return m.At }

// EventRecorder buffers events on an aggregate until the outbox drains them.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(evs ...DomainEvent) {
	for _, ev := range evs {
		if ev != nil {
			r.pending = append(r.pending, ev)
		}
	}
}

func (r *EventRecorder) PendingEvents() []DomainEvent {
	return slices.Clone(r.pending)
}

func (r *EventRecorder) ClearEvents() {
	r.pending = nil
}
