package calendarsync

import (
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/events"
)

// ImportReport summarises one import run. A failed fetch yields a report with
// FetchFailed set and no changes.
type ImportReport struct {
	SubscriptionID SubscriptionID
	PropertyID     property.PropertyID
	FeedURL        string
	EventsParsed   int
	Created        int
	Updated        int
	Deleted        int
	Unchanged      int
	Converted      int
	Skipped        []SkippedEvent
	FetchFailed    bool
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time
}

func (r ImportReport) Changed() bool {
	return r.Created+r.Updated+r.Deleted > 0
}

type CalendarImported struct {
	events.Meta
	PropertyID string
	FeedURL    string
	Created    int
	Updated    int
	Deleted    int
	Skipped    int
}

func (e CalendarImported) EventName() string   { return "calendar.imported" }
func (e CalendarImported) AggregateID() string { return e.PropertyID }
