package dto

import (
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
)

type SkippedEventDTO struct {
	UID       string       `json:"uid"`
	Range     DateRangeDTO `json:"range"`
	BookingID string       `json:"booking_id,omitempty"`
	Reason    string       `json:"reason"`
}

type ImportReport struct {
	SubscriptionID string            `json:"subscription_id,omitempty"`
	PropertyID     string            `json:"property_id"`
	FeedURL        string            `json:"feed_url"`
	EventsParsed   int               `json:"events_parsed"`
	Created        int               `json:"created"`
	Updated        int               `json:"updated"`
	Deleted        int               `json:"deleted"`
	Unchanged      int               `json:"unchanged"`
	Converted      int               `json:"converted"`
	Skipped        []SkippedEventDTO `json:"skipped"`
	FetchFailed    bool              `json:"fetch_failed"`
	Error          string            `json:"error,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`
}

func MapImportReport(r calendarsync.ImportReport) ImportReport {
	skipped := make([]SkippedEventDTO, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		item := SkippedEventDTO{UID: s.UID, BookingID: string(s.BookingID), Reason: s.Reason}
		if s.Range.Validate() == nil {
			item.Range = MapRange(s.Range)
		}
		skipped = append(skipped, item)
	}
	return ImportReport{
		SubscriptionID: string(r.SubscriptionID),
		PropertyID:     string(r.PropertyID),
		FeedURL:        r.FeedURL,
		EventsParsed:   r.EventsParsed,
		Created:        r.Created,
		Updated:        r.Updated,
		Deleted:        r.Deleted,
		Unchanged:      r.Unchanged,
		Converted:      r.Converted,
		Skipped:        skipped,
		FetchFailed:    r.FetchFailed,
		Error:          r.Error,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
	}
}

type Subscription struct {
	ID         string     `json:"id"`
	PropertyID string     `json:"property_id"`
	Name       string     `json:"name,omitempty"`
	URL        string     `json:"url"`
	Enabled    bool       `json:"enabled"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

func MapSubscription(s *calendarsync.Subscription) Subscription {
	out := Subscription{
		ID:         string(s.ID),
		PropertyID: string(s.PropertyID),
		Name:       s.Name,
		URL:        s.URL,
		Enabled:    s.Enabled,
		LastError:  s.LastError,
	}
	if !s.LastSyncAt.IsZero() {
		at := s.LastSyncAt
		out.LastSyncAt = &at
	}
	return out
}

// Feed is a rendered export calendar.
type Feed struct {
	PropertyID string `json:"property_id"`
	Events     int    `json:"events"`
	Body       []byte `json:"-"`
	PublicURL  string `json:"public_url,omitempty"`
}

type SyncSummary struct {
	Subscriptions int            `json:"subscriptions"`
	Failed        int            `json:"failed"`
	Reports       []ImportReport `json:"reports"`
}

// IntegrationEvent is a domain event read back from the broker.
type IntegrationEvent struct {
	ID       string
	Type     string
	TenantID string
	Data     []byte
}
