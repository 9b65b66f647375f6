package policies

import (
	"context"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
)

// CalendarFetcher downloads a remote iCalendar feed. Failures are returned as
// *calendarsync.FetchError.
type CalendarFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type CalendarCodec interface {
	// Parse returns one event per VEVENT. Events with unusable dates are kept
	// with a zero range so reconciliation can report them.
	Parse(data []byte) ([]calendarsync.ExternalEvent, error)
	Encode(name string, events []calendarsync.ExportEvent) ([]byte, error)
}

// FeedPublisher stores a rendered feed under key and returns its public URL.
type FeedPublisher interface {
	Publish(ctx context.Context, key string, data []byte) (string, error)
}

// FeedTokens signs the unguessable path segment of a property's export feed.
type FeedTokens interface {
	Token(tenantID, propertyID string) string
	Verify(tenantID, propertyID, token string) bool
}

// Inbox remembers consumed event ids. Seen records the id and reports
// whether it had already been recorded. Forget drops an id whose handling
// failed so the redelivery is processed.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}
