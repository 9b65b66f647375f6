package calendarsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	bookinghandlers "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/booking"
	quotehandlers "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/quote"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	domain "github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/storage/memory"
)

const feedURL = "https://channel.example.com/feed.ics"

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func day(m time.Month, d int) time.Time { return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC) }

func event(uid string, in, out time.Time) domain.ExternalEvent {
	return domain.ExternalEvent{UID: uid, Range: daterange.MustNew(in, out), Summary: "Reserved"}
}

// feedStub serves canned event lists per URL; the codec stub decodes the
// body back into the list so the handler sees a real fetch-then-parse flow.
type feedStub struct {
	mu     sync.Mutex
	feeds  map[string][]domain.ExternalEvent
	broken map[string]error
	calls  int
	inUnit bool
}

func (f *feedStub) set(url string, evs ...domain.ExternalEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.feeds == nil {
		f.feeds = map[string][]domain.ExternalEvent{}
	}
	f.feeds[url] = evs
}

func (f *feedStub) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if _, ok := uow.FromContext(ctx); ok {
		f.inUnit = true
	}
	if err := f.broken[url]; err != nil {
		return nil, err
	}
	return []byte(url), nil
}

type codecStub struct{ feeds *feedStub }

func (c codecStub) Parse(body []byte) ([]domain.ExternalEvent, error) {
	if string(body) == "garbage" {
		return nil, errors.New("not a calendar")
	}
	c.feeds.mu.Lock()
	defer c.feeds.mu.Unlock()
	return c.feeds.feeds[string(body)], nil
}

func (c codecStub) Encode(name string, evs []domain.ExportEvent) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "CAL %s\n", name)
	for _, ev := range evs {
		fmt.Fprintf(&b, "%s %s %s\n", ev.UID, ev.Range.CheckIn.Format(time.DateOnly), ev.Summary)
	}
	return []byte(b.String()), nil
}

type tokenStub struct{}

func (tokenStub) Token(tenantID, propertyID string) string {
	return "tok-" + tenantID + "-" + propertyID
}

func (tokenStub) Verify(tenantID, propertyID, token string) bool {
	return token == "tok-"+tenantID+"-"+propertyID
}

type publisherStub struct {
	keys []string
}

func (p *publisherStub) Publish(_ context.Context, key string, _ []byte) (string, error) {
	p.keys = append(p.keys, key)
	return "https://cdn.example.com/" + key, nil
}

type fixture struct {
	factory memory.Factory
	box     *memory.Outbox
	feeds   *feedStub
	handler *ImportCalendarHandler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	factory := memory.Factory{Store: store}
	require.NoError(t, factory.Seed(context.Background(), func(ctx context.Context, unit uow.UnitOfWork) error {
		for _, id := range []property.PropertyID{"p1", "p2"} {
			p, err := property.NewProperty(property.CreateParams{ID: id, TenantID: "t1", Name: "Villa " + string(id), Currency: "EUR", BasePrice: "100"})
			if err != nil {
				return err
			}
			if err := unit.Properties().Save(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}))
	feeds := &feedStub{}
	box := memory.NewOutbox(store)
	seq := 0
	return fixture{
		factory: factory,
		box:     box,
		feeds:   feeds,
		handler: &ImportCalendarHandler{
			UoWFactory: factory,
			Fetcher:    feeds,
			Codec:      codecStub{feeds: feeds},
			Outbox:     box,
			Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
			Now:        func() time.Time { return now },
			IDs: func() string {
				seq++
				return fmt.Sprintf("block-%02d", seq)
			},
		},
	}
}

func (f fixture) blocks(t *testing.T, propertyID property.PropertyID) []*availability.BlockedPeriod {
	t.Helper()
	unit, err := f.factory.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	list, err := unit.Blocks().ByFeed(context.Background(), "t1", propertyID, feedURL)
	require.NoError(t, err)
	return list
}

func (f fixture) subscribe(t *testing.T, propertyID property.PropertyID, url string) domain.SubscriptionID {
	t.Helper()
	h := &CreateSubscriptionHandler{UoWFactory: f.factory, Now: func() time.Time { return now }, IDs: func() string { return "sub-" + string(propertyID) }}
	sub, err := h.Handle(context.Background(), CreateSubscriptionCommand{TenantID: "t1", PropertyID: propertyID, Name: "Channel", URL: url})
	require.NoError(t, err)
	return domain.SubscriptionID(sub.ID)
}

func TestImportCreatesUpdatesAndDeletesBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.feeds.set(feedURL, event("a", day(11, 2), day(11, 5)), event("b", day(12, 1), day(12, 3)))

	report, err := f.handler.Handle(ctx, ImportCalendarCommand{TenantID: "t1", PropertyID: "p1", FeedURL: "webcal://channel.example.com/feed.ics"})
	require.NoError(t, err)
	assert.Equal(t, feedURL, report.FeedURL)
	assert.Equal(t, 2, report.EventsParsed)
	assert.Equal(t, 2, report.Created)
	require.Len(t, f.blocks(t, "p1"), 2)

	f.feeds.set(feedURL, event("a", day(11, 3), day(11, 6)))
	report, err = f.handler.Handle(ctx, ImportCalendarCommand{TenantID: "t1", PropertyID: "p1", FeedURL: feedURL})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Deleted)
	blocks := f.blocks(t, "p1")
	require.Len(t, blocks, 1)
	assert.Equal(t, "a", blocks[0].ExternalUID)
	assert.True(t, blocks[0].Range.CheckIn.Equal(day(11, 3)))
	assert.Equal(t, availability.SourceICalImport, blocks[0].Source)

	report, err = f.handler.Handle(ctx, ImportCalendarCommand{TenantID: "t1", PropertyID: "p1", FeedURL: feedURL})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Unchanged)

	var imported int
	for _, rec := range f.box.Records() {
		if rec.Name == "calendar.imported" {
			imported++
		}
	}
	assert.Equal(t, 2, imported)
}

func TestImportSkipsEventsOverlappingConfirmedBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.factory.Seed(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := booking.NewBooking(booking.CreateParams{
			ID: "bk-1", TenantID: "t1", PropertyID: "p1",
			Range:  daterange.MustNew(day(11, 2), day(11, 5)),
			Guests: booking.Guests{Adults: 2},
			Price:  booking.PriceSnapshot{Total: money.MustString("300", "EUR")},
		})
		if err != nil {
			return err
		}
		if err := b.Confirm("pay_1", now); err != nil {
			return err
		}
		return unit.Bookings().Save(ctx, b)
	}))
	f.feeds.set(feedURL, event("a", day(11, 4), day(11, 6)), event("b", day(11, 10), day(11, 12)))

	report, err := f.handler.Handle(ctx, ImportCalendarCommand{TenantID: "t1", PropertyID: "p1", FeedURL: feedURL})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "a", report.Skipped[0].UID)
	assert.Equal(t, "bk-1", report.Skipped[0].BookingID)
	assert.Equal(t, domain.SkipConfirmedBooking, report.Skipped[0].Reason)
}

func TestImportDownloadsBeforeOpeningTheUnit(t *testing.T) {
	f := newFixture(t)
	f.feeds.set(feedURL, event("a", day(11, 2), day(11, 5)))

	report, err := f.handler.Handle(context.Background(), ImportCalendarCommand{TenantID: "t1", PropertyID: "p1", FeedURL: feedURL})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, f.feeds.calls)
	assert.False(t, f.feeds.inUnit)
}

func TestConvertedBlockSurvivesTheNextImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.feeds.set(feedURL, event("a", day(11, 2), day(11, 5)))
	_, err := f.handler.Handle(ctx, ImportCalendarCommand{TenantID: "t1", PropertyID: "p1", FeedURL: feedURL})
	require.NoError(t, err)
	blocks := f.blocks(t, "p1")
	require.Len(t, blocks, 1)

	request := &bookinghandlers.RequestBookingHandler{
		Deps: bookinghandlers.Deps{
			UoWFactory: f.factory,
			Outbox:     f.box,
			Now:        func() time.Time { return now },
			IDs:        func() string { return "bk-from-channel" },
		},
		Pricer: quotehandlers.Pricer{Now: func() time.Time { return now }},
	}
	converted, err := request.Handle(ctx, bookinghandlers.RequestBookingCommand{
		TenantID: "t1", PropertyID: "p1", CheckIn: day(11, 2), CheckOut: day(11, 5), Adults: 2,
		FromBlockID: blocks[0].ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", converted.Status)
	assert.Empty(t, f.blocks(t, "p1"))

	report, err := f.handler.Handle(ctx, ImportCalendarCommand{TenantID: "t1", PropertyID: "p1", FeedURL: feedURL})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Converted)
	assert.Zero(t, report.Created)
	assert.Zero(t, report.Deleted)
	assert.Empty(t, f.blocks(t, "p1"))

	unit, _ := f.factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	stored, err := unit.Bookings().ByID(ctx, "t1", "bk-from-channel")
	require.NoError(t, err)
	assert.Equal(t, "a", stored.ExternalUID)
	assert.Equal(t, booking.StatusPending, stored.Status)
	assert.True(t, stored.Range.CheckIn.Equal(day(11, 2)))
}

func TestImportFailureIsRecordedOnTheSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.feeds.set(feedURL, event("a", day(11, 2), day(11, 5)))
	subID := f.subscribe(t, "p1", feedURL)

	_, err := f.handler.Handle(ctx, ImportCalendarCommand{TenantID: "t1", PropertyID: "p1", FeedURL: feedURL, SubscriptionID: subID})
	require.NoError(t, err)

	f.feeds.broken = map[string]error{feedURL: &domain.FetchError{URL: feedURL, StatusCode: 503}}
	report, err := f.handler.Handle(ctx, ImportCalendarCommand{TenantID: "t1", PropertyID: "p1", FeedURL: feedURL, SubscriptionID: subID})
	require.NoError(t, err)
	assert.True(t, report.FetchFailed)
	assert.Contains(t, report.Error, "503")
	assert.Len(t, f.blocks(t, "p1"), 1)

	unit, _ := f.factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	sub, err := unit.Subscriptions().ByID(ctx, "t1", subID)
	require.NoError(t, err)
	assert.Equal(t, report.Error, sub.LastError)
	assert.True(t, sub.LastSyncAt.Equal(now))
}

func TestImportRejectsUnsupportedScheme(t *testing.T) {
	f := newFixture(t)
	_, err := f.handler.Handle(context.Background(), ImportCalendarCommand{TenantID: "t1", PropertyID: "p1", FeedURL: "ftp://example.com/a.ics"})
	assert.ErrorIs(t, err, domain.ErrInvalidFeedURL)
	assert.Zero(t, f.feeds.calls)
}

func TestSyncerImportsEveryEnabledSubscription(t *testing.T) {
	f := newFixture(t)
	const otherURL = "https://other.example.com/cal.ics"
	f.feeds.set(feedURL, event("a", day(11, 2), day(11, 5)))
	f.feeds.broken = map[string]error{otherURL: errors.New("connection refused")}
	f.subscribe(t, "p1", feedURL)
	f.subscribe(t, "p2", otherURL)

	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[ImportCalendarCommand, *dto.ImportReport](bus, importCalendarKey, f.handler)
	syncer := &Syncer{UoWFactory: f.factory, Commands: bus, Concurrency: 2, Logger: f.handler.Logger}

	summary, err := syncer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Subscriptions)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, summary.Reports, 2)
	assert.Len(t, f.blocks(t, "p1"), 1)
}

func TestExportRequiresTokenForPublicFeeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.factory.Seed(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := booking.NewBooking(booking.CreateParams{
			ID: "bk-1", TenantID: "t1", PropertyID: "p1",
			Range:  daterange.MustNew(day(11, 2), day(11, 5)),
			Guests: booking.Guests{Adults: 1},
			Price:  booking.PriceSnapshot{Total: money.MustString("300", "EUR")},
		})
		if err != nil {
			return err
		}
		return unit.Bookings().Save(ctx, b)
	}))
	h := &ExportCalendarHandler{UoWFactory: f.factory, Codec: codecStub{feeds: f.feeds}, Tokens: tokenStub{}}

	_, err := h.Handle(ctx, ExportCalendarQuery{TenantID: "t1", PropertyID: "p1", Public: true, Token: "wrong"})
	assert.ErrorIs(t, err, ErrFeedTokenInvalid)

	feed, err := h.Handle(ctx, ExportCalendarQuery{TenantID: "t1", PropertyID: "p1", Public: true, Token: "tok-t1-p1"})
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Events)
	assert.Contains(t, string(feed.Body), "bk-1 2026-11-02 Reserved (pending)")

	publisher := &publisherStub{}
	publish := &PublishFeedHandler{UoWFactory: f.factory, Codec: codecStub{feeds: f.feeds}, Tokens: tokenStub{}, Publisher: publisher}
	published, err := publish.Handle(ctx, PublishFeedCommand{TenantID: "t1", PropertyID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"feeds/t1/p1/tok-t1-p1.ics"}, publisher.keys)
	assert.Equal(t, "https://cdn.example.com/feeds/t1/p1/tok-t1-p1.ics", published.PublicURL)
}

type refreshBus struct {
	published []PublishFeedCommand
	fail      error
}

func (b *refreshBus) Dispatch(_ context.Context, cmd commands.Command) (any, error) {
	c := cmd.(PublishFeedCommand)
	if b.fail != nil {
		return nil, b.fail
	}
	b.published = append(b.published, c)
	return &dto.Feed{PropertyID: string(c.PropertyID), Events: 1}, nil
}

func TestFeedRefresherRepublishesOncePerEvent(t *testing.T) {
	bus := &refreshBus{}
	r := &FeedRefresher{Commands: bus, Inbox: memory.NewInbox(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	ctx := context.Background()

	confirmed := dto.IntegrationEvent{ID: "ev-1", Type: "booking.confirmed.v1", Data: []byte(`{"TenantID":"t1","PropertyID":"p1"}`)}
	require.NoError(t, r.Handle(ctx, confirmed))
	require.NoError(t, r.Handle(ctx, confirmed))

	blocked := dto.IntegrationEvent{ID: "ev-2", Type: "calendar.blocked.v1", TenantID: "t1", Data: []byte(`{"PropertyID":"p2"}`)}
	require.NoError(t, r.Handle(ctx, blocked))

	redeemed := dto.IntegrationEvent{ID: "ev-3", Type: "promo.redeemed.v1", Data: []byte(`{"TenantID":"t1"}`)}
	require.NoError(t, r.Handle(ctx, redeemed))

	assert.Equal(t, []PublishFeedCommand{
		{TenantID: "t1", PropertyID: "p1"},
		{TenantID: "t1", PropertyID: "p2"},
	}, bus.published)
}

func TestFeedRefresherRetriesAfterAFailedPublish(t *testing.T) {
	bus := &refreshBus{fail: errors.New("storage unavailable")}
	r := &FeedRefresher{Commands: bus, Inbox: memory.NewInbox(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	ctx := context.Background()

	ev := dto.IntegrationEvent{ID: "ev-1", Type: "booking.cancelled.v1", Data: []byte(`{"TenantID":"t1","PropertyID":"p1"}`)}
	require.Error(t, r.Handle(ctx, ev))
	assert.Empty(t, bus.published)

	bus.fail = nil
	require.NoError(t, r.Handle(ctx, ev))
	assert.Equal(t, []PublishFeedCommand{{TenantID: "t1", PropertyID: "p1"}}, bus.published)
}
