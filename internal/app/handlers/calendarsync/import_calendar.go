package calendarsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	"github.com/Eliezelg/villasaas-sub004/internal/app/middleware"
	"github.com/Eliezelg/villasaas-sub004/internal/app/outbox"
	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	domain "github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/events"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

const importCalendarKey = "calendar.import"

type ImportCalendarCommand struct {
	TenantID       tenant.ID           `validate:"required"`
	PropertyID     property.PropertyID `validate:"required"`
	FeedURL        string              `validate:"required,max=2048,feedurl"`
	SubscriptionID domain.SubscriptionID
}

func (c ImportCalendarCommand) Key() string { return importCalendarKey }

func (c ImportCalendarCommand) TenantScope() tenant.ID { return c.TenantID }

func (c ImportCalendarCommand) LockKey() string {
	return policies.PropertyLockKey(string(c.TenantID), string(c.PropertyID))
}

// DeferTransaction keeps the feed download out of the unit of work.
func (c ImportCalendarCommand) DeferTransaction() bool { return true }

type ImportCalendarHandler struct {
	UoWFactory uow.UoWFactory
	Fetcher    policies.CalendarFetcher
	Codec      policies.CalendarCodec
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	IDs        func() string
	Now        func() time.Time
}

// Handle mirrors an external feed into imported blocked periods. The feed is
// downloaded and parsed before the unit of work opens. A feed that cannot be
// fetched or parsed changes nothing and is reported, not returned as an error,
// so the subscription keeps its failure state.
func (h *ImportCalendarHandler) Handle(ctx context.Context, cmd ImportCalendarCommand) (*dto.ImportReport, error) {
	if h.Fetcher == nil || h.Codec == nil {
		return nil, errors.New("calendarsync: fetcher and codec required")
	}
	feedURL, err := domain.NormalizeFeedURL(cmd.FeedURL)
	if err != nil {
		return nil, err
	}
	startedAt := h.now()
	parsed, feedErr := h.download(ctx, feedURL)

	scope, ctx, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)
	unit := scope.Unit

	if _, err := unit.Properties().ByID(ctx, cmd.TenantID, cmd.PropertyID); err != nil {
		return nil, err
	}
	var sub *domain.Subscription
	if cmd.SubscriptionID != "" {
		if sub, err = unit.Subscriptions().ByID(ctx, cmd.TenantID, cmd.SubscriptionID); err != nil {
			return nil, err
		}
	}

	report := domain.ImportReport{
		SubscriptionID: cmd.SubscriptionID,
		PropertyID:     cmd.PropertyID,
		FeedURL:        feedURL,
		StartedAt:      startedAt,
	}
	if feedErr != nil {
		report.FetchFailed = errors.Is(feedErr, domain.ErrCalendarFetchFailed)
		report.Error = feedErr.Error()
		h.logger().WarnContext(ctx, "calendar import failed",
			"tenant_id", cmd.TenantID,
			"property_id", cmd.PropertyID,
			"feed_url", feedURL,
			"error", feedErr,
		)
	} else if err := h.apply(ctx, unit, cmd, parsed, &report); err != nil {
		return nil, err
	}
	report.FinishedAt = h.now()

	if sub != nil {
		sub.RecordSync(report)
		if err := unit.Subscriptions().Save(ctx, sub); err != nil {
			return nil, err
		}
	}
	if report.Changed() {
		imported := domain.CalendarImported{
			Meta:       events.NewMeta(string(cmd.TenantID), report.FinishedAt),
			PropertyID: string(cmd.PropertyID),
			FeedURL:    feedURL,
			Created:    report.Created,
			Updated:    report.Updated,
			Deleted:    report.Deleted,
			Skipped:    len(report.Skipped),
		}
		if err := outbox.Stage(ctx, h.Outbox, h.Encoder, imported); err != nil {
			return nil, err
		}
	}
	if err := scope.Commit(ctx); err != nil {
		return nil, err
	}
	out := dto.MapImportReport(report)
	return &out, nil
}

// download fetches and parses the feed. Errors wrap ErrCalendarFetchFailed or
// ErrCalendarParseFailed.
func (h *ImportCalendarHandler) download(ctx context.Context, feedURL string) ([]domain.ExternalEvent, error) {
	body, err := h.Fetcher.Fetch(ctx, feedURL)
	if err != nil {
		if errors.Is(err, domain.ErrCalendarFetchFailed) {
			return nil, err
		}
		return nil, &domain.FetchError{URL: feedURL, Err: err}
	}
	parsed, err := h.Codec.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCalendarParseFailed, err)
	}
	return parsed, nil
}

func (h *ImportCalendarHandler) apply(ctx context.Context, unit uow.UnitOfWork, cmd ImportCalendarCommand, parsed []domain.ExternalEvent, report *domain.ImportReport) error {
	report.EventsParsed = len(parsed)

	existing, err := unit.Blocks().ByFeed(ctx, cmd.TenantID, cmd.PropertyID, report.FeedURL)
	if err != nil {
		return err
	}
	bookings, err := unit.Bookings().ListByProperty(ctx, cmd.TenantID, cmd.PropertyID)
	if err != nil {
		return err
	}
	plan := domain.Reconcile(parsed, existing, bookings)
	now := h.now()

	for _, ev := range plan.Create {
		block, err := availability.NewBlockedPeriod(availability.BlockParams{
			ID:          availability.BlockID(h.newID()),
			TenantID:    cmd.TenantID,
			PropertyID:  cmd.PropertyID,
			Range:       ev.Range,
			Reason:      ev.Summary,
			Source:      availability.SourceICalImport,
			ExternalUID: ev.UID,
			FeedURL:     report.FeedURL,
			Now:         now,
		})
		if err != nil {
			return err
		}
		if err := h.persist(ctx, unit, block); err != nil {
			return err
		}
	}
	for _, upd := range plan.Update {
		if err := upd.Block.Reschedule(upd.Event.Range, upd.Event.Summary, now); err != nil {
			return err
		}
		if err := h.persist(ctx, unit, upd.Block); err != nil {
			return err
		}
	}
	for _, block := range plan.Delete {
		block.Release(now)
		if err := unit.Blocks().Delete(ctx, cmd.TenantID, block.ID); err != nil {
			return err
		}
		if err := outbox.Drain(ctx, h.Outbox, h.Encoder, block); err != nil {
			return err
		}
	}

	report.Created = len(plan.Create)
	report.Updated = len(plan.Update)
	report.Deleted = len(plan.Delete)
	report.Unchanged = plan.Unchanged
	report.Converted = plan.Converted
	report.Skipped = plan.Skipped
	return nil
}

func (h *ImportCalendarHandler) persist(ctx context.Context, unit uow.UnitOfWork, block *availability.BlockedPeriod) error {
	if err := unit.Blocks().Save(ctx, block); err != nil {
		return err
	}
	return outbox.Drain(ctx, h.Outbox, h.Encoder, block)
}

func (h *ImportCalendarHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *ImportCalendarHandler) newID() string {
	if h.IDs != nil {
		return h.IDs()
	}
	return uuid.NewString()
}

func (h *ImportCalendarHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[ImportCalendarCommand, *dto.ImportReport] = (*ImportCalendarHandler)(nil)
var _ middleware.LockedCommand = ImportCalendarCommand{}
var _ middleware.DeferredTransactionCommand = ImportCalendarCommand{}
