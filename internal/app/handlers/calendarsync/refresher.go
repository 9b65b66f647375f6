package calendarsync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

// calendarChanges lists the events after which a property's published feed is stale.
var calendarChanges = map[string]bool{
	"booking.requested": true,
	"booking.confirmed": true,
	"booking.cancelled": true,
	"booking.no_show":   true,
	"calendar.imported": true,
	"calendar.blocked":  true,
	"calendar.released": true,
}

// FeedRefresher republishes a property's export feed when the broker reports
// a change to its calendar. Redelivered events are dropped through the inbox.
type FeedRefresher struct {
	Commands commands.Bus
	Inbox    policies.Inbox
	Logger   *slog.Logger
}

func (r *FeedRefresher) Handle(ctx context.Context, ev dto.IntegrationEvent) error {
	if r.Commands == nil {
		return errors.New("calendarsync: refresher requires a command bus")
	}
	name := strings.TrimSuffix(ev.Type, ".v1")
	if !calendarChanges[name] {
		return nil
	}
	var data struct {
		TenantID   string
		PropertyID string
	}
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		return err
	}
	tenantID := data.TenantID
	if tenantID == "" {
		tenantID = ev.TenantID
	}
	if tenantID == "" || data.PropertyID == "" {
		return nil
	}
	if r.Inbox != nil && ev.ID != "" {
		seen, err := r.Inbox.Seen(ctx, ev.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	feed, err := commands.Dispatch[PublishFeedCommand, *dto.Feed](ctx, r.Commands, PublishFeedCommand{
		TenantID:   tenant.ID(tenantID),
		PropertyID: property.PropertyID(data.PropertyID),
	})
	if err != nil {
		if r.Inbox != nil && ev.ID != "" {
			if ferr := r.Inbox.Forget(ctx, ev.ID); ferr != nil {
				r.logger().WarnContext(ctx, "inbox release failed", "event_id", ev.ID, "error", ferr)
			}
		}
		return err
	}
	r.logger().InfoContext(ctx, "feed republished",
		"tenant_id", tenantID,
		"property_id", data.PropertyID,
		"event", name,
		"events", feed.Events,
	)
	return nil
}

func (r *FeedRefresher) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
