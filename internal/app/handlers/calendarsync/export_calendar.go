package calendarsync

import (
	"context"
	"errors"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
	"github.com/Eliezelg/villasaas-sub004/internal/app/queries"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	domain "github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

const (
	exportCalendarKey = "calendar.export"
	publishFeedKey    = "calendar.publish"
)

var (
	ErrFeedTokenInvalid   = errors.New("calendarsync: feed token invalid")
	ErrPublishingDisabled = errors.New("calendarsync: feed publishing is not configured")
)

// ExportCalendarQuery renders the property's bookings as an iCalendar feed.
// Public requests come from channel managers and must carry the feed token.
type ExportCalendarQuery struct {
	TenantID   tenant.ID           `validate:"required"`
	PropertyID property.PropertyID `validate:"required"`
	Token      string
	Public     bool
}

func (q ExportCalendarQuery) Key() string { return exportCalendarKey }

func (q ExportCalendarQuery) TenantScope() tenant.ID { return q.TenantID }

type ExportCalendarHandler struct {
	UoWFactory uow.UoWFactory
	Codec      policies.CalendarCodec
	Tokens     policies.FeedTokens
}

func (h *ExportCalendarHandler) Handle(ctx context.Context, q ExportCalendarQuery) (*dto.Feed, error) {
	if q.Public && (h.Tokens == nil || !h.Tokens.Verify(string(q.TenantID), string(q.PropertyID), q.Token)) {
		return nil, ErrFeedTokenInvalid
	}
	scope, ctx, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)
	return render(ctx, scope.Unit, h.Codec, q.TenantID, q.PropertyID)
}

func render(ctx context.Context, unit uow.UnitOfWork, codec policies.CalendarCodec, tenantID tenant.ID, propertyID property.PropertyID) (*dto.Feed, error) {
	if codec == nil {
		return nil, errors.New("calendarsync: codec required")
	}
	p, err := unit.Properties().ByID(ctx, tenantID, propertyID)
	if err != nil {
		return nil, err
	}
	bookings, err := unit.Bookings().ListByProperty(ctx, tenantID, propertyID)
	if err != nil {
		return nil, err
	}
	exported := domain.ExportEvents(bookings)
	body, err := codec.Encode(p.Name, exported)
	if err != nil {
		return nil, err
	}
	return &dto.Feed{PropertyID: string(propertyID), Events: len(exported), Body: body}, nil
}

// PublishFeedCommand uploads the rendered feed to object storage under the
// property's token so channel managers can poll a static URL.
type PublishFeedCommand struct {
	TenantID   tenant.ID           `validate:"required"`
	PropertyID property.PropertyID `validate:"required"`
}

func (c PublishFeedCommand) Key() string { return publishFeedKey }

func (c PublishFeedCommand) TenantScope() tenant.ID { return c.TenantID }

type PublishFeedHandler struct {
	UoWFactory uow.UoWFactory
	Codec      policies.CalendarCodec
	Tokens     policies.FeedTokens
	Publisher  policies.FeedPublisher
}

func (h *PublishFeedHandler) Handle(ctx context.Context, cmd PublishFeedCommand) (*dto.Feed, error) {
	if h.Tokens == nil || h.Publisher == nil {
		return nil, ErrPublishingDisabled
	}
	scope, ctx, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)

	feed, err := render(ctx, scope.Unit, h.Codec, cmd.TenantID, cmd.PropertyID)
	if err != nil {
		return nil, err
	}
	key := FeedObjectKey(string(cmd.TenantID), string(cmd.PropertyID), h.Tokens.Token(string(cmd.TenantID), string(cmd.PropertyID)))
	url, err := h.Publisher.Publish(ctx, key, feed.Body)
	if err != nil {
		return nil, err
	}
	feed.PublicURL = url
	return feed, nil
}

func FeedObjectKey(tenantID, propertyID, token string) string {
	return "feeds/" + tenantID + "/" + propertyID + "/" + token + ".ics"
}

var _ queries.Handler[ExportCalendarQuery, *dto.Feed] = (*ExportCalendarHandler)(nil)
var _ commands.Handler[PublishFeedCommand, *dto.Feed] = (*PublishFeedHandler)(nil)
