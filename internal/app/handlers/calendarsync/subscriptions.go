package calendarsync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	"github.com/Eliezelg/villasaas-sub004/internal/app/queries"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	domain "github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

const (
	createSubscriptionKey = "calendar.subscription.create"
	deleteSubscriptionKey = "calendar.subscription.delete"
	listSubscriptionsKey  = "calendar.subscription.list"
)

type CreateSubscriptionCommand struct {
	TenantID   tenant.ID           `validate:"required"`
	PropertyID property.PropertyID `validate:"required"`
	Name       string              `validate:"max=120"`
	URL        string              `validate:"required,max=2048,feedurl"`
}

func (c CreateSubscriptionCommand) Key() string { return createSubscriptionKey }

func (c CreateSubscriptionCommand) TenantScope() tenant.ID { return c.TenantID }

type CreateSubscriptionHandler struct {
	UoWFactory uow.UoWFactory
	IDs        func() string
	Now        func() time.Time
}

func (h *CreateSubscriptionHandler) Handle(ctx context.Context, cmd CreateSubscriptionCommand) (*dto.Subscription, error) {
	scope, ctx, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)

	if _, err := scope.Unit.Properties().ByID(ctx, cmd.TenantID, cmd.PropertyID); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	if h.IDs != nil {
		id = h.IDs()
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	sub, err := domain.NewSubscription(domain.SubscriptionID(id), cmd.TenantID, cmd.PropertyID, cmd.Name, cmd.URL, now)
	if err != nil {
		return nil, err
	}
	if err := scope.Unit.Subscriptions().Save(ctx, sub); err != nil {
		return nil, err
	}
	if err := scope.Commit(ctx); err != nil {
		return nil, err
	}
	out := dto.MapSubscription(sub)
	return &out, nil
}

type DeleteSubscriptionCommand struct {
	TenantID       tenant.ID             `validate:"required"`
	SubscriptionID domain.SubscriptionID `validate:"required"`
}

func (c DeleteSubscriptionCommand) Key() string { return deleteSubscriptionKey }

func (c DeleteSubscriptionCommand) TenantScope() tenant.ID { return c.TenantID }

type DeleteSubscriptionHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle stops syncing a feed. Blocks already imported from it stay until
// removed by hand or re-imported.
func (h *DeleteSubscriptionHandler) Handle(ctx context.Context, cmd DeleteSubscriptionCommand) (struct{}, error) {
	scope, ctx, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return struct{}{}, err
	}
	defer scope.Close(ctx)

	if _, err := scope.Unit.Subscriptions().ByID(ctx, cmd.TenantID, cmd.SubscriptionID); err != nil {
		return struct{}{}, err
	}
	if err := scope.Unit.Subscriptions().Delete(ctx, cmd.TenantID, cmd.SubscriptionID); err != nil {
		return struct{}{}, err
	}
	return struct{}{}, scope.Commit(ctx)
}

type ListSubscriptionsQuery struct {
	TenantID   tenant.ID           `validate:"required"`
	PropertyID property.PropertyID `validate:"required"`
}

func (q ListSubscriptionsQuery) Key() string { return listSubscriptionsKey }

func (q ListSubscriptionsQuery) TenantScope() tenant.ID { return q.TenantID }

type ListSubscriptionsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListSubscriptionsHandler) Handle(ctx context.Context, q ListSubscriptionsQuery) ([]dto.Subscription, error) {
	scope, ctx, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)

	subs, err := scope.Unit.Subscriptions().ListByProperty(ctx, q.TenantID, q.PropertyID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.Subscription, 0, len(subs))
	for _, s := range subs {
		out = append(out, dto.MapSubscription(s))
	}
	return out, nil
}

var _ commands.Handler[CreateSubscriptionCommand, *dto.Subscription] = (*CreateSubscriptionHandler)(nil)
var _ commands.Handler[DeleteSubscriptionCommand, struct{}] = (*DeleteSubscriptionHandler)(nil)
var _ queries.Handler[ListSubscriptionsQuery, []dto.Subscription] = (*ListSubscriptionsHandler)(nil)
