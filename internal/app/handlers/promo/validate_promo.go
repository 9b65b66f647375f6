package promo

import (
	"context"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	"github.com/Eliezelg/villasaas-sub004/internal/app/queries"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	domain "github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

const validatePromoKey = "promo.validate"

// ValidatePromoQuery checks a code against an already priced total. It never
// consumes a use; redemption happens when the booking is confirmed.
type ValidatePromoQuery struct {
	TenantID   tenant.ID `validate:"required"`
	Code       string    `validate:"required,max=64"`
	PropertyID property.PropertyID
	Total      money.Money
	Nights     int `validate:"min=0"`
	UserID     string
}

func (q ValidatePromoQuery) Key() string { return validatePromoKey }

func (q ValidatePromoQuery) TenantScope() tenant.ID { return q.TenantID }

type ValidatePromoHandler struct {
	UoWFactory uow.UoWFactory
	Now        func() time.Time
}

func (h *ValidatePromoHandler) Handle(ctx context.Context, q ValidatePromoQuery) (dto.PromoDTO, error) {
	if _, err := money.New(q.Total.Amount, q.Total.Currency); err != nil {
		return dto.PromoDTO{}, err
	}
	scope, ctx, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.PromoDTO{}, err
	}
	defer scope.Close(ctx)

	v := domain.Validator{Codes: scope.Unit.Promos(), Usage: scope.Unit.Bookings(), Now: h.Now}
	res, err := v.Validate(ctx, domain.Request{
		TenantID:   q.TenantID,
		Code:       q.Code,
		PropertyID: q.PropertyID,
		Total:      q.Total,
		Nights:     q.Nights,
		UserID:     q.UserID,
	})
	if err != nil {
		return dto.PromoDTO{}, err
	}
	return dto.MapPromoResult(res), nil
}

var _ queries.Handler[ValidatePromoQuery, dto.PromoDTO] = (*ValidatePromoHandler)(nil)
