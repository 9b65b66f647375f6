package quote

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	availabilityhandlers "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/app/queries"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/options"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/payments"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	domain "github.com/Eliezelg/villasaas-sub004/internal/domain/quote"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

const getQuoteKey = "quote.get"

type OptionSelection struct {
	OptionID string `json:"option_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=0"`
}

type GetQuoteQuery struct {
	TenantID        tenant.ID           `validate:"required"`
	PropertyID      property.PropertyID `validate:"required"`
	CheckIn         time.Time           `validate:"required"`
	CheckOut        time.Time           `validate:"required"`
	Adults          int                 `validate:"min=1"`
	Children        int                 `validate:"min=0"`
	Infants         int                 `validate:"min=0"`
	Pets            int                 `validate:"min=0"`
	SelectedOptions []OptionSelection   `validate:"dive"`
	PromoCode       string              `validate:"max=64"`
	UserID          string
}

func (q GetQuoteQuery) Key() string { return getQuoteKey }

func (q GetQuoteQuery) TenantScope() tenant.ID { return q.TenantID }

// Request converts the query into the domain request.
func (q GetQuoteQuery) Request() domain.Request {
	selections := make([]options.Selection, 0, len(q.SelectedOptions))
	for _, s := range q.SelectedOptions {
		selections = append(selections, options.Selection{OptionID: options.OptionID(s.OptionID), Quantity: s.Quantity})
	}
	return domain.Request{
		TenantID:        q.TenantID,
		PropertyID:      q.PropertyID,
		CheckIn:         q.CheckIn,
		CheckOut:        q.CheckOut,
		Adults:          q.Adults,
		Children:        q.Children,
		Infants:         q.Infants,
		Pets:            q.Pets,
		SelectedOptions: selections,
		PromoCode:       q.PromoCode,
		UserID:          q.UserID,
	}
}

// Pricer loads the pricing configuration through a unit of work and
// assembles the quote. Assembling itself has no side effects.
type Pricer struct {
	Tax    payments.TouristTaxCalculator
	Logger *slog.Logger
	Now    func() time.Time
}

func (p Pricer) Price(ctx context.Context, unit uow.UnitOfWork, req domain.Request) (*domain.Quote, error) {
	dr, err := req.Range()
	if err != nil {
		return nil, err
	}
	in, err := LoadInputs(ctx, unit, req.TenantID, req.PropertyID, dr)
	if err != nil {
		return nil, err
	}
	assembler := domain.Assembler{
		Tax:    p.Tax,
		Promos: promo.Validator{Codes: unit.Promos(), Usage: unit.Bookings(), Now: p.Now},
		Now:    p.Now,
	}
	q, err := assembler.Assemble(ctx, req, in)
	if err != nil {
		return nil, err
	}
	if q.DepositCapped && p.Logger != nil {
		p.Logger.WarnContext(ctx, "deposit capped at total",
			"tenant_id", req.TenantID,
			"property_id", req.PropertyID,
			"total", q.Total.String(),
		)
	}
	return q, nil
}

func (p Pricer) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

type GetQuoteHandler struct {
	UoWFactory uow.UoWFactory
	Pricer     Pricer
}

// Handle prices the stay and previews availability. An unavailable range still
// gets a price; the preview tells the caller whether it can be booked.
func (h *GetQuoteHandler) Handle(ctx context.Context, q GetQuoteQuery) (*dto.Quote, error) {
	scope, ctx, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)

	req := q.Request()
	priced, err := h.Pricer.Price(ctx, scope.Unit, req)
	if err != nil {
		return nil, err
	}
	occ, err := availabilityhandlers.Occupancies(ctx, scope.Unit, req.TenantID, req.PropertyID, priced.Range)
	if err != nil {
		return nil, err
	}
	preview := dto.MapAvailability(availability.Evaluate(availability.Query{Range: priced.Range}, occ, h.Pricer.now()))

	out := dto.MapQuote(priced)
	out.Availability = &preview
	return &out, nil
}

var _ queries.Handler[GetQuoteQuery, *dto.Quote] = (*GetQuoteHandler)(nil)

// LoadInputs reads everything the assembler prices against. A tenant without
// a payment configuration gets the default policy.
func LoadInputs(ctx context.Context, unit uow.UnitOfWork, tenantID tenant.ID, propertyID property.PropertyID, dr daterange.DateRange) (domain.Inputs, error) {
	p, err := unit.Properties().ByID(ctx, tenantID, propertyID)
	if err != nil {
		if errors.Is(err, property.ErrPropertyNotFound) {
			return domain.Inputs{}, domain.ErrPropertyNotFound
		}
		return domain.Inputs{}, err
	}
	periods, err := unit.Periods().ForProperty(ctx, tenantID, propertyID, dr)
	if err != nil {
		return domain.Inputs{}, err
	}
	opts, err := unit.Options().ForProperty(ctx, tenantID, propertyID)
	if err != nil {
		return domain.Inputs{}, err
	}
	cfg, err := unit.Payments().ForTenant(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, payments.ErrConfigurationNotFound) {
			return domain.Inputs{}, err
		}
		cfg = payments.DefaultConfiguration(tenantID)
	}
	return domain.Inputs{Property: p, Periods: periods, Options: opts, Payment: cfg}, nil
}
