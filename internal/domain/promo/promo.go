package promo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

var (
	ErrPromoNotFound      = errors.New("promo: code not found")
	ErrRedemptionRaceLost = errors.New("promo: redemption race lost")
	ErrInvalidDiscount    = errors.New("promo: invalid discount")
	ErrPerUserLimit       = errors.New("promo: per-user limit reached")
)

type PromoID string

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

type PromoCode struct {
	ID             PromoID
	TenantID       tenant.ID
	Code           string
	Description    string
	ValidFrom      time.Time
	ValidUntil     time.Time
	MinAmount      *decimal.Decimal
	MinNights      *int
	PropertyIDs    []property.PropertyID
	MaxUses        *int
	MaxUsesPerUser *int
	CurrentUses    int
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	IsActive       bool
}

type Repository interface {
	// ByCode matches the code case-insensitively within the tenant.
	ByCode(ctx context.Context, tenantID tenant.ID, code string) (*PromoCode, error)
	ByID(ctx context.Context, tenantID tenant.ID, id PromoID) (*PromoCode, error)
	Save(ctx context.Context, code *PromoCode) error
	// IncrementUses atomically bumps CurrentUses when it is still below MaxUses.
	// A lost race returns ErrRedemptionRaceLost and leaves the counter untouched.
	IncrementUses(ctx context.Context, tenantID tenant.ID, id PromoID) error
}

// UsageCounter counts a user's non-cancelled bookings that used the promo code.
type UsageCounter interface {
	CountByUserAndPromo(ctx context.Context, tenantID tenant.ID, userID string, id PromoID) (int, error)
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (p *PromoCode) Validate() error {
	if err := p.TenantID.Validate(); err != nil {
		return err
	}
	if NormalizeCode(p.Code) == "" {
		return errors.New("promo: code is required")
	}
	if p.DiscountValue.IsNegative() {
		return ErrInvalidDiscount
	}
	switch p.DiscountType {
	case DiscountPercentage:
		if p.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			return ErrInvalidDiscount
		}
	case DiscountFixed:
	default:
		return ErrInvalidDiscount
	}
	if !p.ValidUntil.IsZero() && p.ValidUntil.Before(p.ValidFrom) {
		return errors.New("promo: validity window is inverted")
	}
	return nil
}

func (p *PromoCode) appliesTo(id property.PropertyID) bool {
	if len(p.PropertyIDs) == 0 {
		return true
	}
	for _, candidate := range p.PropertyIDs {
		if candidate == id {
			return true
		}
	}
	return false
}

// WithinUserLimit reports whether userID may use the code once more after
// uses earlier uses. Anonymous callers are not limited.
func (p *PromoCode) WithinUserLimit(userID string, uses int) bool {
	return p.MaxUsesPerUser == nil || userID == "" || uses < *p.MaxUsesPerUser
}

// Discount is the amount taken off total. Percentages round to whole units.
// It never exceeds total.
func (p *PromoCode) Discount(total money.Money) money.Money {
	if total.IsNegative() || total.IsZero() {
		return money.Zero(total.Currency)
	}
	var discount money.Money
	switch p.DiscountType {
	case DiscountPercentage:
		discount = total.Percent(p.DiscountValue).RoundUnits()
	case DiscountFixed:
		discount = money.Money{Amount: p.DiscountValue, Currency: total.Currency}
	default:
		return money.Zero(total.Currency)
	}
	discount = discount.NonNegative()
	if discount.GreaterThan(total) {
		return total
	}
	return discount
}
