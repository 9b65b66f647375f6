package promo

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

func eur(v string) money.Money { return money.MustString(v, "EUR") }

func intPtr(v int) *int { return &v }

func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func summerCode() *PromoCode {
	return &PromoCode{
		ID:            "promo-1",
		TenantID:      "t1",
		Code:          "SUMMER10",
		ValidFrom:     now.AddDate(0, -1, 0),
		ValidUntil:    now.AddDate(0, 1, 0),
		DiscountType:  DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		IsActive:      true,
	}
}

type codesStub struct {
	codes map[string]*PromoCode
}

func (s codesStub) ByCode(_ context.Context, tenantID tenant.ID, code string) (*PromoCode, error) {
	c, ok := s.codes[code]
	if !ok || c.TenantID != tenantID {
		return nil, ErrPromoNotFound
	}
	return c, nil
}

func (s codesStub) ByID(context.Context, tenant.ID, PromoID) (*PromoCode, error) {
	return nil, ErrPromoNotFound
}

func (s codesStub) Save(context.Context, *PromoCode) error { return nil }

func (s codesStub) IncrementUses(context.Context, tenant.ID, PromoID) error { return nil }

type usageStub int

func (u usageStub) CountByUserAndPromo(context.Context, tenant.ID, string, PromoID) (int, error) {
	return int(u), nil
}

func TestPercentageDiscount(t *testing.T) {
	res := Check(summerCode(), Request{TenantID: "t1", Code: "summer10", Total: eur("500"), Nights: 3}, 0, now)
	require.True(t, res.Valid)
	assert.True(t, res.Discount.Equal(eur("50")))
	assert.True(t, res.Final.Equal(eur("450")))
}

func TestFixedDiscountIsClampedToTotal(t *testing.T) {
	code := summerCode()
	code.DiscountType = DiscountFixed
	code.DiscountValue = decimal.NewFromInt(80)
	res := Check(code, Request{Total: eur("60"), Nights: 1}, 0, now)
	require.True(t, res.Valid)
	assert.True(t, res.Discount.Equal(eur("60")))
	assert.True(t, res.Final.IsZero())
}

func TestPercentageDiscountRoundsToWholeUnits(t *testing.T) {
	cases := []struct {
		total string
		pct   string
		want  string
		final string
	}{
		{"123.45", "10", "12", "111.45"},
		{"125.00", "10", "13", "112.00"},
		{"99.99", "12.5", "12", "87.99"},
		{"3.00", "10", "0", "3.00"},
	}
	for _, tc := range cases {
		t.Run(tc.total+"@"+tc.pct, func(t *testing.T) {
			code := summerCode()
			code.DiscountValue = decimal.RequireFromString(tc.pct)
			res := Check(code, Request{Total: eur(tc.total), Nights: 1}, 0, now)
			require.True(t, res.Valid)
			assert.True(t, res.Discount.Equal(eur(tc.want)), res.Discount.String())
			assert.True(t, res.Final.Equal(eur(tc.final)), res.Final.String())
		})
	}
}

func TestCheckOrder(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*PromoCode)
		req      Request
		userUses int
		want     Reason
	}{
		{"inactive", func(c *PromoCode) { c.IsActive = false }, Request{Total: eur("500"), Nights: 3}, 0, ReasonCodeNotFound},
		{"not started", func(c *PromoCode) { c.ValidFrom = now.Add(time.Hour) }, Request{Total: eur("500"), Nights: 3}, 0, ReasonCodeExpired},
		{"expired", func(c *PromoCode) { c.ValidUntil = now.Add(-time.Hour) }, Request{Total: eur("500"), Nights: 3}, 0, ReasonCodeExpired},
		{"below minimum", func(c *PromoCode) { c.MinAmount = decPtr("600") }, Request{Total: eur("500"), Nights: 3}, 0, ReasonBelowMinimumAmount},
		{"too short", func(c *PromoCode) { c.MinNights = intPtr(4) }, Request{Total: eur("500"), Nights: 3}, 0, ReasonStayTooShort},
		{"wrong property", func(c *PromoCode) { c.PropertyIDs = []property.PropertyID{"p2"} }, Request{PropertyID: "p1", Total: eur("500"), Nights: 3}, 0, ReasonPropertyNotEligible},
		{"exhausted", func(c *PromoCode) { c.MaxUses = intPtr(5); c.CurrentUses = 5 }, Request{Total: eur("500"), Nights: 3}, 0, ReasonCodeExhausted},
		{"per user", func(c *PromoCode) { c.MaxUsesPerUser = intPtr(1) }, Request{Total: eur("500"), Nights: 3, UserID: "u1"}, 1, ReasonPerUserLimitReached},
		{"expired wins over minimum", func(c *PromoCode) { c.ValidUntil = now.Add(-time.Hour); c.MinAmount = decPtr("600") }, Request{Total: eur("500"), Nights: 3}, 0, ReasonCodeExpired},
		{"anonymous skips per user", func(c *PromoCode) { c.MaxUsesPerUser = intPtr(1) }, Request{Total: eur("500"), Nights: 3}, 3, ReasonNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code := summerCode()
			tc.mutate(code)
			res := Check(code, tc.req, tc.userUses, now)
			assert.Equal(t, tc.want, res.Reason)
			assert.Equal(t, tc.want == ReasonNone, res.Valid)
			if !res.Valid {
				assert.True(t, res.Discount.IsZero())
				assert.True(t, res.Final.Equal(tc.req.Total))
			}
		})
	}
}

func TestValidatorLooksUpCaseInsensitivelyAndDoesNotMutate(t *testing.T) {
	code := summerCode()
	code.MaxUses = intPtr(10)
	code.CurrentUses = 3
	code.MaxUsesPerUser = intPtr(2)
	v := Validator{Codes: codesStub{codes: map[string]*PromoCode{"SUMMER10": code}}, Usage: usageStub(1), Now: func() time.Time { return now }}

	for i := 0; i < 3; i++ {
		res, err := v.Validate(context.Background(), Request{TenantID: "t1", Code: " Summer10 ", Total: eur("200"), Nights: 2, UserID: "u1"})
		require.NoError(t, err)
		assert.True(t, res.Valid)
		assert.True(t, res.Discount.Equal(eur("20")))
	}
	assert.Equal(t, 3, code.CurrentUses)

	res, err := v.Validate(context.Background(), Request{TenantID: "t2", Code: "SUMMER10", Total: eur("200"), Nights: 2})
	require.NoError(t, err)
	assert.Equal(t, ReasonCodeNotFound, res.Reason)
}
