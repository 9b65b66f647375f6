package promo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

// Reason explains why a code was refused. Refusals are results, not errors.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonCodeNotFound        Reason = "CodeNotFound"
	ReasonCodeExpired         Reason = "CodeExpired"
	ReasonBelowMinimumAmount  Reason = "BelowMinimumAmount"
	ReasonStayTooShort        Reason = "StayTooShort"
	ReasonPropertyNotEligible Reason = "PropertyNotEligible"
	ReasonCodeExhausted       Reason = "CodeExhausted"
	ReasonPerUserLimitReached Reason = "PerUserLimitReached"
)

type Request struct {
	TenantID   tenant.ID
	Code       string
	PropertyID property.PropertyID
	Total      money.Money
	Nights     int
	UserID     string
}

type Result struct {
	Valid    bool
	Reason   Reason
	PromoID  PromoID
	Code     string
	Discount money.Money
	Final    money.Money
}

type Validator struct {
	Codes Repository
	Usage UsageCounter
	Now   func() time.Time
}

// Validate runs the ordered checks against the stored code. It never mutates
// usage counters; redemption goes through Repository.IncrementUses.
func (v Validator) Validate(ctx context.Context, req Request) (Result, error) {
	if v.Codes == nil {
		return Result{}, errors.New("promo: validator requires a repository")
	}
	code, err := v.Codes.ByCode(ctx, req.TenantID, NormalizeCode(req.Code))
	if err != nil {
		if errors.Is(err, ErrPromoNotFound) {
			return refuse(req, ReasonCodeNotFound), nil
		}
		return Result{}, fmt.Errorf("promo: load code: %w", err)
	}
	if code == nil || code.TenantID != req.TenantID {
		return refuse(req, ReasonCodeNotFound), nil
	}
	userUses := 0
	if code.MaxUsesPerUser != nil && req.UserID != "" && v.Usage != nil {
		userUses, err = v.Usage.CountByUserAndPromo(ctx, req.TenantID, req.UserID, code.ID)
		if err != nil {
			return Result{}, fmt.Errorf("promo: count usage: %w", err)
		}
	}
	return Check(code, req, userUses, v.now()), nil
}

// Check evaluates a loaded code. userUses is the number of the user's
// non-cancelled bookings that already used the code.
func Check(code *PromoCode, req Request, userUses int, now time.Time) Result {
	if code == nil || !code.IsActive {
		return refuse(req, ReasonCodeNotFound)
	}
	if (!code.ValidFrom.IsZero() && now.Before(code.ValidFrom)) || (!code.ValidUntil.IsZero() && now.After(code.ValidUntil)) {
		return refuse(req, ReasonCodeExpired)
	}
	if code.MinAmount != nil && req.Total.Amount.LessThan(*code.MinAmount) {
		return refuse(req, ReasonBelowMinimumAmount)
	}
	if code.MinNights != nil && req.Nights < *code.MinNights {
		return refuse(req, ReasonStayTooShort)
	}
	if !code.appliesTo(req.PropertyID) {
		return refuse(req, ReasonPropertyNotEligible)
	}
	if code.MaxUses != nil && code.CurrentUses >= *code.MaxUses {
		return refuse(req, ReasonCodeExhausted)
	}
	if !code.WithinUserLimit(req.UserID, userUses) {
		return refuse(req, ReasonPerUserLimitReached)
	}
	discount := code.Discount(req.Total)
	final, err := req.Total.Sub(discount)
	if err != nil {
		return refuse(req, ReasonCodeNotFound)
	}
	return Result{
		Valid:    true,
		PromoID:  code.ID,
		Code:     code.Code,
		Discount: discount,
		Final:    final,
	}
}

func refuse(req Request, reason Reason) Result {
	return Result{
		Valid:    false,
		Reason:   reason,
		Code:     req.Code,
		Discount: money.Zero(req.Total.Currency),
		Final:    req.Total,
	}
}

func (v Validator) now() time.Time {
	if v.Now != nil {
		return v.Now().UTC()
	}
	return time.Now().UTC()
}
