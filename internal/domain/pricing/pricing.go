package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

var (
	ErrInvalidPeriod       = errors.New("pricing: period start must be before end")
	ErrNegativeComponent   = errors.New("pricing: period prices cannot be negative")
	ErrPeriodMisconfigured = errors.New("pricing: overlapping periods share priority and creation time")
	ErrStayTooShort        = errors.New("pricing: stay shorter than minimum nights")
)

type PeriodID string

// PricingPeriod overrides property rates for nights in [StartDate, EndDate).
// WeekendPremium and MinNights are optional; nil inherits the property value.
type PricingPeriod struct {
	ID             PeriodID
	TenantID       tenant.ID
	PropertyID     property.PropertyID
	Name           string
	StartDate      time.Time
	EndDate        time.Time
	Priority       int
	BasePrice      money.Money
	WeekendPremium *money.Money
	MinNights      *int
	IsActive       bool
	CreatedAt      time.Time
}

type PeriodRepository interface {
	// ForProperty returns every period of the property touching dr, active or not.
	ForProperty(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID, dr daterange.DateRange) ([]PricingPeriod, error)
	Save(ctx context.Context, period *PricingPeriod) error
}

func (p PricingPeriod) Validate() error {
	if !daterange.Day(p.StartDate).Before(daterange.Day(p.EndDate)) {
		return ErrInvalidPeriod
	}
	if p.BasePrice.IsNegative() {
		return ErrNegativeComponent
	}
	if p.WeekendPremium != nil && p.WeekendPremium.IsNegative() {
		return ErrNegativeComponent
	}
	if p.MinNights != nil && *p.MinNights < 1 {
		return fmt.Errorf("pricing: period %s min nights must be at least 1", p.ID)
	}
	if strings.TrimSpace(string(p.PropertyID)) == "" {
		return errors.New("pricing: period property id required")
	}
	return nil
}

// Covers reports whether the night starting on date falls inside the period.
func (p PricingPeriod) Covers(night time.Time) bool {
	night = daterange.Day(night)
	start := daterange.Day(p.StartDate)
	end := daterange.Day(p.EndDate)
	return !night.Before(start) && night.Before(end)
}

// StayTooShortError carries the violated minimum.
type StayTooShortError struct {
	Required int
	Actual   int
}

func (e *StayTooShortError) Error() string {
	return fmt.Sprintf("pricing: stay of %d nights is shorter than the required %d", e.Actual, e.Required)
}

func (e *StayTooShortError) Unwrap() error { return ErrStayTooShort }
