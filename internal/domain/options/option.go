package options

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

var (
	ErrOptionNotFound           = errors.New("options: option not found")
	ErrOptionConstraintViolated = errors.New("options: constraint violated")
	ErrNegativePrice            = errors.New("options: price cannot be negative")
)

type OptionID string

type PricingType string

const (
	PerPerson PricingType = "PER_PERSON"
	PerGroup  PricingType = "PER_GROUP"
	Fixed     PricingType = "FIXED"
)

type PricingPeriod string

const (
	PerDay  PricingPeriod = "PER_DAY"
	PerStay PricingPeriod = "PER_STAY"
)

// BookingOption is an add-on service such as breakfast, airport transfer or late checkout.
type BookingOption struct {
	ID            OptionID
	TenantID      tenant.ID
	PropertyIDs   []property.PropertyID
	Name          string
	Category      string
	PricingType   PricingType
	PricePerUnit  money.Money
	PricingPeriod PricingPeriod
	IsMandatory   bool
	IsActive      bool
	MinQuantity   int
	MaxQuantity   *int
	MinGuests     *int
	MaxGuests     *int
	MinNights     *int
}

type Repository interface {
	// ForProperty lists active options offered for the property, mandatory ones included.
	ForProperty(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID) ([]BookingOption, error)
	Save(ctx context.Context, option *BookingOption) error
}

func (o BookingOption) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return errors.New("options: name is required")
	}
	if o.PricePerUnit.IsNegative() {
		return ErrNegativePrice
	}
	switch o.PricingType {
	case PerPerson, PerGroup, Fixed:
	default:
		return fmt.Errorf("options: unknown pricing type %q", o.PricingType)
	}
	switch o.PricingPeriod {
	case PerDay, PerStay:
	default:
		return fmt.Errorf("options: unknown pricing period %q", o.PricingPeriod)
	}
	if o.MaxQuantity != nil && *o.MaxQuantity < o.MinQuantity {
		return errors.New("options: max quantity below min quantity")
	}
	return nil
}

// AppliesTo reports whether the option is offered for the property; an empty list means all.
func (o BookingOption) AppliesTo(id property.PropertyID) bool {
	if len(o.PropertyIDs) == 0 {
		return true
	}
	for _, candidate := range o.PropertyIDs {
		if candidate == id {
			return true
		}
	}
	return false
}

// ConstraintError names which bound an option selection broke.
type ConstraintError struct {
	OptionID   OptionID
	Constraint string
	Limit      int
	Actual     int
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("options: option %s violates %s (limit %d, got %d)", e.OptionID, e.Constraint, e.Limit, e.Actual)
}

func (e *ConstraintError) Unwrap() error { return ErrOptionConstraintViolated }
