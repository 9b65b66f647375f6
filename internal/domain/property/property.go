package property

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

var (
	ErrPropertyNotFound  = errors.New("property: not found")
	ErrBasePrice         = errors.New("property: base price must be positive")
	ErrMinNights         = errors.New("property: min nights must be at least 1")
	ErrNegativeComponent = errors.New("property: fees cannot be negative")
	ErrNameRequired      = errors.New("property: name is required")
	ErrUnknownFeature    = errors.New("property: unknown feature key")
	ErrCancellationTerms = errors.New("property: invalid cancellation terms")
)

type PropertyID string

// Feature is a closed set of amenity flags. Unknown keys are rejected so the
// pricing core never depends on free-form presentation metadata.
type Feature string

const (
	FeaturePool         Feature = "pool"
	FeatureWifi         Feature = "wifi"
	FeatureParking      Feature = "parking"
	FeatureAirCondition Feature = "air_conditioning"
	FeaturePetsAllowed  Feature = "pets_allowed"
	FeatureSeaView      Feature = "sea_view"
	FeatureHotTub       Feature = "hot_tub"
)

// FeaturesVersion is bumped whenever the closed feature set changes.
const FeaturesVersion = 1

var knownFeatures = map[Feature]struct{}{
	FeaturePool:         {},
	FeatureWifi:         {},
	FeatureParking:      {},
	FeatureAirCondition: {},
	FeaturePetsAllowed:  {},
	FeatureSeaView:      {},
	FeatureHotTub:       {},
}

type Features struct {
	Version int
	Flags   map[Feature]bool
}

func (f *Features) Set(key Feature, enabled bool) error {
	if _, ok := knownFeatures[key]; !ok {
		return ErrUnknownFeature
	}
	if f.Flags == nil {
		f.Flags = make(map[Feature]bool)
	}
	f.Version = FeaturesVersion
	f.Flags[key] = enabled
	return nil
}

func (f Features) Has(key Feature) bool {
	return f.Flags[key]
}

// CancellationPolicy is the owner's refund terms for the listing. Guests may
// cancel without penalty until FreeCancellationDays before check-in. An empty
// PolicyID means every cancellation is refunded in full.
type CancellationPolicy struct {
	PolicyID                  string
	FreeCancellationDays      int
	PreCheckInPenaltyPercent  int
	PostCheckInPenaltyPercent int
}

// FreeUntil is the last instant a stay starting at checkIn can be cancelled
// for free. Zero when the policy has no free window.
func (c CancellationPolicy) FreeUntil(checkIn time.Time) time.Time {
	if c.FreeCancellationDays <= 0 {
		return time.Time{}
	}
	return checkIn.AddDate(0, 0, -c.FreeCancellationDays)
}

func (c CancellationPolicy) Validate() error {
	if c.FreeCancellationDays < 0 {
		return ErrCancellationTerms
	}
	for _, pct := range []int{c.PreCheckInPenaltyPercent, c.PostCheckInPenaltyPercent} {
		if pct < 0 || pct > 100 {
			return ErrCancellationTerms
		}
	}
	return nil
}

type Property struct {
	ID              PropertyID
	TenantID        tenant.ID
	Name            string
	PropertyType    string
	BasePrice       money.Money
	WeekendPremium  money.Money
	CleaningFee     money.Money
	SecurityDeposit money.Money
	MinNights       int
	MaxGuests       int
	Currency        string
	Features        Features
	Cancellation    CancellationPolicy
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Repository interface {
	ByID(ctx context.Context, tenantID tenant.ID, id PropertyID) (*Property, error)
	Save(ctx context.Context, p *Property) error
}

type CreateParams struct {
	ID              PropertyID
	TenantID        tenant.ID
	Name            string
	PropertyType    string
	Currency        string
	BasePrice       string
	WeekendPremium  string
	CleaningFee     string
	SecurityDeposit string
	MinNights       int
	MaxGuests       int
	Cancellation    CancellationPolicy
	Now             time.Time
}

// NewProperty parses the decimal amounts in params and validates invariants.
func NewProperty(params CreateParams) (*Property, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("property: id is required")
	}
	if err := params.TenantID.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, ErrNameRequired
	}
	amounts := make([]money.Money, 4)
	for i, raw := range []string{params.BasePrice, params.WeekendPremium, params.CleaningFee, params.SecurityDeposit} {
		if strings.TrimSpace(raw) == "" {
			raw = "0"
		}
		m, err := money.FromString(raw, params.Currency)
		if err != nil {
			return nil, err
		}
		amounts[i] = m
	}
	p := &Property{
		ID:              params.ID,
		TenantID:        params.TenantID,
		Name:            strings.TrimSpace(params.Name),
		PropertyType:    strings.TrimSpace(params.PropertyType),
		BasePrice:       amounts[0],
		WeekendPremium:  amounts[1],
		CleaningFee:     amounts[2],
		SecurityDeposit: amounts[3],
		MinNights:       params.MinNights,
		MaxGuests:       params.MaxGuests,
		Currency:        amounts[0].Currency,
		Cancellation:    params.Cancellation,
		CreatedAt:       params.Now.UTC(),
		UpdatedAt:       params.Now.UTC(),
	}
	if p.MinNights == 0 {
		p.MinNights = 1
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Property) Validate() error {
	if !p.BasePrice.Amount.IsPositive() {
		return ErrBasePrice
	}
	if p.MinNights < 1 {
		return ErrMinNights
	}
	if p.WeekendPremium.IsNegative() || p.CleaningFee.IsNegative() || p.SecurityDeposit.IsNegative() {
		return ErrNegativeComponent
	}
	return p.Cancellation.Validate()
}
