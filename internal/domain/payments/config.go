package payments

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/pricing"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

var ErrConfigurationNotFound = errors.New("payments: configuration not found")

type DepositType string

const (
	DepositPercentage DepositType = "PERCENTAGE"
	DepositFixed      DepositType = "FIXED"
)

type TouristTaxType string

const (
	TaxPerPersonPerNight      TouristTaxType = "PER_PERSON_PER_NIGHT"
	TaxPercentOfAccommodation TouristTaxType = "PERCENTAGE_OF_ACCOMMODATION"
	TaxFixedPerStay           TouristTaxType = "FIXED_PER_STAY"
	TaxTieredByPropertyType   TouristTaxType = "TIERED_BY_PROPERTY_TYPE"
)

type TouristTaxPeriod string

const (
	TaxPeriodPerNight TouristTaxPeriod = "PER_NIGHT"
	TaxPeriodPerStay  TouristTaxPeriod = "PER_STAY"
)

type ServiceFeeType string

const (
	ServiceFeePercentage ServiceFeeType = "PERCENTAGE"
	ServiceFeeFixed      ServiceFeeType = "FIXED"
)

// PaymentConfiguration is the tenant-wide tax, fee and deposit policy.
// Plain decimals are used because the values are rates or amounts in
// whichever currency the quoted property uses.
type PaymentConfiguration struct {
	TenantID tenant.ID

	DepositType  DepositType
	DepositValue decimal.Decimal

	TouristTaxEnabled    bool
	TouristTaxType       TouristTaxType
	TouristTaxPeriod     TouristTaxPeriod
	TouristTaxAdultPrice decimal.Decimal
	TouristTaxChildPrice decimal.Decimal
	TouristTaxMaxNights  *int

	ServiceFeeEnabled bool
	ServiceFeeType    ServiceFeeType
	ServiceFeeValue   decimal.Decimal

	LongStayRules []pricing.LongStayRule
}

type Repository interface {
	ForTenant(ctx context.Context, tenantID tenant.ID) (*PaymentConfiguration, error)
	Save(ctx context.Context, cfg *PaymentConfiguration) error
}

// DefaultConfiguration requires the full amount upfront and charges no tax or fee.
func DefaultConfiguration(tenantID tenant.ID) *PaymentConfiguration {
	return &PaymentConfiguration{
		TenantID:     tenantID,
		DepositType:  DepositPercentage,
		DepositValue: decimal.NewFromInt(100),
	}
}

func (c *PaymentConfiguration) Validate() error {
	if err := c.TenantID.Validate(); err != nil {
		return err
	}
	if c.DepositValue.IsNegative() || c.TouristTaxAdultPrice.IsNegative() || c.TouristTaxChildPrice.IsNegative() || c.ServiceFeeValue.IsNegative() {
		return errors.New("payments: configuration values cannot be negative")
	}
	switch c.DepositType {
	case DepositPercentage, DepositFixed:
	default:
		return errors.New("payments: unknown deposit type")
	}
	if c.TouristTaxMaxNights != nil && *c.TouristTaxMaxNights < 1 {
		return errors.New("payments: tourist tax max nights must be at least 1")
	}
	return nil
}
