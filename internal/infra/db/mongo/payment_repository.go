package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/payments"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/pricing"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

// paymentRepository keys configurations by tenant id; there is one per tenant.
type paymentRepository struct {
	col *mongo.Collection
}

func (r paymentRepository) ForTenant(ctx context.Context, tenantID tenant.ID) (*payments.PaymentConfiguration, error) {
	var doc paymentDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(tenantID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, payments.ErrConfigurationNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toConfiguration()
}

func (r paymentRepository) Save(ctx context.Context, cfg *payments.PaymentConfiguration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	doc := newPaymentDocument(cfg)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.TenantID}, doc, options.Replace().SetUpsert(true))
	return err
}

type longStayDocument struct {
	MinNights int    `bson:"min_nights"`
	Percent   string `bson:"percent"`
}

type paymentDocument struct {
	TenantID             string             `bson:"_id"`
	DepositType          string             `bson:"deposit_type"`
	DepositValue         string             `bson:"deposit_value"`
	TouristTaxEnabled    bool               `bson:"tourist_tax_enabled"`
	TouristTaxType       string             `bson:"tourist_tax_type"`
	TouristTaxPeriod     string             `bson:"tourist_tax_period"`
	TouristTaxAdultPrice string             `bson:"tourist_tax_adult_price"`
	TouristTaxChildPrice string             `bson:"tourist_tax_child_price"`
	TouristTaxMaxNights  *int               `bson:"tourist_tax_max_nights,omitempty"`
	ServiceFeeEnabled    bool               `bson:"service_fee_enabled"`
	ServiceFeeType       string             `bson:"service_fee_type"`
	ServiceFeeValue      string             `bson:"service_fee_value"`
	LongStayRules        []longStayDocument `bson:"long_stay_rules"`
}

func newPaymentDocument(c *payments.PaymentConfiguration) paymentDocument {
	rules := make([]longStayDocument, 0, len(c.LongStayRules))
	for _, r := range c.LongStayRules {
		rules = append(rules, longStayDocument{MinNights: r.MinNights, Percent: decimalString(r.Percent)})
	}
	return paymentDocument{
		TenantID:             string(c.TenantID),
		DepositType:          string(c.DepositType),
		DepositValue:         decimalString(c.DepositValue),
		TouristTaxEnabled:    c.TouristTaxEnabled,
		TouristTaxType:       string(c.TouristTaxType),
		TouristTaxPeriod:     string(c.TouristTaxPeriod),
		TouristTaxAdultPrice: decimalString(c.TouristTaxAdultPrice),
		TouristTaxChildPrice: decimalString(c.TouristTaxChildPrice),
		TouristTaxMaxNights:  c.TouristTaxMaxNights,
		ServiceFeeEnabled:    c.ServiceFeeEnabled,
		ServiceFeeType:       string(c.ServiceFeeType),
		ServiceFeeValue:      decimalString(c.ServiceFeeValue),
		LongStayRules:        rules,
	}
}

func (d paymentDocument) toConfiguration() (*payments.PaymentConfiguration, error) {
	cfg := &payments.PaymentConfiguration{
		TenantID:            tenant.ID(d.TenantID),
		DepositType:         payments.DepositType(d.DepositType),
		TouristTaxEnabled:   d.TouristTaxEnabled,
		TouristTaxType:      payments.TouristTaxType(d.TouristTaxType),
		TouristTaxPeriod:    payments.TouristTaxPeriod(d.TouristTaxPeriod),
		TouristTaxMaxNights: d.TouristTaxMaxNights,
		ServiceFeeEnabled:   d.ServiceFeeEnabled,
		ServiceFeeType:      payments.ServiceFeeType(d.ServiceFeeType),
	}
	var err error
	if cfg.DepositValue, err = parseDecimal(d.DepositValue); err != nil {
		return nil, err
	}
	if cfg.TouristTaxAdultPrice, err = parseDecimal(d.TouristTaxAdultPrice); err != nil {
		return nil, err
	}
	if cfg.TouristTaxChildPrice, err = parseDecimal(d.TouristTaxChildPrice); err != nil {
		return nil, err
	}
	if cfg.ServiceFeeValue, err = parseDecimal(d.ServiceFeeValue); err != nil {
		return nil, err
	}
	for _, r := range d.LongStayRules {
		pct, err := parseDecimal(r.Percent)
		if err != nil {
			return nil, err
		}
		cfg.LongStayRules = append(cfg.LongStayRules, pricing.LongStayRule{MinNights: r.MinNights, Percent: pct})
	}
	return cfg, nil
}
