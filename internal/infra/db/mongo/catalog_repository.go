package mongo

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainoptions "github.com/Eliezelg/villasaas-sub004/internal/domain/options"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/pricing"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

type periodRepository struct {
	col *mongo.Collection
}

// ForProperty returns periods whose [start, end) span touches dr.
func (r periodRepository) ForProperty(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID, dr daterange.DateRange) ([]pricing.PricingPeriod, error) {
	filter := bson.M{
		"tenant_id":   string(tenantID),
		"property_id": string(propertyID),
		"start_date":  bson.M{"$lt": dr.CheckOut.UnixMilli()},
		"end_date":    bson.M{"$gt": dr.CheckIn.UnixMilli()},
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []periodDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]pricing.PricingPeriod, 0, len(docs))
	for _, doc := range docs {
		period, err := doc.toPeriod()
		if err != nil {
			return nil, err
		}
		out = append(out, period)
	}
	return out, nil
}

func (r periodRepository) Save(ctx context.Context, period *pricing.PricingPeriod) error {
	if err := period.Validate(); err != nil {
		return err
	}
	doc := newPeriodDocument(period)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

type periodDocument struct {
	ID             string         `bson:"_id"`
	TenantID       string         `bson:"tenant_id"`
	PropertyID     string         `bson:"property_id"`
	Name           string         `bson:"name"`
	StartDate      int64          `bson:"start_date"`
	EndDate        int64          `bson:"end_date"`
	Priority       int            `bson:"priority"`
	BasePrice      moneyDocument  `bson:"base_price"`
	WeekendPremium *moneyDocument `bson:"weekend_premium,omitempty"`
	MinNights      *int           `bson:"min_nights,omitempty"`
	IsActive       bool           `bson:"is_active"`
	CreatedAt      int64          `bson:"created_at"`
}

func newPeriodDocument(p *pricing.PricingPeriod) periodDocument {
	return periodDocument{
		ID:             string(p.ID),
		TenantID:       string(p.TenantID),
		PropertyID:     string(p.PropertyID),
		Name:           p.Name,
		StartDate:      daterange.Day(p.StartDate).UnixMilli(),
		EndDate:        daterange.Day(p.EndDate).UnixMilli(),
		Priority:       p.Priority,
		BasePrice:      newMoneyDocument(p.BasePrice),
		WeekendPremium: newOptionalMoney(p.WeekendPremium),
		MinNights:      p.MinNights,
		IsActive:       p.IsActive,
		CreatedAt:      timeToTimestamp(p.CreatedAt),
	}
}

func (d periodDocument) toPeriod() (pricing.PricingPeriod, error) {
	base, err := d.BasePrice.toMoney()
	if err != nil {
		return pricing.PricingPeriod{}, err
	}
	premium, err := d.WeekendPremium.toOptional()
	if err != nil {
		return pricing.PricingPeriod{}, err
	}
	return pricing.PricingPeriod{
		ID:             pricing.PeriodID(d.ID),
		TenantID:       tenant.ID(d.TenantID),
		PropertyID:     property.PropertyID(d.PropertyID),
		Name:           d.Name,
		StartDate:      timestampToTime(d.StartDate),
		EndDate:        timestampToTime(d.EndDate),
		Priority:       d.Priority,
		BasePrice:      base,
		WeekendPremium: premium,
		MinNights:      d.MinNights,
		IsActive:       d.IsActive,
		CreatedAt:      optionalTime(d.CreatedAt),
	}, nil
}

type optionRepository struct {
	col *mongo.Collection
}

// ForProperty loads the tenant's options and keeps the ones offered for the
// property; an empty property list is stored as an empty array, which a
// simple $in filter would miss.
func (r optionRepository) ForProperty(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID) ([]domainoptions.BookingOption, error) {
	cur, err := r.col.Find(ctx, bson.M{"tenant_id": string(tenantID)})
	if err != nil {
		return nil, err
	}
	var docs []optionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	var out []domainoptions.BookingOption
	for _, doc := range docs {
		opt, err := doc.toOption()
		if err != nil {
			return nil, err
		}
		if opt.AppliesTo(propertyID) {
			out = append(out, opt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r optionRepository) Save(ctx context.Context, opt *domainoptions.BookingOption) error {
	if err := opt.Validate(); err != nil {
		return err
	}
	doc := newOptionDocument(opt)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

type optionDocument struct {
	ID            string        `bson:"_id"`
	TenantID      string        `bson:"tenant_id"`
	PropertyIDs   []string      `bson:"property_ids"`
	Name          string        `bson:"name"`
	Category      string        `bson:"category"`
	PricingType   string        `bson:"pricing_type"`
	PricePerUnit  moneyDocument `bson:"price_per_unit"`
	PricingPeriod string        `bson:"pricing_period"`
	IsMandatory   bool          `bson:"is_mandatory"`
	IsActive      bool          `bson:"is_active"`
	MinQuantity   int           `bson:"min_quantity"`
	MaxQuantity   *int          `bson:"max_quantity,omitempty"`
	MinGuests     *int          `bson:"min_guests,omitempty"`
	MaxGuests     *int          `bson:"max_guests,omitempty"`
	MinNights     *int          `bson:"min_nights,omitempty"`
}

func newOptionDocument(o *domainoptions.BookingOption) optionDocument {
	ids := make([]string, 0, len(o.PropertyIDs))
	for _, id := range o.PropertyIDs {
		ids = append(ids, string(id))
	}
	return optionDocument{
		ID:            string(o.ID),
		TenantID:      string(o.TenantID),
		PropertyIDs:   ids,
		Name:          o.Name,
		Category:      o.Category,
		PricingType:   string(o.PricingType),
		PricePerUnit:  newMoneyDocument(o.PricePerUnit),
		PricingPeriod: string(o.PricingPeriod),
		IsMandatory:   o.IsMandatory,
		IsActive:      o.IsActive,
		MinQuantity:   o.MinQuantity,
		MaxQuantity:   o.MaxQuantity,
		MinGuests:     o.MinGuests,
		MaxGuests:     o.MaxGuests,
		MinNights:     o.MinNights,
	}
}

func (d optionDocument) toOption() (domainoptions.BookingOption, error) {
	price, err := d.PricePerUnit.toMoney()
	if err != nil {
		return domainoptions.BookingOption{}, err
	}
	var ids []property.PropertyID
	for _, id := range d.PropertyIDs {
		ids = append(ids, property.PropertyID(id))
	}
	return domainoptions.BookingOption{
		ID:            domainoptions.OptionID(d.ID),
		TenantID:      tenant.ID(d.TenantID),
		PropertyIDs:   ids,
		Name:          d.Name,
		Category:      d.Category,
		PricingType:   domainoptions.PricingType(d.PricingType),
		PricePerUnit:  price,
		PricingPeriod: domainoptions.PricingPeriod(d.PricingPeriod),
		IsMandatory:   d.IsMandatory,
		IsActive:      d.IsActive,
		MinQuantity:   d.MinQuantity,
		MaxQuantity:   d.MaxQuantity,
		MinGuests:     d.MinGuests,
		MaxGuests:     d.MaxGuests,
		MinNights:     d.MinNights,
	}, nil
}
