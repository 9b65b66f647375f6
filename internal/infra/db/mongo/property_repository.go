package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

type propertyRepository struct {
	col *mongo.Collection
}

func (r propertyRepository) ByID(ctx context.Context, tenantID tenant.ID, id property.PropertyID) (*property.Property, error) {
	var doc propertyDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id), "tenant_id": string(tenantID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, property.ErrPropertyNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toAggregate()
}

func (r propertyRepository) Save(ctx context.Context, p *property.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	doc := newPropertyDocument(p)
	return upsertOwned(ctx, r.col, doc.ID, doc.TenantID, doc, property.ErrPropertyNotFound)
}

// upsertOwned replaces the document only when it belongs to tenantID. An id
// held by another tenant collides on _id and is reported as notFound.
func upsertOwned(ctx context.Context, col *mongo.Collection, id, tenantID string, doc any, notFound error) error {
	filter := bson.M{"_id": id, "tenant_id": tenantID}
	_, err := col.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return notFound
	}
	return err
}

type propertyDocument struct {
	ID              string               `bson:"_id"`
	TenantID        string               `bson:"tenant_id"`
	Name            string               `bson:"name"`
	PropertyType    string               `bson:"property_type"`
	BasePrice       moneyDocument        `bson:"base_price"`
	WeekendPremium  moneyDocument        `bson:"weekend_premium"`
	CleaningFee     moneyDocument        `bson:"cleaning_fee"`
	SecurityDeposit moneyDocument        `bson:"security_deposit"`
	MinNights       int                  `bson:"min_nights"`
	MaxGuests       int                  `bson:"max_guests"`
	Currency        string               `bson:"currency"`
	FeatureVersion  int                  `bson:"feature_version"`
	Features        map[string]bool      `bson:"features"`
	Cancellation    cancellationDocument `bson:"cancellation"`
	CreatedAt       int64                `bson:"created_at"`
	UpdatedAt       int64                `bson:"updated_at"`
}

type cancellationDocument struct {
	PolicyID    string `bson:"policy_id"`
	FreeDays    int    `bson:"free_cancellation_days"`
	PrePercent  int    `bson:"pre_check_in_penalty_percent"`
	PostPercent int    `bson:"post_check_in_penalty_percent"`
}

func newPropertyDocument(p *property.Property) propertyDocument {
	flags := make(map[string]bool, len(p.Features.Flags))
	for k, v := range p.Features.Flags {
		flags[string(k)] = v
	}
	return propertyDocument{
		ID:              string(p.ID),
		TenantID:        string(p.TenantID),
		Name:            p.Name,
		PropertyType:    p.PropertyType,
		BasePrice:       newMoneyDocument(p.BasePrice),
		WeekendPremium:  newMoneyDocument(p.WeekendPremium),
		CleaningFee:     newMoneyDocument(p.CleaningFee),
		SecurityDeposit: newMoneyDocument(p.SecurityDeposit),
		MinNights:       p.MinNights,
		MaxGuests:       p.MaxGuests,
		Currency:        p.Currency,
		FeatureVersion:  p.Features.Version,
		Features:        flags,
		Cancellation: cancellationDocument{
			PolicyID:    p.Cancellation.PolicyID,
			FreeDays:    p.Cancellation.FreeCancellationDays,
			PrePercent:  p.Cancellation.PreCheckInPenaltyPercent,
			PostPercent: p.Cancellation.PostCheckInPenaltyPercent,
		},
		CreatedAt: timeToTimestamp(p.CreatedAt),
		UpdatedAt: timeToTimestamp(p.UpdatedAt),
	}
}

func (d propertyDocument) toAggregate() (*property.Property, error) {
	p := &property.Property{
		ID:           property.PropertyID(d.ID),
		TenantID:     tenant.ID(d.TenantID),
		Name:         d.Name,
		PropertyType: d.PropertyType,
		MinNights:    d.MinNights,
		MaxGuests:    d.MaxGuests,
		Currency:     d.Currency,
		Features:     property.Features{Version: d.FeatureVersion, Flags: map[property.Feature]bool{}},
		Cancellation: property.CancellationPolicy{
			PolicyID:                  d.Cancellation.PolicyID,
			FreeCancellationDays:      d.Cancellation.FreeDays,
			PreCheckInPenaltyPercent:  d.Cancellation.PrePercent,
			PostCheckInPenaltyPercent: d.Cancellation.PostPercent,
		},
		CreatedAt: optionalTime(d.CreatedAt),
		UpdatedAt: optionalTime(d.UpdatedAt),
	}
	for k, v := range d.Features {
		p.Features.Flags[property.Feature(k)] = v
	}
	var err error
	if p.BasePrice, err = d.BasePrice.toMoney(); err != nil {
		return nil, err
	}
	if p.WeekendPremium, err = d.WeekendPremium.toMoney(); err != nil {
		return nil, err
	}
	if p.CleaningFee, err = d.CleaningFee.toMoney(); err != nil {
		return nil, err
	}
	if p.SecurityDeposit, err = d.SecurityDeposit.toMoney(); err != nil {
		return nil, err
	}
	return p, nil
}
