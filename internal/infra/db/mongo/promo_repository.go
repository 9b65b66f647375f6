package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

type promoRepository struct {
	col *mongo.Collection
}

func (r promoRepository) ByCode(ctx context.Context, tenantID tenant.ID, code string) (*promo.PromoCode, error) {
	return r.findOne(ctx, bson.M{"tenant_id": string(tenantID), "code": promo.NormalizeCode(code)})
}

func (r promoRepository) ByID(ctx context.Context, tenantID tenant.ID, id promo.PromoID) (*promo.PromoCode, error) {
	return r.findOne(ctx, bson.M{"_id": string(id), "tenant_id": string(tenantID)})
}

func (r promoRepository) findOne(ctx context.Context, filter bson.M) (*promo.PromoCode, error) {
	var doc promoDocument
	err := r.col.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, promo.ErrPromoNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toAggregate()
}

func (r promoRepository) Save(ctx context.Context, code *promo.PromoCode) error {
	if err := code.Validate(); err != nil {
		return err
	}
	doc := newPromoDocument(code)
	return upsertOwned(ctx, r.col, doc.ID, doc.TenantID, doc, promo.ErrPromoNotFound)
}

// IncrementUses bumps the counter only while it is below max_uses, so two
// confirmations racing for the last redemption cannot both succeed.
func (r promoRepository) IncrementUses(ctx context.Context, tenantID tenant.ID, id promo.PromoID) error {
	filter := bson.M{
		"_id":       string(id),
		"tenant_id": string(tenantID),
		"$or": bson.A{
			bson.M{"max_uses": nil},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$current_uses", "$max_uses"}}},
		},
	}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"current_uses": 1}})
	if err != nil {
		if isWriteConflict(err) {
			return promo.ErrRedemptionRaceLost
		}
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	if _, err := r.ByID(ctx, tenantID, id); err != nil {
		return err
	}
	return promo.ErrRedemptionRaceLost
}

type promoDocument struct {
	ID             string   `bson:"_id"`
	TenantID       string   `bson:"tenant_id"`
	Code           string   `bson:"code"`
	Description    string   `bson:"description"`
	ValidFrom      int64    `bson:"valid_from"`
	ValidUntil     int64    `bson:"valid_until"`
	MinAmount      *string  `bson:"min_amount,omitempty"`
	MinNights      *int     `bson:"min_nights,omitempty"`
	PropertyIDs    []string `bson:"property_ids"`
	MaxUses        *int     `bson:"max_uses"`
	MaxUsesPerUser *int     `bson:"max_uses_per_user,omitempty"`
	CurrentUses    int      `bson:"current_uses"`
	DiscountType   string   `bson:"discount_type"`
	DiscountValue  string   `bson:"discount_value"`
	IsActive       bool     `bson:"is_active"`
}

func newPromoDocument(p *promo.PromoCode) promoDocument {
	ids := make([]string, 0, len(p.PropertyIDs))
	for _, id := range p.PropertyIDs {
		ids = append(ids, string(id))
	}
	return promoDocument{
		ID:             string(p.ID),
		TenantID:       string(p.TenantID),
		Code:           promo.NormalizeCode(p.Code),
		Description:    p.Description,
		ValidFrom:      timeToTimestamp(p.ValidFrom),
		ValidUntil:     timeToTimestamp(p.ValidUntil),
		MinAmount:      optionalDecimal(p.MinAmount),
		MinNights:      p.MinNights,
		PropertyIDs:    ids,
		MaxUses:        p.MaxUses,
		MaxUsesPerUser: p.MaxUsesPerUser,
		CurrentUses:    p.CurrentUses,
		DiscountType:   string(p.DiscountType),
		DiscountValue:  decimalString(p.DiscountValue),
		IsActive:       p.IsActive,
	}
}

func (d promoDocument) toAggregate() (*promo.PromoCode, error) {
	minAmount, err := parseOptionalDecimal(d.MinAmount)
	if err != nil {
		return nil, err
	}
	value, err := parseDecimal(d.DiscountValue)
	if err != nil {
		return nil, err
	}
	var ids []property.PropertyID
	for _, id := range d.PropertyIDs {
		ids = append(ids, property.PropertyID(id))
	}
	return &promo.PromoCode{
		ID:             promo.PromoID(d.ID),
		TenantID:       tenant.ID(d.TenantID),
		Code:           d.Code,
		Description:    d.Description,
		ValidFrom:      optionalTime(d.ValidFrom),
		ValidUntil:     optionalTime(d.ValidUntil),
		MinAmount:      minAmount,
		MinNights:      d.MinNights,
		PropertyIDs:    ids,
		MaxUses:        d.MaxUses,
		MaxUsesPerUser: d.MaxUsesPerUser,
		CurrentUses:    d.CurrentUses,
		DiscountType:   promo.DiscountType(d.DiscountType),
		DiscountValue:  value,
		IsActive:       d.IsActive,
	}, nil
}
