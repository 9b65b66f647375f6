package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

var occupyingStatuses = bson.A{
	string(domainbooking.StatusPending),
	string(domainbooking.StatusConfirmed),
	string(domainbooking.StatusCompleted),
}

var redeemedStatuses = bson.A{
	string(domainbooking.StatusConfirmed),
	string(domainbooking.StatusCompleted),
	string(domainbooking.StatusNoShow),
}

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(colBookings)}
}

func (r *BookingRepository) ByID(ctx context.Context, tenantID tenant.ID, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id), "tenant_id": string(tenantID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domainbooking.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toAggregate()
}

// Save matches on the version the caller loaded. Only a new booking may
// upsert; a stale new booking collides on _id.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "tenant_id": doc.TenantID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(b.Version == 0)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) || isWriteConflict(err) {
			return domainbooking.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) Overlapping(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID, dr daterange.DateRange) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{
		"tenant_id":       string(tenantID),
		"property_id":     string(propertyID),
		"status":          bson.M{"$in": occupyingStatuses},
		"range.check_in":  bson.M{"$lt": dr.CheckOut.UnixMilli()},
		"range.check_out": bson.M{"$gt": dr.CheckIn.UnixMilli()},
	})
}

func (r *BookingRepository) ListByProperty(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"tenant_id": string(tenantID), "property_id": string(propertyID)})
}

func (r *BookingRepository) CountByUserAndPromo(ctx context.Context, tenantID tenant.ID, userID string, id promo.PromoID) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{
		"tenant_id":     string(tenantID),
		"guest_id":      userID,
		"promo_code_id": string(id),
		"status":        bson.M{"$ne": string(domainbooking.StatusCancelled)},
	})
	return int(n), err
}

func (r *BookingRepository) CountRedemptions(ctx context.Context, tenantID tenant.ID, userID string, id promo.PromoID, exclude domainbooking.BookingID) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{
		"_id":           bson.M{"$ne": string(exclude)},
		"tenant_id":     string(tenantID),
		"guest_id":      userID,
		"promo_code_id": string(id),
		"status":        bson.M{"$in": redeemedStatuses},
	})
	return int(n), err
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	sort := bson.D{{Key: "range.check_in", Value: 1}, {Key: "_id", Value: 1}}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, doc := range docs {
		b, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

type guestsDocument struct {
	Adults   int `bson:"adults"`
	Children int `bson:"children"`
	Infants  int `bson:"infants"`
	Pets     int `bson:"pets"`
}

type priceDocument struct {
	Accommodation moneyDocument `bson:"accommodation"`
	Discount      moneyDocument `bson:"discount"`
	TouristTax    moneyDocument `bson:"tourist_tax"`
	Options       moneyDocument `bson:"options"`
	ServiceFee    moneyDocument `bson:"service_fee"`
	CleaningFee   moneyDocument `bson:"cleaning_fee"`
	Total         moneyDocument `bson:"total"`
	DepositDue    moneyDocument `bson:"deposit_due"`
	BalanceDue    moneyDocument `bson:"balance_due"`
}

type policyDocument struct {
	PolicyID                  string `bson:"policy_id"`
	FreeCancellationUntil     int64  `bson:"free_cancellation_until"`
	PreCheckInPenaltyPercent  int    `bson:"pre_check_in_penalty_percent"`
	PostCheckInPenaltyPercent int    `bson:"post_check_in_penalty_percent"`
}

type bookingDocument struct {
	ID          string         `bson:"_id"`
	TenantID    string         `bson:"tenant_id"`
	PropertyID  string         `bson:"property_id"`
	Reference   string         `bson:"reference"`
	GuestID     string         `bson:"guest_id"`
	PromoCodeID string         `bson:"promo_code_id"`
	Range       rangeDocument  `bson:"range"`
	Guests      guestsDocument `bson:"guests"`
	Price       priceDocument  `bson:"price"`
	Status      string         `bson:"status"`
	PaymentRef  string         `bson:"payment_ref"`
	ExternalUID string         `bson:"external_uid"`
	Policy      policyDocument `bson:"policy"`
	CreatedAt   int64          `bson:"created_at"`
	UpdatedAt   int64          `bson:"updated_at"`
	Version     int64          `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:          string(b.ID),
		TenantID:    string(b.TenantID),
		PropertyID:  string(b.PropertyID),
		Reference:   b.Reference,
		GuestID:     b.GuestID,
		PromoCodeID: string(b.PromoCodeID),
		Range:       newRangeDocument(b.Range),
		Guests:      guestsDocument{Adults: b.Guests.Adults, Children: b.Guests.Children, Infants: b.Guests.Infants, Pets: b.Guests.Pets},
		Price: priceDocument{
			Accommodation: newMoneyDocument(b.Price.Accommodation),
			Discount:      newMoneyDocument(b.Price.Discount),
			TouristTax:    newMoneyDocument(b.Price.TouristTax),
			Options:       newMoneyDocument(b.Price.Options),
			ServiceFee:    newMoneyDocument(b.Price.ServiceFee),
			CleaningFee:   newMoneyDocument(b.Price.CleaningFee),
			Total:         newMoneyDocument(b.Price.Total),
			DepositDue:    newMoneyDocument(b.Price.DepositDue),
			BalanceDue:    newMoneyDocument(b.Price.BalanceDue),
		},
		Status:      string(b.Status),
		PaymentRef:  b.PaymentRef,
		ExternalUID: b.ExternalUID,
		Policy: policyDocument{
			PolicyID:                  b.Policy.PolicyID,
			FreeCancellationUntil:     timeToTimestamp(b.Policy.FreeCancellationUntil),
			PreCheckInPenaltyPercent:  b.Policy.PreCheckInPenaltyPercent,
			PostCheckInPenaltyPercent: b.Policy.PostCheckInPenaltyPercent,
		},
		CreatedAt: timeToTimestamp(b.CreatedAt),
		UpdatedAt: timeToTimestamp(b.UpdatedAt),
		Version:   b.Version,
	}
}

func (d bookingDocument) toAggregate() (*domainbooking.Booking, error) {
	var price domainbooking.PriceSnapshot
	fields := []struct {
		src moneyDocument
		dst *money.Money
	}{
		{d.Price.Accommodation, &price.Accommodation},
		{d.Price.Discount, &price.Discount},
		{d.Price.TouristTax, &price.TouristTax},
		{d.Price.Options, &price.Options},
		{d.Price.ServiceFee, &price.ServiceFee},
		{d.Price.CleaningFee, &price.CleaningFee},
		{d.Price.Total, &price.Total},
		{d.Price.DepositDue, &price.DepositDue},
		{d.Price.BalanceDue, &price.BalanceDue},
	}
	for _, f := range fields {
		m, err := f.src.toMoney()
		if err != nil {
			return nil, err
		}
		*f.dst = m
	}
	return &domainbooking.Booking{
		ID:          domainbooking.BookingID(d.ID),
		TenantID:    tenant.ID(d.TenantID),
		PropertyID:  property.PropertyID(d.PropertyID),
		Reference:   d.Reference,
		Range:       d.Range.toRange(),
		Status:      domainbooking.Status(d.Status),
		Guests:      domainbooking.Guests{Adults: d.Guests.Adults, Children: d.Guests.Children, Infants: d.Guests.Infants, Pets: d.Guests.Pets},
		GuestID:     d.GuestID,
		PromoCodeID: promo.PromoID(d.PromoCodeID),
		Price:       price,
		PaymentRef:  d.PaymentRef,
		ExternalUID: d.ExternalUID,
		Policy: domainbooking.CancellationPolicySnapshot{
			PolicyID:                  d.Policy.PolicyID,
			FreeCancellationUntil:     optionalTime(d.Policy.FreeCancellationUntil),
			PreCheckInPenaltyPercent:  d.Policy.PreCheckInPenaltyPercent,
			PostCheckInPenaltyPercent: d.Policy.PostCheckInPenaltyPercent,
		},
		CreatedAt: optionalTime(d.CreatedAt),
		UpdatedAt: optionalTime(d.UpdatedAt),
		Version:   d.Version,
	}, nil
}
