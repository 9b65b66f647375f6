package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

type blockRepository struct {
	col *mongo.Collection
}

func (r blockRepository) ByID(ctx context.Context, tenantID tenant.ID, id availability.BlockID) (*availability.BlockedPeriod, error) {
	var doc blockDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id), "tenant_id": string(tenantID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, availability.ErrBlockNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r blockRepository) ListOverlapping(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID, dr daterange.DateRange) ([]*availability.BlockedPeriod, error) {
	return r.find(ctx, bson.M{
		"tenant_id":       string(tenantID),
		"property_id":     string(propertyID),
		"range.check_in":  bson.M{"$lt": dr.CheckOut.UnixMilli()},
		"range.check_out": bson.M{"$gt": dr.CheckIn.UnixMilli()},
	})
}

func (r blockRepository) ByFeed(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID, feedURL string) ([]*availability.BlockedPeriod, error) {
	return r.find(ctx, bson.M{
		"tenant_id":   string(tenantID),
		"property_id": string(propertyID),
		"source":      string(availability.SourceICalImport),
		"feed_url":    feedURL,
	})
}

func (r blockRepository) find(ctx context.Context, filter bson.M) ([]*availability.BlockedPeriod, error) {
	sort := bson.D{{Key: "range.check_in", Value: 1}, {Key: "_id", Value: 1}}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	var docs []blockDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*availability.BlockedPeriod, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func (r blockRepository) Save(ctx context.Context, block *availability.BlockedPeriod) error {
	doc := newBlockDocument(block)
	return upsertOwned(ctx, r.col, doc.ID, doc.TenantID, doc, availability.ErrBlockNotFound)
}

func (r blockRepository) Delete(ctx context.Context, tenantID tenant.ID, id availability.BlockID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id), "tenant_id": string(tenantID)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return availability.ErrBlockNotFound
	}
	return nil
}

type blockDocument struct {
	ID          string        `bson:"_id"`
	TenantID    string        `bson:"tenant_id"`
	PropertyID  string        `bson:"property_id"`
	Range       rangeDocument `bson:"range"`
	Reason      string        `bson:"reason"`
	Source      string        `bson:"source"`
	ExternalUID string        `bson:"external_uid,omitempty"`
	FeedURL     string        `bson:"feed_url,omitempty"`
	CreatedAt   int64         `bson:"created_at"`
	UpdatedAt   int64         `bson:"updated_at"`
}

func newBlockDocument(b *availability.BlockedPeriod) blockDocument {
	return blockDocument{
		ID:          string(b.ID),
		TenantID:    string(b.TenantID),
		PropertyID:  string(b.PropertyID),
		Range:       newRangeDocument(b.Range),
		Reason:      b.Reason,
		Source:      string(b.Source),
		ExternalUID: b.ExternalUID,
		FeedURL:     b.FeedURL,
		CreatedAt:   timeToTimestamp(b.CreatedAt),
		UpdatedAt:   timeToTimestamp(b.UpdatedAt),
	}
}

func (d blockDocument) toAggregate() *availability.BlockedPeriod {
	return &availability.BlockedPeriod{
		ID:          availability.BlockID(d.ID),
		TenantID:    tenant.ID(d.TenantID),
		PropertyID:  property.PropertyID(d.PropertyID),
		Range:       d.Range.toRange(),
		Reason:      d.Reason,
		Source:      availability.Source(d.Source),
		ExternalUID: d.ExternalUID,
		FeedURL:     d.FeedURL,
		CreatedAt:   optionalTime(d.CreatedAt),
		UpdatedAt:   optionalTime(d.UpdatedAt),
	}
}

type subscriptionRepository struct {
	col *mongo.Collection
}

func (r subscriptionRepository) ByID(ctx context.Context, tenantID tenant.ID, id calendarsync.SubscriptionID) (*calendarsync.Subscription, error) {
	var doc subscriptionDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id), "tenant_id": string(tenantID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, calendarsync.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r subscriptionRepository) ListByProperty(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID) ([]*calendarsync.Subscription, error) {
	return r.find(ctx, bson.M{"tenant_id": string(tenantID), "property_id": string(propertyID)})
}

func (r subscriptionRepository) ListEnabled(ctx context.Context) ([]*calendarsync.Subscription, error) {
	return r.find(ctx, bson.M{"enabled": true})
}

func (r subscriptionRepository) find(ctx context.Context, filter bson.M) ([]*calendarsync.Subscription, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []subscriptionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*calendarsync.Subscription, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func (r subscriptionRepository) Save(ctx context.Context, sub *calendarsync.Subscription) error {
	doc := newSubscriptionDocument(sub)
	return upsertOwned(ctx, r.col, doc.ID, doc.TenantID, doc, calendarsync.ErrSubscriptionNotFound)
}

func (r subscriptionRepository) Delete(ctx context.Context, tenantID tenant.ID, id calendarsync.SubscriptionID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id), "tenant_id": string(tenantID)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return calendarsync.ErrSubscriptionNotFound
	}
	return nil
}

type subscriptionDocument struct {
	ID         string `bson:"_id"`
	TenantID   string `bson:"tenant_id"`
	PropertyID string `bson:"property_id"`
	Name       string `bson:"name"`
	URL        string `bson:"url"`
	Enabled    bool   `bson:"enabled"`
	LastSyncAt int64  `bson:"last_sync_at"`
	LastError  string `bson:"last_error"`
	CreatedAt  int64  `bson:"created_at"`
	UpdatedAt  int64  `bson:"updated_at"`
}

func newSubscriptionDocument(s *calendarsync.Subscription) subscriptionDocument {
	return subscriptionDocument{
		ID:         string(s.ID),
		TenantID:   string(s.TenantID),
		PropertyID: string(s.PropertyID),
		Name:       s.Name,
		URL:        s.URL,
		Enabled:    s.Enabled,
		LastSyncAt: timeToTimestamp(s.LastSyncAt),
		LastError:  s.LastError,
		CreatedAt:  timeToTimestamp(s.CreatedAt),
		UpdatedAt:  timeToTimestamp(s.UpdatedAt),
	}
}

func (d subscriptionDocument) toAggregate() *calendarsync.Subscription {
	return &calendarsync.Subscription{
		ID:         calendarsync.SubscriptionID(d.ID),
		TenantID:   tenant.ID(d.TenantID),
		PropertyID: property.PropertyID(d.PropertyID),
		Name:       d.Name,
		URL:        d.URL,
		Enabled:    d.Enabled,
		LastSyncAt: optionalTime(d.LastSyncAt),
		LastError:  d.LastError,
		CreatedAt:  optionalTime(d.CreatedAt),
		UpdatedAt:  optionalTime(d.UpdatedAt),
	}
}
