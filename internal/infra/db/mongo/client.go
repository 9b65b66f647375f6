package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colProperties    = "properties"
	colPeriods       = "pricing_periods"
	colOptions       = "booking_options"
	colPromos        = "promo_codes"
	colPayments      = "payment_configurations"
	colBookings      = "agg_booking"
	colBlocks        = "blocked_periods"
	colSubscriptions = "calendar_subscriptions"
)

type Client struct {
	DB *mongo.Database
}

func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the lookup and uniqueness indexes the repositories rely on.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colPeriods: {{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "property_id", Value: 1}, {Key: "start_date", Value: 1}}}},
		colOptions: {{Keys: bson.D{{Key: "tenant_id", Value: 1}}}},
		colPromos: {{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		colBookings: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "property_id", Value: 1}, {Key: "range.check_in", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "guest_id", Value: 1}, {Key: "promo_code_id", Value: 1}}},
		},
		colBlocks: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "property_id", Value: 1}, {Key: "range.check_in", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "property_id", Value: 1}, {Key: "feed_url", Value: 1}}},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "property_id", Value: 1}}},
			{Keys: bson.D{{Key: "enabled", Value: 1}}},
		},
	}
	for col, models := range indexes {
		if _, err := c.DB.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
