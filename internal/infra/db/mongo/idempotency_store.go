package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Eliezelg/villasaas-sub004/internal/app/middleware"
)

const colIdempotency = "command_results"

// IdempotencyStore keeps successful command results for replay. A TTL index
// on stored_at expires them.
type IdempotencyStore struct {
	col *mongo.Collection
}

func NewIdempotencyStore(ctx context.Context, db *mongo.Database, ttl time.Duration) (*IdempotencyStore, error) {
	col := db.Collection(colIdempotency)
	expiry := mongo.IndexModel{
		Keys:    bson.D{{Key: "stored_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(ttl / time.Second)),
	}
	if _, err := col.Indexes().CreateOne(ctx, expiry); err != nil {
		return nil, err
	}
	return &IdempotencyStore{col: col}, nil
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var doc commandResultDocument
	err := s.col.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return middleware.IdempotencyRecord{}, false, nil
	case err != nil:
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{Key: doc.Key, Command: doc.Command, Payload: doc.Payload, StoredAt: doc.StoredAt}, true, nil
}

// Save keeps the first result stored for a key.
func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	doc := commandResultDocument{Key: rec.Key, Command: rec.Command, Payload: rec.Payload, StoredAt: rec.StoredAt}
	_, err := s.col.UpdateByID(ctx, rec.Key, bson.M{"$setOnInsert": doc}, options.Update().SetUpsert(true))
	return err
}

type commandResultDocument struct {
	Key      string    `bson:"_id"`
	Command  string    `bson:"command"`
	Payload  []byte    `bson:"payload,omitempty"`
	StoredAt time.Time `bson:"stored_at"`
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
