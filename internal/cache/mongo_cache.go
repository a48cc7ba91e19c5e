package cache

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ResponseCacheCollection holds cached catalog responses
const ResponseCacheCollection = "response_cache"

// MongoCache persists entries in MongoDB. Expiry is enforced by a TTL index
// on expires_at and re-checked on read, since the TTL monitor runs lazily.
type MongoCache struct {
	collection *mongo.Collection
}

type mongoEntry struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
	HitCount  int64     `bson:"hit_count"`
}

// noExpiry stands in for entries stored without an expiration
var noExpiry = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

// NewMongoCache returns a cache over the given collection and ensures its indexes
func NewMongoCache(ctx context.Context, collection *mongo.Collection) (*MongoCache, error) {
	mc := &MongoCache{collection: collection}
	if err := mc.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return mc, nil
}

func (mc *MongoCache) ensureIndexes(ctx context.Context) error {
	_, err := mc.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

func (mc *MongoCache) fail(op, key string, err error) error {
	return &CacheError{Layer: "mongodb", Operation: op, Key: key, Err: err}
}

// Get retrieves an unexpired entry and bumps its hit count
func (mc *MongoCache) Get(ctx context.Context, key string) ([]byte, error) {
	filter := bson.M{
		"_id":        key,
		"expires_at": bson.M{"$gt": time.Now()},
	}
	update := bson.M{"$inc": bson.M{"hit_count": 1}}

	var entry mongoEntry
	err := mc.collection.FindOneAndUpdate(ctx, filter, update).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, mc.fail("get", key, err)
	}
	return entry.Value, nil
}

// Set upserts an entry
func (mc *MongoCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	now := time.Now()
	expiresAt := noExpiry
	if expiration > 0 {
		expiresAt = now.Add(expiration)
	}

	update := bson.M{
		"$set": bson.M{
			"value":      value,
			"expires_at": expiresAt,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
			"hit_count":  0,
		},
	}

	_, err := mc.collection.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return mc.fail("set", key, err)
	}
	return nil
}

// Delete removes an entry
func (mc *MongoCache) Delete(ctx context.Context, key string) error {
	if _, err := mc.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return mc.fail("delete", key, err)
	}
	return nil
}

// Exists checks for an unexpired entry
func (mc *MongoCache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := mc.collection.CountDocuments(ctx, bson.M{
		"_id":        key,
		"expires_at": bson.M{"$gt": time.Now()},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, mc.fail("exists", key, err)
	}
	return count > 0, nil
}

// TTL returns the time left on an entry, zero when it never expires or is absent
func (mc *MongoCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	var entry mongoEntry
	opts := options.FindOne().SetProjection(bson.M{"expires_at": 1})
	err := mc.collection.FindOne(ctx, bson.M{"_id": key}, opts).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, mc.fail("ttl", key, err)
	}
	if !entry.ExpiresAt.Before(noExpiry) {
		return 0, nil
	}
	if left := time.Until(entry.ExpiresAt); left > 0 {
		return left, nil
	}
	return 0, nil
}

// CleanupExpired removes expired entries (backup for the TTL index)
func (mc *MongoCache) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := mc.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now()}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// Close is a no-op; the client is owned by models.Database
func (mc *MongoCache) Close() error {
	return nil
}

// Health pings the server behind the collection
func (mc *MongoCache) Health(ctx context.Context) error {
	return mc.collection.Database().Client().Ping(ctx, nil)
}

// KeyStats is the hit count of one cached key
type KeyStats struct {
	Key       string    `json:"key" bson:"_id"`
	Hits      int64     `json:"hits" bson:"hit_count"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

// Stats summarises the collection for the admin endpoint
type Stats struct {
	Entries     int64      `json:"entries"`
	Expired     int64      `json:"expired"`
	DataSizeMB  float64    `json:"data_size_mb"`
	HottestKeys []KeyStats `json:"hottest_keys"`
}

// Stats counts entries and lists the most read keys
func (mc *MongoCache) Stats(ctx context.Context, top int64) (*Stats, error) {
	total, err := mc.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, mc.fail("stats", "", err)
	}
	expired, err := mc.collection.CountDocuments(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now()}})
	if err != nil {
		return nil, mc.fail("stats", "", err)
	}
	stats := &Stats{Entries: total, Expired: expired}

	var collStats bson.M
	err = mc.collection.Database().RunCommand(ctx, bson.D{{Key: "collStats", Value: mc.collection.Name()}}).Decode(&collStats)
	if err == nil {
		switch size := collStats["size"].(type) {
		case int32:
			stats.DataSizeMB = float64(size) / 1024 / 1024
		case int64:
			stats.DataSizeMB = float64(size) / 1024 / 1024
		case float64:
			stats.DataSizeMB = size / 1024 / 1024
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "hit_count", Value: -1}}).
		SetLimit(top).
		SetProjection(bson.M{"hit_count": 1, "expires_at": 1})
	cursor, err := mc.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, mc.fail("stats", "", err)
	}
	if err := cursor.All(ctx, &stats.HottestKeys); err != nil {
		return nil, mc.fail("stats", "", err)
	}
	return stats, nil
}
