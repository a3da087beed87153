package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shanehull/cryptobriefs/internal/config"
	"github.com/shanehull/cryptobriefs/internal/types"
)

// MongoStore keeps one document per link in a single collection.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

func OpenMongo(ctx context.Context, cfg config.StoreConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, config.ErrMissingStoreURI
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI).SetTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := &MongoStore{
		client:  client,
		coll:    client.Database(cfg.Database).Collection(cfg.Collection),
		timeout: timeout,
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "link", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("link_unique"),
		},
		{
			Keys:    bson.D{{Key: "published", Value: -1}},
			Options: options.Index().SetName("published_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create mongo indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) FindSentiments(ctx context.Context, links []string) (map[string]types.Sentiment, error) {
	found := make(map[string]types.Sentiment, len(links))
	if len(links) == 0 {
		return found, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"link": 1, "sentiment": 1, "_id": 0})
	cursor, err := s.coll.Find(ctx, bson.M{"link": bson.M{"$in": links}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to look up links: %w", err)
	}

	var rows []struct {
		Link      string          `bson:"link"`
		Sentiment types.Sentiment `bson:"sentiment"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode lookup: %w", err)
	}

	for _, r := range rows {
		found[r.Link] = r.Sentiment
	}
	return found, nil
}

func (s *MongoStore) Upsert(ctx context.Context, rec types.NewsRecord) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"link": rec.Link},
		mongoUpsertUpdate(rec, time.Now().UTC()),
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert %s: %w", rec.Link, err)
	}

	return res.UpsertedCount > 0, nil
}

func (s *MongoStore) List(ctx context.Context, q Query) ([]types.NewsRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "published", Value: -1}}).
		SetLimit(int64(q.limit()))

	cursor, err := s.coll.Find(ctx, mongoListFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list news: %w", err)
	}

	records := []types.NewsRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode news: %w", err)
	}
	return records, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// mongoUpsertUpdate builds the update document. Only sentiment changes once a
// record exists.
func mongoUpsertUpdate(rec types.NewsRecord, now time.Time) bson.M {
	coins := rec.Coins
	if coins == nil {
		coins = []string{}
	}

	return bson.M{
		"$setOnInsert": bson.M{
			"title":     rec.Title,
			"link":      rec.Link,
			"image":     rec.Image,
			"published": rec.Published,
			"coins":     coins,
			"createdAt": now,
		},
		"$set": bson.M{
			"sentiment": rec.Sentiment,
			"updatedAt": now,
		},
	}
}

func mongoListFilter(q Query) bson.M {
	filter := bson.M{}
	if q.Coin != "" {
		filter["coins"] = q.Coin
	}
	if q.Sentiment != "" {
		filter["sentiment"] = q.Sentiment
	}
	return filter
}
