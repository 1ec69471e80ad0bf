package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// MongoConfig MongoDB 后端配置
type MongoConfig struct {
	URI        string `yaml:"uri" json:"uri"`
	Database   string `yaml:"database" json:"database"`
	Collection string `yaml:"collection" json:"collection"`
}

// mongoEntry 缓存文档。ExpiresAt 为空时不会被 TTL 索引回收。
type mongoEntry struct {
	Key       string     `bson:"_id"`
	Value     string     `bson:"value"`
	ExpiresAt *time.Time `bson:"expiresAt,omitempty"`
}

// MongoAdapter MongoDB 缓存后端，expiresAt 上的 TTL 索引负责回收过期文档
type MongoAdapter struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *zap.Logger
	now    func() time.Time
}

// NewMongoAdapter 连接 MongoDB 并确保 TTL 索引存在
func NewMongoAdapter(ctx context.Context, cfg MongoConfig, logger *zap.Logger) (*MongoAdapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Database == "" {
		cfg.Database = "agentcore"
	}
	if cfg.Collection == "" {
		cfg.Collection = "cache"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create ttl index: %w", err)
	}

	logger.Info("mongo cache connected",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection))

	return &MongoAdapter{
		client: client,
		coll:   coll,
		logger: logger.With(zap.String("component", "mongo_cache")),
		now:    time.Now,
	}, nil
}

// newMongoEntry 构造待写入的文档
func newMongoEntry(key, value string, ttl time.Duration, now time.Time) mongoEntry {
	e := mongoEntry{Key: key, Value: value}
	if ttl > 0 {
		exp := now.Add(ttl).UTC()
		e.ExpiresAt = &exp
	}
	return e
}

func (a *MongoAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	var e mongoEntry
	err := a.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (a *MongoAdapter) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	e := newMongoEntry(key, value, ttl, a.now())
	_, err := a.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		e,
		options.Replace().SetUpsert(true))
	return err
}

func (a *MongoAdapter) Delete(ctx context.Context, key string) error {
	_, err := a.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}})
	return err
}

func (a *MongoAdapter) Name() string { return "mongo" }

func (a *MongoAdapter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.client.Disconnect(ctx)
}
