package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stride_back_end/internal/config"
	"stride_back_end/internal/repository"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Clients bundles every backing store the server talks to. MinIO and
// Elastic are nil when they are not configured.
type Clients struct {
	Mongo   *mongo.Client
	DB      *mongo.Database
	Redis   *redis.Client
	MinIO   *minio.Client
	Elastic *elasticsearch.Client
}

// Connect opens all connections in parallel and fails if any required one
// cannot be reached.
func Connect(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Clients, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	c := &Clients{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		client, err := mongo.Connect(gctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("mongo connect: %w", err)
		}
		if err := client.Ping(gctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return fmt.Errorf("mongo ping: %w", err)
		}
		c.Mongo = client
		c.DB = client.Database(cfg.MongoDatabase)
		log.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))
		return nil
	})

	g.Go(func() error {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(gctx).Err(); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("redis ping: %w", err)
		}
		c.Redis = rdb
		log.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
		return nil
	})

	if cfg.Storage.Driver == "minio" {
		g.Go(func() error {
			client, err := connectMinIO(gctx, cfg.Storage)
			if err != nil {
				return err
			}
			c.MinIO = client
			log.Info("connected to MinIO", zap.String("endpoint", cfg.Storage.MinIOEndpoint), zap.String("bucket", cfg.Storage.MinIOBucket))
			return nil
		})
	}

	if cfg.ElasticURL != "" {
		g.Go(func() error {
			client, err := elasticsearch.NewClient(elasticsearch.Config{
				Addresses: []string{cfg.ElasticURL},
				Username:  cfg.ElasticUsername,
				Password:  cfg.ElasticPassword,
			})
			if err != nil {
				return fmt.Errorf("elasticsearch client: %w", err)
			}
			res, err := client.Info(client.Info.WithContext(gctx))
			if err != nil {
				// Search falls back to MongoDB, so a missing cluster is not fatal.
				log.Warn("elasticsearch unreachable, search served by MongoDB", zap.Error(err))
				return nil
			}
			res.Body.Close()
			c.Elastic = client
			log.Info("connected to Elasticsearch", zap.String("url", cfg.ElasticURL))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.Close(context.Background())
		return nil, err
	}

	if err := EnsureIndexes(ctx, c.DB); err != nil {
		c.Close(context.Background())
		return nil, err
	}
	return c, nil
}

func connectMinIO(ctx context.Context, s config.StorageConfig) (*minio.Client, error) {
	client, err := minio.New(s.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s.MinIOAccessKey, s.MinIOSecretKey, ""),
		Secure: s.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, s.MinIOBucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, s.MinIOBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}
	return client, nil
}

// EnsureIndexes creates the indexes the queries rely on. Creating an
// existing index is a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		repository.UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		repository.ShoesCollection: {
			{Keys: bson.D{{Key: "brand", Value: 1}, {Key: "price", Value: 1}}},
			{Keys: bson.D{{Key: "featured", Value: -1}, {Key: "createdAt", Value: -1}}},
		},
		repository.OrdersCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "paymentIntentId", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
	}
	for col, models := range specs {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", col, err)
		}
	}
	return nil
}

// Close releases every open client.
func (c *Clients) Close(ctx context.Context) error {
	var errs []error
	if c.Mongo != nil {
		errs = append(errs, c.Mongo.Disconnect(ctx))
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	return errors.Join(errs...)
}
