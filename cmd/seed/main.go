// Command seed loads the sample catalog into MongoDB, and into the search
// index when one is configured.
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"stride_back_end/internal/config"
	"stride_back_end/internal/database"
	"stride_back_end/internal/logger"
	"stride_back_end/internal/models"
	"stride_back_end/internal/repository"
	"stride_back_end/internal/services"

	"github.com/elastic/go-elasticsearch/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

//go:embed shoes.json
var sampleShoes []byte

func main() {
	reset := flag.Bool("reset", true, "delete existing shoes first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log, *reset); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger, reset bool) error {
	shoes, err := loadShoes(sampleShoes)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	defer client.Disconnect(context.Background())
	db := client.Database(cfg.MongoDatabase)

	if err := database.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	if reset {
		res, err := db.Collection(repository.ShoesCollection).DeleteMany(ctx, bson.M{})
		if err != nil {
			return fmt.Errorf("clear shoes: %w", err)
		}
		log.Info("cleared existing shoes", zap.Int64("deleted", res.DeletedCount))
	}

	var index services.ShoeIndex
	if cfg.ElasticURL != "" {
		es, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: []string{cfg.ElasticURL},
			Username:  cfg.ElasticUsername,
			Password:  cfg.ElasticPassword,
		})
		if err != nil {
			return fmt.Errorf("elasticsearch client: %w", err)
		}
		index = services.NewElasticShoeIndex(es, cfg.ElasticIndex)
	}

	repo := repository.NewMongoShoes(db)
	for i := range shoes {
		if err := repo.Create(ctx, &shoes[i]); err != nil {
			return fmt.Errorf("insert %q: %w", shoes[i].Name, err)
		}
		if index != nil {
			if err := index.Index(ctx, &shoes[i]); err != nil {
				log.Warn("shoe not indexed", zap.String("name", shoes[i].Name), zap.Error(err))
			}
		}
	}
	log.Info("inserted shoes", zap.Int("count", len(shoes)))
	return nil
}

// loadShoes decodes the sample catalog. Brands the store does not carry
// are filed under "other".
func loadShoes(data []byte) ([]models.Shoe, error) {
	var shoes []models.Shoe
	if err := json.Unmarshal(data, &shoes); err != nil {
		return nil, fmt.Errorf("decode sample shoes: %w", err)
	}
	for i := range shoes {
		s := &shoes[i]
		s.Normalize()
		if !models.ValidBrand(s.Brand) {
			s.Brand = "other"
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("sample shoe %q: %w", s.Name, err)
		}
	}
	return shoes, nil
}
