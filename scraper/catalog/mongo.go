package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/zongseung/energyrag/config"
	"github.com/zongseung/energyrag/log"
	"github.com/zongseung/energyrag/scraper"
)

// Mongo stores metadata in a MongoDB collection, one document per
// artifact keyed on pdf_url.
type Mongo struct {
	collection *mongo.Collection
	logger     log.Logger
}

var _ Catalog = (*Mongo)(nil)

// NewMongo connects to MongoDB and ensures the unique index on pdf_url.
func NewMongo(ctx context.Context, cfg config.MongoConfig, logger log.Logger) (*Mongo, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("MONGO_URI is not set")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	coll := client.Database(cfg.Database).Collection(cfg.Collection)

	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pdf_url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("mongo index: %w", err)
	}
	return &Mongo{collection: coll, logger: logger}, nil
}

// Insert writes the record unless its pdf_url already exists.
func (m *Mongo) Insert(ctx context.Context, meta scraper.Metadata) error {
	err := m.collection.FindOne(ctx, bson.D{{Key: "pdf_url", Value: meta.PDFURL}}).Err()
	if err == nil {
		m.logger.Info("[CATALOG] already recorded: %s", meta.Title)
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("catalog lookup: %w", err)
	}

	if _, err := m.collection.InsertOne(ctx, meta); err != nil {
		// A concurrent insert of the same URL trips the unique index;
		// that still satisfies idempotency.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("catalog insert: %w", err)
	}
	m.logger.Info("[CATALOG] recorded: %s", meta.Title)
	return nil
}
