package mongodb

import (
	"context"
	"fmt"

	"verified-export/internal/export/domain/model"
	"verified-export/internal/export/domain/repository"
	"verified-export/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// verifiedFilter selects the records that are exported.
var verifiedFilter = bson.D{{Key: model.FieldVerified, Value: true}}

// MongoRecordSource implements repository.RecordSource on a MongoDB database
type MongoRecordSource struct {
	db     *mongo.Database
	logger logger.Logger
}

var _ repository.RecordSource = (*MongoRecordSource)(nil)

// NewMongoRecordSource creates a record source reading from db
func NewMongoRecordSource(db *mongo.Database, log logger.Logger) *MongoRecordSource {
	if log == nil {
		log = logger.NewLogger()
	}
	return &MongoRecordSource{
		db:     db,
		logger: log.WithComponent("mongodb"),
	}
}

// ListCollections lists the database's collection names, skipping system collections
func (s *MongoRecordSource) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections of %s: %w", s.db.Name(), err)
	}

	collections := make([]string, 0, len(names))
	for _, name := range names {
		if model.IsSystemCollection(name) {
			s.logger.WithFields(map[string]interface{}{
				"collection": name,
			}).Debug("Skipping system collection")
			continue
		}
		collections = append(collections, name)
	}

	return collections, nil
}

// StreamVerified finds every record of collection with verified == true and passes it to fn
func (s *MongoRecordSource) StreamVerified(ctx context.Context, collection string, fn repository.RecordHandler) error {
	s.logger.WithContext(ctx).Debug("Querying verified records")

	cursor, err := s.db.Collection(collection).Find(ctx, verifiedFilter)
	if err != nil {
		return fmt.Errorf("failed to query verified records: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var record model.Record
		if err := cursor.Decode(&record); err != nil {
			return fmt.Errorf("failed to decode record: %w", err)
		}
		if err := fn(&record); err != nil {
			return err
		}
	}

	if err := cursor.Err(); err != nil {
		return fmt.Errorf("cursor error: %w", err)
	}

	return nil
}
