// Path: internal/storage/game_storage.go
package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tictactoe/internal/domain"
)

// MongoGameStorage is the MongoDB implementation of the GameStorage interface.
type MongoGameStorage struct {
	collection *mongo.Collection
}

// NewMongoGameStorage creates a new storage adapter for games.
func NewMongoGameStorage(db *mongo.Database, collectionName string) *MongoGameStorage {
	return &MongoGameStorage{
		collection: db.Collection(collectionName),
	}
}

// Insert implements the GameStorage interface.
func (s *MongoGameStorage) Insert(ctx context.Context, g *domain.Game) error {
	_, err := s.collection.InsertOne(ctx, g)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrConflict
	}
	return classify(err)
}

// FindByID implements the GameStorage interface.
func (s *MongoGameStorage) FindByID(ctx context.Context, id string) (*domain.Game, error) {
	var g domain.Game
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return &g, nil
}

// List implements the GameStorage interface, newest first.
func (s *MongoGameStorage) List(ctx context.Context) ([]domain.Game, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, classify(err)
	}
	games := []domain.Game{}
	if err := cur.All(ctx, &games); err != nil {
		return nil, classify(err)
	}
	return games, nil
}

// Update implements the GameStorage interface.
func (s *MongoGameStorage) Update(ctx context.Context, g *domain.Game, expectedVersion int64) error {
	filter := bson.M{"_id": g.ID, "version": expectedVersion}
	res, err := s.collection.ReplaceOne(ctx, filter, g)
	if err != nil {
		return classify(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrStaleWrite
	}
	return nil
}

// ListUnannounced implements the GameStorage interface, oldest first.
func (s *MongoGameStorage) ListUnannounced(ctx context.Context, finishedBefore time.Time) ([]domain.Game, error) {
	filter := bson.M{
		"status":          domain.StatusFinished,
		"finishedEventId": bson.M{"$exists": true},
		"finishAnnounced": bson.M{"$ne": true},
		"updatedAt":       bson.M{"$lt": finishedBefore},
	}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}})
	cur, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err)
	}
	games := []domain.Game{}
	if err := cur.All(ctx, &games); err != nil {
		return nil, classify(err)
	}
	return games, nil
}
