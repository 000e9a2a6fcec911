// Path: internal/storage/request_storage.go
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

// MongoRequestStorage is the MongoDB implementation of the RequestStorage interface.
type MongoRequestStorage struct {
	collection *mongo.Collection
}

// NewMongoRequestStorage creates a new storage adapter for game requests.
func NewMongoRequestStorage(db *mongo.Database, collectionName string) *MongoRequestStorage {
	return &MongoRequestStorage{
		collection: db.Collection(collectionName),
	}
}

// EnsureIndexes creates the indexes the request store relies on. The partial
// unique index is what makes duplicate pending requests impossible.
func (s *MongoRequestStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "fromPlayer", Value: 1}, {Key: "toPlayer", Value: 1}},
			Options: options.Index().
				SetName("pending_pair").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": domain.StatusPending}),
		},
		{
			Keys:    bson.D{{Key: "toPlayer", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("inbox"),
		},
	})
	return classify(err)
}

// InsertPending implements the RequestStorage interface.
func (s *MongoRequestStorage) InsertPending(ctx context.Context, r *domain.GameRequest) error {
	_, err := s.collection.InsertOne(ctx, r)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateRequest
	}
	return classify(err)
}

// FindByID implements the RequestStorage interface.
func (s *MongoRequestStorage) FindByID(ctx context.Context, id string) (*domain.GameRequest, error) {
	var r domain.GameRequest
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return &r, nil
}

func (s *MongoRequestStorage) find(ctx context.Context, filter bson.M) ([]domain.GameRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err)
	}
	requests := []domain.GameRequest{}
	if err := cur.All(ctx, &requests); err != nil {
		return nil, classify(err)
	}
	return requests, nil
}

// ListPendingFor implements the RequestStorage interface.
func (s *MongoRequestStorage) ListPendingFor(ctx context.Context, toPlayer string) ([]domain.GameRequest, error) {
	return s.find(ctx, bson.M{"toPlayer": toPlayer, "status": domain.StatusPending})
}

// ListExpired implements the RequestStorage interface.
func (s *MongoRequestStorage) ListExpired(ctx context.Context, olderThan time.Time) ([]domain.GameRequest, error) {
	return s.find(ctx, bson.M{"status": domain.StatusPending, "createdAt": bson.M{"$lt": olderThan}})
}

// Transition implements the RequestStorage interface.
func (s *MongoRequestStorage) Transition(ctx context.Context, id string, from, to domain.RequestStatus, gameID string, at time.Time) (*domain.GameRequest, error) {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": at}}
	if gameID == "" {
		update["$unset"] = bson.M{"gameId": ""}
	} else {
		update["$set"].(bson.M)["gameId"] = gameID
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var r domain.GameRequest
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRequestNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateRequest
		}
		return nil, classify(err)
	}
	return &r, nil
}
