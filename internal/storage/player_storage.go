// Path: internal/storage/player_storage.go
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

// playerDocument is a player plus the ids of the events already applied to it.
type playerDocument struct {
	domain.Player `bson:",inline"`
	AppliedEvents []string `bson:"appliedEvents"`
}

// MongoPlayerStorage is the MongoDB implementation of the PlayerStorage interface.
type MongoPlayerStorage struct {
	collection *mongo.Collection
}

// NewMongoPlayerStorage creates a new storage adapter for players.
func NewMongoPlayerStorage(db *mongo.Database, collectionName string) *MongoPlayerStorage {
	return &MongoPlayerStorage{
		collection: db.Collection(collectionName),
	}
}

// Insert implements the PlayerStorage interface.
func (s *MongoPlayerStorage) Insert(ctx context.Context, p domain.Player, eventID string) error {
	doc := playerDocument{Player: p, AppliedEvents: []string{eventID}}
	_, err := s.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrPlayerExists
	}
	return classify(err)
}

// FindByUsername implements the PlayerStorage interface.
func (s *MongoPlayerStorage) FindByUsername(ctx context.Context, username string) (*domain.Player, error) {
	var p domain.Player
	err := s.collection.FindOne(ctx, bson.M{"_id": username}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return &p, nil
}

// List implements the PlayerStorage interface.
func (s *MongoPlayerStorage) List(ctx context.Context, onlineOnly bool) ([]domain.Player, error) {
	filter := bson.M{}
	if onlineOnly {
		filter["isOnline"] = true
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"appliedEvents": 0})
	cur, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err)
	}
	players := []domain.Player{}
	if err := cur.All(ctx, &players); err != nil {
		return nil, classify(err)
	}
	return players, nil
}

// apply runs update against the player unless eventID is already in its
// ledger. The ledger append happens in the same update.
func (s *MongoPlayerStorage) apply(ctx context.Context, eventID, username string, update bson.M) (*domain.Player, bool, error) {
	filter := bson.M{"_id": username, "appliedEvents": bson.M{"$ne": eventID}}
	update["$push"] = bson.M{
		"appliedEvents": bson.M{"$each": []string{eventID}, "$slice": -AppliedEventLimit},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"appliedEvents": 0})

	var p domain.Player
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if err == nil {
		return &p, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, classify(err)
	}

	// Either the player is missing or the event was already applied.
	existing, err := s.FindByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, domain.ErrPlayerNotFound
	}
	return existing, false, nil
}

// SetPresence implements the PlayerStorage interface.
func (s *MongoPlayerStorage) SetPresence(ctx context.Context, eventID, username string, online bool, at time.Time) (bool, error) {
	_, applied, err := s.apply(ctx, eventID, username, bson.M{
		"$set": bson.M{"isOnline": online, "lastSeenAt": at},
	})
	return applied, err
}

// SetPlaying implements the PlayerStorage interface.
func (s *MongoPlayerStorage) SetPlaying(ctx context.Context, eventID, username string, playing bool) (bool, error) {
	_, applied, err := s.apply(ctx, eventID, username, bson.M{
		"$set": bson.M{"isPlaying": playing},
	})
	return applied, err
}

var outcomeField = map[domain.Outcome]string{
	domain.OutcomeWin:  "stats.wins",
	domain.OutcomeLoss: "stats.loses",
	domain.OutcomeDraw: "stats.draws",
}

// RecordOutcome implements the PlayerStorage interface.
func (s *MongoPlayerStorage) RecordOutcome(ctx context.Context, eventID, username string, o domain.Outcome) (*domain.Player, bool, error) {
	field, ok := outcomeField[o]
	if !ok {
		return nil, false, domain.ErrValidation
	}
	return s.apply(ctx, eventID, username, bson.M{
		"$inc": bson.M{field: 1, "stats.totalGames": 1},
		"$set": bson.M{"isPlaying": false},
	})
}
