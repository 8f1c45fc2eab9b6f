package purchase

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Default collection names. The legacy collection predates the consolidated
// ledger and is read-only; new records always land in the primary one.
const (
	CollectionName       = "purchases"
	LegacyCollectionName = "subscription_purchases"
)

// compile-time interface check
var _ Ledger = (*MongoLedger)(nil)

// MongoLedger implements Ledger over a primary and a legacy collection.
type MongoLedger struct {
	primary *mongo.Collection
	legacy  *mongo.Collection
}

// NewMongoLedger creates a ledger on the given database.
func NewMongoLedger(db *mongo.Database) *MongoLedger {
	return &MongoLedger{
		primary: db.Collection(CollectionName),
		legacy:  db.Collection(LegacyCollectionName),
	}
}

// EnsureIndexes creates the session-id and user-id lookup indexes.
// The session-id index is unique so duplicate webhook deliveries that race
// past the pre-write check still cannot produce two records.
func (l *MongoLedger) EnsureIndexes(ctx context.Context) error {
	_, err := l.primary.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "purchased_at", Value: -1}},
		},
	})
	return err
}

func (l *MongoLedger) Exists(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	err := l.primary.FindOne(ctx, bson.M{"session_id": sessionID}).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, errors.Join(ErrFailedToRead, err)
}

func (l *MongoLedger) Append(ctx context.Context, rec Record) error {
	if _, err := l.primary.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSession
		}
		return errors.Join(ErrFailedToWrite, err)
	}
	return nil
}

func (l *MongoLedger) History(ctx context.Context, userID string) ([]Record, error) {
	primary, err := l.find(ctx, l.primary, userID)
	if err != nil {
		return nil, err
	}
	legacy, err := l.find(ctx, l.legacy, userID)
	if err != nil {
		return nil, err
	}

	// Primary rows come first so they win deduplication against legacy
	// copies of the same session.
	all := append(primary, legacy...)
	all = Dedup(all)
	SortByTimeDesc(all)
	return all, nil
}

func (l *MongoLedger) find(ctx context.Context, col *mongo.Collection, userID string) ([]Record, error) {
	cursor, err := col.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, errors.Join(ErrFailedToRead, err)
	}
	defer cursor.Close(ctx)

	var records []Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, errors.Join(ErrFailedToRead, err)
	}
	return records, nil
}
