package entitlement

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionName is the default collection holding entitlement records.
const CollectionName = "user_entitlements"

// compile-time interface check
var _ Store = (*MongoStore)(nil)

// MongoStore implements Store on a MongoDB collection with one document per
// user, keyed by user id.
type MongoStore struct {
	col *mongo.Collection
	now func() time.Time
}

// NewMongoStore creates a store on the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		col: db.Collection(CollectionName),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates the subscription lookup index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "subscription_id", Value: 1}},
		Options: options.Index().SetSparse(true),
	})
	return err
}

func (s *MongoStore) Get(ctx context.Context, userID string) (UserEntitlement, error) {
	var e UserEntitlement
	err := s.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return UserEntitlement{}, ErrNotFound
		}
		return UserEntitlement{}, errors.Join(ErrFailedToUpdate, err)
	}
	return e, nil
}

func (s *MongoStore) Ensure(ctx context.Context, userID string) (UserEntitlement, error) {
	now := s.now()
	// $setOnInsert keeps the operation a no-op for existing records.
	res := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$setOnInsert": bson.M{
			"plan":                PlanFree,
			"monthly_usage_count": 0,
			"usage_reset_at":      now,
			"created_at":          now,
			"updated_at":          now,
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var e UserEntitlement
	if err := res.Decode(&e); err != nil {
		return UserEntitlement{}, errors.Join(ErrFailedToUpdate, err)
	}
	return e, nil
}

func (s *MongoStore) GrantItem(ctx context.Context, userID, itemID string) error {
	now := s.now()
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$addToSet": bson.M{"purchased_item_ids": itemID},
			"$set":      bson.M{"updated_at": now},
			"$setOnInsert": bson.M{
				"plan":                PlanFree,
				"monthly_usage_count": 0,
				"usage_reset_at":      now,
				"created_at":          now,
			},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return errors.Join(ErrFailedToUpdate, err)
	}
	return nil
}

func (s *MongoStore) ActivateSubscription(ctx context.Context, userID, subscriptionID, email string) error {
	now := s.now()
	set := bson.M{
		"plan":                PlanPremium,
		"subscription_id":     subscriptionID,
		"subscription_status": StatusActive,
		"updated_at":          now,
	}
	if email != "" {
		set["email"] = email
	}
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$set": set,
			"$setOnInsert": bson.M{
				"monthly_usage_count": 0,
				"usage_reset_at":      now,
				"created_at":          now,
			},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return errors.Join(ErrFailedToUpdate, err)
	}
	return nil
}

func (s *MongoStore) MarkCancelPending(ctx context.Context, userID string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{
			"subscription_status": StatusCancelPending,
			"updated_at":          s.now(),
		}},
	)
	if err != nil {
		return errors.Join(ErrFailedToUpdate, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ClearSubscription(ctx context.Context, userID string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$set": bson.M{
				"plan":                PlanFree,
				"subscription_status": StatusCanceled,
				"updated_at":          s.now(),
			},
			"$unset": bson.M{"subscription_id": ""},
		},
	)
	if err != nil {
		return errors.Join(ErrFailedToUpdate, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) FindBySubscriptionID(ctx context.Context, subscriptionID string) (UserEntitlement, error) {
	var e UserEntitlement
	err := s.col.FindOne(ctx, bson.M{"subscription_id": subscriptionID}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return UserEntitlement{}, ErrNotFound
		}
		return UserEntitlement{}, errors.Join(ErrFailedToUpdate, err)
	}
	return e, nil
}

func (s *MongoStore) ResetUsage(ctx context.Context, userID string, resetAt time.Time) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{
			"monthly_usage_count": 0,
			"usage_reset_at":      resetAt,
			"updated_at":          s.now(),
		}},
	)
	if err != nil {
		return errors.Join(ErrFailedToUpdate, err)
	}
	return nil
}

func (s *MongoStore) IncrementUsage(ctx context.Context, userID string, limit int) (int, error) {
	now := s.now()

	// The ceiling is re-checked inside the update filter so two concurrent
	// increments cannot both pass a stale read.
	res := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": userID, "monthly_usage_count": bson.M{"$lt": limit}},
		bson.M{
			"$inc": bson.M{"monthly_usage_count": 1},
			"$set": bson.M{"updated_at": now},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var e UserEntitlement
	err := res.Decode(&e)
	if err == nil {
		return e.MonthlyUsageCount, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, errors.Join(ErrFailedToUpdate, err)
	}

	// No match: either the record is missing (first use) or the counter is
	// at the ceiling. Distinguish by reading the record.
	if _, getErr := s.Get(ctx, userID); getErr == nil {
		return 0, ErrUsageLimitReached
	} else if !errors.Is(getErr, ErrNotFound) {
		return 0, getErr
	}

	created := NewFree(userID, now)
	created.MonthlyUsageCount = 1
	if _, insErr := s.col.InsertOne(ctx, created); insErr != nil {
		// A concurrent first increment can win the insert race; retry the
		// conditional update once against the now-existing record.
		if mongo.IsDuplicateKeyError(insErr) {
			return s.IncrementUsage(ctx, userID, limit)
		}
		return 0, errors.Join(ErrFailedToUpdate, insErr)
	}
	return 1, nil
}
