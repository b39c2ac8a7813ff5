package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	UsersCollection    = "users"
	SessionsCollection = "sessions"
	OrdersCollection   = "orders"
	ProductsCollection = "products"
)

// EnsureIndexes creates every index the repositories rely on. Uniqueness of
// emails, wallets, session tokens and idempotency keys is enforced here and
// nowhere else.
func EnsureIndexes(db *mongo.Database, log *zap.Logger) error {
	steps := []func(*mongo.Database, *zap.Logger) error{
		EnsureUserIndexes,
		EnsureSessionIndexes,
		EnsureOrderIndexes,
		EnsureProductIndexes,
	}
	for _, step := range steps {
		if err := step(db, log); err != nil {
			return err
		}
	}
	return nil
}

func EnsureUserIndexes(db *mongo.Database, log *zap.Logger) error {
	return createIndexes(db, UsersCollection, log, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "walletAddress", Value: 1}},
			Options: options.Index().
				SetName("wallet_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"walletAddress": bson.M{"$type": "string"},
				}),
		},
	})
}

func EnsureSessionIndexes(db *mongo.Database, log *zap.Logger) error {
	return createIndexes(db, SessionsCollection, log, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().SetName("tokenHash_unique").SetUnique(true),
		},
		{
			// Background cleanup only; lookups evict expired sessions themselves.
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
		},
	})
}

func EnsureOrderIndexes(db *mongo.Database, log *zap.Logger) error {
	return createIndexes(db, OrdersCollection, log, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("userId_createdAt"),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "idempotencyKey", Value: 1}},
			Options: options.Index().
				SetName("userId_idempotencyKey_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"idempotencyKey": bson.M{"$type": "string"},
				}),
		},
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetName("reference_unique").SetUnique(true),
		},
	})
}

func EnsureProductIndexes(db *mongo.Database, log *zap.Logger) error {
	return createIndexes(db, ProductsCollection, log, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetName("slug_unique").SetUnique(true),
		},
	})
}

func createIndexes(db *mongo.Database, collection string, log *zap.Logger, models []mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		log.Error("create indexes", zap.String("collection", collection), zap.Error(err))
		return err
	}
	log.Info("indexes ensured", zap.String("collection", collection), zap.Strings("indexes", names))
	return nil
}
