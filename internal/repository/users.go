package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ecorewards/internal/apperr"
	"ecorewards/internal/database"
	"ecorewards/internal/models"
)

// withoutActivities keeps the growing activity log out of ordinary reads.
var withoutActivities = bson.M{"activities": 0}

type Users struct {
	coll *mongo.Collection
}

func NewUsers(db *mongo.Database) *Users {
	return &Users{coll: db.Collection(database.UsersCollection)}
}

// Create inserts a new user. A duplicate email surfaces from the unique index
// as a conflict.
func (r *Users) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("email already registered")
		}
		return apperr.Storage("users.insert", err)
	}
	return nil
}

func (r *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, "users.findByEmail")
}

func (r *Users) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, "users.findByID")
}

func (r *Users) findOne(ctx context.Context, filter bson.M, op string) (*models.User, error) {
	var user models.User
	err := r.coll.FindOne(ctx, filter, options.FindOne().SetProjection(withoutActivities)).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	return &user, nil
}

// ApplyActivity changes the balance by act.Delta and appends act to the
// activity log in one document update, so points always equal the sum of the
// logged deltas. With requireFunds the update only matches while the balance
// covers a negative delta; concurrent debits therefore serialize on the
// document and can never overdraw.
func (r *Users) ApplyActivity(ctx context.Context, id primitive.ObjectID, act models.Activity, requireFunds bool) (*models.User, error) {
	filter := bson.M{"_id": id}
	if requireFunds && act.Delta < 0 {
		filter["points"] = bson.M{"$gte": -act.Delta}
	}

	inc := bson.M{"points": act.Delta}
	if act.Type.Earning() && act.Delta > 0 {
		inc["lifetimePoints"] = act.Delta
	}
	update := bson.M{
		"$inc":  inc,
		"$push": bson.M{"activities": act},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutActivities)

	var user models.User
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		exists, countErr := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
		if countErr != nil {
			return nil, apperr.Storage("users.exists", countErr)
		}
		if exists == 0 {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.ErrInsufficientPoints
	}
	if err != nil {
		return nil, apperr.Storage("users.applyActivity", err)
	}
	return &user, nil
}

// Activities returns up to limit entries, newest first.
func (r *Users) Activities(ctx context.Context, id primitive.ObjectID, limit int) ([]models.Activity, error) {
	var doc struct {
		Activities []models.Activity `bson:"activities"`
	}
	opts := options.FindOne().SetProjection(bson.M{
		"activities": bson.M{"$slice": -limit},
	})
	err := r.coll.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Storage("users.activities", err)
	}

	out := make([]models.Activity, 0, len(doc.Activities))
	for i := len(doc.Activities) - 1; i >= 0; i-- {
		out = append(out, doc.Activities[i])
	}
	return out, nil
}

func (r *Users) SetWallet(ctx context.Context, id primitive.ObjectID, address string) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"walletAddress": address, "updatedAt": time.Now()},
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("wallet already linked to another account")
		}
		return apperr.Storage("users.setWallet", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (r *Users) SetRole(ctx context.Context, email string, role models.Role) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"email": email}, bson.M{
		"$set": bson.M{"role": role, "updatedAt": time.Now()},
	})
	if err != nil {
		return apperr.Storage("users.setRole", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}
