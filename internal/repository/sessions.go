package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ecorewards/internal/apperr"
	"ecorewards/internal/database"
	"ecorewards/internal/models"
)

type Sessions struct {
	coll *mongo.Collection
}

func NewSessions(db *mongo.Database) *Sessions {
	return &Sessions{coll: db.Collection(database.SessionsCollection)}
}

func (r *Sessions) Create(ctx context.Context, session *models.Session) error {
	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, session); err != nil {
		return apperr.Storage("sessions.insert", err)
	}
	return nil
}

func (r *Sessions) FindByTokenHash(ctx context.Context, hash string) (*models.Session, error) {
	var session models.Session
	err := r.coll.FindOne(ctx, bson.M{"tokenHash": hash}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("session not found")
	}
	if err != nil {
		return nil, apperr.Storage("sessions.find", err)
	}
	return &session, nil
}

// DeleteByTokenHash removes the session. Deleting a missing session is not an
// error.
func (r *Sessions) DeleteByTokenHash(ctx context.Context, hash string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"tokenHash": hash}); err != nil {
		return apperr.Storage("sessions.delete", err)
	}
	return nil
}
