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

type Orders struct {
	coll *mongo.Collection
}

func NewOrders(db *mongo.Database) *Orders {
	return &Orders{coll: db.Collection(database.OrdersCollection)}
}

// Insert stores a complete order. A duplicate idempotency key or reference
// is reported as a conflict.
func (r *Orders) Insert(ctx context.Context, order *models.Order) error {
	if _, err := r.coll.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.CodeConflict, "order already exists", err)
		}
		return apperr.Storage("orders.insert", err)
	}
	return nil
}

func (r *Orders) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id}, "orders.findByID")
}

// FindForUser scopes the lookup to the owner; another user's order is
// indistinguishable from a missing one.
func (r *Orders) FindForUser(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": orderID, "userId": userID}, "orders.findForUser")
}

func (r *Orders) FindByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"userId": userID, "idempotencyKey": key}, "orders.findByIdempotencyKey")
}

func (r *Orders) findOne(ctx context.Context, filter bson.M, op string) (*models.Order, error) {
	var order models.Order
	err := r.coll.FindOne(ctx, filter).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	return &order, nil
}

// ListByUser returns the user's orders, newest first.
func (r *Orders) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, apperr.Storage("orders.list", err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, apperr.Storage("orders.decode", err)
	}
	return orders, nil
}

// AdvanceStatus moves the order from one status to the next and appends the
// tracking event. It only matches while the order is still in status from;
// a lost race is reported as a conflict.
func (r *Orders) AdvanceStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, event models.TrackingEvent) (*models.Order, error) {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{
		"$set": bson.M{
			"status":              to,
			"trackingInfo.status": string(to),
			"updatedAt":           time.Now(),
		},
		"$push": bson.M{"trackingInfo.history": event},
	}

	var order models.Order
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.Conflict("order status changed, reload and retry")
	}
	if err != nil {
		return nil, apperr.Storage("orders.advanceStatus", err)
	}
	return &order, nil
}
