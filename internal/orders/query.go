package orders

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ecorewards/internal/apperr"
	"ecorewards/internal/models"
)

func parseOrderID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound("order not found")
	}
	return id, nil
}

// GetOrder returns one of the user's orders. Orders of other users are
// reported exactly like missing ones.
func (s *Service) GetOrder(ctx context.Context, userID primitive.ObjectID, orderID string) (*models.Order, error) {
	id, err := parseOrderID(orderID)
	if err != nil {
		return nil, err
	}
	return s.orders.FindForUser(ctx, userID, id)
}

// ListOrders returns the user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}
