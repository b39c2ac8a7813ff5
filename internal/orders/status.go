package orders

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"ecorewards/internal/apperr"
	"ecorewards/internal/models"
)

var defaultStatusDescriptions = map[models.OrderStatus]string{
	models.OrderShipped:   "Your order has been shipped.",
	models.OrderDelivered: "Your order has been delivered.",
}

// AdvanceStatus moves an order one step forward and records the tracking
// event. Skipping or repeating a step is a conflict.
func (s *Service) AdvanceStatus(ctx context.Context, orderID string, next models.OrderStatus, description string) (*models.Order, error) {
	if !next.Valid() {
		return nil, apperr.InvalidInput("status must be Processing, Shipped or Delivered")
	}
	id, err := parseOrderID(orderID)
	if err != nil {
		return nil, err
	}

	current, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed, ok := current.Status.Next()
	if !ok || allowed != next {
		return nil, apperr.Conflict("order cannot move from " + string(current.Status) + " to " + string(next))
	}

	description = strings.TrimSpace(description)
	if description == "" {
		description = defaultStatusDescriptions[next]
	}
	event := models.TrackingEvent{
		Status:      string(next),
		Timestamp:   s.now().UTC(),
		Description: description,
	}

	order, err := s.orders.AdvanceStatus(ctx, id, current.Status, next, event)
	if err != nil {
		return nil, err
	}
	s.log.Info("order status advanced",
		zap.String("orderId", order.ID.Hex()),
		zap.String("from", string(current.Status)),
		zap.String("to", string(next)))
	return order, nil
}
