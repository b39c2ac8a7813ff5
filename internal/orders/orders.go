// Package orders implements checkout and order queries. Checkout prices the
// cart from the catalog, debits the ledger, then stores the order; a failed
// store is compensated with a refund.
package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"ecorewards/internal/apperr"
	"ecorewards/internal/ledger"
	"ecorewards/internal/metrics"
	"ecorewards/internal/models"
)

const (
	MaxQuantity          = 99
	MaxLines             = 50
	maxIdempotencyKeyLen = 128

	placedStatus      = "Order Placed"
	placedDescription = "Your order has been received and is being processed."

	// settleTimeout bounds the insert and refund that follow a committed
	// debit. Both outlive the request context.
	settleTimeout = 10 * time.Second
)

type OrderStore interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindForUser(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	AdvanceStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, event models.TrackingEvent) (*models.Order, error)
}

type Ledger interface {
	Debit(ctx context.Context, userID primitive.ObjectID, amount int64, entry ledger.Entry) (*models.User, error)
	Credit(ctx context.Context, userID primitive.ObjectID, amount int64, entry ledger.Entry) (*models.User, error)
}

type Catalog interface {
	Lookup(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error)
}

// RedeemMirror forwards spent points to the external ledger.
type RedeemMirror interface {
	EnqueueRedeem(ctx context.Context, user *models.User, amount int64, productID string) error
}

type ReferenceGenerator interface {
	Reference() (string, error)
}

type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderInput carries only what the client chooses. Prices and totals are
// always computed here.
type PlaceOrderInput struct {
	Items           []ItemInput             `json:"items"`
	DeliveryMethod  models.DeliveryMethod   `json:"deliveryMethod"`
	DeliveryAddress *models.DeliveryAddress `json:"deliveryAddress,omitempty"`
	IdempotencyKey  string                  `json:"-"`
}

type Options struct {
	DeliverySurcharge int64
}

type Service struct {
	orders  OrderStore
	ledger  Ledger
	catalog Catalog
	mirror  RedeemMirror
	refs    ReferenceGenerator
	opts    Options
	log     *zap.Logger
	now     func() time.Time
}

// NewService builds the order workflow. mirror may be nil.
func NewService(orders OrderStore, ledger Ledger, catalog Catalog, mirror RedeemMirror, refs ReferenceGenerator, opts Options, log *zap.Logger) *Service {
	return &Service{
		orders:  orders,
		ledger:  ledger,
		catalog: catalog,
		mirror:  mirror,
		refs:    refs,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

type cartLine struct {
	productID primitive.ObjectID
	quantity  int
}

// validate normalizes the input and returns the cart lines in submission
// order, with repeated products merged.
func validate(in *PlaceOrderInput) ([]cartLine, error) {
	if len(in.Items) == 0 {
		return nil, apperr.InvalidCart("cart is empty")
	}
	if len(in.Items) > MaxLines {
		return nil, apperr.InvalidCart("too many cart lines")
	}

	lines := make([]cartLine, 0, len(in.Items))
	index := make(map[primitive.ObjectID]int, len(in.Items))
	for _, item := range in.Items {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(item.ProductID))
		if err != nil {
			return nil, apperr.InvalidCart("unknown product " + item.ProductID)
		}
		if item.Quantity < 1 || item.Quantity > MaxQuantity {
			return nil, apperr.InvalidCart("quantity must be between 1 and 99")
		}
		if i, ok := index[id]; ok {
			lines[i].quantity += item.Quantity
			if lines[i].quantity > MaxQuantity {
				return nil, apperr.InvalidCart("quantity must be between 1 and 99")
			}
			continue
		}
		index[id] = len(lines)
		lines = append(lines, cartLine{productID: id, quantity: item.Quantity})
	}

	switch in.DeliveryMethod {
	case models.DeliveryPickup:
		in.DeliveryAddress = nil
	case models.DeliveryDelivery:
		if in.DeliveryAddress != nil {
			addr := *in.DeliveryAddress
			in.DeliveryAddress = &addr
		}
		if err := validateAddress(in.DeliveryAddress); err != nil {
			return nil, err
		}
	default:
		return nil, apperr.InvalidInput("deliveryMethod must be pickup or delivery")
	}

	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if len(in.IdempotencyKey) > maxIdempotencyKeyLen {
		return nil, apperr.InvalidInput("idempotency key too long")
	}
	return lines, nil
}

func validateAddress(addr *models.DeliveryAddress) error {
	if addr == nil {
		return apperr.InvalidAddress("deliveryAddress is required for delivery")
	}
	fields := []struct {
		name  string
		value *string
	}{
		{"firstName", &addr.FirstName},
		{"lastName", &addr.LastName},
		{"address", &addr.Address},
		{"city", &addr.City},
		{"state", &addr.State},
		{"zip", &addr.Zip},
		{"phone", &addr.Phone},
	}
	for _, f := range fields {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			return apperr.InvalidAddress(f.name + " is required")
		}
	}
	return nil
}

func (s *Service) surcharge(method models.DeliveryMethod) int64 {
	if method == models.DeliveryDelivery {
		return s.opts.DeliverySurcharge
	}
	return 0
}

// PlaceOrder debits the user and records the order. Either both happen or
// neither is visible: an order is never stored without its debit, and a debit
// whose order cannot be stored is refunded.
func (s *Service) PlaceOrder(ctx context.Context, userID primitive.ObjectID, in PlaceOrderInput) (*models.Order, error) {
	lines, err := validate(&in)
	if err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" {
		existing, err := s.orders.FindByIdempotencyKey(ctx, userID, in.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}

	ids := make([]primitive.ObjectID, len(lines))
	for i, l := range lines {
		ids[i] = l.productID
	}
	products, err := s.catalog.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(lines))
	var subtotal int64
	for _, l := range lines {
		p, ok := products[l.productID]
		if !ok {
			return nil, apperr.InvalidCart("product " + l.productID.Hex() + " is not available")
		}
		item := models.OrderItem{
			ProductID:  p.ID,
			Name:       p.Name,
			UnitPoints: p.Points,
			Quantity:   l.quantity,
		}
		subtotal += item.LineTotal()
		items = append(items, item)
	}
	surcharge := s.surcharge(in.DeliveryMethod)
	total := subtotal + surcharge

	reference, err := s.refs.Reference()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	order := &models.Order{
		ID:              primitive.NewObjectIDFromTimestamp(now),
		Reference:       reference,
		UserID:          userID,
		Items:           items,
		DeliveryMethod:  in.DeliveryMethod,
		DeliveryAddress: in.DeliveryAddress,
		Subtotal:        subtotal,
		Surcharge:       surcharge,
		TotalPoints:     total,
		Status:          models.OrderProcessing,
		TrackingInfo: models.TrackingInfo{
			Status: placedStatus,
			History: []models.TrackingEvent{{
				Status:      placedStatus,
				Timestamp:   now,
				Description: placedDescription,
			}},
		},
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	user, err := s.ledger.Debit(ctx, userID, total, ledger.Entry{
		Type:        models.ActivityPurchase,
		Description: "order " + order.ID.Hex(),
		OrderID:     &order.ID,
	})
	if err != nil {
		return nil, err
	}

	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if err := s.orders.Insert(settleCtx, order); err != nil {
		return s.compensate(settleCtx, order, err)
	}

	metrics.OrdersPlaced.WithLabelValues(string(order.DeliveryMethod)).Inc()
	s.log.Info("order placed",
		zap.String("orderId", order.ID.Hex()),
		zap.String("reference", order.Reference),
		zap.String("userId", userID.Hex()),
		zap.Int64("amount", total))

	if user.HasWallet() && s.mirror != nil {
		if err := s.mirror.EnqueueRedeem(settleCtx, user, total, "order-"+order.ID.Hex()); err != nil {
			s.log.Warn("external ledger redeem not queued",
				zap.String("code", string(apperr.CodeExternalLedgerUnavailable)),
				zap.String("orderId", order.ID.Hex()),
				zap.String("userId", userID.Hex()),
				zap.Int64("amount", total),
				zap.Error(err))
		}
	}
	return order, nil
}

// compensate refunds the debit of an order that could not be stored. A
// concurrent request with the same idempotency key wins the insert; its order
// is returned instead.
func (s *Service) compensate(ctx context.Context, order *models.Order, insertErr error) (*models.Order, error) {
	_, refundErr := s.ledger.Credit(ctx, order.UserID, order.TotalPoints, ledger.Entry{
		Type:        models.ActivityRefund,
		Description: "refund order " + order.ID.Hex(),
		OrderID:     &order.ID,
	})
	if refundErr != nil {
		s.log.Error("order refund failed, ledger needs reconciliation",
			zap.String("operation", "orders.compensate"),
			zap.String("orderId", order.ID.Hex()),
			zap.String("userId", order.UserID.Hex()),
			zap.Int64("amount", order.TotalPoints),
			zap.NamedError("insertError", insertErr),
			zap.Error(refundErr))
		return nil, insertErr
	}
	metrics.Refunds.Inc()

	if order.IdempotencyKey != "" && errors.Is(insertErr, apperr.ErrConflict) {
		existing, err := s.orders.FindByIdempotencyKey(ctx, order.UserID, order.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
	}

	if !apperr.Expected(insertErr) {
		s.log.Error("order insert failed, debit refunded",
			zap.String("operation", "orders.insert"),
			zap.String("orderId", order.ID.Hex()),
			zap.String("userId", order.UserID.Hex()),
			zap.Int64("amount", order.TotalPoints),
			zap.Error(insertErr))
	}
	return nil, insertErr
}
