package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DeliveryMethod string

const (
	DeliveryPickup   DeliveryMethod = "pickup"
	DeliveryDelivery DeliveryMethod = "delivery"
)

func (m DeliveryMethod) Valid() bool {
	return m == DeliveryPickup || m == DeliveryDelivery
}

type OrderStatus string

const (
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
)

// Next returns the only status an order may move to from s.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case OrderProcessing:
		return OrderShipped, true
	case OrderShipped:
		return OrderDelivered, true
	}
	return "", false
}

func (s OrderStatus) Valid() bool {
	return s == OrderProcessing || s == OrderShipped || s == OrderDelivered
}

// OrderItem is a product line snapshotted at order time.
type OrderItem struct {
	ProductID  primitive.ObjectID `bson:"productId" json:"productId"`
	Name       string             `bson:"name" json:"name"`
	UnitPoints int64              `bson:"unitPoints" json:"unitPoints"`
	Quantity   int                `bson:"quantity" json:"quantity"`
}

func (i OrderItem) LineTotal() int64 {
	return i.UnitPoints * int64(i.Quantity)
}

type DeliveryAddress struct {
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Address   string `bson:"address" json:"address"`
	City      string `bson:"city" json:"city"`
	State     string `bson:"state" json:"state"`
	Zip       string `bson:"zip" json:"zip"`
	Phone     string `bson:"phone" json:"phone"`
}

type TrackingEvent struct {
	Status      string    `bson:"status" json:"status"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
	Description string    `bson:"description" json:"description"`
}

type TrackingInfo struct {
	Status  string          `bson:"status" json:"status"`
	History []TrackingEvent `bson:"history" json:"history"`
}

// Order defines the persisted order document. Items and totals never change
// after insert; only status and tracking history do.
type Order struct {
	ID              primitive.ObjectID `bson:"_id" json:"id"`
	Reference       string             `bson:"reference" json:"reference"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	Items           []OrderItem        `bson:"items" json:"items"`
	DeliveryMethod  DeliveryMethod     `bson:"deliveryMethod" json:"deliveryMethod"`
	DeliveryAddress *DeliveryAddress   `bson:"deliveryAddress,omitempty" json:"deliveryAddress,omitempty"`
	Subtotal        int64              `bson:"subtotal" json:"subtotal"`
	Surcharge       int64              `bson:"surcharge" json:"surcharge"`
	TotalPoints     int64              `bson:"totalPoints" json:"totalPoints"`
	Status          OrderStatus        `bson:"status" json:"status"`
	TrackingInfo    TrackingInfo       `bson:"trackingInfo" json:"trackingInfo"`
	IdempotencyKey  string             `bson:"idempotencyKey,omitempty" json:"-"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
