package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ActivityType classifies a point-affecting event in a user's history.
type ActivityType string

const (
	ActivityBonus      ActivityType = "bonus"
	ActivityRecycle    ActivityType = "recycle"
	ActivityPurchase   ActivityType = "purchase"
	ActivityRefund     ActivityType = "refund"
	ActivityAdjustment ActivityType = "adjustment"
)

// Earning reports whether the activity counts toward lifetime points and tier.
func (t ActivityType) Earning() bool {
	return t == ActivityBonus || t == ActivityRecycle
}

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityBonus, ActivityRecycle, ActivityPurchase, ActivityRefund, ActivityAdjustment:
		return true
	}
	return false
}

// Activity is one entry of the append-only points log. Delta is signed.
type Activity struct {
	ID          string              `bson:"id" json:"id"`
	Type        ActivityType        `bson:"type" json:"type"`
	Description string              `bson:"description" json:"description"`
	Delta       int64               `bson:"delta" json:"delta"`
	OrderID     *primitive.ObjectID `bson:"orderId,omitempty" json:"orderId,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}

// User represents the application user account.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email          string             `bson:"email" json:"email"`
	PasswordHash   string             `bson:"passwordHash" json:"-"`
	Name           string             `bson:"name" json:"name"`
	Role           Role               `bson:"role" json:"role"`
	Points         int64              `bson:"points" json:"points"`
	LifetimePoints int64              `bson:"lifetimePoints" json:"lifetimePoints"`
	WalletAddress  string             `bson:"walletAddress,omitempty" json:"walletAddress,omitempty"`
	Activities     []Activity         `bson:"activities,omitempty" json:"-"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) Tier() Tier {
	return TierFor(u.LifetimePoints)
}

func (u *User) HasWallet() bool {
	return u.WalletAddress != ""
}
