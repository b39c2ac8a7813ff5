package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Slug        string             `bson:"slug" json:"slug"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Category    string             `bson:"category" json:"category"`
	Points      int64              `bson:"points" json:"points"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	Featured    bool               `bson:"featured" json:"featured"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	IsDeleted   bool               `bson:"isDeleted" json:"isDeleted,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// Sellable reports whether the product may be ordered right now.
func (p *Product) Sellable() bool {
	return p.IsActive && !p.IsDeleted && p.Points > 0
}
