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

var sellableFilter = bson.M{
	"isActive":  true,
	"isDeleted": bson.M{"$ne": true},
	"points":    bson.M{"$gt": 0},
}

type Products struct {
	coll *mongo.Collection
}

func NewProducts(db *mongo.Database) *Products {
	return &Products{coll: db.Collection(database.ProductsCollection)}
}

// ListSellable returns sellable products, featured first and then by name.
// An empty category matches all.
func (r *Products) ListSellable(ctx context.Context, category string) ([]models.Product, error) {
	filter := bson.M{}
	for k, v := range sellableFilter {
		filter[k] = v
	}
	if category != "" {
		filter["category"] = category
	}

	opts := options.Find().SetSort(bson.D{{Key: "featured", Value: -1}, {Key: "name", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Storage("products.list", err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, apperr.Storage("products.decode", err)
	}
	return products, nil
}

// FindSellable loads the sellable products among ids. Missing or unsellable
// ids are simply absent from the result.
func (r *Products) FindSellable(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	filter := bson.M{"_id": bson.M{"$in": ids}}
	for k, v := range sellableFilter {
		filter[k] = v
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, apperr.Storage("products.findSellable", err)
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, apperr.Storage("products.decode", err)
	}
	return products, nil
}

func (r *Products) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.coll.FindOne(ctx, bson.M{"slug": slug}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("product not found")
	}
	if err != nil {
		return nil, apperr.Storage("products.findBySlug", err)
	}
	return &product, nil
}

// Upsert writes the product keyed by slug. Existing documents keep their id
// and creation time.
func (r *Products) Upsert(ctx context.Context, product models.Product) error {
	update := bson.M{
		"$set": bson.M{
			"name":        product.Name,
			"description": product.Description,
			"category":    product.Category,
			"points":      product.Points,
			"image":       product.Image,
			"featured":    product.Featured,
			"isActive":    product.IsActive,
			"isDeleted":   product.IsDeleted,
		},
		"$setOnInsert": bson.M{"createdAt": time.Now()},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"slug": product.Slug}, update, options.Update().SetUpsert(true))
	if err != nil {
		return apperr.Storage("products.upsert", err)
	}
	return nil
}
