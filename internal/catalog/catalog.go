// Package catalog is the trusted source of product prices.
package catalog

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"ecorewards/internal/models"
)

type ProductStore interface {
	ListSellable(ctx context.Context, category string) ([]models.Product, error)
	FindSellable(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
	Upsert(ctx context.Context, product models.Product) error
}

type Service struct {
	products ProductStore
	log      *zap.Logger
}

func NewService(products ProductStore, log *zap.Logger) *Service {
	return &Service{products: products, log: log}
}

// List returns sellable products, featured first. An empty category lists
// everything.
func (s *Service) List(ctx context.Context, category string) ([]models.Product, error) {
	return s.products.ListSellable(ctx, category)
}

// Lookup returns the sellable products among ids keyed by id. Callers treat a
// missing key as unknown or withdrawn.
func (s *Service) Lookup(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	out := make(map[primitive.ObjectID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	found, err := s.products.FindSellable(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range found {
		out[p.ID] = p
	}
	return out, nil
}

// Seed upserts the default shop products.
func (s *Service) Seed(ctx context.Context) (int, error) {
	for _, p := range DefaultProducts() {
		if err := s.products.Upsert(ctx, p); err != nil {
			return 0, err
		}
	}
	s.log.Info("catalog seeded", zap.Int("products", len(DefaultProducts())))
	return len(DefaultProducts()), nil
}
