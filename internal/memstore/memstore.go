// Package memstore holds in-memory stores with the same method sets and
// conflict rules as the Mongo repositories. It is imported only by tests.
// Like the driver, every method fails with STORAGE_UNAVAILABLE once its
// context is done.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ecorewards/internal/apperr"
	"ecorewards/internal/models"
)

func live(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return apperr.Storage(op, err)
	}
	return nil
}

type Users struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func NewUsers() *Users {
	return &Users{users: make(map[primitive.ObjectID]*models.User)}
}

func cloneUser(u *models.User, withActivities bool) *models.User {
	out := *u
	out.Activities = nil
	if withActivities {
		out.Activities = append([]models.Activity(nil), u.Activities...)
	}
	return &out
}

func (s *Users) Create(ctx context.Context, user *models.User) error {
	if err := live(ctx, "users.create"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return apperr.Conflict("email already registered")
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = cloneUser(user, true)
	return nil
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := live(ctx, "users.find"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u, false), nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (s *Users) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if err := live(ctx, "users.find"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return cloneUser(u, false), nil
}

func (s *Users) ApplyActivity(ctx context.Context, id primitive.ObjectID, act models.Activity, requireFunds bool) (*models.User, error) {
	if err := live(ctx, "users.apply_activity"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	if requireFunds && act.Delta < 0 && u.Points < -act.Delta {
		return nil, apperr.ErrInsufficientPoints
	}
	u.Points += act.Delta
	if act.Type.Earning() && act.Delta > 0 {
		u.LifetimePoints += act.Delta
	}
	u.Activities = append(u.Activities, act)
	u.UpdatedAt = time.Now()
	return cloneUser(u, false), nil
}

func (s *Users) Activities(ctx context.Context, id primitive.ObjectID, limit int) ([]models.Activity, error) {
	if err := live(ctx, "users.activities"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	out := []models.Activity{}
	for i := len(u.Activities) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, u.Activities[i])
	}
	return out, nil
}

func (s *Users) SetWallet(ctx context.Context, id primitive.ObjectID, address string) error {
	if err := live(ctx, "users.set_wallet"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	for otherID, other := range s.users {
		if otherID != id && other.WalletAddress == address {
			return apperr.Conflict("wallet already linked to another account")
		}
	}
	u.WalletAddress = address
	return nil
}

func (s *Users) SetRole(ctx context.Context, email string, role models.Role) error {
	if err := live(ctx, "users.set_role"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			u.Role = role
			return nil
		}
	}
	return apperr.NotFound("user not found")
}

// Ledger returns the balance and the full activity log for assertions.
func (s *Users) Ledger(id primitive.ObjectID) (int64, []models.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return 0, nil
	}
	return u.Points, append([]models.Activity(nil), u.Activities...)
}

type Sessions struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]models.Session)}
}

func (s *Sessions) Create(ctx context.Context, session *models.Session) error {
	if err := live(ctx, "sessions.create"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	s.sessions[session.TokenHash] = *session
	return nil
}

func (s *Sessions) FindByTokenHash(ctx context.Context, hash string) (*models.Session, error) {
	if err := live(ctx, "sessions.find"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[hash]
	if !ok {
		return nil, apperr.NotFound("session not found")
	}
	return &session, nil
}

func (s *Sessions) DeleteByTokenHash(ctx context.Context, hash string) error {
	if err := live(ctx, "sessions.delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, hash)
	return nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type Orders struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]models.Order
}

func NewOrders() *Orders {
	return &Orders{orders: make(map[primitive.ObjectID]models.Order)}
}

func (s *Orders) Insert(ctx context.Context, order *models.Order) error {
	if err := live(ctx, "orders.insert"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID == order.ID || o.Reference == order.Reference {
			return apperr.Conflict("order already exists")
		}
		if order.IdempotencyKey != "" && o.UserID == order.UserID && o.IdempotencyKey == order.IdempotencyKey {
			return apperr.Conflict("order already exists")
		}
	}
	s.orders[order.ID] = cloneOrder(*order)
	return nil
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	o.TrackingInfo.History = append([]models.TrackingEvent(nil), o.TrackingInfo.History...)
	if o.DeliveryAddress != nil {
		addr := *o.DeliveryAddress
		o.DeliveryAddress = &addr
	}
	return o
}

func (s *Orders) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	if err := live(ctx, "orders.find"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	o = cloneOrder(o)
	return &o, nil
}

func (s *Orders) FindForUser(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	o, err := s.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, apperr.NotFound("order not found")
	}
	return o, nil
}

func (s *Orders) FindByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error) {
	if err := live(ctx, "orders.find"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			o = cloneOrder(o)
			return &o, nil
		}
	}
	return nil, apperr.NotFound("order not found")
}

func (s *Orders) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	if err := live(ctx, "orders.list"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Order{}
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Orders) AdvanceStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, event models.TrackingEvent) (*models.Order, error) {
	if err := live(ctx, "orders.advance_status"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return nil, apperr.Conflict("order status changed, reload and retry")
	}
	o.Status = to
	o.TrackingInfo.Status = string(to)
	o.TrackingInfo.History = append(o.TrackingInfo.History, event)
	o.UpdatedAt = time.Now()
	s.orders[id] = o

	out := cloneOrder(o)
	return &out, nil
}

func (s *Orders) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

type Products struct {
	mu       sync.Mutex
	products map[string]models.Product
}

func NewProducts() *Products {
	return &Products{products: make(map[string]models.Product)}
}

func (s *Products) ListSellable(ctx context.Context, category string) ([]models.Product, error) {
	if err := live(ctx, "products.list"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Product{}
	for _, p := range s.products {
		if p.Sellable() && (category == "" || p.Category == category) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Featured != out[j].Featured {
			return out[i].Featured
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Products) FindSellable(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	if err := live(ctx, "products.find"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Product
	for _, p := range s.products {
		if !p.Sellable() {
			continue
		}
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (s *Products) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	if err := live(ctx, "products.find"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[slug]
	if !ok {
		return nil, apperr.NotFound("product not found")
	}
	return &p, nil
}

func (s *Products) Upsert(ctx context.Context, product models.Product) error {
	if err := live(ctx, "products.upsert"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.products[product.Slug]; ok {
		product.ID = existing.ID
		product.CreatedAt = existing.CreatedAt
	} else {
		if product.ID.IsZero() {
			product.ID = primitive.NewObjectID()
		}
		product.CreatedAt = time.Now()
	}
	s.products[product.Slug] = product
	return nil
}
