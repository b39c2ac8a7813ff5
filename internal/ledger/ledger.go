// Package ledger owns every change to a user's points balance. Each change is
// one document update that moves the balance and appends the matching
// activity, so the balance always equals the sum of the logged deltas.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"ecorewards/internal/apperr"
	"ecorewards/internal/metrics"
	"ecorewards/internal/models"
)

const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

// Direction labels for the points counter.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ApplyActivity(ctx context.Context, id primitive.ObjectID, act models.Activity, requireFunds bool) (*models.User, error)
	Activities(ctx context.Context, id primitive.ObjectID, limit int) ([]models.Activity, error)
}

// AwardMirror forwards earned points to the external ledger.
type AwardMirror interface {
	EnqueueAward(ctx context.Context, user *models.User, amount int64, reason string) error
}

// Entry describes why the balance changes.
type Entry struct {
	Type        models.ActivityType
	Description string
	OrderID     *primitive.ObjectID
}

type Service struct {
	users  UserStore
	mirror AwardMirror
	log    *zap.Logger
	now    func() time.Time
}

// NewService builds the ledger. mirror may be nil when no external ledger is
// configured.
func NewService(users UserStore, mirror AwardMirror, log *zap.Logger) *Service {
	return &Service{users: users, mirror: mirror, log: log, now: time.Now}
}

func (s *Service) GetBalance(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Points, nil
}

// NewActivity stamps an activity for entry with a fresh id.
func (s *Service) NewActivity(entry Entry, delta int64) models.Activity {
	return models.Activity{
		ID:          uuid.NewString(),
		Type:        entry.Type,
		Description: entry.Description,
		Delta:       delta,
		OrderID:     entry.OrderID,
		CreatedAt:   s.now().UTC(),
	}
}

// Credit adds amount to the balance unconditionally.
func (s *Service) Credit(ctx context.Context, userID primitive.ObjectID, amount int64, entry Entry) (*models.User, error) {
	if amount <= 0 {
		return nil, apperr.InvalidInput("amount must be positive")
	}
	switch entry.Type {
	case models.ActivityBonus, models.ActivityRecycle, models.ActivityRefund, models.ActivityAdjustment:
	default:
		return nil, apperr.InvalidInput("activity type cannot credit points")
	}

	user, err := s.users.ApplyActivity(ctx, userID, s.NewActivity(entry, amount), false)
	if err != nil {
		s.logFailure(err, "ledger.credit", userID, amount)
		return nil, err
	}
	metrics.PointsMoved.WithLabelValues(DirectionCredit, string(entry.Type)).Add(float64(amount))

	if entry.Type.Earning() && user.HasWallet() && s.mirror != nil {
		if err := s.mirror.EnqueueAward(ctx, user, amount, entry.Description); err != nil {
			s.log.Warn("external ledger award not queued",
				zap.String("userId", userID.Hex()),
				zap.Int64("amount", amount),
				zap.Error(err))
		}
	}
	return user, nil
}

// Debit removes amount only if the balance covers it. The check and the
// update are a single conditional write; on refusal nothing changes.
func (s *Service) Debit(ctx context.Context, userID primitive.ObjectID, amount int64, entry Entry) (*models.User, error) {
	if amount <= 0 {
		return nil, apperr.InvalidInput("amount must be positive")
	}
	switch entry.Type {
	case models.ActivityPurchase, models.ActivityAdjustment:
	default:
		return nil, apperr.InvalidInput("activity type cannot debit points")
	}

	user, err := s.users.ApplyActivity(ctx, userID, s.NewActivity(entry, -amount), true)
	if errors.Is(err, apperr.ErrInsufficientPoints) {
		metrics.DebitsRejected.Inc()
		return nil, err
	}
	if err != nil {
		s.logFailure(err, "ledger.debit", userID, amount)
		return nil, err
	}
	metrics.PointsMoved.WithLabelValues(DirectionDebit, string(entry.Type)).Add(float64(amount))
	return user, nil
}

// Activities returns up to limit entries, newest first. Out-of-range limits
// fall back to the default or are capped.
func (s *Service) Activities(ctx context.Context, userID primitive.ObjectID, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	return s.users.Activities(ctx, userID, limit)
}

func (s *Service) logFailure(err error, op string, userID primitive.ObjectID, amount int64) {
	if apperr.Expected(err) {
		return
	}
	s.log.Error("ledger write failed",
		zap.String("operation", op),
		zap.String("userId", userID.Hex()),
		zap.Int64("amount", amount),
		zap.Error(err))
}
