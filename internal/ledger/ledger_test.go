package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"ecorewards/internal/apperr"
	"ecorewards/internal/memstore"
	"ecorewards/internal/metrics"
	"ecorewards/internal/models"
)

type recordingMirror struct {
	mu     sync.Mutex
	awards []int64
	err    error
}

func (m *recordingMirror) EnqueueAward(_ context.Context, _ *models.User, amount int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.awards = append(m.awards, amount)
	return m.err
}

func newUser(t *testing.T, users *memstore.Users, points int64, wallet string) primitive.ObjectID {
	t.Helper()
	user := &models.User{Email: primitive.NewObjectID().Hex() + "@example.com", Name: "Test", WalletAddress: wallet}
	require.NoError(t, users.Create(context.Background(), user))
	if points > 0 {
		_, err := users.ApplyActivity(context.Background(), user.ID, models.Activity{
			ID: "seed", Type: models.ActivityBonus, Description: "Welcome bonus", Delta: points,
		}, false)
		require.NoError(t, err)
	}
	return user.ID
}

func sumDeltas(acts []models.Activity) int64 {
	var total int64
	for _, a := range acts {
		total += a.Delta
	}
	return total
}

func TestCreditAndDebit(t *testing.T) {
	ctx := context.Background()
	users := memstore.NewUsers()
	svc := NewService(users, nil, zap.NewNop())
	id := newUser(t, users, 500, "")

	user, err := svc.Credit(ctx, id, 120, Entry{Type: models.ActivityRecycle, Description: "Recycled laptop"})
	require.NoError(t, err)
	assert.Equal(t, int64(620), user.Points)
	assert.Equal(t, int64(620), user.LifetimePoints)

	user, err = svc.Debit(ctx, id, 600, Entry{Type: models.ActivityPurchase, Description: "order x"})
	require.NoError(t, err)
	assert.Equal(t, int64(20), user.Points)
	assert.Equal(t, int64(620), user.LifetimePoints, "spending never lowers lifetime points")

	balance, err := svc.GetBalance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance)

	acts, err := svc.Activities(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, acts, 3)
	assert.Equal(t, int64(-600), acts[0].Delta, "newest first")
	assert.NotEmpty(t, acts[0].ID)
}

func TestDebitInsufficientLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	users := memstore.NewUsers()
	svc := NewService(users, nil, zap.NewNop())
	id := newUser(t, users, 100, "")

	_, err := svc.Debit(ctx, id, 101, Entry{Type: models.ActivityPurchase, Description: "too much"})
	assert.ErrorIs(t, err, apperr.ErrInsufficientPoints)

	points, acts := users.Ledger(id)
	assert.Equal(t, int64(100), points)
	assert.Len(t, acts, 1)
}

func TestRefundDoesNotRaiseLifetime(t *testing.T) {
	ctx := context.Background()
	users := memstore.NewUsers()
	svc := NewService(users, nil, zap.NewNop())
	id := newUser(t, users, 100, "")

	user, err := svc.Credit(ctx, id, 40, Entry{Type: models.ActivityRefund, Description: "refund"})
	require.NoError(t, err)
	assert.Equal(t, int64(140), user.Points)
	assert.Equal(t, int64(100), user.LifetimePoints)
}

func TestRejectsBadAmountsAndTypes(t *testing.T) {
	ctx := context.Background()
	users := memstore.NewUsers()
	svc := NewService(users, nil, zap.NewNop())
	id := newUser(t, users, 100, "")

	_, err := svc.Credit(ctx, id, 0, Entry{Type: models.ActivityRecycle})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = svc.Debit(ctx, id, -5, Entry{Type: models.ActivityPurchase})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = svc.Credit(ctx, id, 10, Entry{Type: models.ActivityPurchase})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = svc.Debit(ctx, id, 10, Entry{Type: models.ActivityBonus})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.NewUsers(), nil, zap.NewNop())
	missing := primitive.NewObjectID()

	_, err := svc.GetBalance(ctx, missing)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Debit(ctx, missing, 1, Entry{Type: models.ActivityPurchase})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestEarningCreditQueuesAwardForWalletHolders(t *testing.T) {
	ctx := context.Background()
	users := memstore.NewUsers()
	mirror := &recordingMirror{}
	svc := NewService(users, mirror, zap.NewNop())

	withWallet := newUser(t, users, 0, "0x00000000000000000000000000000000000000aa")
	without := newUser(t, users, 0, "")

	_, err := svc.Credit(ctx, withWallet, 75, Entry{Type: models.ActivityRecycle, Description: "phone"})
	require.NoError(t, err)
	_, err = svc.Credit(ctx, withWallet, 10, Entry{Type: models.ActivityRefund, Description: "refund"})
	require.NoError(t, err)
	_, err = svc.Credit(ctx, without, 75, Entry{Type: models.ActivityRecycle, Description: "phone"})
	require.NoError(t, err)

	assert.Equal(t, []int64{75}, mirror.awards)
}

func TestMirrorFailureDoesNotFailCredit(t *testing.T) {
	users := memstore.NewUsers()
	mirror := &recordingMirror{err: errors.New("redis down")}
	svc := NewService(users, mirror, zap.NewNop())
	id := newUser(t, users, 0, "0x00000000000000000000000000000000000000bb")

	user, err := svc.Credit(context.Background(), id, 30, Entry{Type: models.ActivityRecycle})
	require.NoError(t, err)
	assert.Equal(t, int64(30), user.Points)
}

func TestConcurrentCreditsAndDebitsKeepBalanceConsistent(t *testing.T) {
	ctx := context.Background()
	users := memstore.NewUsers()
	svc := NewService(users, nil, zap.NewNop())
	id := newUser(t, users, 50, "")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.Credit(ctx, id, 10, Entry{Type: models.ActivityRecycle})
		}()
		go func() {
			defer wg.Done()
			_, _ = svc.Debit(ctx, id, 25, Entry{Type: models.ActivityPurchase})
		}()
	}
	wg.Wait()

	points, acts := users.Ledger(id)
	assert.GreaterOrEqual(t, points, int64(0))
	assert.Equal(t, sumDeltas(acts), points)
}

func TestDebitCountsPointsMoved(t *testing.T) {
	ctx := context.Background()
	users := memstore.NewUsers()
	svc := NewService(users, nil, zap.NewNop())
	id := newUser(t, users, 300, "")

	debited := metrics.PointsMoved.WithLabelValues(DirectionDebit, string(models.ActivityAdjustment))
	credited := metrics.PointsMoved.WithLabelValues(DirectionCredit, string(models.ActivityAdjustment))
	beforeDebit := testutil.ToFloat64(debited)
	beforeCredit := testutil.ToFloat64(credited)

	require.NotPanics(t, func() {
		_, err := svc.Debit(ctx, id, 120, Entry{Type: models.ActivityAdjustment, Description: "Correction"})
		require.NoError(t, err)
	})
	_, err := svc.Credit(ctx, id, 20, Entry{Type: models.ActivityAdjustment, Description: "Correction"})
	require.NoError(t, err)

	assert.Equal(t, beforeDebit+120, testutil.ToFloat64(debited))
	assert.Equal(t, beforeCredit+20, testutil.ToFloat64(credited))

	points, _ := users.Ledger(id)
	assert.Equal(t, int64(200), points)
}
