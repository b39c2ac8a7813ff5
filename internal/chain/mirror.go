package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"ecorewards/internal/apperr"
	"ecorewards/internal/metrics"
	"ecorewards/internal/models"
)

type MirrorOptions struct {
	Workers         int
	MaxAttempts     int
	RetryBase       time.Duration
	PromoteSchedule string
	PopTimeout      time.Duration
}

// Mirror replays internal ledger movements on the external ledger. The
// internal ledger stays authoritative; the two may drift while jobs are
// pending or after they are buried.
type Mirror struct {
	queue  Queue
	ledger Ledger
	opts   MirrorOptions
	log    *zap.Logger
	now    func() time.Time
}

func NewMirror(queue Queue, ledger Ledger, opts MirrorOptions, log *zap.Logger) *Mirror {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 30 * time.Second
	}
	if opts.PromoteSchedule == "" {
		opts.PromoteSchedule = "@every 15s"
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 5 * time.Second
	}
	return &Mirror{queue: queue, ledger: ledger, opts: opts, log: log, now: time.Now}
}

func (m *Mirror) EnqueueAward(ctx context.Context, user *models.User, amount int64, reason string) error {
	return m.enqueue(ctx, Job{
		Kind:    KindAward,
		UserID:  user.ID.Hex(),
		Address: user.WalletAddress,
		Amount:  amount,
		Reason:  reason,
	})
}

func (m *Mirror) EnqueueRedeem(ctx context.Context, user *models.User, amount int64, productID string) error {
	return m.enqueue(ctx, Job{
		Kind:      KindRedeem,
		UserID:    user.ID.Hex(),
		Address:   user.WalletAddress,
		Amount:    amount,
		ProductID: productID,
	})
}

func (m *Mirror) enqueue(ctx context.Context, job Job) error {
	if !m.ledger.Enabled() {
		return apperr.ErrExternalLedgerUnavailable
	}
	job.ID = uuid.NewString()
	job.EnqueuedAt = m.now().UTC()
	if err := m.queue.Push(ctx, job); err != nil {
		metrics.MirrorJobs.WithLabelValues(string(job.Kind), "enqueue_failed").Inc()
		return apperr.Wrap(apperr.CodeExternalLedgerUnavailable, "enqueue mirror job", err)
	}
	metrics.MirrorJobs.WithLabelValues(string(job.Kind), "enqueued").Inc()
	return nil
}

// WalletBalance reads the on-chain balance of address as a decimal string.
func (m *Mirror) WalletBalance(ctx context.Context, address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", apperr.InvalidInput("no wallet linked")
	}
	balance, err := m.ledger.BalanceOf(ctx, common.HexToAddress(address))
	if err != nil {
		return "", err
	}
	return balance.String(), nil
}

// Run works the queue until ctx is cancelled. Due retries are promoted on
// the configured cron schedule.
func (m *Mirror) Run(ctx context.Context) error {
	if !m.ledger.Enabled() {
		m.log.Info("external ledger disabled, mirror idle")
		<-ctx.Done()
		return nil
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(m.opts.PromoteSchedule, func() { m.promote(ctx) }); err != nil {
		return fmt.Errorf("mirror promote schedule %q: %w", m.opts.PromoteSchedule, err)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	m.log.Info("mirror started", zap.Int("workers", m.opts.Workers))
	p := pool.New().WithContext(ctx)
	for i := 0; i < m.opts.Workers; i++ {
		p.Go(func(ctx context.Context) error {
			m.work(ctx)
			return nil
		})
	}
	err := p.Wait()
	m.log.Info("mirror stopped")
	return err
}

func (m *Mirror) promote(ctx context.Context) {
	n, err := m.queue.PromoteDue(ctx, m.now())
	if err != nil {
		if ctx.Err() == nil {
			m.log.Warn("mirror promote failed", zap.Error(err))
		}
		return
	}
	if n > 0 {
		m.log.Debug("mirror jobs promoted", zap.Int("count", n))
	}
}

func (m *Mirror) work(ctx context.Context) {
	for ctx.Err() == nil {
		job, err := m.queue.Pop(ctx, m.opts.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.log.Warn("mirror pop failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}
		m.Process(ctx, *job)
	}
}

// Process makes one attempt at job. Failures are retried with quadratic
// backoff until MaxAttempts, then buried.
func (m *Mirror) Process(ctx context.Context, job Job) {
	tx, err := m.call(ctx, job)
	if err == nil {
		metrics.MirrorJobs.WithLabelValues(string(job.Kind), "done").Inc()
		m.log.Info("mirror job done",
			zap.String("jobId", job.ID),
			zap.String("kind", string(job.Kind)),
			zap.String("userId", job.UserID),
			zap.Int64("amount", job.Amount),
			zap.String("tx", tx.Hex()))
		return
	}

	job.Attempts++
	job.LastError = err.Error()
	fields := []zap.Field{
		zap.String("jobId", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("userId", job.UserID),
		zap.Int64("amount", job.Amount),
		zap.Int("attempts", job.Attempts),
		zap.Error(err),
	}

	if job.Attempts >= m.opts.MaxAttempts {
		metrics.MirrorJobs.WithLabelValues(string(job.Kind), "buried").Inc()
		m.log.Error("mirror job buried", fields...)
		if buryErr := m.queue.Bury(ctx, job); buryErr != nil {
			m.log.Error("mirror bury failed", zap.String("jobId", job.ID), zap.Error(buryErr))
		}
		return
	}

	metrics.MirrorJobs.WithLabelValues(string(job.Kind), "retried").Inc()
	m.log.Warn("mirror job failed, retrying", fields...)
	if deferErr := m.queue.Defer(ctx, job, m.now().Add(m.backoff(job.Attempts))); deferErr != nil {
		m.log.Error("mirror defer failed", zap.String("jobId", job.ID), zap.Error(deferErr))
	}
}

func (m *Mirror) backoff(attempts int) time.Duration {
	return m.opts.RetryBase * time.Duration(attempts*attempts)
}

var errUnknownKind = errors.New("unknown job kind")

func (m *Mirror) call(ctx context.Context, job Job) (common.Hash, error) {
	amount := big.NewInt(job.Amount)
	switch job.Kind {
	case KindAward:
		if !common.IsHexAddress(job.Address) {
			return common.Hash{}, fmt.Errorf("award to invalid address %q", job.Address)
		}
		return m.ledger.AwardPoints(ctx, common.HexToAddress(job.Address), amount, job.Reason)
	case KindRedeem:
		return m.ledger.RedeemPoints(ctx, amount, job.ProductID)
	}
	return common.Hash{}, fmt.Errorf("%w: %q", errUnknownKind, job.Kind)
}
