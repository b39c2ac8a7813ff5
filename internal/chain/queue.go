package chain

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingKey = "ecorewards:chain:pending"
	delayedKey = "ecorewards:chain:delayed"
	deadKey    = "ecorewards:chain:dead"

	promoteBatch = 100
)

type Kind string

const (
	KindAward  Kind = "award"
	KindRedeem Kind = "redeem"
)

// Job is one pending call to the external ledger.
type Job struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	UserID     string    `json:"userId"`
	Address    string    `json:"address"`
	Amount     int64     `json:"amount"`
	Reason     string    `json:"reason,omitempty"`
	ProductID  string    `json:"productId,omitempty"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"lastError,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

type Queue interface {
	Push(ctx context.Context, job Job) error
	// Pop waits up to timeout for a job. It returns nil, nil when none arrived.
	Pop(ctx context.Context, timeout time.Duration) (*Job, error)
	Defer(ctx context.Context, job Job, at time.Time) error
	PromoteDue(ctx context.Context, now time.Time) (int, error)
	Bury(ctx context.Context, job Job) error
}

// RedisQueue keeps ready jobs in a list, retries in a sorted set scored by
// due time, and exhausted jobs in a dead-letter list.
type RedisQueue struct {
	rdb *redis.Client
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func (q *RedisQueue) Push(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, pendingKey, data).Err()
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, pendingKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (q *RedisQueue) Defer(ctx context.Context, job Job, at time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.ZAdd(ctx, delayedKey, redis.Z{Score: float64(at.UnixMilli()), Member: data}).Err()
}

// PromoteDue moves retries whose time has come back to the ready list. Only
// the caller that removes a member from the set pushes it, so concurrent
// promoters never duplicate a job.
func (q *RedisQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	members, err := q.rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, member := range members {
		removed, err := q.rdb.ZRem(ctx, delayedKey, member).Result()
		if err != nil {
			return promoted, err
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, pendingKey, member).Err(); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

func (q *RedisQueue) Bury(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, deadKey, data).Err()
}
