package data

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/biz"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// eventQueue is a Redis-list work queue. LPUSH producers, BRPOP consumers;
// delivery is at-least-once, so handlers must be idempotent.
type eventQueue struct {
	rdb *redis.Client
	key string
	log *log.Helper
}

// NewEventQueue creates the subscription event queue.
func NewEventQueue(c *conf.Bootstrap, rdb *redis.Client, logger log.Logger) biz.EventQueue {
	return &eventQueue{
		rdb: rdb,
		key: c.EventQueueName(),
		log: log.NewHelper(logger),
	}
}

// Enqueue pushes a task onto the queue.
func (q *eventQueue) Enqueue(ctx context.Context, task *biz.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		q.log.Errorf("Failed to enqueue %s task: %v", task.Kind, err)
		return err
	}
	return nil
}

// Dequeue blocks up to timeout for the next task; returns nil when nothing
// arrived.
func (q *eventQueue) Dequeue(ctx context.Context, timeout time.Duration) (*biz.Task, error) {
	vals, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BRPOP returns [key, value].
	if len(vals) != 2 {
		return nil, nil
	}

	var task biz.Task
	if err := json.Unmarshal([]byte(vals[1]), &task); err != nil {
		q.log.Errorf("Dropping undecodable queue payload: %v", err)
		return nil, nil
	}
	return &task, nil
}

// Len reports the queue depth.
func (q *eventQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
