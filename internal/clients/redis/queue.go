package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

const DefaultQueueName = "thinkbank:tasks"

type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// TaskQueue is a Redis list of asset ids. Producers LPUSH onto the head and
// the worker BRPOPs from the tail, so the list drains oldest first.
type TaskQueue interface {
	Push(ctx context.Context, ids ...string) error
	// Pop blocks up to timeout. ok is false when nothing arrived in time.
	Pop(ctx context.Context, timeout time.Duration) (id string, ok bool, err error)
	// List returns every queued id without removing any.
	List(ctx context.Context) ([]string, error)
	Len(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Name() string
	Close() error
}

type taskQueue struct {
	log  *logger.Logger
	rdb  *goredis.Client
	name string
}

func NewTaskQueue(cfg Config, log *logger.Logger) (TaskQueue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewTaskQueueFromClient(rdb, cfg.Queue, log), nil
}

func NewTaskQueueFromClient(rdb *goredis.Client, name string, log *logger.Logger) TaskQueue {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultQueueName
	}
	return &taskQueue{
		log:  log.With("service", "RedisTaskQueue", "queue", name),
		rdb:  rdb,
		name: name,
	}
}

func (q *taskQueue) Name() string { return q.name }

func (q *taskQueue) Push(ctx context.Context, ids ...string) error {
	if q == nil || q.rdb == nil {
		return fmt.Errorf("redis task queue not initialized")
	}
	if len(ids) == 0 {
		return nil
	}
	// One LPUSH per id keeps the first id nearest the tail.
	pipe := q.rdb.Pipeline()
	for _, id := range ids {
		pipe.LPush(ctx, q.name, id)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (q *taskQueue) Pop(ctx context.Context, timeout time.Duration) (string, bool, error) {
	if q == nil || q.rdb == nil {
		return "", false, fmt.Errorf("redis task queue not initialized")
	}
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	// res is [queue, value].
	if len(res) != 2 {
		return "", false, fmt.Errorf("unexpected BRPOP reply: %v", res)
	}
	return res[1], true, nil
}

func (q *taskQueue) List(ctx context.Context) ([]string, error) {
	if q == nil || q.rdb == nil {
		return nil, fmt.Errorf("redis task queue not initialized")
	}
	return q.rdb.LRange(ctx, q.name, 0, -1).Result()
}

func (q *taskQueue) Len(ctx context.Context) (int64, error) {
	if q == nil || q.rdb == nil {
		return 0, fmt.Errorf("redis task queue not initialized")
	}
	return q.rdb.LLen(ctx, q.name).Result()
}

func (q *taskQueue) Ping(ctx context.Context) error {
	if q == nil || q.rdb == nil {
		return fmt.Errorf("redis task queue not initialized")
	}
	return q.rdb.Ping(ctx).Err()
}

func (q *taskQueue) Close() error {
	if q == nil || q.rdb == nil {
		return nil
	}
	return q.rdb.Close()
}
