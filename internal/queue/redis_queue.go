package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Tetsu-is/social-feed/internal/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisQueue is a reliable list queue. Deliveries move from pending to
// processing and are removed only after the handler returns.
type RedisQueue struct {
	rdb         redis.UniversalClient
	name        string
	maxAttempts int
	block       time.Duration
	logger      *slog.Logger
}

func NewRedisQueue(rdb redis.UniversalClient, name string, maxAttempts int, logger *slog.Logger) *RedisQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RedisQueue{
		rdb:         rdb,
		name:        name,
		maxAttempts: maxAttempts,
		block:       time.Second,
		logger:      logger,
	}
}

func (q *RedisQueue) pendingKey() string    { return "queue:" + q.name + ":pending" }
func (q *RedisQueue) processingKey() string { return "queue:" + q.name + ":processing" }
func (q *RedisQueue) failedKey() string     { return "queue:" + q.name + ":failed" }

func (q *RedisQueue) Enqueue(ctx context.Context, name string, payload any) error {
	job, err := newJob(name, payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, q.pendingKey(), raw).Err()
}

func (q *RedisQueue) Consume(ctx context.Context, concurrency int, h Handler) error {
	n, err := q.requeueProcessing(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		q.logger.Info("requeued interrupted jobs", "queue", q.name, "count", n)
	}

	var wg sync.WaitGroup
	for range max(concurrency, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.work(ctx, h)
		}()
	}
	wg.Wait()
	return nil
}

func (q *RedisQueue) Close() error { return nil }

// requeueProcessing moves deliveries left behind by a stopped consumer back to
// the front of pending.
func (q *RedisQueue) requeueProcessing(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.rdb.LMove(ctx, q.processingKey(), q.pendingKey(), "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}

func (q *RedisQueue) work(ctx context.Context, h Handler) {
	for ctx.Err() == nil {
		raw, err := q.rdb.BLMove(ctx, q.pendingKey(), q.processingKey(), "RIGHT", "LEFT", q.block).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.logger.Error("queue fetch failed", "queue", q.name, "error", err)
			sleepCtx(ctx, time.Second)
			continue
		}
		q.process(ctx, raw, h)
	}
}

func (q *RedisQueue) process(ctx context.Context, raw string, h Handler) {
	// 後処理はシャットダウン中でも完了させる
	ackCtx := context.WithoutCancel(ctx)

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		q.logger.Error("dropping malformed job", "queue", q.name, "error", err)
		q.move(ackCtx, raw, q.failedKey(), raw)
		metrics.QueueJobs.WithLabelValues("redis", "failed").Inc()
		return
	}

	err := h(ctx, job)
	if err == nil {
		if err := q.rdb.LRem(ackCtx, q.processingKey(), 1, raw).Err(); err != nil {
			q.logger.Error("queue ack failed", "queue", q.name, "job_id", job.ID, "error", err)
		}
		metrics.QueueJobs.WithLabelValues("redis", "done").Inc()
		return
	}
	if ctx.Err() != nil {
		// processing に残し、次回起動時に再投入される
		return
	}

	job.Attempts++
	next, outcome := q.pendingKey(), "retried"
	if job.Attempts >= q.maxAttempts {
		next, outcome = q.failedKey(), "failed"
	}
	q.logger.Warn("job failed", "queue", q.name, "job_id", job.ID, "name", job.Name,
		"attempts", job.Attempts, "outcome", outcome, "error", err)

	updated, mErr := json.Marshal(job)
	if mErr != nil {
		updated = []byte(raw)
	}
	q.move(ackCtx, raw, next, string(updated))
	metrics.QueueJobs.WithLabelValues("redis", outcome).Inc()
}

func (q *RedisQueue) move(ctx context.Context, raw, dest, value string) {
	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, q.processingKey(), 1, raw)
	pipe.LPush(ctx, dest, value)
	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.Error("queue move failed", "queue", q.name, "dest", dest, "error", err)
	}
}

// Failed returns jobs that exhausted their attempts, newest first.
func (q *RedisQueue) Failed(ctx context.Context) ([]Job, error) {
	raws, err := q.rdb.LRange(ctx, q.failedKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(raws))
	for _, raw := range raws {
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Pending returns the number of jobs waiting for delivery.
func (q *RedisQueue) Pending(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.pendingKey()).Result()
}
