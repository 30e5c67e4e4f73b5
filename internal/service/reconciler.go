package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/Tetsu-is/social-feed/internal/metrics"
)

type ReconcileResult struct {
	Popped  int
	Written int
	Skipped int
	Failed  int
}

// Reconciler periodically flushes dirty counters to the persistent store.
type Reconciler struct {
	posts    domain.PostRepository
	cache    domain.StatsCache
	interval time.Duration
	batch    int
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReconciler(posts domain.PostRepository, cache domain.StatsCache, interval time.Duration, batch int, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		posts:    posts,
		cache:    cache,
		interval: interval,
		batch:    batch,
		logger:   logger,
	}
}

// RunOnce pops one batch of dirty posts and writes their counters. A failed
// write is logged and the post is not marked dirty again.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	ids, err := r.cache.PopDirty(ctx, r.batch)
	if err != nil {
		return res, err
	}
	res.Popped = len(ids)
	if len(ids) == 0 {
		return res, nil
	}

	stats, err := r.cache.GetStats(ctx, ids)
	if err != nil {
		return res, err
	}

	for _, id := range ids {
		st, ok := stats[id]
		if !ok {
			res.Skipped++
			continue
		}
		if err := r.posts.UpdatePostStats(ctx, id, st); err != nil {
			r.logger.Error("stats write failed", "post_id", id, "error", err)
			res.Failed++
			continue
		}
		res.Written++
	}

	metrics.ReconcilePosts.WithLabelValues("written").Add(float64(res.Written))
	metrics.ReconcilePosts.WithLabelValues("skipped").Add(float64(res.Skipped))
	metrics.ReconcilePosts.WithLabelValues("failed").Add(float64(res.Failed))
	return res, nil
}

// Start runs RunOnce every interval until Stop is called or ctx is done.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("stats reconciler started", "interval", r.interval, "batch", r.batch)
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("stats reconciler stopped")
				return
			case <-ticker.C:
				res, err := r.RunOnce(ctx)
				if err != nil {
					if ctx.Err() == nil {
						r.logger.Error("stats reconcile failed", "error", err)
					}
					continue
				}
				if res.Popped > 0 {
					r.logger.Info("stats reconciled", "popped", res.Popped, "written", res.Written,
						"skipped", res.Skipped, "failed", res.Failed)
				}
			}
		}
	}(r.done)
}

// Stop cancels the loop and waits for the running cycle to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
