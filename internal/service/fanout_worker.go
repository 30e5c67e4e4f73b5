package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/Tetsu-is/social-feed/internal/metrics"
	"github.com/Tetsu-is/social-feed/internal/queue"
)

// FanoutWorker copies a new post reference into the personal timeline of the
// author and every follower.
type FanoutWorker struct {
	follows   domain.FollowRepository
	timelines domain.TimelineCache
	logger    *slog.Logger
}

func NewFanoutWorker(follows domain.FollowRepository, timelines domain.TimelineCache, logger *slog.Logger) *FanoutWorker {
	return &FanoutWorker{follows: follows, timelines: timelines, logger: logger}
}

// Run consumes fanout jobs from q until ctx is done.
func (w *FanoutWorker) Run(ctx context.Context, q queue.Queue, concurrency int) error {
	w.logger.Info("fanout worker started", "concurrency", concurrency)
	defer w.logger.Info("fanout worker stopped")
	return q.Consume(ctx, concurrency, w.Handle)
}

// Handle processes one delivery. Every delivery of the same job writes the
// same score, so redelivery is harmless.
func (w *FanoutWorker) Handle(ctx context.Context, job queue.Job) error {
	if job.Name != domain.JobFanoutPost {
		w.logger.Warn("ignoring unknown job", "job_id", job.ID, "name", job.Name)
		return nil
	}

	var p domain.FanoutJob
	if err := job.Decode(&p); err != nil {
		// 再試行しても直らない
		w.logger.Error("dropping undecodable fanout job", "job_id", job.ID, "error", err)
		return nil
	}

	if err := w.Fanout(ctx, p); err != nil {
		metrics.FanoutJobs.WithLabelValues("error").Inc()
		return err
	}
	metrics.FanoutJobs.WithLabelValues("ok").Inc()
	return nil
}

func (w *FanoutWorker) Fanout(ctx context.Context, p domain.FanoutJob) error {
	followers, err := w.follows.GetFollowerIDs(ctx, p.AuthorID)
	if err != nil {
		return fmt.Errorf("load followers of %s: %w", p.AuthorID, err)
	}

	targets := followers
	if !slices.Contains(targets, p.AuthorID) {
		targets = append(targets, p.AuthorID)
	}

	entry := domain.TimelineEntry{PostID: p.PostID, Score: p.CreatedAt}
	if err := w.timelines.AddToTimelines(ctx, targets, entry); err != nil {
		return err
	}

	metrics.FanoutTimelineWrites.Add(float64(len(targets)))
	w.logger.Debug("fanout done", "post_id", p.PostID, "author_id", p.AuthorID, "timelines", len(targets))
	return nil
}
