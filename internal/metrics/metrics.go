package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_post_cache_lookups_total",
		Help: "Post cache lookups by result (hit, miss).",
	}, []string{"result"})

	FanoutJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_fanout_jobs_total",
		Help: "Fanout jobs handled by result (ok, error).",
	}, []string{"result"})

	FanoutTimelineWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_fanout_timeline_writes_total",
		Help: "Personal timeline inserts performed by fanout.",
	})

	ReconcilePosts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_stats_reconcile_posts_total",
		Help: "Dirty posts processed by reconciliation by result (written, skipped, failed).",
	}, []string{"result"})

	QueueJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_queue_jobs_total",
		Help: "Queue jobs by driver and outcome (done, retried, failed).",
	}, []string{"driver", "outcome"})

	FeedItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feed_page_items",
		Help:    "Number of posts returned per feed page.",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
	})
)
