package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/Tetsu-is/social-feed/internal/cache"
	"github.com/Tetsu-is/social-feed/internal/config"
	"github.com/Tetsu-is/social-feed/internal/handler"
	"github.com/Tetsu-is/social-feed/internal/queue"
	"github.com/Tetsu-is/social-feed/internal/repository"
	"github.com/Tetsu-is/social-feed/internal/service"
	"github.com/Tetsu-is/social-feed/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	fanoutQueueName = "fanout_queue"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	role := flag.String("role", "", "override ROLE (api, worker or all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *role != "" {
		cfg.Role = *role
	}
	if !cfg.RunsAPI() && !cfg.RunsWorker() {
		return fmt.Errorf("unknown role %q", cfg.Role)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.OTLPEndpoint, "social-feed", cfg.Role)
	if err != nil {
		return err
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(c)
	}()

	// DB 接続
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	// Redis 接続
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	var q queue.Queue
	switch cfg.QueueDriver {
	case config.QueueKafka:
		q = queue.NewKafkaQueue(queue.KafkaConfig{
			Brokers:     cfg.KafkaBrokers,
			Topic:       cfg.KafkaTopic,
			GroupID:     cfg.KafkaGroupID,
			MaxAttempts: cfg.QueueMaxAttempts,
		}, logger)
	default:
		q = queue.NewRedisQueue(rdb, fanoutQueueName, cfg.QueueMaxAttempts, logger)
	}
	defer q.Close()

	// Repositories
	posts := repository.NewPostRepository(pool)
	feeds := repository.NewFeedRepository(pool)
	follows := repository.NewFollowRepository(pool)
	users := repository.NewUserRepository(pool)
	likes := repository.NewLikeRepository(pool)
	comments := repository.NewCommentRepository(pool)
	search := repository.NewSearchRepository(pool)

	// Caches
	postCache := cache.NewPostCache(rdb, cfg.CacheTTL)
	statsCache := cache.NewStatsCache(rdb, cfg.CacheTTL)
	timelines := cache.NewTimelineCache(rdb)
	cursors := cache.NewReadCursorCache(rdb)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	if cfg.RunsWorker() {
		reconciler := service.NewReconciler(posts, statsCache, cfg.StatsSyncInterval, cfg.StatsSyncBatch, logger)
		reconciler.Start(ctx)
		defer reconciler.Stop()

		fanout := service.NewFanoutWorker(follows, timelines, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fanout.Run(ctx, q, cfg.FanoutConcurrency); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("fanout worker: %w", err)
			}
		}()
	}

	if cfg.RunsAPI() {
		content := service.NewContentService(posts, postCache, statsCache, logger)
		stats := service.NewStatsService(posts, statsCache)

		h := handler.New(handler.Services{
			Posts:        service.NewPostService(posts, postCache, timelines, q, logger),
			Feed:         service.NewFeedService(timelines, cursors, users, feeds, content, cfg.FeedDefaultLimit, cfg.FeedMaxLimit, logger),
			Interactions: service.NewInteractionService(likes, comments, stats),
			Follows:      service.NewFollowService(follows, users),
			Users:        service.NewUserService(users),
			Search:       service.NewSearchService(search, content),
		}, logger)

		router := handler.NewRouter(h, handler.RouterOptions{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			JWTSecret:      []byte(cfg.JWTSecret),
		})

		srv := &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.Port),
			Handler:           otelhttp.NewHandler(router, "http.server"),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       90 * time.Second,
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("server starting", "addr", srv.Addr, "role", cfg.Role)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()

		go func() {
			<-ctx.Done()
			c, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(c); err != nil {
				logger.Error("http shutdown failed", "error", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		stop()
	}
	wg.Wait()
	return err
}
