package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Tetsu-is/social-feed/internal/auth"
	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/Tetsu-is/social-feed/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	AllowedOrigins []string
	// JWTSecret enables bearer tokens in addition to the upstream header.
	JWTSecret []byte
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(withLogging(h.logger))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", auth.UserIDHeader},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(h.requireIdentity(opts.JWTSecret))

		r.Post("/posts", h.createPost)
		r.Post("/system_posts", h.createSystemPost)
		r.Get("/feed", h.getFeed)
		r.Post("/feed/read", h.markRead)

		r.Route("/posts/{postID}", func(r chi.Router) {
			r.Post("/like", h.likePost)
			r.Delete("/like", h.unlikePost)
			r.Post("/comments", h.commentPost)
			r.Get("/comments", h.listComments)
		})

		r.Get("/search", h.search)
		r.Post("/follows", h.follow)
		r.Post("/users/tags", h.updateTags)
	})

	return r
}

// requireIdentity resolves the caller id and rejects anonymous requests.
func (h *Handler) requireIdentity(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, err := auth.Identify(r, secret)
			if err != nil {
				h.writeError(w, r, domain.ErrUserNotLogin)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), uid)))
		})
	}
}

func withLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			elapsed := time.Since(start)
			metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Observe(elapsed.Seconds())

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration", elapsed,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
