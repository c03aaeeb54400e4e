package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prokemal2012/Filx/internal/comments"
	"github.com/prokemal2012/Filx/internal/config"
	"github.com/prokemal2012/Filx/internal/documents"
	"github.com/prokemal2012/Filx/internal/explore"
	"github.com/prokemal2012/Filx/internal/feed"
	"github.com/prokemal2012/Filx/internal/logging"
	"github.com/prokemal2012/Filx/internal/metrics"
	"github.com/prokemal2012/Filx/internal/notifications"
	"github.com/prokemal2012/Filx/internal/social"
	"github.com/prokemal2012/Filx/internal/storage"
)

// IndexCounter reports how many documents the search index holds
type IndexCounter interface {
	Count() (uint64, error)
}

// Deps are the services the HTTP layer exposes
type Deps struct {
	Store     storage.DocumentStore
	Index     IndexCounter
	Feed      *feed.Service
	Explore   *explore.Aggregator
	Social    *social.Service
	Documents *documents.Service
	Comments  *comments.Service
	Notices   *notifications.Service
	Tokens    *TokenManager
}

// Server serves the JSON API
type Server struct {
	deps      Deps
	rateLimit config.RateLimitConfig
}

// NewServer creates a server
func NewServer(deps Deps, rateLimit config.RateLimitConfig) *Server {
	return &Server{deps: deps, rateLimit: rateLimit}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(observe)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.rateLimit.Enabled {
			r.Use(httprate.LimitByIP(s.rateLimit.Requests, s.rateLimit.Window))
		}
		r.Use(s.deps.Tokens.RequireSession)

		// Feed and discovery
		r.Get("/feed", s.handleFeed)
		r.Get("/recent-activity", s.handleRecentActivity)
		r.Get("/trending-documents", s.handleTrendingDocuments)
		r.Get("/explore", s.handleExplore)
		r.Get("/trending-topics", s.handleTrendingTopics)
		r.Get("/categories", s.handleCategories)
		r.Get("/categories/trending", s.handleTrendingCategories)

		// Social
		r.Route("/interactions", func(r chi.Router) {
			r.Get("/connections", s.handleConnections)
			r.Get("/status", s.handleStatus)
			r.Get("/feed", s.handleActivityFeed)
			r.Get("/bookmarks", s.handleBookmarks)
			r.Get("/likes", s.handleLikes)
			r.Get("/following/{id}", s.handleIsFollowing)
			r.Post("/like", s.handleLike)
			r.Post("/bookmark", s.handleBookmark)
			r.Post("/follow", s.handleFollow)
		})
		r.Get("/user-counts", s.handleUserCounts)
		r.Put("/profile", s.handleProfile)

		// Documents
		r.Get("/search", s.handleSearch)
		r.Post("/documents", s.handleCreateDocument)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Put("/documents/{id}", s.handleUpdateDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Get("/users/{id}/documents", s.handleUserDocuments)

		// Comments and notifications
		r.Get("/documents/{id}/comments", s.handleListComments)
		r.Post("/documents/{id}/comments", s.handleAddComment)
		r.Post("/comments/{id}/reply", s.handleReply)
		r.Post("/comments/{id}/like", s.handleCommentLike)
		r.Get("/notifications", s.handleNotifications)
		r.Post("/notifications", s.handleCreateNotification)
		r.Put("/notifications", s.handleMarkNotifications)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	logging.Info().Msg("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{"status": "ok"}

	docs, err := s.deps.Store.ListDocuments(r.Context(), storage.DocumentFilter{})
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Health check: store unavailable")
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	} else {
		body["documents_in_db"] = len(docs)
	}

	if s.deps.Index != nil {
		if n, err := s.deps.Index.Count(); err == nil {
			body["documents_in_index"] = n
		}
	}

	writeJSON(w, status, body)
}

// requestID tags the request context and response with an X-Request-ID
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}

// observe records request metrics and a debug access log line
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		duration := time.Since(start)
		metrics.RecordAPIRequest(r.Method, route, status, duration)

		logging.Ctx(r.Context()).Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", duration).
			Msg("Request")
	})
}
