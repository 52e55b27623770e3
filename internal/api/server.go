// Package api exposes the HTTP status interface for the monitoring service.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/growthsignals/redditwatch/internal/metrics"
	"github.com/growthsignals/redditwatch/internal/monitor"
)

// CycleStatus reports whether a monitoring cycle is currently in flight.
type CycleStatus interface {
	Running() bool
}

// Server wires HTTP handlers to the store and scheduler status.
type Server struct {
	router chi.Router
	store  monitor.Store
	status CycleStatus
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store monitor.Store, status CycleStatus, logger *zap.Logger) *Server {
	s := &Server{
		store:  store,
		status: status,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", s.getStats)
		r.Get("/posts", s.getPosts)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	running := s.status != nil && s.status.Running()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ready",
		"cycle_running": running,
	})
}

type statsResponse struct {
	TotalPosts       int64          `json:"total_posts"`
	RelevantPosts    int64          `json:"relevant_posts"`
	UniqueSubreddits int64          `json:"unique_subreddits"`
	MonitoringRuns   int64          `json:"monitoring_runs"`
	TopSubreddits    []topSubreddit `json:"top_subreddits"`
}

type topSubreddit struct {
	Subreddit string `json:"subreddit"`
	Posts     int64  `json:"posts"`
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}

	// Keep the store's count-desc, name-asc ordering on the wire.
	top := make([]topSubreddit, 0, len(stats.TopSubreddits))
	for _, sc := range stats.TopSubreddits {
		top = append(top, topSubreddit{Subreddit: sc.Subreddit, Posts: sc.Posts})
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalPosts:       stats.TotalPosts,
		RelevantPosts:    stats.RelevantPosts,
		UniqueSubreddits: stats.UniqueSubreddits,
		MonitoringRuns:   stats.MonitoringRuns,
		TopSubreddits:    top,
	})
}

type postResponse struct {
	ID             int64    `json:"id"`
	RedditID       string   `json:"reddit_id"`
	Subreddit      string   `json:"subreddit"`
	Title          string   `json:"title"`
	Author         string   `json:"author"`
	Score          int      `json:"score"`
	NumComments    int      `json:"num_comments"`
	Permalink      string   `json:"permalink"`
	IsRelevant     *bool    `json:"is_relevant"`
	RelevanceScore *float64 `json:"relevance_score"`
	KeywordsFound  []string `json:"keywords_found,omitempty"`
}

func (s *Server) getPosts(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePostFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	posts, err := s.store.QueryPosts(r.Context(), filter)
	if err != nil {
		s.logger.Error("posts query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "posts unavailable")
		return
	}

	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, postResponse{
			ID:             p.ID,
			RedditID:       p.RedditID,
			Subreddit:      p.Subreddit,
			Title:          p.Title,
			Author:         p.Author,
			Score:          p.Score,
			NumComments:    p.NumComments,
			Permalink:      p.Permalink,
			IsRelevant:     p.IsRelevant,
			RelevanceScore: p.RelevanceScore,
			KeywordsFound:  p.KeywordsFound,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func parsePostFilter(r *http.Request) (monitor.PostFilter, error) {
	filter := monitor.PostFilter{
		Subreddit:  r.URL.Query().Get("subreddit"),
		Limit:      20,
		MaxAgeDays: 7,
	}

	if raw := r.URL.Query().Get("relevant"); raw != "" {
		relevant, err := strconv.ParseBool(raw)
		if err != nil {
			return monitor.PostFilter{}, err
		}
		filter.IsRelevant = &relevant
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return monitor.PostFilter{}, strconvErr("limit", raw)
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			return monitor.PostFilter{}, strconvErr("days", raw)
		}
		filter.MaxAgeDays = days
	}
	return filter, nil
}

type paramError struct {
	name, value string
}

func (e paramError) Error() string {
	return "invalid " + e.name + " value " + strconv.Quote(e.value)
}

func strconvErr(name, value string) error {
	return paramError{name: name, value: value}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
