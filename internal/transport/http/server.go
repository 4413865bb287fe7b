package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	"github.com/reshetovitsme/folkomatic/internal/modules/delivery/domain"
	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	sloghttp "github.com/samber/slog-http"
)

// Loop is the part of the delivery loop exposed over HTTP.
type Loop interface {
	State() domain.LoopState
	Trigger() bool
}

type FeedGenerator interface {
	GenerateFeed(ctx context.Context, baseURL string) (*feeds.Feed, error)
}

// Server exposes health, the delivered news feed and the admin trigger
type Server struct {
	cfg    *config.Config
	loop   Loop
	feed   FeedGenerator
	logger *slog.Logger
	server *http.Server
}

// New creates a new HTTP server
func New(cfg *config.Config, loop Loop, feed FeedGenerator) *Server {
	s := &Server{
		cfg:    cfg,
		loop:   loop,
		feed:   feed,
		logger: slog.Default(),
	}
	s.server = &http.Server{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Handler returns the routed handler wrapped in logging and recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /rss", s.handleRSSFeed)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /admin/cycle", s.handleCycle)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	handler := sloghttp.Recovery(mux)
	handler = sloghttp.New(s.logger)(handler)
	return handler
}

// Start serves until Shutdown is called. An empty address disables the
// server and Start returns at once.
func (s *Server) Start() error {
	if s.server.Addr == "" {
		s.logger.Info("HTTP server disabled")
		return nil
	}

	s.server.Handler = s.Handler()
	s.logger.Info("HTTP server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRSSFeed(w http.ResponseWriter, r *http.Request) {
	baseURL := getScheme(r) + "://" + r.Host

	feed, err := s.feed.GenerateFeed(r.Context(), baseURL)
	if err != nil {
		s.logger.Error("Error generating feed", "error", err)
		http.Error(w, "Failed to generate feed", http.StatusInternalServerError)
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.logger.Error("Error converting feed to RSS", "error", err)
		http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rss))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"loop":   s.loop.State().String(),
	})
}

func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	triggered := s.loop.Trigger()
	s.logger.Info("Delivery cycle requested", "triggered", triggered, "state", s.loop.State())
	writeJSON(w, http.StatusAccepted, map[string]any{
		"triggered": triggered,
		"loop":      s.loop.State().String(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Folkomatic</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        .info { background: #f5f5f5; padding: 15px; border-radius: 5px; margin: 20px 0; }
        code { background: #e8e8e8; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <h1>Folkomatic news bot</h1>
    <div class="info">
        <p>Delivered news: <code>/rss</code></p>
        <p>Run a delivery cycle now: <code>POST /admin/cycle</code></p>
    </div>
    <p><a href="/health">Health Check</a></p>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
