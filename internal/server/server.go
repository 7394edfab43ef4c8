// Package server exposes the Telegram webhook, a liveness probe and the
// Prometheus endpoint over HTTP.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zarlcorp/zbday/internal/telegram"
)

// SecretHeader carries the webhook secret registered with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookPath is where Telegram posts updates.
const WebhookPath = "/telegram/webhook"

// UpdateFunc handles one decoded update.
type UpdateFunc func(r *http.Request, u telegram.Update)

// Handler serves the bot's HTTP surface.
type Handler struct {
	secret   string
	onUpdate UpdateFunc
	registry *prometheus.Registry
	logger   *slog.Logger
}

// NewHandler creates a Handler. An empty secret disables the header check
// and a nil onUpdate leaves the webhook unmounted.
func NewHandler(secret string, onUpdate UpdateFunc, registry *prometheus.Registry, logger *slog.Logger) *Handler {
	return &Handler{
		secret:   secret,
		onUpdate: onUpdate,
		registry: registry,
		logger:   logger,
	}
}

// Register mounts the endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.HandleHealth)
	if h.onUpdate != nil {
		r.Post(WebhookPath, h.HandleWebhook)
	}
	if h.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	}
}

// Router builds the complete chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	h.Register(r)
	return r
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// HandleWebhook handles POST /telegram/webhook. Updates are processed
// before the response so Telegram keeps delivery order.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		got := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.logger.Warn("webhook secret mismatch", "remote", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var u telegram.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&u); err != nil {
		h.logger.Warn("decode update", "err", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	h.onUpdate(r, u)
	w.WriteHeader(http.StatusOK)
}

// New builds an HTTP server with sane defaults for this project.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
