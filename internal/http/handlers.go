package http

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/misscmunoz/holiday-deals/internal/alerts"
	"github.com/misscmunoz/holiday-deals/internal/config"
	"github.com/misscmunoz/holiday-deals/internal/mailer"
	"github.com/misscmunoz/holiday-deals/internal/obs"
)

// Runner executes one monitoring pass.
type Runner interface {
	Run(ctx context.Context) (*alerts.Summary, error)
}

// RateLimiter guards the run endpoints; one pass fans out real provider calls.
type RateLimiter interface {
	Allow(ip string) bool
}

type Handler struct {
	runner      Runner
	mailer      mailer.Mailer
	cfg         *config.Config
	ratelimiter RateLimiter
	metrics     *obs.Metrics
	logger      *slog.Logger
	runTimeout  time.Duration
}

func NewHandler(runner Runner, m mailer.Mailer, cfg *config.Config, rl RateLimiter, metrics *obs.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		runner:      runner,
		mailer:      m,
		cfg:         cfg,
		ratelimiter: rl,
		metrics:     metrics,
		logger:      logger,
		runTimeout:  5 * time.Minute,
	}
}

func (h *Handler) ipFromRequest(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (h *Handler) requestID(r *http.Request) string {
	// chi's middleware.RequestID sets X-Request-Id header
	reqID := r.Header.Get("X-Request-Id")
	if reqID == "" {
		reqID = uuid.New().String()
	}
	return reqID
}

// RunAlerts executes one pass and returns the summary without sending email.
func (h *Handler) RunAlerts(w http.ResponseWriter, r *http.Request) {
	reqID := h.requestID(r)

	ip := h.ipFromRequest(r)
	if !h.ratelimiter.Allow(ip) {
		h.metrics.IncRateLimitDrops()
		TooManyRequests(w, "rate limit exceeded", map[string]string{"request_id": reqID})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.runTimeout)
	defer cancel()

	summary, err := h.runner.Run(ctx)
	if err != nil {
		h.logger.Error("run failed", "request_id", reqID, "error", err)
		InternalError(w, err.Error(), map[string]string{"request_id": reqID})
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// Notify runs a pass and emails the digest when anything actionable came out
// of it. Meant to be called from a scheduler with the shared secret.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	reqID := h.requestID(r)

	if err := h.cfg.RequireNotify(); err != nil {
		InternalError(w, err.Error(), map[string]string{"request_id": reqID})
		return
	}

	secret := r.Header.Get("X-Cron-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.cfg.CronSecret)) != 1 {
		Unauthorized(w, "invalid cron secret", map[string]string{"request_id": reqID})
		return
	}

	ip := h.ipFromRequest(r)
	if !h.ratelimiter.Allow(ip) {
		h.metrics.IncRateLimitDrops()
		TooManyRequests(w, "rate limit exceeded", map[string]string{"request_id": reqID})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.runTimeout)
	defer cancel()

	summary, err := h.runner.Run(ctx)
	if err != nil {
		h.logger.Error("run failed", "request_id", reqID, "error", err)
		InternalError(w, err.Error(), map[string]string{"request_id": reqID})
		return
	}

	if summary.Alerts.Actionable == 0 {
		WriteJSON(w, http.StatusOK, map[string]any{
			"sent":    false,
			"reason":  "no actionable alerts",
			"summary": summary,
		})
		return
	}

	id, err := h.mailer.Send(ctx, summary)
	if err != nil {
		h.logger.Error("digest send failed", "request_id", reqID, "error", err)
		InternalError(w, err.Error(), map[string]string{"request_id": reqID})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"sent":       true,
		"id":         id,
		"actionable": summary.Alerts.Actionable,
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
