package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/misscmunoz/holiday-deals/internal/alerts"
	"github.com/misscmunoz/holiday-deals/internal/config"
	ht "github.com/misscmunoz/holiday-deals/internal/http"
	"github.com/misscmunoz/holiday-deals/internal/obs"
)

// ------------------------ MOCKS ------------------------

type mockRunner struct {
	summary *alerts.Summary
	err     error
	calls   int
}

func (m *mockRunner) Run(ctx context.Context) (*alerts.Summary, error) {
	m.calls++
	return m.summary, m.err
}

type mockMailer struct {
	id    string
	err   error
	calls int
}

func (m *mockMailer) Send(ctx context.Context, summary *alerts.Summary) (string, error) {
	m.calls++
	return m.id, m.err
}

type mockRateLimiter struct {
	allow bool
}

func (m *mockRateLimiter) Allow(ip string) bool { return m.allow }

// -------------------------------------------------------

func notifyConfig() *config.Config {
	return &config.Config{
		CronSecret:     "topsecret",
		ResendAPIKey:   "re_key",
		AlertEmailTo:   "me@example.com",
		AlertEmailFrom: "deals@example.com",
	}
}

func quietSummary() *alerts.Summary {
	return &alerts.Summary{Origins: []string{"MAN"}}
}

func actionableSummary() *alerts.Summary {
	s := quietSummary()
	s.Alerts = alerts.AlertStats{TotalDetected: 2, Actionable: 2}
	s.AlertsSample = []alerts.AlertItem{
		{Context: "regular:FLIGHT_ONLY", Reason: alerts.ReasonNewDeal},
		{Context: "regular:FLIGHT_ONLY", Reason: alerts.ReasonPriceDrop},
	}
	return s
}

func newHandler(runner *mockRunner, mail *mockMailer, cfg *config.Config, allow bool) *ht.Handler {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	metrics := obs.NewMetrics(prometheus.NewRegistry())
	return ht.NewHandler(runner, mail, cfg, &mockRateLimiter{allow: allow}, metrics, logger)
}

func TestHandler_RunAlerts_Positive(t *testing.T) {
	runner := &mockRunner{summary: actionableSummary()}
	h := newHandler(runner, &mockMailer{}, notifyConfig(), true)

	req := httptest.NewRequest("GET", "/alerts/run", nil)
	req.RemoteAddr = "1.2.3.4:1234"
	w := httptest.NewRecorder()

	h.RunAlerts(w, req)
	resp := w.Result()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got alerts.Summary
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Alerts.Actionable != 2 {
		t.Fatalf("expected summary echoed back, got %+v", got.Alerts)
	}
}

func TestHandler_RunAlerts_RateLimit(t *testing.T) {
	runner := &mockRunner{summary: quietSummary()}
	h := newHandler(runner, &mockMailer{}, notifyConfig(), false)

	req := httptest.NewRequest("GET", "/alerts/run", nil)
	req.RemoteAddr = "1.2.3.4:1234"
	w := httptest.NewRecorder()

	h.RunAlerts(w, req)
	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Result().StatusCode)
	}
	if runner.calls != 0 {
		t.Fatal("rate-limited request must not trigger a run")
	}
}

func TestHandler_RunAlerts_RunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("calendar unreachable")}
	h := newHandler(runner, &mockMailer{}, notifyConfig(), true)

	req := httptest.NewRequest("GET", "/alerts/run", nil)
	req.RemoteAddr = "1.2.3.4:1234"
	w := httptest.NewRecorder()

	h.RunAlerts(w, req)
	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Result().StatusCode)
	}
}

func TestHandler_Notify_SendsDigest(t *testing.T) {
	runner := &mockRunner{summary: actionableSummary()}
	mail := &mockMailer{id: "email-123"}
	h := newHandler(runner, mail, notifyConfig(), true)

	req := httptest.NewRequest("POST", "/alerts/notify", nil)
	req.RemoteAddr = "1.2.3.4:1234"
	req.Header.Set("X-Cron-Secret", "topsecret")
	w := httptest.NewRecorder()

	h.Notify(w, req)
	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["sent"] != true || got["id"] != "email-123" {
		t.Fatalf("unexpected body %+v", got)
	}
	if mail.calls != 1 {
		t.Fatalf("expected one send, got %d", mail.calls)
	}
}

func TestHandler_Notify_WrongSecret(t *testing.T) {
	runner := &mockRunner{summary: actionableSummary()}
	mail := &mockMailer{}
	h := newHandler(runner, mail, notifyConfig(), true)

	req := httptest.NewRequest("POST", "/alerts/notify", nil)
	req.RemoteAddr = "1.2.3.4:1234"
	req.Header.Set("X-Cron-Secret", "guess")
	w := httptest.NewRecorder()

	h.Notify(w, req)
	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Result().StatusCode)
	}
	if runner.calls != 0 || mail.calls != 0 {
		t.Fatal("unauthorized request must not run or send")
	}
}

func TestHandler_Notify_MissingConfig(t *testing.T) {
	runner := &mockRunner{summary: actionableSummary()}
	h := newHandler(runner, &mockMailer{}, &config.Config{}, true)

	req := httptest.NewRequest("POST", "/alerts/notify", nil)
	req.RemoteAddr = "1.2.3.4:1234"
	w := httptest.NewRecorder()

	h.Notify(w, req)
	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Result().StatusCode)
	}
	if runner.calls != 0 {
		t.Fatal("misconfigured notify must not run")
	}
}

func TestHandler_Notify_NothingActionable(t *testing.T) {
	runner := &mockRunner{summary: quietSummary()}
	mail := &mockMailer{}
	h := newHandler(runner, mail, notifyConfig(), true)

	req := httptest.NewRequest("POST", "/alerts/notify", nil)
	req.RemoteAddr = "1.2.3.4:1234"
	req.Header.Set("X-Cron-Secret", "topsecret")
	w := httptest.NewRecorder()

	h.Notify(w, req)
	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["sent"] != false || got["reason"] != "no actionable alerts" {
		t.Fatalf("unexpected body %+v", got)
	}
	if mail.calls != 0 {
		t.Fatal("quiet run must not send email")
	}
}

func TestHandler_Notify_MailerError(t *testing.T) {
	runner := &mockRunner{summary: actionableSummary()}
	mail := &mockMailer{err: errors.New("resend 500")}
	h := newHandler(runner, mail, notifyConfig(), true)

	req := httptest.NewRequest("POST", "/alerts/notify", nil)
	req.RemoteAddr = "1.2.3.4:1234"
	req.Header.Set("X-Cron-Secret", "topsecret")
	w := httptest.NewRecorder()

	h.Notify(w, req)
	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Result().StatusCode)
	}
}

func TestHandler_Healthz(t *testing.T) {
	h := newHandler(&mockRunner{}, &mockMailer{}, notifyConfig(), true)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	h.Healthz(w, req)
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Result().StatusCode)
	}
}

func TestRateLimiterBuckets(t *testing.T) {
	rl := ht.NewIPRateLimiter(2, 0)
	if !rl.Allow("1.1.1.1") {
		t.Fatal("expected allow")
	}
	if !rl.Allow("1.1.1.1") {
		t.Fatal("expected allow")
	}
	// zero refill interval means the next call refills immediately; use a
	// separate limiter with a long interval to observe the deny.
	rl = ht.NewIPRateLimiter(1, 1<<62)
	if !rl.Allow("2.2.2.2") {
		t.Fatal("expected first call allowed")
	}
	if rl.Allow("2.2.2.2") {
		t.Fatal("expected deny once bucket drained")
	}
	if !rl.Allow("3.3.3.3") {
		t.Fatal("buckets must be per IP")
	}
}
