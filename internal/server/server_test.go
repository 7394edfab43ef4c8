package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zarlcorp/zbday/internal/metrics"
	"github.com/zarlcorp/zbday/internal/telegram"
)

type recorder struct {
	updates []telegram.Update
}

func (r *recorder) handle(_ *http.Request, u telegram.Update) {
	r.updates = append(r.updates, u)
}

func newTestRouter(t *testing.T, secret string) (http.Handler, *recorder, *metrics.Metrics) {
	t.Helper()
	rec := &recorder{}
	m := metrics.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(secret, rec.handle, m.Registry, logger).Router(), rec, m
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

const updateJSON = `{"update_id":3,"message":{"message_id":1,"chat":{"id":100},"text":"/month"}}`

func TestHealthz(t *testing.T) {
	h, _, _ := newTestRouter(t, "")

	w := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok\n", w.Body.String())
}

func TestWebhookDispatchesUpdate(t *testing.T) {
	h, rec, _ := newTestRouter(t, "s3cret")

	w := do(t, h, http.MethodPost, WebhookPath, updateJSON, map[string]string{SecretHeader: "s3cret"})
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, rec.updates, 1)
	u := rec.updates[0]
	assert.Equal(t, int64(3), u.UpdateID)
	require.NotNil(t, u.Message)
	assert.Equal(t, "/month", u.Message.Text)
	assert.Equal(t, "100", u.Message.Handle())
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	h, rec, _ := newTestRouter(t, "s3cret")

	tests := []struct {
		name   string
		header map[string]string
	}{
		{"missing", nil},
		{"wrong", map[string]string{SecretHeader: "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, WebhookPath, updateJSON, tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
	assert.Empty(t, rec.updates)
}

func TestWebhookWithoutSecret(t *testing.T) {
	h, rec, _ := newTestRouter(t, "")

	w := do(t, h, http.MethodPost, WebhookPath, updateJSON, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, rec.updates, 1)
}

func TestWebhookBadBody(t *testing.T) {
	h, rec, _ := newTestRouter(t, "")

	w := do(t, h, http.MethodPost, WebhookPath, "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, rec.updates)
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	h, _, _ := newTestRouter(t, "")

	w := do(t, h, http.MethodGet, WebhookPath, "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestWebhookUnmountedWithoutHandler(t *testing.T) {
	h := NewHandler("", nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil))).Router()

	w := do(t, h, http.MethodPost, WebhookPath, updateJSON, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, m := newTestRouter(t, "")
	m.IncrementCommand("month")

	w := do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `zbday_commands_total{command="month"} 1`)
}

func TestNewServerDefaults(t *testing.T) {
	srv := New(":0", http.NotFoundHandler())
	assert.Equal(t, ":0", srv.Addr)
	assert.NotZero(t, srv.ReadHeaderTimeout)
}
