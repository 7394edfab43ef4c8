package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{Token: "123:test_token"})
	c.baseURL = srv.URL
	return c
}

func writeOK(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func TestNewClientBaseURL(t *testing.T) {
	c := NewClient(Config{Token: "abc"})
	if want := "https://api.telegram.org/botabc"; c.baseURL != want {
		t.Errorf("base url: got %q, want %q", c.baseURL, want)
	}
}

func TestSendMessage(t *testing.T) {
	var body map[string]any

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		if r.URL.Path != "/sendMessage" {
			t.Errorf("path: got %s, want /sendMessage", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeOK(w, map[string]any{
			"message_id": 7,
			"chat":       map[string]any{"id": 100, "type": "private"},
			"text":       "привет",
		})
	}))

	msg, err := c.SendMessage(context.Background(), "100", "привет")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if id, ok := body["chat_id"].(float64); !ok || id != 100 {
		t.Errorf("chat_id: got %#v, want number 100", body["chat_id"])
	}
	if body["text"] != "привет" {
		t.Errorf("text: got %v", body["text"])
	}
	if msg.MessageID != 7 {
		t.Errorf("message id: got %d, want 7", msg.MessageID)
	}
	if msg.Handle() != "100" {
		t.Errorf("handle: got %q, want %q", msg.Handle(), "100")
	}
}

func TestSendMessageChannelUsername(t *testing.T) {
	var body map[string]any

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		writeOK(w, map[string]any{"message_id": 1, "chat": map[string]any{"id": -1}})
	}))

	if err := c.Send(context.Background(), "@family", "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if body["chat_id"] != "@family" {
		t.Errorf("chat_id: got %#v, want %q", body["chat_id"], "@family")
	}
}

func TestGetUpdates(t *testing.T) {
	var body map[string]any

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getUpdates" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		writeOK(w, []map[string]any{
			{"update_id": 10, "message": map[string]any{
				"message_id": 1, "chat": map[string]any{"id": 100}, "text": "/start",
			}},
			{"update_id": 11},
		})
	}))

	updates, err := c.GetUpdates(context.Background(), 10, 25*time.Second)
	if err != nil {
		t.Fatalf("get updates: %v", err)
	}

	if len(updates) != 2 {
		t.Fatalf("count: got %d, want 2", len(updates))
	}
	if updates[0].Message == nil || updates[0].Message.Text != "/start" {
		t.Errorf("first update: got %+v", updates[0])
	}
	if updates[1].Message != nil {
		t.Errorf("second update should have no message")
	}
	if body["offset"] != float64(10) || body["timeout"] != float64(25) {
		t.Errorf("request: got %v", body)
	}
}

func TestSetWebhook(t *testing.T) {
	var body map[string]any

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/setWebhook" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		writeOK(w, true)
	}))

	if err := c.SetWebhook(context.Background(), "https://example.com/telegram/webhook", "s3cret"); err != nil {
		t.Fatalf("set webhook: %v", err)
	}
	if body["url"] != "https://example.com/telegram/webhook" {
		t.Errorf("url: got %v", body["url"])
	}
	if body["secret_token"] != "s3cret" {
		t.Errorf("secret: got %v", body["secret_token"])
	}
}

func TestAPIError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  403,
			"description": "Forbidden: bot was blocked by the user",
		})
	}))

	_, err := c.SendMessage(context.Background(), "100", "hi")
	if err == nil {
		t.Fatal("expected error")
	}

	var tgErr *Error
	if !errors.As(err, &tgErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if tgErr.Code != 403 {
		t.Errorf("code: got %d, want 403", tgErr.Code)
	}
	if !tgErr.Blocked() {
		t.Error("expected Blocked")
	}
	if !strings.Contains(err.Error(), "blocked by the user") {
		t.Errorf("message: got %q", err.Error())
	}
}

func TestRetryAfter(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  429,
			"description": "Too Many Requests: retry after 5",
			"parameters":  map[string]any{"retry_after": 5},
		})
	}))

	_, err := c.SendMessage(context.Background(), "100", "hi")

	var tgErr *Error
	if !errors.As(err, &tgErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if tgErr.RetryAfter != 5*time.Second {
		t.Errorf("retry after: got %v, want 5s", tgErr.RetryAfter)
	}
	if tgErr.Blocked() {
		t.Error("429 is not blocked")
	}
}

func TestNonJSONError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))

	err := c.DeleteWebhook(context.Background())

	var tgErr *Error
	if !errors.As(err, &tgErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if tgErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status: got %d", tgErr.StatusCode)
	}
}

func TestTransportErrorHidesToken(t *testing.T) {
	c := NewClient(Config{Token: "123:very_secret"})
	c.baseURL = "http://127.0.0.1:1/bot123:very_secret"
	c.http.Timeout = time.Second

	_, err := c.GetMe(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "very_secret") {
		t.Errorf("token leaked: %q", err.Error())
	}
}
