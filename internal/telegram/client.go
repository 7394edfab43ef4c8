// Package telegram provides a client for sending messages and receiving
// updates via the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Config holds Bot API credentials.
type Config struct {
	Token string
}

// User is a Telegram account.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	IsBot     bool   `json:"is_bot,omitempty"`
}

// Chat is the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// Update is one entry from getUpdates or a webhook call.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Handle returns the chat id as the recipient handle used by sessions.
func (m Message) Handle() string {
	return strconv.FormatInt(m.Chat.ID, 10)
}

// Client communicates with the Telegram Bot API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Bot API client. The HTTP timeout leaves room for
// long polling.
func NewClient(cfg Config) *Client {
	return &Client{
		token:   cfg.Token,
		baseURL: "https://api.telegram.org/bot" + cfg.Token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// GetMe returns the bot account. Useful to verify the token.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", struct{}{}, &u); err != nil {
		return nil, fmt.Errorf("get me: %w", err)
	}
	return &u, nil
}

// SendMessage sends plain text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (*Message, error) {
	req := sendMessageRequest{ChatID: chatIDValue(chatID), Text: text}

	var msg Message
	if err := c.call(ctx, "sendMessage", req, &msg); err != nil {
		return nil, fmt.Errorf("send message to %s: %w", chatID, err)
	}
	return &msg, nil
}

// Send implements remind.Sender.
func (c *Client) Send(ctx context.Context, handle, text string) error {
	_, err := c.SendMessage(ctx, handle, text)
	return err
}

// GetUpdates long-polls for updates with id >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	req := getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(timeout.Seconds()),
		AllowedUpdates: []string{"message"},
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", req, &updates); err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}
	return updates, nil
}

// SetWebhook registers url for update delivery. secret is echoed back by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	req := setWebhookRequest{URL: url, SecretToken: secret, AllowedUpdates: []string{"message"}}

	var ok bool
	if err := c.call(ctx, "setWebhook", req, &ok); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// DeleteWebhook switches the bot back to getUpdates delivery.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	var ok bool
	if err := c.call(ctx, "deleteWebhook", struct{}{}, &ok); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", redact(err, c.token))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &Error{StatusCode: resp.StatusCode, Description: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("unmarshal %s: %w", method, err)
	}

	if !env.OK || resp.StatusCode >= 400 {
		e := &Error{StatusCode: resp.StatusCode, Code: env.ErrorCode, Description: env.Description}
		if env.Parameters != nil {
			e.RetryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
		}
		if e.Description == "" {
			e.Description = http.StatusText(resp.StatusCode)
		}
		return e
	}

	if result == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("unmarshal %s result: %w", method, err)
	}

	return nil
}

// Error represents a Bot API error.
type Error struct {
	StatusCode  int
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("telegram: %s (code %d, status %d)", e.Description, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("telegram: %s (status %d)", e.Description, e.StatusCode)
}

// Blocked reports whether the recipient blocked the bot or left the chat.
func (e *Error) Blocked() bool {
	return e.StatusCode == http.StatusForbidden || e.Code == http.StatusForbidden
}

func chatIDValue(handle string) any {
	if id, err := strconv.ParseInt(handle, 10, 64); err == nil {
		return id
	}
	return handle
}

// redact keeps the bot token out of transport errors, which embed the URL.
func redact(err error, token string) error {
	if token == "" {
		return err
	}
	msg := bytes.ReplaceAll([]byte(err.Error()), []byte(token), []byte("<token>"))
	return fmt.Errorf("%s", msg)
}

// json wire types

type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type sendMessageRequest struct {
	ChatID any    `json:"chat_id"`
	Text   string `json:"text"`
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

type setWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates"`
}
