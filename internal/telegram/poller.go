package telegram

import (
	"context"
	"log/slog"
	"time"
)

// Dispatcher turns one inbound text into a reply. An empty reply sends
// nothing.
type Dispatcher interface {
	Dispatch(ctx context.Context, handle, text string) string
}

// Poller receives updates with getUpdates and answers them in order.
type Poller struct {
	client     *Client
	dispatcher Dispatcher
	logger     *slog.Logger

	timeout time.Duration
	backoff time.Duration
	offset  int64
}

// NewPoller creates a long-polling loop.
func NewPoller(client *Client, d Dispatcher, logger *slog.Logger) *Poller {
	return &Poller{
		client:     client,
		dispatcher: d,
		logger:     logger,
		timeout:    25 * time.Second,
		backoff:    3 * time.Second,
	}
}

// Run polls until ctx is done. Polling errors are logged and retried after
// a fixed pause.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.client.DeleteWebhook(ctx); err != nil {
		p.logger.Warn("delete webhook", "err", err)
	}

	p.logger.Info("polling for updates")
	for {
		if err := p.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("poll updates", "err", err)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.backoff):
			}
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// Poll fetches one batch of updates and handles each of them.
func (p *Poller) Poll(ctx context.Context) error {
	updates, err := p.client.GetUpdates(ctx, p.offset, p.timeout)
	if err != nil {
		return err
	}

	for _, u := range updates {
		if u.UpdateID >= p.offset {
			p.offset = u.UpdateID + 1
		}
		HandleUpdate(ctx, p.client, p.dispatcher, p.logger, u)
	}

	return nil
}

// HandleUpdate dispatches a text message and sends the reply. Non-text
// updates are ignored.
func HandleUpdate(ctx context.Context, c *Client, d Dispatcher, logger *slog.Logger, u Update) {
	if u.Message == nil || u.Message.Text == "" {
		return
	}

	handle := u.Message.Handle()
	reply := d.Dispatch(ctx, handle, u.Message.Text)
	if reply == "" {
		return
	}

	if _, err := c.SendMessage(ctx, handle, reply); err != nil {
		logger.Warn("send reply", "handle", handle, "err", err)
	}
}
