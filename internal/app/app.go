// Package app wires the directory, storage, command handler, broadcaster and
// transports into one running bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zbday/internal/bot"
	"github.com/zarlcorp/zbday/internal/config"
	"github.com/zarlcorp/zbday/internal/directory"
	"github.com/zarlcorp/zbday/internal/metrics"
	"github.com/zarlcorp/zbday/internal/remind"
	"github.com/zarlcorp/zbday/internal/render"
	"github.com/zarlcorp/zbday/internal/schedule"
	"github.com/zarlcorp/zbday/internal/server"
	"github.com/zarlcorp/zbday/internal/session"
	"github.com/zarlcorp/zbday/internal/store"
	"github.com/zarlcorp/zbday/internal/telegram"
	"golang.org/x/sync/errgroup"
)

// App holds the assembled components. Command handling and broadcasts are
// serialized through one gate, so every store mutation and every read
// observes a consistent state.
type App struct {
	cfg    config.Config
	logger *slog.Logger
	loc    *time.Location

	Directory   *directory.Directory
	Store       *store.Store
	Sessions    *session.Registry
	Printer     *render.Printer
	Metrics     *metrics.Metrics
	Handler     *bot.Handler
	Broadcaster *remind.Broadcaster
	Router      *Router

	gate sync.Mutex
}

// New loads the directory and opens storage under cfg.DataDir. remote may be
// nil when no chat transport is configured.
func New(cfg config.Config, logger *slog.Logger, remote remind.Sender) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	dir, err := directory.Load(cfg.CodesFile)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	return Assemble(zfilesystem.NewOSFileSystem(cfg.DataDir), dir, cfg, loc, logger, remote)
}

// Assemble builds an App over an existing filesystem and directory.
func Assemble(fsys zfilesystem.ReadWriteFileFS, dir *directory.Directory, cfg config.Config, loc *time.Location, logger *slog.Logger, remote remind.Sender) (*App, error) {
	st, err := store.Open(fsys)
	if err != nil {
		return nil, err
	}

	reg, err := session.Open(fsys, dir, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		loc:       loc,
		Directory: dir,
		Store:     st,
		Sessions:  reg,
		Printer:   render.New(cfg.Lang),
		Metrics:   metrics.New(),
		Router:    NewRouter(remote),
	}

	a.Handler = bot.New(dir, reg, st, a.Printer, logger,
		bot.WithClock(a.Now),
		bot.WithMetrics(a.Metrics),
	)
	a.Broadcaster = remind.NewBroadcaster(reg, st, a.Router, a.Printer, a.Metrics, logger)
	a.Metrics.SetSessions(reg.Len())

	logger.Info("app ready",
		"codes", dir.Len(),
		"sessions", reg.Len(),
		"timezone", loc.String(),
		"lang", cfg.Lang,
	)

	return a, nil
}

// Now returns the current time in the configured zone.
func (a *App) Now() time.Time {
	return time.Now().In(a.loc)
}

// Dispatch handles one inbound message and returns the reply.
func (a *App) Dispatch(ctx context.Context, handle, text string) string {
	a.gate.Lock()
	defer a.gate.Unlock()

	reply := a.Handler.Handle(ctx, bot.Message{Handle: handle, Text: text})
	a.Metrics.SetSessions(a.Sessions.Len())
	return reply
}

// Broadcast runs one reminder pass for kind.
func (a *App) Broadcast(ctx context.Context, kind remind.Kind) (remind.Result, error) {
	a.gate.Lock()
	defer a.gate.Unlock()

	return a.Broadcaster.Run(ctx, kind, a.Now())
}

// Scheduler registers the daily and monthly jobs. The caller starts it.
func (a *App) Scheduler() (*schedule.Scheduler, error) {
	s := schedule.New(a.loc, a.logger)

	jobs := []struct {
		spec string
		kind remind.Kind
	}{
		{a.cfg.DailySchedule, remind.Daily},
		{a.cfg.MonthlySchedule, remind.Monthly},
	}

	for _, j := range jobs {
		kind := j.kind
		err := s.Add(j.spec, string(kind), func(ctx context.Context) error {
			res, err := a.Broadcast(ctx, kind)
			if err != nil {
				return err
			}
			if res.HasErrors() {
				a.logger.Warn("broadcast incomplete", "run_id", res.RunID, "summary", res.Summary())
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Run serves the bot until ctx is done: the scheduler, the HTTP endpoints,
// and either the long-polling loop or the webhook.
func (a *App) Run(ctx context.Context, client *telegram.Client) error {
	sched, err := a.Scheduler()
	if err != nil {
		return err
	}

	var onUpdate server.UpdateFunc
	if a.cfg.Mode == config.ModeWebhook {
		if err := client.SetWebhook(ctx, a.cfg.WebhookURL, a.cfg.WebhookSecret); err != nil {
			return err
		}
		onUpdate = func(r *http.Request, u telegram.Update) {
			telegram.HandleUpdate(r.Context(), client, a, a.logger, u)
		}
	}

	h := server.NewHandler(a.cfg.WebhookSecret, onUpdate, a.Metrics.Registry, a.logger)
	srv := server.New(a.cfg.HTTPAddr, h.Router())

	g, ctx := errgroup.WithContext(ctx)

	sched.Start()
	g.Go(func() error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return sched.Stop(stopCtx)
	})

	g.Go(func() error {
		a.logger.Info("http listening", "addr", a.cfg.HTTPAddr, "mode", a.cfg.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.cfg.Mode == config.ModePolling {
		g.Go(func() error {
			return telegram.NewPoller(client, a, a.logger).Run(ctx)
		})
	}

	return g.Wait()
}
