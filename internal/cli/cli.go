// Package cli implements zbday's command-line subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zbday/internal/app"
	"github.com/zarlcorp/zbday/internal/config"
	"github.com/zarlcorp/zbday/internal/console"
	"github.com/zarlcorp/zbday/internal/directory"
	"github.com/zarlcorp/zbday/internal/remind"
	"github.com/zarlcorp/zbday/internal/session"
	"github.com/zarlcorp/zbday/internal/telegram"
	"github.com/zarlcorp/zbday/internal/vault"
	"golang.org/x/term"
)

const codeLength = 8

// NewRootCmd builds the zbday command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "zbday",
		Short:         "Birthday reminder bot",
		Long:          "zbday keeps per-family birthday lists behind secret codes and\nsends daily and monthly reminders over Telegram.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRunCmd(),
		newConsoleCmd(version),
		newCodesCmd(),
		newSessionsCmd(),
		newBroadcastCmd(),
		newTokenCmd(),
		newVersionCmd(version),
	)

	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, version string) error {
	return NewRootCmd(version).ExecuteContext(ctx)
}

// ReadPassword prompts on w and reads a line from the terminal without echo.
func ReadPassword(prompt string, w io.Writer) (string, error) {
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// ReadNewPassword prompts for a new password with confirmation.
func ReadNewPassword(w io.Writer) (string, error) {
	pass, err := ReadPassword("vault password: ", w)
	if err != nil {
		return "", err
	}
	confirm, err := ReadPassword("confirm password: ", w)
	if err != nil {
		return "", err
	}
	if pass != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return pass, nil
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openVault unlocks the token vault, prompting unless ZBDAY_VAULT_PASSWORD
// is set.
func openVault(cfg config.Config, create bool) (*vault.Vault, error) {
	dir := cfg.VaultDir()
	first := vault.IsFirstRun(dir)
	if first && !create {
		return nil, fmt.Errorf("%w: run 'zbday token set' or set ZBDAY_BOT_TOKEN", vault.ErrNotConfigured)
	}

	pass := cfg.VaultPassword
	if pass == "" {
		var err error
		if first {
			pass, err = ReadNewPassword(os.Stderr)
		} else {
			pass, err = ReadPassword("vault password: ", os.Stderr)
		}
		if err != nil {
			return nil, err
		}
	}

	return vault.OpenDir(dir, pass)
}

// telegramSettings prefers the environment over the vault.
func telegramSettings(cfg config.Config) (vault.TelegramSettings, error) {
	if cfg.BotToken != "" {
		return vault.TelegramSettings{Token: cfg.BotToken, WebhookSecret: cfg.WebhookSecret}, nil
	}

	v, err := openVault(cfg, false)
	if err != nil {
		return vault.TelegramSettings{}, err
	}
	defer v.Close()

	s, err := v.Telegram()
	if err != nil {
		return vault.TelegramSettings{}, err
	}
	if cfg.WebhookSecret != "" {
		s.WebhookSecret = cfg.WebhookSecret
	}
	return s, nil
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot with scheduled reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := cfg.Logger()
			slog.SetDefault(logger)

			tg, err := telegramSettings(cfg)
			if err != nil {
				return err
			}
			cfg.WebhookSecret = tg.WebhookSecret

			ctx := cmd.Context()
			client := telegram.NewClient(telegram.Config{Token: tg.Token})
			me, err := client.GetMe(ctx)
			if err != nil {
				return err
			}
			logger.Info("bot identity", "username", me.Username, "id", me.ID)

			a, err := app.New(cfg, logger, client)
			if err != nil {
				return err
			}
			return a.Run(ctx, client)
		},
	}
}

func newConsoleCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Chat with the bot locally as handle \"console\"",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// the terminal belongs to the TUI, so logs go to a file
			if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
			logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "console.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err != nil {
				return fmt.Errorf("open console log: %w", err)
			}
			defer logFile.Close()
			logger := slog.New(slog.NewTextHandler(logFile, nil))

			var remote remind.Sender
			if cfg.BotToken != "" {
				remote = telegram.NewClient(telegram.Config{Token: cfg.BotToken})
			}

			a, err := app.New(cfg, logger, remote)
			if err != nil {
				return err
			}

			sched, err := a.Scheduler()
			if err != nil {
				return err
			}
			sched.Start()
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = sched.Stop(stopCtx)
			}()

			return console.Run(cmd.Context(), a, version, a.Router.Attach)
		},
	}
}

func newCodesCmd() *cobra.Command {
	codes := &cobra.Command{
		Use:   "codes",
		Short: "Inspect and extend the identity directory",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List identity codes and names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dir, err := directory.Load(cfg.CodesFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, code := range dir.Codes() {
				name, _ := dir.Resolve(code)
				fmt.Fprintf(out, "  %-12s %s\n", code, name)
			}
			return nil
		},
	}

	var write bool
	gen := &cobra.Command{
		Use:   "gen [name]",
		Short: "Generate an unused code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			dir, err := directory.Load(cfg.CodesFile)
			if errors.Is(err, fs.ErrNotExist) {
				dir, err = directory.New(nil)
			}
			if err != nil {
				return err
			}

			code := dir.NewCode(codeLength)
			name := "<name>"
			if len(args) == 1 {
				name = args[0]
			}

			if !write {
				fmt.Fprintf(cmd.OutOrStdout(), "  %q: %q\n", code, name)
				return nil
			}

			if len(args) == 0 {
				return errors.New("--write needs a name")
			}
			next, err := dir.With(code, name)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(cfg.CodesFile), 0o700); err != nil {
				return fmt.Errorf("create codes dir: %w", err)
			}
			if err := next.Save(cfg.CodesFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s for %s\n", code, name)
			return nil
		},
	}
	gen.Flags().BoolVar(&write, "write", false, "append the code to the codes file")

	codes.AddCommand(list, gen)
	return codes
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List chats bound to identity codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dir, err := directory.Load(cfg.CodesFile)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}

			reg, err := session.Open(zfilesystem.NewOSFileSystem(cfg.DataDir), dir, cfg.Logger())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			all := reg.All()
			if len(all) == 0 {
				fmt.Fprintln(out, "no sessions")
				return nil
			}
			for _, s := range all {
				name, _ := dir.Resolve(s.Code)
				fmt.Fprintf(out, "  %-16s %-12s %s\n", s.Handle, s.Code, name)
			}
			return nil
		},
	}
}

func newBroadcastCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "broadcast daily|monthly",
		Short:     "Send one reminder pass now",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(remind.Daily), string(remind.Monthly)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := cfg.Logger()

			tg, err := telegramSettings(cfg)
			if err != nil {
				return err
			}
			client := telegram.NewClient(telegram.Config{Token: tg.Token})

			a, err := app.New(cfg, logger, client)
			if err != nil {
				return err
			}

			res, err := a.Broadcast(cmd.Context(), remind.Kind(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Summary())
			if res.HasErrors() {
				return errors.New("broadcast incomplete")
			}
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	token := &cobra.Command{
		Use:   "token",
		Short: "Manage the encrypted bot token",
	}

	var secret string
	set := &cobra.Command{
		Use:   "set",
		Short: "Store the bot token in the vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			tok, err := ReadPassword("bot token: ", os.Stderr)
			if err != nil {
				return err
			}

			v, err := openVault(cfg, true)
			if err != nil {
				return err
			}
			defer v.Close()

			if err := v.SetTelegram(vault.TelegramSettings{Token: tok, WebhookSecret: secret}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "saved")
			return nil
		},
	}
	set.Flags().StringVar(&secret, "webhook-secret", "", "secret Telegram echoes on webhook calls")

	token.AddCommand(set)
	return token
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "zbday %s\n", version)
		},
	}
}
