// Package vault keeps the bot credentials in an encrypted zstore so the token
// does not have to live in the environment.
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/core/pkg/zstore"
)

// ErrWrongPassword is returned when the vault password does not match.
var ErrWrongPassword = zstore.ErrWrongPassword

// ErrNotConfigured is returned when no token has been stored yet.
var ErrNotConfigured = errors.New("bot token not configured")

const telegramKey = "telegram"

// configEnvelope wraps a JSON-encoded value so heterogeneous settings share
// one zstore collection.
type configEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// TelegramSettings holds the Bot API credentials.
type TelegramSettings struct {
	Token         string `json:"token"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Configured reports whether a token is present.
func (s TelegramSettings) Configured() bool {
	return s.Token != ""
}

// Vault is an open, decrypted settings store.
type Vault struct {
	store   *zstore.Store
	configs *zstore.Collection[configEnvelope]
}

// Open unlocks the vault in fsys, creating it on first use.
func Open(fsys zfilesystem.ReadWriteFileFS, password string) (*Vault, error) {
	s, err := zstore.Open(fsys, []byte(password))
	if err != nil {
		return nil, err
	}

	col, err := zstore.NewCollection[configEnvelope](s, "config")
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open config collection: %w", err)
	}

	return &Vault{store: s, configs: col}, nil
}

// OpenDir unlocks the vault stored under dir.
func OpenDir(dir, password string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	return Open(zfilesystem.NewOSFileSystem(dir), password)
}

// IsFirstRun checks whether the vault has been initialized.
func IsFirstRun(dir string) bool {
	_, err := os.Stat(dir + "/salt")
	return err != nil
}

// Telegram returns the stored credentials or ErrNotConfigured.
func (v *Vault) Telegram() (TelegramSettings, error) {
	env, err := v.configs.Get(telegramKey)
	if err != nil {
		return TelegramSettings{}, ErrNotConfigured
	}

	var s TelegramSettings
	if err := json.Unmarshal(env.Data, &s); err != nil {
		return TelegramSettings{}, fmt.Errorf("decode telegram settings: %w", err)
	}
	if !s.Configured() {
		return TelegramSettings{}, ErrNotConfigured
	}

	return s, nil
}

// SetTelegram stores the credentials.
func (v *Vault) SetTelegram(s TelegramSettings) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal telegram settings: %w", err)
	}

	if err := v.configs.Put(telegramKey, configEnvelope{Data: data}); err != nil {
		return fmt.Errorf("save telegram settings: %w", err)
	}
	return nil
}

// Close locks the vault.
func (v *Vault) Close() {
	v.store.Close()
}
