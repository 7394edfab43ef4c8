package vault

import (
	"errors"
	"testing"

	"github.com/zarlcorp/core/pkg/zfilesystem"
)

func openTestVault(t *testing.T, fsys *zfilesystem.MemFS, password string) *Vault {
	t.Helper()
	v, err := Open(fsys, password)
	if err != nil {
		t.Fatalf("open vault: %v", err)
	}
	t.Cleanup(v.Close)
	return v
}

func TestEmptyVaultNotConfigured(t *testing.T) {
	v := openTestVault(t, zfilesystem.NewMemFS(), "test")

	_, err := v.Telegram()
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("got %v, want ErrNotConfigured", err)
	}
}

func TestSetAndGetTelegram(t *testing.T) {
	v := openTestVault(t, zfilesystem.NewMemFS(), "test")

	want := TelegramSettings{Token: "123:abc", WebhookSecret: "s3cret"}
	if err := v.SetTelegram(want); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := v.Telegram()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != want {
		t.Errorf("settings: got %+v, want %+v", got, want)
	}
}

func TestSetTelegramRequiresToken(t *testing.T) {
	v := openTestVault(t, zfilesystem.NewMemFS(), "test")

	if err := v.SetTelegram(TelegramSettings{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("got %v, want ErrNotConfigured", err)
	}
}

func TestReopenWithPassword(t *testing.T) {
	dir := t.TempDir()

	v, err := OpenDir(dir, "correct")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := v.SetTelegram(TelegramSettings{Token: "123:abc"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	v.Close()

	if IsFirstRun(dir) {
		t.Fatal("vault should be initialized")
	}

	if _, err := OpenDir(dir, "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("wrong password: got %v", err)
	}

	v2, err := OpenDir(dir, "correct")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer v2.Close()

	s, err := v2.Telegram()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Token != "123:abc" {
		t.Errorf("token: got %q", s.Token)
	}
}

func TestIsFirstRun(t *testing.T) {
	if !IsFirstRun(t.TempDir()) {
		t.Error("empty dir should be first run")
	}
}
