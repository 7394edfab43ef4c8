package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zarlcorp/zbday/internal/config"
	"github.com/zarlcorp/zbday/internal/directory"
	"github.com/zarlcorp/zbday/internal/vault"
	"gopkg.in/yaml.v3"
)

const testCodes = `users:
  "2": Надежда
  "14": Нася
`

// setupDataDir points the config at a temp data dir holding testCodes.
func setupDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ZBDAY_DATA_DIR", dir)
	t.Setenv("ZBDAY_CODES_FILE", "")
	t.Setenv("ZBDAY_BOT_TOKEN", "")
	t.Setenv("ZBDAY_WEBHOOK_SECRET", "")
	if err := os.WriteFile(filepath.Join(dir, "codes.yaml"), []byte(testCodes), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("1.2.3")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "zbday 1.2.3\n" {
		t.Errorf("version: got %q", out)
	}
}

func TestCodesList(t *testing.T) {
	setupDataDir(t)

	out, err := run(t, "codes", "list")
	if err != nil {
		t.Fatalf("codes list: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines: got %q", out)
	}
	if !strings.Contains(lines[0], "14") || !strings.Contains(lines[0], "Нася") {
		t.Errorf("first line: got %q", lines[0])
	}
	if !strings.Contains(lines[1], "Надежда") {
		t.Errorf("second line: got %q", lines[1])
	}
}

func TestCodesGenPrintsYAML(t *testing.T) {
	setupDataDir(t)

	out, err := run(t, "codes", "gen", "Сережа")
	if err != nil {
		t.Fatalf("codes gen: %v", err)
	}

	var entry map[string]string
	if err := yaml.Unmarshal([]byte(strings.TrimSpace(out)), &entry); err != nil {
		t.Fatalf("output is not yaml: %q: %v", out, err)
	}
	if len(entry) != 1 {
		t.Fatalf("entry: got %v", entry)
	}
	for code, name := range entry {
		if len(code) != codeLength {
			t.Errorf("code length: got %d", len(code))
		}
		if name != "Сережа" {
			t.Errorf("name: got %q", name)
		}
	}
}

func TestCodesGenWrite(t *testing.T) {
	dir := setupDataDir(t)

	if _, err := run(t, "codes", "gen", "--write", "Сережа"); err != nil {
		t.Fatalf("codes gen --write: %v", err)
	}

	d, err := directory.Load(filepath.Join(dir, "codes.yaml"))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if d.Len() != 3 {
		t.Fatalf("codes: got %d, want 3", d.Len())
	}
}

func TestCodesGenWriteNeedsName(t *testing.T) {
	setupDataDir(t)

	if _, err := run(t, "codes", "gen", "--write"); err == nil {
		t.Fatal("expected error without name")
	}
}

func TestCodesGenCreatesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ZBDAY_DATA_DIR", dir)
	t.Setenv("ZBDAY_CODES_FILE", filepath.Join(dir, "conf", "codes.yaml"))

	if _, err := run(t, "codes", "gen", "--write", "Мама"); err != nil {
		t.Fatalf("codes gen: %v", err)
	}

	d, err := directory.Load(filepath.Join(dir, "conf", "codes.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d.Len() != 1 {
		t.Fatalf("codes: got %d, want 1", d.Len())
	}
}

func TestSessionsEmpty(t *testing.T) {
	setupDataDir(t)

	out, err := run(t, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if out != "no sessions\n" {
		t.Errorf("sessions: got %q", out)
	}
}

func TestSessionsListsBindings(t *testing.T) {
	dir := setupDataDir(t)
	if err := os.WriteFile(filepath.Join(dir, "sessions.json"), []byte(`{"100": "14"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if !strings.Contains(out, "100") || !strings.Contains(out, "Нася") {
		t.Errorf("sessions: got %q", out)
	}
}

func TestBroadcastRejectsUnknownKind(t *testing.T) {
	setupDataDir(t)

	if _, err := run(t, "broadcast", "weekly"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestTelegramSettingsPrefersEnv(t *testing.T) {
	cfg := config.Config{BotToken: "123:abc", WebhookSecret: "s", DataDir: t.TempDir()}

	s, err := telegramSettings(cfg)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.Token != "123:abc" || s.WebhookSecret != "s" {
		t.Errorf("settings: got %+v", s)
	}
}

func TestTelegramSettingsFromVault(t *testing.T) {
	cfg := config.Config{DataDir: t.TempDir(), VaultPassword: "pw"}

	v, err := vault.OpenDir(cfg.VaultDir(), "pw")
	if err != nil {
		t.Fatalf("open vault: %v", err)
	}
	if err := v.SetTelegram(vault.TelegramSettings{Token: "from-vault"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	v.Close()

	s, err := telegramSettings(cfg)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.Token != "from-vault" {
		t.Errorf("token: got %q", s.Token)
	}
}

func TestTelegramSettingsNotConfigured(t *testing.T) {
	cfg := config.Config{DataDir: t.TempDir()}

	_, err := telegramSettings(cfg)
	if !errors.Is(err, vault.ErrNotConfigured) {
		t.Fatalf("got %v, want ErrNotConfigured", err)
	}
}
