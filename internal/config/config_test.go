package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/waabox/sekideck/internal/config"
)

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SEKI_URL", "SEKI_API_TOKEN", "GITHUB_TOKEN", "GITLAB_TOKEN", "GITLAB_URL", "SEKIDECK_ADDR", "SEKIDECK_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
host = "gitlab"
org = "acme"
cache_ttl = "1m"
attempts = 3
log_level = "debug"

[seki]
url = "https://seki.acme.dev/api"
token = "seki_token"

[gitlab]
token = "glpat_testtoken"
url = "https://gitlab.example.com"

[server]
addr = ":9000"
`)

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Seki.URL != "https://seki.acme.dev/api" {
		t.Errorf("expected seki URL, got '%s'", cfg.Seki.URL)
	}
	if cfg.Seki.Token != "seki_token" {
		t.Errorf("expected seki token 'seki_token', got '%s'", cfg.Seki.Token)
	}
	if cfg.GitLab.URL != "https://gitlab.example.com" {
		t.Errorf("expected GitLab URL 'https://gitlab.example.com', got '%s'", cfg.GitLab.URL)
	}
	if cfg.HostOrDefault() != "gitlab" {
		t.Errorf("expected host 'gitlab', got '%s'", cfg.HostOrDefault())
	}
	if cfg.CacheTTLOrDefault() != time.Minute {
		t.Errorf("expected cache ttl 1m, got %v", cfg.CacheTTLOrDefault())
	}
	if cfg.AttemptsOrDefault() != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.AttemptsOrDefault())
	}
	if cfg.AddrOrDefault() != ":9000" {
		t.Errorf("expected addr ':9000', got '%s'", cfg.AddrOrDefault())
	}
	if err := cfg.RequireProvider(); err != nil {
		t.Errorf("expected provider to be configured, got %v", err)
	}
}

func TestLoad_EnvVarsTakePrecedence(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[seki]
url = "https://seki.fromfile.dev"

[github]
token = "ghp_fromfile"
`)

	t.Setenv("SEKI_URL", "https://seki.fromenv.dev")
	t.Setenv("SEKI_API_TOKEN", "seki_fromenv")
	t.Setenv("GITHUB_TOKEN", "ghp_fromenv")
	t.Setenv("SEKIDECK_LOG_LEVEL", "warn")

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Seki.URL != "https://seki.fromenv.dev" {
		t.Errorf("expected env URL, got '%s'", cfg.Seki.URL)
	}
	if cfg.Seki.Token != "seki_fromenv" {
		t.Errorf("expected env token 'seki_fromenv', got '%s'", cfg.Seki.Token)
	}
	if cfg.GitHub.Token != "ghp_fromenv" {
		t.Errorf("expected env token 'ghp_fromenv', got '%s'", cfg.GitHub.Token)
	}
	if cfg.LogLevelOrDefault() != "warn" {
		t.Errorf("expected log level 'warn', got '%s'", cfg.LogLevelOrDefault())
	}
}

func TestLoad_MissingFileIsNotError(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "ghp_onlyenv")
	cfg, err := config.LoadFrom("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("missing file should not be an error, got: %v", err)
	}
	if cfg.GitHub.Token != "ghp_onlyenv" {
		t.Errorf("expected token from env, got '%s'", cfg.GitHub.Token)
	}
}

func TestDefaults(t *testing.T) {
	var cfg config.Config
	if cfg.HostOrDefault() != "github" {
		t.Errorf("expected default host 'github', got '%s'", cfg.HostOrDefault())
	}
	if cfg.CacheTTLOrDefault() != 30*time.Second {
		t.Errorf("expected default ttl 30s, got %v", cfg.CacheTTLOrDefault())
	}
	if cfg.AttemptsOrDefault() != 2 {
		t.Errorf("expected default attempts 2, got %d", cfg.AttemptsOrDefault())
	}
	if cfg.LogLevelOrDefault() != "info" {
		t.Errorf("expected default log level 'info', got '%s'", cfg.LogLevelOrDefault())
	}
	if !strings.HasSuffix(cfg.FavoritesDBOrDefault(), filepath.Join("sekideck", "favorites.db")) {
		t.Errorf("expected favorites db under the config dir, got '%s'", cfg.FavoritesDBOrDefault())
	}
	if err := cfg.RequireProvider(); err != config.ErrNoProvider {
		t.Errorf("expected ErrNoProvider, got %v", err)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := map[string]config.Config{
		"bad url":       {Seki: config.SekiConfig{URL: "not a url"}},
		"bad ttl":       {CacheTTL: "soon"},
		"bad host":      {Host: "bitbucket"},
		"bad level":     {LogLevel: "verbose"},
		"too many":      {Attempts: 9},
		"local no root": {Host: "local"},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error, got nil", name)
		}
	}
}

func TestLoad_InvalidFileIsError(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `cache_ttl = "forever"`)
	if _, err := config.LoadFrom(path); err == nil {
		t.Fatal("expected error for invalid cache_ttl, got nil")
	}
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	// godotenv treats a set-but-empty variable as present
	os.Unsetenv("SEKI_URL")
	t.Setenv("SEKI_API_TOKEN", "from_shell")
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SEKI_API_TOKEN=from_file\nSEKI_URL=https://seki.dotenv.dev\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("SEKI_API_TOKEN"); got != "from_shell" {
		t.Errorf("expected shell value to win, got '%s'", got)
	}
	if got := os.Getenv("SEKI_URL"); got != "https://seki.dotenv.dev" {
		t.Errorf("expected value from .env, got '%s'", got)
	}
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should not be an error, got %v", err)
	}
}

func TestSave_RoundTripsWith0600(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := config.Config{Seki: config.SekiConfig{URL: "https://seki.acme.dev"}, Org: "acme"}

	if err := config.Save(path, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
	loaded, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Org != "acme" || loaded.Seki.URL != "https://seki.acme.dev" {
		t.Errorf("expected saved values back, got %+v", loaded)
	}
}

func TestAttempts_OneDisablesRetrying(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `attempts = 1`)
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AttemptsOrDefault() != 1 {
		t.Errorf("expected a single attempt, got %d", cfg.AttemptsOrDefault())
	}
}
