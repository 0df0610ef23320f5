package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// SekiConfig points at the pipeline status API.
type SekiConfig struct {
	URL   string `toml:"url" validate:"omitempty,url"`
	Token string `toml:"token"`
}

// GitHubConfig holds access configuration for GitHub.
type GitHubConfig struct {
	Token string `toml:"token"`
	URL   string `toml:"url" validate:"omitempty,url"`
}

// GitLabConfig holds access configuration for GitLab.
type GitLabConfig struct {
	Token string `toml:"token"`
	URL   string `toml:"url" validate:"omitempty,url"`
}

// LocalConfig points at a directory of clones laid out as <root>/<org>/<name>.
type LocalConfig struct {
	Root string `toml:"root"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Config holds all sekideck configuration.
type Config struct {
	Seki   SekiConfig   `toml:"seki"`
	GitHub GitHubConfig `toml:"github"`
	GitLab GitLabConfig `toml:"gitlab"`
	Local  LocalConfig  `toml:"local"`
	Server ServerConfig `toml:"server"`

	// Host is the code host used for repositories named without a remote.
	Host        string `toml:"host" validate:"omitempty,oneof=github gitlab local"`
	Org         string `toml:"org"`
	CacheTTL    string `toml:"cache_ttl" validate:"omitempty,duration"`
	Attempts    int    `toml:"attempts" validate:"min=0,max=6"`
	FavoritesDB string `toml:"favorites_db"`
	LogLevel    string `toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

const (
	defaultHost     = "github"
	defaultCacheTTL = 30 * time.Second
	defaultAttempts = 2
	defaultAddr     = "127.0.0.1:7070"
	defaultLogLevel = "info"
)

// ErrNoProvider is returned when no pipeline status API URL is configured.
var ErrNoProvider = errors.New("seki API URL not configured: set [seki] url or SEKI_URL")

// HostOrDefault returns Host if set, otherwise "github".
func (c Config) HostOrDefault() string {
	if c.Host != "" {
		return c.Host
	}
	return defaultHost
}

// CacheTTLOrDefault returns CacheTTL as a duration, otherwise 30s.
func (c Config) CacheTTLOrDefault() time.Duration {
	if d, err := time.ParseDuration(c.CacheTTL); err == nil && d > 0 {
		return d
	}
	return defaultCacheTTL
}

// AttemptsOrDefault returns how many times a request is tried, the first
// try included, otherwise 2. 1 disables retrying.
func (c Config) AttemptsOrDefault() int {
	if c.Attempts > 0 {
		return c.Attempts
	}
	return defaultAttempts
}

// AddrOrDefault returns Server.Addr if set, otherwise 127.0.0.1:7070.
func (c Config) AddrOrDefault() string {
	if c.Server.Addr != "" {
		return c.Server.Addr
	}
	return defaultAddr
}

// LogLevelOrDefault returns LogLevel if set, otherwise "info".
func (c Config) LogLevelOrDefault() string {
	if c.LogLevel != "" {
		return c.LogLevel
	}
	return defaultLogLevel
}

// FavoritesDBOrDefault returns FavoritesDB if set, otherwise favorites.db
// next to the default config file.
func (c Config) FavoritesDBOrDefault() string {
	if c.FavoritesDB != "" {
		return c.FavoritesDB
	}
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "favorites.db")
}

// RequireProvider reports ErrNoProvider when the seki URL is missing.
func (c Config) RequireProvider() error {
	if c.Seki.URL == "" {
		return ErrNoProvider
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
	return v
}

// Validate checks field formats and ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (got %v)", first.Namespace(), first.Tag(), first.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.HostOrDefault() == "local" && c.Local.Root == "" {
		return errors.New("invalid config: host \"local\" needs [local] root")
	}
	return nil
}

// LoadDotEnv loads variables from a .env file when it exists.
// Variables already set in the environment are left untouched.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - SEKI_URL           overrides seki.url
//   - SEKI_API_TOKEN     overrides seki.token
//   - GITHUB_TOKEN       overrides github.token
//   - GITLAB_TOKEN       overrides gitlab.token
//   - GITLAB_URL         overrides gitlab.url
//   - SEKIDECK_ADDR      overrides server.addr
//   - SEKIDECK_LOG_LEVEL overrides log_level
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfigPath returns the default path for the sekideck config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sekideck", "config.toml")
}

func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"SEKI_URL", &cfg.Seki.URL},
		{"SEKI_API_TOKEN", &cfg.Seki.Token},
		{"GITHUB_TOKEN", &cfg.GitHub.Token},
		{"GITLAB_TOKEN", &cfg.GitLab.Token},
		{"GITLAB_URL", &cfg.GitLab.URL},
		{"SEKIDECK_ADDR", &cfg.Server.Addr},
		{"SEKIDECK_LOG_LEVEL", &cfg.LogLevel},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
