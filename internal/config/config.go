// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vmunix/resonarr/internal/naming"
)

// Config is the root configuration structure.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Database      DatabaseConfig      `toml:"database"`
	Catalog       CatalogConfig       `toml:"catalog"`
	Downloads     DownloadsConfig     `toml:"downloads"`
	Templates     TemplatesConfig     `toml:"templates"`
	Monitor       MonitorConfig       `toml:"monitor"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// ServerConfig configures the resonarrd HTTP listener.
type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// CatalogConfig holds catalog credentials and the outbound rate limit.
// ClientID and RefreshToken are normally supplied via ${VAR} references.
type CatalogConfig struct {
	BaseURL           string  `toml:"base_url"`
	Country           string  `toml:"country"`
	ClientID          string  `toml:"client_id"`
	RefreshToken      string  `toml:"refresh_token"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	MaxWaitSeconds    int     `toml:"max_wait_seconds"`
}

type DownloadsConfig struct {
	Root          string   `toml:"root"`
	Workers       int      `toml:"workers"`
	QualityOrder  []string `toml:"quality_order"`
	RecordTypes   []string `toml:"record_types"`
	RetryAttempts int      `toml:"retry_attempts"`
	LeaseMinutes  int      `toml:"lease_minutes"`
}

type TemplatesConfig struct {
	Album    string `toml:"album"`
	Playlist string `toml:"playlist"`
}

type MonitorConfig struct {
	IntervalHours int  `toml:"interval_hours"`
	AutoDownload  bool `toml:"auto_download"`
}

type NotificationsConfig struct {
	WebhookURL string `toml:"webhook_url"`
}

// Load reads, substitutes, parses, and validates the configuration file.
// Missing environment variables and validation failures are aggregated into
// a single *ConfigError so the user sees every problem at once.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}

	cfgErr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return cfg, nil
}

// LoadWithoutValidation parses the file but skips the missing-variable and
// validation checks. Used by `config show` and `config set`, which operate
// on files that may not be complete yet.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, missing, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 7878
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDataPath()
	}
	if c.Catalog.Country == "" {
		c.Catalog.Country = "US"
	}
	if c.Catalog.RequestsPerSecond == 0 {
		c.Catalog.RequestsPerSecond = 4
	}
	if c.Catalog.Burst == 0 {
		c.Catalog.Burst = 8
	}
	if c.Catalog.MaxWaitSeconds == 0 {
		c.Catalog.MaxWaitSeconds = 30
	}
	if c.Downloads.Root == "" {
		c.Downloads.Root = "~/Music"
	}
	if c.Downloads.Workers == 0 {
		c.Downloads.Workers = 4
	}
	if len(c.Downloads.QualityOrder) == 0 {
		c.Downloads.QualityOrder = []string{"max", "lossless", "high", "low"}
	}
	if len(c.Downloads.RecordTypes) == 0 {
		c.Downloads.RecordTypes = []string{"ALBUM", "EP", "SINGLE", "COMPILATION"}
	}
	if c.Downloads.RetryAttempts == 0 {
		c.Downloads.RetryAttempts = 3
	}
	if c.Downloads.LeaseMinutes == 0 {
		c.Downloads.LeaseMinutes = 30
	}
	if c.Templates.Album == "" {
		c.Templates.Album = naming.DefaultAlbumTemplate
	}
	if c.Templates.Playlist == "" {
		c.Templates.Playlist = naming.DefaultPlaylistTemplate
	}
	if c.Monitor.IntervalHours == 0 {
		c.Monitor.IntervalHours = 24
	}

	c.Database.Path = expandHome(c.Database.Path)
	c.Downloads.Root = expandHome(c.Downloads.Root)
}

// Lease returns the claim lease duration used for stale-download recovery.
func (c *Config) Lease() time.Duration {
	return time.Duration(c.Downloads.LeaseMinutes) * time.Minute
}

// ReconcileInterval returns the daemon's reconcile cadence.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalHours) * time.Hour
}

// CatalogMaxWait bounds how long a request may queue behind the rate limiter.
func (c *Config) CatalogMaxWait() time.Duration {
	return time.Duration(c.Catalog.MaxWaitSeconds) * time.Second
}

// expandHome resolves a leading "~/" against the current user's home
// directory. Other paths pass through untouched.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR_NAME} references with environment values
// and reports the ones that could not be resolved. ${VAR:-default} falls back
// to the default when VAR is unset or empty; ${VAR:?message} records the
// message alongside the variable name. Unresolved references are left in
// place so the failure is visible in the file content too.
func substituteEnvVars(content string) (string, []string) {
	var missing []string

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		expr := match[2 : len(match)-1]

		name, modifier, ok := strings.Cut(expr, ":")
		value := os.Getenv(name)

		if !ok {
			if value == "" {
				if _, set := os.LookupEnv(name); !set {
					missing = append(missing, name)
					return match
				}
			}
			return value
		}

		switch {
		case strings.HasPrefix(modifier, "-"):
			if value == "" {
				return modifier[1:]
			}
			return value
		case strings.HasPrefix(modifier, "?"):
			if value == "" {
				missing = append(missing, fmt.Sprintf("%s: %s", name, modifier[1:]))
				return match
			}
			return value
		default:
			// Not a recognized modifier; treat the whole expression as a name.
			if value, set := os.LookupEnv(expr); set {
				return value
			}
			missing = append(missing, expr)
			return match
		}
	})

	return result, missing
}
