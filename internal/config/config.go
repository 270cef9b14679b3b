package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
	Nutrition NutritionConfig `yaml:"nutrition"`
	Strava    StravaConfig    `yaml:"strava"`
	Timezone  string          `yaml:"timezone"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects where the state blob lives.
// Driver is one of "sqlite", "file" or "memory". Path is the database file
// for sqlite and the directory for file.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	Strict bool   `yaml:"strict"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type NutritionConfig struct {
	GeminiAPIKey string `yaml:"gemini_api_key"`
	VisionModel  string `yaml:"vision_model"`
	TextModel    string `yaml:"text_model"`
	BarcodeURL   string `yaml:"barcode_url"`
}

type StravaConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether activity sync is configured.
func (s StravaConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Host: "127.0.0.1", Port: 8080},
		Storage:   StorageConfig{Driver: "sqlite", Path: "data/fitlog.db"},
		Tailscale: TailscaleConfig{Hostname: "fitlog", StateDir: "data/tsnet"},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. An empty path skips the file.
// Env vars use the prefix FITLOG_ and underscore-separated paths:
//
//	FITLOG_SERVER_HOST, FITLOG_SERVER_PORT,
//	FITLOG_STORAGE_DRIVER, FITLOG_STORAGE_PATH, FITLOG_STORAGE_STRICT,
//	FITLOG_AUTH_API_KEY, FITLOG_TAILSCALE_ENABLED, FITLOG_TAILSCALE_HOSTNAME,
//	FITLOG_LOG_LEVEL, FITLOG_LOG_FILE, FITLOG_GEMINI_API_KEY,
//	FITLOG_STRAVA_CLIENT_ID, FITLOG_STRAVA_CLIENT_SECRET, FITLOG_STRAVA_REDIRECT_URL,
//	FITLOG_TIMEZONE
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := map[string]*string{
		"FITLOG_SERVER_HOST":          &cfg.Server.Host,
		"FITLOG_STORAGE_DRIVER":       &cfg.Storage.Driver,
		"FITLOG_STORAGE_PATH":         &cfg.Storage.Path,
		"FITLOG_AUTH_API_KEY":         &cfg.Auth.APIKey,
		"FITLOG_TAILSCALE_HOSTNAME":   &cfg.Tailscale.Hostname,
		"FITLOG_TAILSCALE_STATE_DIR":  &cfg.Tailscale.StateDir,
		"FITLOG_LOG_LEVEL":            &cfg.Log.Level,
		"FITLOG_LOG_FILE":             &cfg.Log.File,
		"FITLOG_GEMINI_API_KEY":       &cfg.Nutrition.GeminiAPIKey,
		"FITLOG_BARCODE_URL":          &cfg.Nutrition.BarcodeURL,
		"FITLOG_STRAVA_CLIENT_ID":     &cfg.Strava.ClientID,
		"FITLOG_STRAVA_CLIENT_SECRET": &cfg.Strava.ClientSecret,
		"FITLOG_STRAVA_REDIRECT_URL":  &cfg.Strava.RedirectURL,
		"FITLOG_TIMEZONE":             &cfg.Timezone,
	}
	for env, dst := range str {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("FITLOG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FITLOG_STORAGE_STRICT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Storage.Strict = b
		}
	}
	if v := os.Getenv("FITLOG_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
}

// Location returns the configured timezone, or the local zone when unset.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	switch c.Storage.Driver {
	case "sqlite", "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be sqlite, file or memory, got %q", c.Storage.Driver)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}
	if (c.Strava.ClientID == "") != (c.Strava.ClientSecret == "") {
		return fmt.Errorf("strava.client_id and strava.client_secret must be set together")
	}
	return nil
}
