package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults used when neither environment nor config file say otherwise.
const (
	DefaultBackendURL = "http://localhost:5000"
	DefaultAPIKey     = "mr-tracker-dev-key"
	DefaultTileURL    = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultTileCredit = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
)

// Config holds all build/runtime settings for the frontend server.
type Config struct {
	Port        string
	Environment string

	BackendBaseURL string
	BackendAPIKey  string
	UseMock        bool

	TileURL         string
	TileAttribution string
	CurrencySymbol  string

	RoutePollInterval time.Duration
	LivePollInterval  time.Duration
	FetchRetries      int
	UpstreamTimeout   time.Duration
	CacheTTL          time.Duration

	RedisURL    string
	DatabaseURL string
	SettingsDB  string

	ConfigFile string
}

// fileConfig is the optional YAML overlay (MRTRACK_CONFIG). Empty fields
// leave the env/default value untouched.
type fileConfig struct {
	Port            string `yaml:"port"`
	BackendBaseURL  string `yaml:"backend_base_url"`
	BackendAPIKey   string `yaml:"backend_api_key"`
	TileURL         string `yaml:"tile_url"`
	TileAttribution string `yaml:"tile_attribution"`
	CurrencySymbol  string `yaml:"currency_symbol"`
	RoutePollSec    int    `yaml:"route_poll_sec"`
	LivePollSec     int    `yaml:"live_poll_sec"`
	FetchRetries    int    `yaml:"fetch_retries"`
	RedisURL        string `yaml:"redis_url"`
	DatabaseURL     string `yaml:"database_url"`
	SettingsDB      string `yaml:"settings_db"`
}

// Load reads configuration from environment, an optional .env file, and an
// optional YAML config file. It never fails; bad values fall back to defaults.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:              getenv("PORT", "8080"),
		Environment:       getenv("ENVIRONMENT", "local"),
		BackendBaseURL:    getenv("BACKEND_BASE_URL", DefaultBackendURL),
		BackendAPIKey:     getenv("BACKEND_API_KEY", DefaultAPIKey),
		UseMock:           getenvBool("USE_MOCK_BACKEND", false),
		TileURL:           getenv("TILE_URL", DefaultTileURL),
		TileAttribution:   getenv("TILE_ATTRIBUTION", DefaultTileCredit),
		CurrencySymbol:    getenv("CURRENCY_SYMBOL", "₹"),
		RoutePollInterval: time.Duration(clampInt(getenvInt("ROUTE_POLL_SEC", 30), 5, 600)) * time.Second,
		LivePollInterval:  time.Duration(clampInt(getenvInt("LIVE_POLL_SEC", 15), 5, 600)) * time.Second,
		FetchRetries:      clampInt(getenvInt("FETCH_RETRIES", 3), 0, 10),
		UpstreamTimeout:   time.Duration(clampInt(getenvInt("UPSTREAM_TIMEOUT_SEC", 10), 1, 120)) * time.Second,
		CacheTTL:          time.Duration(clampInt(getenvInt("RESPONSE_CACHE_SEC", 15), 0, 600)) * time.Second,
		RedisURL:          getenv("REDIS_URL", ""),
		DatabaseURL:       getenv("DATABASE_URL", ""),
		SettingsDB:        getenv("SETTINGS_DB", ""),
		ConfigFile:        getenv("MRTRACK_CONFIG", ""),
	}
	if cfg.ConfigFile != "" {
		if err := cfg.applyFile(cfg.ConfigFile); err != nil {
			log.Printf("config: file %s ignored: %v", cfg.ConfigFile, err)
		}
	}
	log.Printf("config: env=%s backend=%s mock=%v poll=%s/%s", cfg.Environment, cfg.BackendBaseURL, cfg.UseMock, cfg.RoutePollInterval, cfg.LivePollInterval)
	return cfg
}

func (c *Config) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return err
	}
	setIf(&c.Port, fc.Port)
	setIf(&c.BackendBaseURL, fc.BackendBaseURL)
	setIf(&c.BackendAPIKey, fc.BackendAPIKey)
	setIf(&c.TileURL, fc.TileURL)
	setIf(&c.TileAttribution, fc.TileAttribution)
	setIf(&c.CurrencySymbol, fc.CurrencySymbol)
	setIf(&c.RedisURL, fc.RedisURL)
	setIf(&c.DatabaseURL, fc.DatabaseURL)
	setIf(&c.SettingsDB, fc.SettingsDB)
	if fc.RoutePollSec > 0 {
		c.RoutePollInterval = time.Duration(clampInt(fc.RoutePollSec, 5, 600)) * time.Second
	}
	if fc.LivePollSec > 0 {
		c.LivePollInterval = time.Duration(clampInt(fc.LivePollSec, 5, 600)) * time.Second
	}
	if fc.FetchRetries > 0 {
		c.FetchRetries = clampInt(fc.FetchRetries, 0, 10)
	}
	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
