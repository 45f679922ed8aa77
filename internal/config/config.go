package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fuelprice/internal/fuel"
	"fuelprice/internal/retry"
)

type Server struct {
	Port              string `json:"port" yaml:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
}

type Upstream struct {
	BaseURL         string   `json:"base_url" yaml:"base_url"`
	TimeoutSec      int      `json:"timeout_sec" yaml:"timeout_sec"`
	Networks        []string `json:"networks" yaml:"networks"`
	SessionNetworks []string `json:"session_networks" yaml:"session_networks"`
}

type Retry struct {
	MaxAttempts int     `json:"max_attempts" yaml:"max_attempts"`
	InitialMS   int     `json:"initial_ms" yaml:"initial_ms"`
	MaxMS       int     `json:"max_ms" yaml:"max_ms"`
	Multiplier  float64 `json:"multiplier" yaml:"multiplier"`
	Jitter      float64 `json:"jitter" yaml:"jitter"`
}

type Acquisition struct {
	PacingMS    int     `json:"pacing_ms" yaml:"pacing_ms"`
	Retry       Retry   `json:"retry" yaml:"retry"`
	MinCoverage float64 `json:"min_coverage" yaml:"min_coverage"`
}

type PriceRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

type Validation struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
	// PerKind is keyed by storage kind, e.g. "GPL" or "Benzina Standard".
	PerKind map[string]PriceRange `json:"per_kind" yaml:"per_kind"`
}

type Store struct {
	Driver   string `json:"driver" yaml:"driver"`
	DSN      string `json:"dsn" yaml:"dsn"`
	Timezone string `json:"timezone" yaml:"timezone"`
}

type Resolver struct {
	ThresholdKM       float64 `json:"threshold_km" yaml:"threshold_km"`
	LiveCacheTTLSec   int     `json:"live_cache_ttl_sec" yaml:"live_cache_ttl_sec"`
	LiveCacheMaxItems int     `json:"live_cache_max_items" yaml:"live_cache_max_items"`
}

type Route struct {
	BaseURL    string `json:"base_url" yaml:"base_url"`
	APIKey     string `json:"api_key" yaml:"api_key"`
	TimeoutSec int    `json:"timeout_sec" yaml:"timeout_sec"`
}

type Schedule struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Cron    string `json:"cron" yaml:"cron"`
}

type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type Config struct {
	Server      Server      `json:"server" yaml:"server"`
	Upstream    Upstream    `json:"upstream" yaml:"upstream"`
	Acquisition Acquisition `json:"acquisition" yaml:"acquisition"`
	Validation  Validation  `json:"validation" yaml:"validation"`
	Store       Store       `json:"store" yaml:"store"`
	Resolver    Resolver    `json:"resolver" yaml:"resolver"`
	Route       Route       `json:"route" yaml:"route"`
	Schedule    Schedule    `json:"schedule" yaml:"schedule"`
	Log         Log         `json:"log" yaml:"log"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 600},
		Upstream: Upstream{
			BaseURL:         "https://www.peco-online.ro",
			TimeoutSec:      30,
			Networks:        []string{"Petrom", "OMV", "Rompetrol", "Lukoil", "Mol", "Socar", "Gazprom"},
			SessionNetworks: []string{"Petrom", "OMV", "Rompetrol"},
		},
		Acquisition: Acquisition{
			PacingMS: 1500,
			Retry: Retry{
				MaxAttempts: 3,
				InitialMS:   3000,
				MaxMS:       10000,
				Multiplier:  1.5,
				Jitter:      0.2,
			},
			MinCoverage: 0.5,
		},
		Validation: Validation{Min: fuel.DefaultMinPrice, Max: fuel.DefaultMaxPrice},
		Store:      Store{Driver: "sqlite", DSN: "file:fuelprice.db", Timezone: "Europe/Bucharest"},
		Resolver: Resolver{
			ThresholdKM:       200,
			LiveCacheTTLSec:   900,
			LiveCacheMaxItems: 1000,
		},
		Route:    Route{BaseURL: "https://api.openrouteservice.org", TimeoutSec: 20},
		Schedule: Schedule{Enabled: true, Cron: "0 6 * * *"},
		Log:      Log{Level: "info", Format: "text"},
	}
}

// Load reads a .env file if present, then the config file at path (JSON or
// YAML by extension). With an empty path the first of config.json,
// config.yaml and config.yml that exists is used. Environment variables
// override file values.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := loadDotEnv(".env"); err != nil {
		return cfg, err
	}
	if path == "" {
		for _, candidate := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := decode(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

// loadDotEnv sets variables from file without overriding the real
// environment.
func loadDotEnv(file string) error {
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(file); err != nil {
		return fmt.Errorf("load %s: %w", file, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if x, ok := envInt("REQUEST_TIMEOUT_SEC"); ok && x > 0 {
		cfg.Server.RequestTimeoutSec = x
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		cfg.Store.Timezone = v
	}
	if v := os.Getenv("PECO_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if x, ok := envInt("PECO_TIMEOUT_SEC"); ok && x > 0 {
		cfg.Upstream.TimeoutSec = x
	}
	if v := os.Getenv("PECO_NETWORKS"); v != "" {
		cfg.Upstream.Networks = splitCSV(v)
	}
	if x, ok := envInt("PACING_MS"); ok && x >= 0 {
		cfg.Acquisition.PacingMS = x
	}
	if x, ok := envInt("RETRY_MAX_ATTEMPTS"); ok && x > 0 {
		cfg.Acquisition.Retry.MaxAttempts = x
	}
	if x, ok := envInt("RETRY_INITIAL_MS"); ok && x >= 0 {
		cfg.Acquisition.Retry.InitialMS = x
	}
	if x, ok := envFloat("MIN_COVERAGE"); ok && x > 0 && x <= 1 {
		cfg.Acquisition.MinCoverage = x
	}
	if x, ok := envFloat("RESOLVE_THRESHOLD_KM"); ok && x > 0 {
		cfg.Resolver.ThresholdKM = x
	}
	if v := os.Getenv("ORS_API_KEY"); v != "" {
		cfg.Route.APIKey = v
	}
	if v := os.Getenv("ORS_BASE_URL"); v != "" {
		cfg.Route.BaseURL = v
	}
	if v := os.Getenv("SCHEDULE_CRON"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("SCHEDULE_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.Schedule.Enabled = true
		case "0", "false", "no", "n":
			cfg.Schedule.Enabled = false
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	x, err := strconv.Atoi(v)
	return x, err == nil
}

func envFloat(key string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	x, err := strconv.ParseFloat(v, 64)
	return x, err == nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RetryPolicy converts the retry section.
func (a Acquisition) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     a.Retry.MaxAttempts,
		InitialInterval: time.Duration(a.Retry.InitialMS) * time.Millisecond,
		MaxInterval:     time.Duration(a.Retry.MaxMS) * time.Millisecond,
		Multiplier:      a.Retry.Multiplier,
		Jitter:          a.Retry.Jitter,
	}
}

// Pacing is the minimum spacing between upstream requests.
func (a Acquisition) Pacing() time.Duration {
	return time.Duration(a.PacingMS) * time.Millisecond
}

// Validator builds the price validator with per-kind overrides.
func (v Validation) Validator() *fuel.Validator {
	overrides := make(map[fuel.Kind]fuel.Range, len(v.PerKind))
	for k, r := range v.PerKind {
		overrides[fuel.Kind(k)] = fuel.Range{Min: r.Min, Max: r.Max}
	}
	val := fuel.NewValidator(overrides)
	if v.Min < v.Max {
		val.Default = fuel.Range{Min: v.Min, Max: v.Max}
	}
	return val
}

// Location loads the configured time zone.
func (s Store) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}
