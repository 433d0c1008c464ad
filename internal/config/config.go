package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/vitos/paper_dashboard/internal/infrastructure/logger"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	Polling PollingConfig `yaml:"polling"`
	Market  struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"market"`
	Logging struct {
		Level string            `yaml:"level"`
		File  logger.FileConfig `yaml:"file"`
	} `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	Sandbox SandboxConfig `yaml:"sandbox"`
}

type APIConfig struct {
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type PollingConfig struct {
	TradingIntervalMs int    `yaml:"trading_interval_ms"`
	IdleIntervalMs    int    `yaml:"idle_interval_ms"`
	RequestTimeoutMs  int    `yaml:"request_timeout_ms"`
	CadenceSchedule   string `yaml:"cadence_schedule"`
	SnapshotRefreshMs int    `yaml:"snapshot_refresh_ms"`
	RecordLimit       int    `yaml:"record_limit"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type SandboxConfig struct {
	Port           int         `yaml:"port"`
	DBPath         string      `yaml:"db_path"`
	InitialCapital string      `yaml:"initial_capital"`
	DriftSchedule  string      `yaml:"drift_schedule"`
	Quotes         []SeedQuote `yaml:"quotes"`
}

type SeedQuote struct {
	Symbol string `yaml:"symbol"`
	Price  string `yaml:"price"`
}

// Load reads the YAML file at path, then applies .env and environment
// overrides and defaults.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DASHBOARD_API_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("DASHBOARD_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v, err := strconv.Atoi(os.Getenv("DASHBOARD_PORT")); err == nil {
		c.Server.Port = v
	}
	if v, err := strconv.Atoi(os.Getenv("SANDBOX_PORT")); err == nil {
		c.Sandbox.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.API.URL == "" {
		c.API.URL = "http://localhost:8081"
	}
	if c.API.TimeoutMs == 0 {
		c.API.TimeoutMs = 10000
	}
	if c.Polling.TradingIntervalMs == 0 {
		c.Polling.TradingIntervalMs = 1000
	}
	if c.Polling.IdleIntervalMs == 0 {
		c.Polling.IdleIntervalMs = 30000
	}
	if c.Polling.SnapshotRefreshMs == 0 {
		c.Polling.SnapshotRefreshMs = 30000
	}
	if c.Polling.RecordLimit == 0 {
		c.Polling.RecordLimit = 50
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Sandbox.Port == 0 {
		c.Sandbox.Port = 8081
	}
	if c.Sandbox.DBPath == "" {
		c.Sandbox.DBPath = "sandbox.db"
	}
	if c.Sandbox.InitialCapital == "" {
		c.Sandbox.InitialCapital = "100000"
	}
	if c.Polling.CadenceSchedule == "" {
		c.Polling.CadenceSchedule = "@every 1m"
	}
	if c.Sandbox.DriftSchedule == "" {
		c.Sandbox.DriftSchedule = "@every 1s"
	}
}

func (c *Config) Validate() error {
	if c.Polling.TradingIntervalMs < 0 || c.Polling.IdleIntervalMs < 0 || c.Polling.RequestTimeoutMs < 0 {
		return fmt.Errorf("polling intervals must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Sandbox.Port < 0 || c.Sandbox.Port > 65535 {
		return fmt.Errorf("invalid sandbox port %d", c.Sandbox.Port)
	}
	if _, err := cron.ParseStandard(c.Polling.CadenceSchedule); err != nil {
		return fmt.Errorf("invalid cadence schedule %q: %w", c.Polling.CadenceSchedule, err)
	}
	if _, err := cron.ParseStandard(c.Sandbox.DriftSchedule); err != nil {
		return fmt.Errorf("invalid drift schedule %q: %w", c.Sandbox.DriftSchedule, err)
	}
	return nil
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (p PollingConfig) TradingInterval() time.Duration { return ms(p.TradingIntervalMs) }
func (p PollingConfig) IdleInterval() time.Duration    { return ms(p.IdleIntervalMs) }
func (p PollingConfig) RequestTimeout() time.Duration  { return ms(p.RequestTimeoutMs) }
func (p PollingConfig) SnapshotRefresh() time.Duration { return ms(p.SnapshotRefreshMs) }
func (a APIConfig) Timeout() time.Duration             { return ms(a.TimeoutMs) }
