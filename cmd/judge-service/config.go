package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"elevate/internal/common/cache"
	"elevate/internal/judge/client"
	"elevate/internal/judge/middleware"
	"elevate/internal/judge/service"
	"elevate/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:4000"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 120 * time.Second // /execute blocks for up to the poll budget
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxBodyBytes    = 1 << 20 // 1 MiB, matches the transport-level source ceiling
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes"`
}

// StoreConfig holds submission store settings.
type StoreConfig struct {
	MaxRecords  int           `yaml:"maxRecords"`
	TerminalTTL time.Duration `yaml:"terminalTTL"`
}

// AppConfig holds judge-service configuration.
type AppConfig struct {
	Server    ServerConfig               `yaml:"server"`
	Logger    logger.Config              `yaml:"logger"`
	Judge0    client.Config              `yaml:"judge0"`
	Scheduler service.SchedulerConfig    `yaml:"scheduler"`
	Store     StoreConfig                `yaml:"store"`
	RateLimit middleware.RateLimitPolicy `yaml:"rateLimit"`
	Redis     cache.RedisConfig          `yaml:"redis"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file failed: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file failed: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = defaultMaxBodyBytes
	}

	if cfg.Judge0.BaseURL == "" {
		cfg.Judge0.BaseURL = "https://judge0-ce.p.rapidapi.com"
	}
	if cfg.Judge0.RapidAPIHost == "" {
		cfg.Judge0.RapidAPIHost = "judge0-ce.p.rapidapi.com"
	}
	cfg.Judge0.SetDefaults()

	// Scheduler defaults follow the upstream client's poll and limit
	// defaults so the two stay consistent.
	if cfg.Scheduler.DefaultCPUTimeLimit <= 0 {
		cfg.Scheduler.DefaultCPUTimeLimit = cfg.Judge0.DefaultCPUTimeLimit
	}
	if cfg.Scheduler.DefaultMemoryLimit <= 0 {
		cfg.Scheduler.DefaultMemoryLimit = cfg.Judge0.DefaultMemoryLimit
	}
	if cfg.Scheduler.DefaultMaxRetries <= 0 {
		cfg.Scheduler.DefaultMaxRetries = cfg.Judge0.PollMaxRetries
	}
	if cfg.Scheduler.DefaultRetryDelay <= 0 {
		cfg.Scheduler.DefaultRetryDelay = cfg.Judge0.PollDelay
	}

	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = 10
	}
	if cfg.RateLimit.PerHour == 0 {
		cfg.RateLimit.PerHour = 100
	}

	return &cfg, nil
}

// applyEnvOverrides maps the environment variables the service has
// always been configured with onto the config structure.
func applyEnvOverrides(cfg *AppConfig) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = "0.0.0.0:" + port
	}
	if v := os.Getenv("JUDGE0_BASE_URL"); v != "" {
		cfg.Judge0.BaseURL = v
	}
	if v := os.Getenv("JUDGE0_RAPIDAPI_KEY"); v != "" {
		cfg.Judge0.RapidAPIKey = v
	}
	if v := os.Getenv("JUDGE0_RAPIDAPI_HOST"); v != "" {
		cfg.Judge0.RapidAPIHost = v
	}
	if v := os.Getenv("JUDGE0_AUTH_TOKEN"); v != "" {
		cfg.Judge0.AuthToken = v
	}
	if v, ok := envInt("MAX_CONCURRENT_JUDGE0_REQUESTS"); ok {
		cfg.Scheduler.MaxConcurrent = v
	}
	if v, ok := envInt("JUDGE0_POLL_MAX_RETRIES"); ok {
		cfg.Judge0.PollMaxRetries = v
	}
	if v, ok := envInt("JUDGE0_POLL_DELAY_MS"); ok {
		cfg.Judge0.PollDelay = time.Duration(v) * time.Millisecond
	}
	if v, ok := envFloat("CPU_TIME_LIMIT"); ok {
		cfg.Judge0.DefaultCPUTimeLimit = v
	}
	if v, ok := envInt("MEMORY_LIMIT"); ok {
		cfg.Judge0.DefaultMemoryLimit = v
	}
	if v, ok := envInt("MAX_SUBMISSIONS_PER_MINUTE"); ok {
		cfg.RateLimit.PerMinute = v
	}
	if v, ok := envInt("MAX_SUBMISSIONS_PER_HOUR"); ok {
		cfg.RateLimit.PerHour = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

func envFloat(name string) (float64, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
