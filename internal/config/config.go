package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	ListenAddr    string `mapstructure:"listen_addr"`
	RedisURL      string `mapstructure:"redis_url"`
	RedisPoolSize int    `mapstructure:"redis_pool_size"`
	StoreBackend  string `mapstructure:"store_backend"`

	ProcessorDefaultURL  string `mapstructure:"processor_default_url"`
	ProcessorFallbackURL string `mapstructure:"processor_fallback_url"`

	Workers             int           `mapstructure:"workers"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
	HealthCheckTimeout  time.Duration `mapstructure:"health_check_timeout"`
	ProcessorTimeout    time.Duration `mapstructure:"processor_timeout"`
	QueuePopTimeout     time.Duration `mapstructure:"queue_pop_timeout"`
	BothDownDelay       time.Duration `mapstructure:"both_down_delay"`
	WorkerErrorBackoff  time.Duration `mapstructure:"worker_error_backoff"`
	ShutdownTimeout     time.Duration `mapstructure:"shutdown_timeout"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	PprofAddr string `mapstructure:"pprof_addr"`
}

var defaults = map[string]any{
	"listen_addr":            ":9999",
	"redis_url":              "redis://localhost:6379/0",
	"redis_pool_size":        50,
	"store_backend":          BackendRedis,
	"processor_default_url":  "http://localhost:8001",
	"processor_fallback_url": "http://localhost:8002",
	"workers":                30,
	"health_check_interval":  5 * time.Second,
	"health_check_timeout":   2 * time.Second,
	"processor_timeout":      3 * time.Second,
	"queue_pop_timeout":      2 * time.Second,
	"both_down_delay":        100 * time.Millisecond,
	"worker_error_backoff":   time.Second,
	"shutdown_timeout":       30 * time.Second,
	"log_level":              "info",
	"log_format":             "json",
	"pprof_addr":             "",
}

// Load reads configuration from the environment (upper-cased keys, e.g.
// WORKERS, PROCESSOR_DEFAULT_URL) and any flags already bound to v.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.ProcessorDefaultURL = strings.TrimRight(cfg.ProcessorDefaultURL, "/")
	cfg.ProcessorFallbackURL = strings.TrimRight(cfg.ProcessorFallbackURL, "/")
	cfg.StoreBackend = strings.ToLower(cfg.StoreBackend)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.StoreBackend != BackendRedis && c.StoreBackend != BackendMemory {
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.ProcessorDefaultURL == "" || c.ProcessorFallbackURL == "" {
		return fmt.Errorf("both processor URLs are required")
	}
	durations := map[string]time.Duration{
		"health_check_interval": c.HealthCheckInterval,
		"health_check_timeout":  c.HealthCheckTimeout,
		"processor_timeout":     c.ProcessorTimeout,
		"queue_pop_timeout":     c.QueuePopTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.BothDownDelay < 0 || c.WorkerErrorBackoff < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}
