package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	AccessKeyID   string `mapstructure:"aws_access_key_id"`
	SecretKey     string `mapstructure:"aws_secret_key"`
	AssociateTag  string `mapstructure:"associate_tag"`
	Country       string `mapstructure:"country"`
	ResponseGroup string `mapstructure:"response_group"`
	APIVersion    string `mapstructure:"api_version"`
	Debug         bool   `mapstructure:"debug"`
	HideErrors    bool   `mapstructure:"hide_errors"`
	EndpointsFile string `mapstructure:"endpoints_file"`

	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
	HTTPRetries        int           `mapstructure:"http_retries"`
	HTTPRetryWaitMs    int64         `mapstructure:"http_retry_wait_ms"`
	HTTPRetryWait      time.Duration `mapstructure:"-"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second"`

	SearchesFile         string        `mapstructure:"searches_file"`
	PublishersFile       string        `mapstructure:"publishers_file"`
	WatchIntervalSeconds int64         `mapstructure:"watch_interval"`
	WatchInterval        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// keys lists every setting so AutomaticEnv can resolve each one during
// Unmarshal, including those without a default.
var keys = []string{
	"aws_access_key_id",
	"aws_secret_key",
	"associate_tag",
}

// Load reads configuration from configs/.env and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("app_name", "amazon-ecs")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("country", "us")
	v.SetDefault("response_group", "")
	v.SetDefault("api_version", "2010-10-01")
	v.SetDefault("debug", false)
	v.SetDefault("hide_errors", false)
	v.SetDefault("endpoints_file", "")
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("http_retries", 2)
	v.SetDefault("http_retry_wait_ms", 500)
	v.SetDefault("requests_per_second", 1.0)
	v.SetDefault("searches_file", "./configs/searches.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("watch_interval", 3600) // seconds
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/seen.db")
	v.SetDefault("storage_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Country = strings.ToLower(strings.TrimSpace(cfg.Country))
	if cfg.Country == "" {
		return nil, fmt.Errorf("invalid country (must not be empty)")
	}

	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.HTTPRetries < 0 || cfg.HTTPRetryWaitMs < 0 {
		return nil, fmt.Errorf("invalid http_retries / http_retry_wait_ms (must not be negative)")
	}
	cfg.HTTPRetryWait = time.Duration(cfg.HTTPRetryWaitMs) * time.Millisecond

	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("invalid requests_per_second (must not be negative)")
	}

	if cfg.WatchIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid watch_interval (must be positive seconds)")
	}
	cfg.WatchInterval = time.Duration(cfg.WatchIntervalSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}
