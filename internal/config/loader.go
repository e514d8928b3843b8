package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

var (
	globalConfig *Config
	once         sync.Once
)

// LoadConfig loads the configuration file once per process.
func LoadConfig(configFile string) (*Config, error) {
	var err error

	once.Do(func() {
		var cfg *Config
		cfg, err = loadConfigFromFile(configFile)
		if err == nil {
			globalConfig = cfg
		}
	})

	return globalConfig, err
}

// loadConfigFromFile reads, defaults and validates one configuration file.
func loadConfigFromFile(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// CONTENTGEN_JWT_SECRET_KEY overrides jwt.secret_key, and so on
	v.SetEnvPrefix("contentgen")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// zero is a meaningful cap, so it cannot be filled in after decoding
	v.SetDefault("orchestrator.refine_cap", 2)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	setDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// setDefaults fills zero values.
func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 18080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./database/app.db"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Algorithm == "" {
		cfg.JWT.Algorithm = "HS256"
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "contentgen"
	}
	if cfg.JWT.ExpireMinutes == 0 {
		cfg.JWT.ExpireMinutes = 43200 // 30 days
	}
	if cfg.CORS.AllowMethods == nil {
		cfg.CORS.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if cfg.CORS.AllowHeaders == nil {
		cfg.CORS.AllowHeaders = []string{"*"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Orchestrator.MaxWorkers == 0 {
		cfg.Orchestrator.MaxWorkers = 16
	}
	if cfg.Orchestrator.CallTimeoutSeconds == 0 {
		cfg.Orchestrator.CallTimeoutSeconds = 120
	}
	if cfg.Orchestrator.LockTTLSeconds == 0 {
		cfg.Orchestrator.LockTTLSeconds = 90
	}
	if cfg.Budget.MonthlyCap == "" {
		cfg.Budget.MonthlyCap = "0"
	}
	if cfg.Budget.Currency == "" {
		cfg.Budget.Currency = "USD"
	}
	if cfg.Approval.MinFeedbackLength == 0 {
		cfg.Approval.MinFeedbackLength = 10
	}
	if cfg.Publish.TimeoutSeconds == 0 {
		cfg.Publish.TimeoutSeconds = 30
	}
	if cfg.Retriever.DefaultLimit == 0 {
		cfg.Retriever.DefaultLimit = 3
	}
	if cfg.Retriever.CacheMaxBytes == 0 {
		cfg.Retriever.CacheMaxBytes = 32 << 20
	}
}

// validateConfig rejects configurations the server cannot run with.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.JWT.SecretKey == "" {
		return fmt.Errorf("jwt.secret_key must not be empty")
	}

	if cfg.Orchestrator.RefineCap < 0 {
		return fmt.Errorf("orchestrator.refine_cap must not be negative")
	}

	if cfg.Orchestrator.CallTimeoutSeconds < 0 || cfg.Orchestrator.LockTTLSeconds < 0 {
		return fmt.Errorf("orchestrator timeouts must not be negative")
	}

	if monthlyCap, err := decimal.NewFromString(cfg.Budget.MonthlyCap); err != nil || monthlyCap.IsNegative() {
		return fmt.Errorf("invalid budget.monthly_cap: %q", cfg.Budget.MonthlyCap)
	}

	if !cfg.Publish.DryRun && cfg.Publish.Endpoint == "" {
		return fmt.Errorf("publish.endpoint is required unless publish.dry_run is set")
	}

	dbDir := filepath.Dir(cfg.Database.Path)
	if _, err := os.Stat(dbDir); os.IsNotExist(err) {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}

	return nil
}

// GetConfig returns the loaded configuration.
func GetConfig() *Config {
	return globalConfig
}
