package config

import (
	"fmt"
	"time"

	"contentgen/internal/utils"

	"github.com/shopspring/decimal"
)

// Config is the application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis_service"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Log          LogConfig          `mapstructure:"log"`
	Model        ModelConfig        `mapstructure:"model_services"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Budget       BudgetConfig       `mapstructure:"budget"`
	Approval     ApprovalConfig     `mapstructure:"approval"`
	Publish      PublishConfig      `mapstructure:"publish"`
	Retriever    RetrieverConfig    `mapstructure:"retriever"`
	CatalogPath  string             `mapstructure:"catalog_path"`
}

// ServerConfig HTTP server settings.
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	ProductionMode bool   `mapstructure:"production_mode"`
}

// GetAddress returns host:port.
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig sqlite location.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	// Disabled switches task claims and model limits to in-process implementations.
	Disabled bool `mapstructure:"disabled"`
}

// GetAddress returns host:port.
func (r *RedisConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig token verification settings.
type JWTConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	Algorithm     string `mapstructure:"algorithm"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
	Issuer        string `mapstructure:"issuer"`
}

// TokenOptions adapts the section for utils.NewJWTManager.
func (j *JWTConfig) TokenOptions() utils.TokenOptions {
	return utils.TokenOptions{
		Secret:    j.SecretKey,
		Algorithm: j.Algorithm,
		TTL:       j.GetExpireDuration(),
		Issuer:    j.Issuer,
	}
}

// GetExpireDuration returns the token lifetime.
func (j *JWTConfig) GetExpireDuration() time.Duration {
	return time.Duration(j.ExpireMinutes) * time.Minute
}

// CORSConfig cross-origin settings.
type CORSConfig struct {
	Origins          []string `mapstructure:"origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
}

// LogConfig logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ProviderConfig is one OpenAI-compatible endpoint serving catalog models.
type ProviderConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	MaxConcurrent int    `mapstructure:"max_concurrent"`
	MaxTokens     int    `mapstructure:"max_tokens"`
}

// ModelConfig generation providers keyed by provider label.
type ModelConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// OrchestratorConfig phase execution settings.
type OrchestratorConfig struct {
	RefineCap          int `mapstructure:"refine_cap"`
	MaxWorkers         int `mapstructure:"max_workers"`
	CallTimeoutSeconds int `mapstructure:"call_timeout_seconds"`
	LockTTLSeconds     int `mapstructure:"lock_ttl_seconds"`
}

// GetCallTimeout returns the bound on a single generation call.
func (o *OrchestratorConfig) GetCallTimeout() time.Duration {
	return time.Duration(o.CallTimeoutSeconds) * time.Second
}

// GetLockTTL returns how long an unrenewed task claim survives.
func (o *OrchestratorConfig) GetLockTTL() time.Duration {
	return time.Duration(o.LockTTLSeconds) * time.Second
}

// BudgetConfig spend limits per owner.
type BudgetConfig struct {
	MonthlyCap string `mapstructure:"monthly_cap"`
	Currency   string `mapstructure:"currency"`
}

// GetMonthlyCap parses the cap. Zero means unlimited.
func (b *BudgetConfig) GetMonthlyCap() decimal.Decimal {
	d, err := decimal.NewFromString(b.MonthlyCap)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ApprovalConfig reviewer rules.
type ApprovalConfig struct {
	MinFeedbackLength int `mapstructure:"min_feedback_length"`
}

// PublishConfig publish sink settings.
type PublishConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	DryRun         bool   `mapstructure:"dry_run"`
}

// GetTimeout returns the publish call timeout.
func (p *PublishConfig) GetTimeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// RetrieverConfig RAG settings.
type RetrieverConfig struct {
	DefaultLimit  int   `mapstructure:"default_limit"`
	CacheMaxBytes int64 `mapstructure:"cache_max_bytes"`
}
