package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFromFile_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
jwt:
  secret_key: s3cret
database:
  path: `+filepath.Join(dir, "db", "app.db")+`
publish:
  dry_run: true
`)

	cfg, err := loadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 18080, cfg.Server.Port)
	assert.Equal(t, "HS256", cfg.JWT.Algorithm)
	assert.Equal(t, 2, cfg.Orchestrator.RefineCap)
	assert.Equal(t, 16, cfg.Orchestrator.MaxWorkers)
	assert.Equal(t, 120*time.Second, cfg.Orchestrator.GetCallTimeout())
	assert.Equal(t, 90*time.Second, cfg.Orchestrator.GetLockTTL())
	assert.True(t, cfg.Budget.GetMonthlyCap().IsZero())
	assert.Equal(t, "USD", cfg.Budget.Currency)
	assert.Equal(t, 10, cfg.Approval.MinFeedbackLength)
	assert.Equal(t, 3, cfg.Retriever.DefaultLimit)
	assert.DirExists(t, filepath.Join(dir, "db"))
}

func TestLoadConfigFromFile_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
jwt:
  secret_key: s3cret
database:
  path: `+filepath.Join(dir, "app.db")+`
budget:
  monthly_cap: "12.50"
publish:
  endpoint: http://sink.local/publish
model_services:
  providers:
    openai:
      base_url: https://api.openai.com/v1
      max_concurrent: 4
`)
	t.Setenv("CONTENTGEN_JWT_SECRET_KEY", "from-env")

	cfg, err := loadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.SecretKey)
	assert.True(t, cfg.Budget.GetMonthlyCap().Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, 4, cfg.Model.Providers["openai"].MaxConcurrent)
	assert.False(t, cfg.Publish.DryRun)
}

func TestLoadConfigFromFile_ZeroRefineCap(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
jwt:
  secret_key: s3cret
database:
  path: `+filepath.Join(dir, "app.db")+`
orchestrator:
  refine_cap: 0
publish:
  dry_run: true
`)

	cfg, err := loadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Orchestrator.RefineCap)
}

func TestLoadConfigFromFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "app.db")

	tests := []struct {
		name string
		body string
	}{
		{"missing secret", "database:\n  path: " + db + "\npublish:\n  dry_run: true\n"},
		{"negative cap", "jwt:\n  secret_key: s\ndatabase:\n  path: " + db + "\nbudget:\n  monthly_cap: \"-1\"\npublish:\n  dry_run: true\n"},
		{"negative refine cap", "jwt:\n  secret_key: s\ndatabase:\n  path: " + db + "\norchestrator:\n  refine_cap: -1\npublish:\n  dry_run: true\n"},
		{"negative lock ttl", "jwt:\n  secret_key: s\ndatabase:\n  path: " + db + "\norchestrator:\n  lock_ttl_seconds: -5\npublish:\n  dry_run: true\n"},
		{"no publish endpoint", "jwt:\n  secret_key: s\ndatabase:\n  path: " + db + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfigFromFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
