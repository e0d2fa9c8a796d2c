package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "X-Webhook-Secret", cfg.WebhookSecretHeader)
		assert.Equal(t, NotifyHandoff, cfg.NotifyMode)
		assert.Equal(t, LeadModeSoft, cfg.LeadCaptureMode)
		assert.Equal(t, 12, cfg.HistoryLimit)
		assert.True(t, cfg.WebhookEnabled)
	})

	t.Run("reads environment overrides", func(t *testing.T) {
		t.Setenv("PORT", "9000")
		t.Setenv("TG_NOTIFY_MODE", "always")
		t.Setenv("ALLOW_IPS", "10.0.0.1,10.0.0.2")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9000, cfg.Port)
		assert.Equal(t, NotifyAlways, cfg.NotifyMode)
		assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.AllowIPs)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	t.Run("accepts defaults", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects unknown notify mode", func(t *testing.T) {
		cfg := valid()
		cfg.NotifyMode = "sometimes"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects unknown lead mode", func(t *testing.T) {
		cfg := valid()
		cfg.LeadCaptureMode = "hard"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bounds history limit", func(t *testing.T) {
		cfg := valid()
		cfg.HistoryLimit = 0
		assert.Error(t, cfg.Validate())

		cfg.HistoryLimit = MaxHistoryLimit + 1
		assert.Error(t, cfg.Validate())

		cfg.HistoryLimit = MaxHistoryLimit
		assert.NoError(t, cfg.Validate())
	})
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{DBHost: "db.local", DBPort: 5433, DBName: "relay", DBUser: "app", DBPassword: "s3cret"}
	dsn := cfg.DatabaseDSN()

	assert.Contains(t, dsn, "host=db.local")
	assert.Contains(t, dsn, "port=5433")
	assert.Contains(t, dsn, "dbname=relay")
	assert.Contains(t, dsn, "password=s3cret")
}

func TestPrimaryStoreConfigured(t *testing.T) {
	cfg := &Config{DBEnabled: true, DBHost: "h", DBName: "d", DBUser: "u"}
	assert.True(t, cfg.PrimaryStoreConfigured())

	cfg.DBEnabled = false
	assert.False(t, cfg.PrimaryStoreConfigured())

	cfg.DBEnabled = true
	cfg.DBName = ""
	assert.False(t, cfg.PrimaryStoreConfigured())
}
