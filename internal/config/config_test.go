package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ALERT_POLICY", "")
	t.Setenv("EMAIL_API_URL", "")

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "data/store_seed.json", cfg.DataPath)
	assert.Equal(t, AlertPolicyEveryUpdate, cfg.AlertPolicy)
	assert.Equal(t, "https://api.brevo.com/v3/smtp/email", cfg.EmailAPIURL)
	assert.Equal(t, "Your Store", cfg.EmailSenderName)
	assert.Equal(t, "10s", cfg.EmailTimeout)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ALERT_POLICY", AlertPolicyCrossing)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SUBSCRIPTION_RECONNECT_INTERVAL", "1s")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, AlertPolicyCrossing, cfg.AlertPolicy)
	assert.Equal(t, "1s", cfg.ReconnectInterval)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
}
