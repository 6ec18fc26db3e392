package config_test

import (
	"testing"
	"time"

	"github.com/shopmesh/parceline-bridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *config.Config {
	return &config.Config{
		ParcelineSubscriptionKey: "sub-key",
		ParcelineGrantType:       "client_credentials",
		ParcelineClientID:        "client",
		ParcelineClientSecret:    "secret",
		TokenStore:               "memory",
	}
}

func TestValidate_ClientCredentials(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_MissingSubscriptionKey(t *testing.T) {
	cfg := validConfig()
	cfg.ParcelineSubscriptionKey = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PARCELINE_SUBSCRIPTION_KEY")
}

func TestValidate_ClientCredentialsRequiresSecret(t *testing.T) {
	cfg := validConfig()
	cfg.ParcelineClientSecret = ""

	assert.Error(t, cfg.Validate())
}

func TestValidate_PasswordGrant(t *testing.T) {
	cfg := validConfig()
	cfg.ParcelineGrantType = "password"
	cfg.ParcelineClientID = ""
	cfg.ParcelineClientSecret = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PARCELINE_USERNAME")

	cfg.ParcelineUsername = "merchant"
	cfg.ParcelinePassword = "hunter2"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_UnknownGrantType(t *testing.T) {
	cfg := validConfig()
	cfg.ParcelineGrantType = "implicit"

	assert.Error(t, cfg.Validate())
}

func TestValidate_UnknownTokenStore(t *testing.T) {
	cfg := validConfig()
	cfg.TokenStore = "dynamodb"

	assert.Error(t, cfg.Validate())
}

func TestValidate_MockModeNeedsNoCredentials(t *testing.T) {
	cfg := &config.Config{ParcelineUseMock: true}

	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PARCELINE_USE_MOCK", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "client_credentials", cfg.ParcelineGrantType)
	assert.Equal(t, 120*time.Second, cfg.ParcelineExpiryBuffer)
	assert.Equal(t, 5*time.Minute, cfg.QuoteTTL)
	assert.Equal(t, 1024, cfg.QuoteCacheSize)
	assert.Equal(t, "memory", cfg.TokenStore)
	assert.Equal(t, "standard", cfg.DefaultServiceLevel)
	assert.Equal(t, "parceline-bridge", cfg.ServiceName)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PARCELINE_USE_MOCK", "true")
	t.Setenv("PORT", "9090")
	t.Setenv("QUOTE_CACHE_TTL", "90s")
	t.Setenv("PARCELINE_GRANT_TYPE", "password")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.QuoteTTL)
	assert.Equal(t, "password", cfg.ParcelineGrantType)
}
