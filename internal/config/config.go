package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the bridge.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Parceline API
	ParcelineBaseURL         string        `envconfig:"PARCELINE_BASE_URL" default:"https://api.parceline.example"`
	ParcelineTokenURL        string        `envconfig:"PARCELINE_TOKEN_URL" default:"https://auth.parceline.example/oauth/token"`
	ParcelineSubscriptionKey string        `envconfig:"PARCELINE_SUBSCRIPTION_KEY"`
	ParcelineGrantType       string        `envconfig:"PARCELINE_GRANT_TYPE" default:"client_credentials"`
	ParcelineClientID        string        `envconfig:"PARCELINE_CLIENT_ID"`
	ParcelineClientSecret    string        `envconfig:"PARCELINE_CLIENT_SECRET"`
	ParcelineUsername        string        `envconfig:"PARCELINE_USERNAME"`
	ParcelinePassword        string        `envconfig:"PARCELINE_PASSWORD"`
	ParcelineScope           string        `envconfig:"PARCELINE_SCOPE"`
	ParcelineExpiryBuffer    time.Duration `envconfig:"PARCELINE_EXPIRY_BUFFER" default:"120s"`
	ParcelinePayerMDM        string        `envconfig:"PARCELINE_PAYER_MDM_ACCOUNT"`
	ParcelineConsignorMDM    string        `envconfig:"PARCELINE_CONSIGNOR_MDM_ACCOUNT"`
	ParcelineRPS             float64       `envconfig:"PARCELINE_REQUESTS_PER_SECOND" default:"10"`
	ParcelineUseMock         bool          `envconfig:"PARCELINE_USE_MOCK" default:"false"`

	// Quote cache
	QuoteTTL       time.Duration `envconfig:"QUOTE_CACHE_TTL" default:"5m"`
	QuoteCacheSize int           `envconfig:"QUOTE_CACHE_SIZE" default:"1024"`

	// Token store: "memory" or "redis"
	TokenStore    string `envconfig:"TOKEN_STORE" default:"memory"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisTokenKey string `envconfig:"REDIS_TOKEN_KEY" default:"parceline-bridge:token"`

	// Store origin: pickup address used for every shipment.
	OriginName       string `envconfig:"ORIGIN_NAME"`
	OriginPhone      string `envconfig:"ORIGIN_PHONE"`
	OriginLine1      string `envconfig:"ORIGIN_LINE1"`
	OriginCity       string `envconfig:"ORIGIN_CITY"`
	OriginCityCode   string `envconfig:"ORIGIN_CITY_CODE"`
	OriginProvince   string `envconfig:"ORIGIN_PROVINCE"`
	OriginPostalCode string `envconfig:"ORIGIN_POSTAL_CODE"`
	OriginCountry    string `envconfig:"ORIGIN_COUNTRY" default:"US"`

	DefaultServiceLevel string `envconfig:"DEFAULT_SERVICE_LEVEL" default:"standard"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"parceline-bridge"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from the environment, preloading a local
// .env file when present.
func Load() (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks credential completeness. Mock mode needs none.
func (c *Config) Validate() error {
	if c.ParcelineUseMock {
		return nil
	}
	if c.ParcelineSubscriptionKey == "" {
		return fmt.Errorf("config: PARCELINE_SUBSCRIPTION_KEY is required")
	}
	switch c.ParcelineGrantType {
	case "client_credentials":
		if c.ParcelineClientID == "" || c.ParcelineClientSecret == "" {
			return fmt.Errorf("config: client_credentials grant requires PARCELINE_CLIENT_ID and PARCELINE_CLIENT_SECRET")
		}
	case "password":
		if c.ParcelineUsername == "" || c.ParcelinePassword == "" {
			return fmt.Errorf("config: password grant requires PARCELINE_USERNAME and PARCELINE_PASSWORD")
		}
	default:
		return fmt.Errorf("config: unknown PARCELINE_GRANT_TYPE %q", c.ParcelineGrantType)
	}
	if c.TokenStore != "memory" && c.TokenStore != "redis" {
		return fmt.Errorf("config: unknown TOKEN_STORE %q", c.TokenStore)
	}
	return nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("parceline.grant_type", c.ParcelineGrantType),
		attribute.Bool("parceline.mock", c.ParcelineUseMock),
	}
}
