package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AuthMethod represents the authentication the catalog API expects
type AuthMethod string

const (
	AuthMethodNone   AuthMethod = "none"
	AuthMethodAPIKey AuthMethod = "api_key"
	AuthMethodOAuth2 AuthMethod = "oauth2"
	AuthMethodJWT    AuthMethod = "jwt"
)

// FeedSource selects where the home feed sections come from
type FeedSource string

const (
	// FeedSourceModules derives all three sections from one /modules call
	FeedSourceModules FeedSource = "modules"
	// FeedSourceEndpoints uses /trending and /charts, and /modules for recommendations
	FeedSourceEndpoints FeedSource = "endpoints"
)

// CatalogConfig holds the upstream catalog API settings
type CatalogConfig struct {
	APIURL  string        `envconfig:"CATALOG_API_URL" default:"https://jiosaavnapi-nu.vercel.app"`
	Timeout time.Duration `envconfig:"CATALOG_TIMEOUT" default:"10s"`
	Retries int           `envconfig:"CATALOG_RETRIES" default:"2"`

	AuthMethod AuthMethod `envconfig:"CATALOG_AUTH_METHOD" default:"none"`

	// API key credentials
	APIKey       string `envconfig:"CATALOG_API_KEY"`
	APIKeyHeader string `envconfig:"CATALOG_API_KEY_HEADER" default:"X-API-Key"`

	// OAuth2 client credentials
	ClientID     string   `envconfig:"CATALOG_CLIENT_ID"`
	ClientSecret string   `envconfig:"CATALOG_CLIENT_SECRET"`
	TokenURL     string   `envconfig:"CATALOG_TOKEN_URL"`
	Scopes       []string `envconfig:"CATALOG_SCOPES"`

	// Shared-secret JWT credentials
	JWTSecret  string        `envconfig:"CATALOG_JWT_SECRET"`
	JWTIssuer  string        `envconfig:"CATALOG_JWT_ISSUER" default:"melodeck"`
	JWTSubject string        `envconfig:"CATALOG_JWT_SUBJECT"`
	JWTTTL     time.Duration `envconfig:"CATALOG_JWT_TTL" default:"1h"`
}

// Config holds all configuration for the application
type Config struct {
	// Application settings
	Port    string `envconfig:"PORT" default:"8080"`
	GinMode string `envconfig:"GIN_MODE" default:"debug"`
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	// Embedded so its variables keep their CATALOG_ names
	CatalogConfig

	// Cache layers; each is optional
	ValkeyURL       string `envconfig:"VALKEY_URL"`
	MongodbURL      string `envconfig:"MONGODB_URL"`
	MongodbDatabase string `envconfig:"MONGODB_DATABASE" default:"melodeck"`
	L1CacheItems    int    `envconfig:"L1_CACHE_ITEMS" default:"1000"`

	// Live page sessions
	FeedSource             FeedSource    `envconfig:"FEED_SOURCE" default:"modules"`
	SessionIdleTimeout     time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"30m"`
	MaxSessions            int           `envconfig:"MAX_SESSIONS" default:"10000"`
	PlaybackConfirmTimeout time.Duration `envconfig:"PLAYBACK_CONFIRM_TIMEOUT" default:"10s"`

	// Error reporting
	SentryDSN         string `envconfig:"SENTRY_DSN"`
	SentryEnvironment string `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
	Release           string `envconfig:"RELEASE"`

	// Optional TOML file with UI tunables
	UIConfigPath string `envconfig:"UI_CONFIG_PATH"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the values envconfig cannot
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Catalog().APIURL); err != nil {
		return fmt.Errorf("CATALOG_API_URL must be an absolute URL: %w", err)
	}
	c.Catalog().APIURL = strings.TrimRight(c.Catalog().APIURL, "/")

	if c.Retries < 0 {
		return fmt.Errorf("CATALOG_RETRIES cannot be negative")
	}

	switch c.FeedSource {
	case FeedSourceModules, FeedSourceEndpoints:
	default:
		return fmt.Errorf("unsupported FEED_SOURCE: %s", c.FeedSource)
	}

	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be positive")
	}
	if c.PlaybackConfirmTimeout <= 0 {
		return fmt.Errorf("PLAYBACK_CONFIRM_TIMEOUT must be positive")
	}

	return ValidateCatalogAuth(&c.CatalogConfig)
}

// ValidateCatalogAuth checks that the selected auth method has its credentials
func ValidateCatalogAuth(c *CatalogConfig) error {
	switch c.AuthMethod {
	case AuthMethodNone, "":
	case AuthMethodAPIKey:
		if c.APIKey == "" {
			return fmt.Errorf("API key authentication requires CATALOG_API_KEY")
		}
	case AuthMethodOAuth2:
		if c.ClientID == "" || c.ClientSecret == "" || c.TokenURL == "" {
			return fmt.Errorf("OAuth2 requires CATALOG_CLIENT_ID, CATALOG_CLIENT_SECRET and CATALOG_TOKEN_URL")
		}
	case AuthMethodJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT requires CATALOG_JWT_SECRET")
		}
		if c.JWTTTL <= 0 {
			return fmt.Errorf("CATALOG_JWT_TTL must be positive")
		}
	default:
		return fmt.Errorf("unsupported auth method: %s", c.AuthMethod)
	}
	return nil
}

// Catalog returns the upstream API settings
func (c *Config) Catalog() *CatalogConfig {
	return &c.CatalogConfig
}

// CacheLayers lists the configured remote cache layers, for logging
func (c *Config) CacheLayers() []string {
	layers := []string{"memory"}
	if c.ValkeyURL != "" {
		layers = append(layers, "valkey")
	}
	if c.MongodbURL != "" {
		layers = append(layers, "mongodb")
	}
	return layers
}
