package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port    string `mapstructure:"PORT"`
	Env     string `mapstructure:"ENV"`
	LogJSON bool   `mapstructure:"LOG_JSON"`

	AIAPIEndpoint    string `mapstructure:"AI_API_ENDPOINT"`
	AIAPIKey         string `mapstructure:"AI_API_KEY"`
	AIModelName      string `mapstructure:"AI_MODEL_NAME"`
	AITimeoutSeconds int    `mapstructure:"AI_TIMEOUT_SECONDS"`

	RegistryFile          string `mapstructure:"REGISTRY_FILE"`
	ForwardTimeoutSeconds int    `mapstructure:"FORWARD_TIMEOUT_SECONDS"`

	RequestTimeoutSeconds int     `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	BodyLimit             string  `mapstructure:"BODY_LIMIT"`
	RateLimitRPS          float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int     `mapstructure:"RATE_LIMIT_BURST"`
}

// Load reads configuration from the environment, with an optional .env
// file for local development. Missing keys take their defaults; a missing
// .env file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_JSON", false)
	v.SetDefault("AI_MODEL_NAME", "gpt-4o")
	v.SetDefault("AI_TIMEOUT_SECONDS", 30)
	v.SetDefault("REGISTRY_FILE", "facility_registry.json")
	v.SetDefault("FORWARD_TIMEOUT_SECONDS", 30)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 60)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("LOG_JSON")
	v.BindEnv("AI_API_ENDPOINT")
	v.BindEnv("AI_API_KEY")
	v.BindEnv("AI_MODEL_NAME")
	v.BindEnv("AI_TIMEOUT_SECONDS")
	v.BindEnv("REGISTRY_FILE")
	v.BindEnv("FORWARD_TIMEOUT_SECONDS")
	v.BindEnv("REQUEST_TIMEOUT_SECONDS")
	v.BindEnv("BODY_LIMIT")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the gateway is configured for production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside
// development the reasoning-service endpoint and key must be set: every
// translation depends on it, so starting without one would turn the whole
// API into a 500 generator.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.AIAPIEndpoint == "" {
			return fmt.Errorf("AI_API_ENDPOINT is required when ENV=%q", c.Env)
		}
		if c.AIAPIKey == "" {
			return fmt.Errorf("AI_API_KEY is required when ENV=%q", c.Env)
		}
	}
	if c.AITimeoutSeconds <= 0 {
		return fmt.Errorf("AI_TIMEOUT_SECONDS must be positive, got %d", c.AITimeoutSeconds)
	}
	if c.ForwardTimeoutSeconds <= 0 {
		return fmt.Errorf("FORWARD_TIMEOUT_SECONDS must be positive, got %d", c.ForwardTimeoutSeconds)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive, got %d", c.RequestTimeoutSeconds)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %v", c.RateLimitRPS)
	}
	return nil
}

// AITimeout returns the reasoning-service timeout as a duration.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

// ForwardTimeout returns the facility delivery timeout as a duration.
func (c *Config) ForwardTimeout() time.Duration {
	return time.Duration(c.ForwardTimeoutSeconds) * time.Second
}

// RequestTimeout returns the whole-request deadline as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
