package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("AI_TIMEOUT_SECONDS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.RegistryFile != "facility_registry.json" {
		t.Errorf("expected default registry file, got %s", cfg.RegistryFile)
	}
	if cfg.AITimeoutSeconds != 30 {
		t.Errorf("expected default AI timeout 30, got %d", cfg.AITimeoutSeconds)
	}
	if cfg.BodyLimit != "1M" {
		t.Errorf("expected default body limit 1M, got %s", cfg.BodyLimit)
	}
	if cfg.RateLimitRPS != 50 {
		t.Errorf("expected default rate limit 50, got %v", cfg.RateLimitRPS)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("AI_API_ENDPOINT", "https://llm.example/v1/chat/completions")
	os.Setenv("AI_TIMEOUT_SECONDS", "5")
	defer os.Unsetenv("AI_API_ENDPOINT")
	defer os.Unsetenv("AI_TIMEOUT_SECONDS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AIAPIEndpoint != "https://llm.example/v1/chat/completions" {
		t.Errorf("AI_API_ENDPOINT = %s", cfg.AIAPIEndpoint)
	}
	if cfg.AITimeout() != 5*time.Second {
		t.Errorf("AITimeout() = %v, want 5s", cfg.AITimeout())
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
	if !c.IsProduction() {
		t.Error("expected IsProduction() to return true for production")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Env:                   "production",
		AIAPIEndpoint:         "https://llm.example/v1/chat/completions",
		AIAPIKey:              "sk-test",
		AITimeoutSeconds:      30,
		ForwardTimeoutSeconds: 30,
		RequestTimeoutSeconds: 60,
		RateLimitRPS:          50,
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("valid production config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing endpoint in production", func(c *Config) { c.AIAPIEndpoint = "" }},
		{"missing key in production", func(c *Config) { c.AIAPIKey = "" }},
		{"zero ai timeout", func(c *Config) { c.AITimeoutSeconds = 0 }},
		{"negative forward timeout", func(c *Config) { c.ForwardTimeoutSeconds = -1 }},
		{"zero request timeout", func(c *Config) { c.RequestTimeoutSeconds = 0 }},
		{"zero rate limit", func(c *Config) { c.RateLimitRPS = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_DevAllowsMissingEndpoint(t *testing.T) {
	c := Config{
		Env:                   "development",
		AITimeoutSeconds:      30,
		ForwardTimeoutSeconds: 30,
		RequestTimeoutSeconds: 60,
		RateLimitRPS:          50,
	}
	if err := c.Validate(); err != nil {
		t.Errorf("development config should not require the endpoint: %v", err)
	}
}
