package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_ValidateProduction(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid production config", func(c *Config) {}, false},
		{"default JWT secret rejected", func(c *Config) {
			c.JWTSecret = "your-secret-key-change-in-production"
		}, true},
		{"short JWT secret rejected", func(c *Config) {
			c.JWTSecret = "short"
		}, true},
		{"default DB password rejected", func(c *Config) {
			c.DBPassword = "password"
		}, true},
		{"empty DB password rejected", func(c *Config) {
			c.DBPassword = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Env:        "production",
				JWTSecret:  "secure-secret-at-least-32-chars-long",
				DBPassword: "secure-password",
				DBSSLMode:  "require",
				Port:       "8460",
				RedisURL:   "localhost:6379",
			}
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateSMTP(t *testing.T) {
	c := &Config{
		Env:       "development",
		JWTSecret: "secure-secret-at-least-32-chars-long",
		Port:      "8460",
		SMTPHost:  "smtp.example.com",
	}
	assert.Error(t, c.Validate(), "SMTP_FROM must be required when SMTP_HOST is set")

	c.SMTPFrom = "noreply@example.com"
	assert.NoError(t, c.Validate())
}

func TestConfig_KafkaBrokerList(t *testing.T) {
	tests := []struct {
		name    string
		brokers string
		want    []string
	}{
		{"empty", "", nil},
		{"whitespace only", "  ", nil},
		{"single broker", "localhost:9092", []string{"localhost:9092"}},
		{"multiple with spaces", "a:9092, b:9092 ,c:9092", []string{"a:9092", "b:9092", "c:9092"}},
		{"trailing comma", "a:9092,", []string{"a:9092"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{KafkaBrokers: tt.brokers}
			assert.Equal(t, tt.want, c.KafkaBrokerList())
		})
	}
}
