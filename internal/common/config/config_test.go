// internal/common/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)

	assert.Equal(t, "rentpulse", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "localhost", cfg.Database.Postgres.Host)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "localhost:6379", cfg.Database.Redis.Address)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Database.Elasticsearch.Addresses)
	assert.Equal(t, 5, cfg.Rent.DefaultGraceDays)
	assert.Equal(t, 6, cfg.Rent.TickHourUTC)
	assert.Equal(t, "simulated", cfg.Gateway.Provider)
	assert.Equal(t, 1.0, cfg.Dispatch.SegmentPrice)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestApplyDefaults_DoesNotOverrideExplicitValues(t *testing.T) {
	var cfg Config
	cfg.App.Name = "rentpulse-staging"
	cfg.Rent.DefaultGraceDays = 3
	cfg.Gateway.Provider = "sns"

	applyDefaults(&cfg)

	assert.Equal(t, "rentpulse-staging", cfg.App.Name)
	assert.Equal(t, 3, cfg.Rent.DefaultGraceDays)
	assert.Equal(t, "sns", cfg.Gateway.Provider)
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		var cfg Config
		applyDefaults(&cfg)
		return &cfg
	}

	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		expectErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name: "sns requires aws region",
			mutate: func(cfg *Config) {
				cfg.Gateway.Provider = "sns"
				cfg.Gateway.AWS.Region = ""
			},
			expectErr: "gateway.aws.region",
		},
		{
			name: "ses with region is valid",
			mutate: func(cfg *Config) {
				cfg.Gateway.Provider = "ses"
				cfg.Gateway.AWS.Region = "us-east-1"
			},
		},
		{
			name: "unknown provider rejected",
			mutate: func(cfg *Config) {
				cfg.Gateway.Provider = "carrier-pigeon"
			},
			expectErr: "unknown gateway provider",
		},
		{
			name: "accept rate above one rejected",
			mutate: func(cfg *Config) {
				cfg.Gateway.Simulated.AcceptRate = 1.5
			},
			expectErr: "accept_rate",
		},
		{
			name: "delivery rate below zero rejected",
			mutate: func(cfg *Config) {
				cfg.Gateway.Simulated.DeliveryRate = -0.1
			},
			expectErr: "delivery_rate",
		},
		{
			name: "negative grace days rejected",
			mutate: func(cfg *Config) {
				cfg.Rent.DefaultGraceDays = -1
			},
			expectErr: "default_grace_days",
		},
		{
			name: "tick hour out of range rejected",
			mutate: func(cfg *Config) {
				cfg.Rent.TickHourUTC = 24
			},
			expectErr: "tick_hour_utc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.expectErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectErr)
		})
	}
}
