// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DATABASE_POSTGRES_HOST
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, e.g. config.production.yaml
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig() // ignore error if not found

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env in the working directory and a few parents so the
// daemon, tools and tests can all start from their own directories.
func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up the directory tree looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "rentpulse"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.App.MetricsAddr == "" {
		cfg.App.MetricsAddr = ":8080"
	}
	if cfg.Database.Postgres.Host == "" {
		cfg.Database.Postgres.Host = "localhost"
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 20
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}
	if len(cfg.Database.Elasticsearch.Addresses) == 0 {
		cfg.Database.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "dispatches"
	}
	if cfg.Rent.DefaultGraceDays == 0 {
		cfg.Rent.DefaultGraceDays = 5
	}
	if cfg.Rent.TickHourUTC == 0 {
		cfg.Rent.TickHourUTC = 6
	}
	if cfg.Dispatch.SegmentPrice == 0 {
		cfg.Dispatch.SegmentPrice = 1.0
	}
	if cfg.Dispatch.ResolveTimeout == 0 {
		cfg.Dispatch.ResolveTimeout = 30000
	}
	if cfg.Dispatch.ReconcileInterval == 0 {
		cfg.Dispatch.ReconcileInterval = 60000
	}
	if cfg.Dispatch.StaleAfter == 0 {
		cfg.Dispatch.StaleAfter = 300000
	}
	if cfg.Campaigns.PacingDelay == 0 {
		cfg.Campaigns.PacingDelay = 150
	}
	if cfg.Gateway.Provider == "" {
		cfg.Gateway.Provider = "simulated"
	}
	if cfg.Gateway.Simulated.AcceptRate == 0 {
		cfg.Gateway.Simulated.AcceptRate = 0.97
	}
	if cfg.Gateway.Simulated.DeliveryRate == 0 {
		cfg.Gateway.Simulated.DeliveryRate = 0.92
	}
	if cfg.Gateway.Simulated.MaxLatency == 0 {
		cfg.Gateway.Simulated.MaxLatency = 3000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Gateway.Provider {
	case "sns", "ses":
		if cfg.Gateway.AWS.Region == "" {
			return fmt.Errorf("gateway.aws.region is required for provider %q", cfg.Gateway.Provider)
		}
	case "simulated":
		if cfg.Gateway.Simulated.AcceptRate < 0 || cfg.Gateway.Simulated.AcceptRate > 1 {
			return fmt.Errorf("gateway.simulated.accept_rate must be within [0,1]")
		}
		if cfg.Gateway.Simulated.DeliveryRate < 0 || cfg.Gateway.Simulated.DeliveryRate > 1 {
			return fmt.Errorf("gateway.simulated.delivery_rate must be within [0,1]")
		}
	default:
		return fmt.Errorf("unknown gateway provider %q", cfg.Gateway.Provider)
	}

	if cfg.Rent.DefaultGraceDays < 0 {
		return fmt.Errorf("rent.default_grace_days cannot be negative")
	}
	if cfg.Rent.TickHourUTC < 0 || cfg.Rent.TickHourUTC > 23 {
		return fmt.Errorf("rent.tick_hour_utc must be within [0,23]")
	}

	return nil
}
