// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Rent      RentConfig      `mapstructure:"rent"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Campaigns CampaignConfig  `mapstructure:"campaigns"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	Index      string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RentConfig holds the rent-cycle settings. The reminder cadence and the
// final-notice offset are fixed constants in internal/reminder, not
// configuration; only operational knobs live here.
type RentConfig struct {
	DefaultGraceDays int    `mapstructure:"default_grace_days"`
	ManagerPhone     string `mapstructure:"manager_phone"`
	TickHourUTC      int    `mapstructure:"tick_hour_utc"`
}

// DispatchConfig holds the outbound-message pipeline settings.
type DispatchConfig struct {
	SegmentPrice      float64 `mapstructure:"segment_price"`      // cost units per 160-char segment
	ResolveTimeout    int     `mapstructure:"resolve_timeout"`    // milliseconds
	ReconcileInterval int     `mapstructure:"reconcile_interval"` // milliseconds
	StaleAfter        int     `mapstructure:"stale_after"`        // milliseconds a sent record may stay unresolved
}

// CampaignConfig holds bulk fan-out settings.
type CampaignConfig struct {
	PacingDelay int `mapstructure:"pacing_delay"` // milliseconds between sends
}

// GatewayConfig selects and configures the outbound gateway adapter.
type GatewayConfig struct {
	Provider string `mapstructure:"provider"` // "sns", "ses" or "simulated"

	AWS struct {
		Region      string `mapstructure:"region"`
		SMSSenderID string `mapstructure:"sms_sender_id"`
		FromEmail   string `mapstructure:"from_email"`
	} `mapstructure:"aws"`

	Simulated struct {
		AcceptRate   float64 `mapstructure:"accept_rate"`
		DeliveryRate float64 `mapstructure:"delivery_rate"`
		MaxLatency   int     `mapstructure:"max_latency"` // milliseconds
	} `mapstructure:"simulated"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
