// internal/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	HTTP     HTTPConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	Dispatch DispatchConfig
	Campaign CampaignConfig
	Logging  LoggingConfig
}

type HTTPConfig struct {
	Addr string
}

type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// DSN returns the PostgreSQL connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type AMQPConfig struct {
	// URL is empty in single-process deployments; batch jobs then run on the
	// in-memory queue instead of RabbitMQ.
	URL   string
	Queue string
}

type DispatchConfig struct {
	BaseURL        string
	Token          string
	TimeoutSeconds int
}

// CampaignConfig carries the sending policy knobs.
type CampaignConfig struct {
	DailyCap           int    // contacts per business per calendar day
	MaxBatchSize       int    // provider-imposed per-job ceiling
	WindowStartMinutes int    // minutes from midnight, inclusive
	WindowEndMinutes   int    // minutes from midnight, inclusive
	MinLeadMinutes     int    // same-day lead time
	DelayMinSeconds    int    // inter-message delay range handed to the provider
	DelayMaxSeconds    int
	SyncDelaySeconds   int    // re-arm delay between synchronizer runs
	SyncCeilingHours   int    // force done after this age
	ClaimSpec          string // cron spec for the due-campaign claimer
	BatchPauseSeconds  int    // pause between sub-campaign creations
	CountryCode        string // default country prefix for phone normalization
}

type LoggingConfig struct {
	Level  string
	Format string
}
