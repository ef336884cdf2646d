// internal/config/loader.go
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from the environment, with .env as a convenience
// for local development. Every key has a working default so the service boots
// against localhost infrastructure with no configuration at all.
func Load() (*Config, error) {
	// Missing .env is fine, the OS environment still applies.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "glowdesk")
	v.SetDefault("db.user", "glowdesk")
	v.SetDefault("db.password", "glowdesk")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.queue", "campaign_batches")

	v.SetDefault("dispatch.base_url", "http://localhost:9000")
	v.SetDefault("dispatch.token", "")
	v.SetDefault("dispatch.timeout_seconds", 15)

	v.SetDefault("campaign.daily_cap", 300)
	v.SetDefault("campaign.max_batch_size", 300)
	v.SetDefault("campaign.window_start_minutes", 7*60)
	v.SetDefault("campaign.window_end_minutes", 21*60)
	v.SetDefault("campaign.min_lead_minutes", 10)
	v.SetDefault("campaign.delay_min_seconds", 30)
	v.SetDefault("campaign.delay_max_seconds", 60)
	v.SetDefault("campaign.sync_delay_seconds", 120)
	v.SetDefault("campaign.sync_ceiling_hours", 7)
	v.SetDefault("campaign.claim_spec", "@every 30s")
	v.SetDefault("campaign.batch_pause_seconds", 3)
	v.SetDefault("campaign.country_code", "55")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	cfg := &Config{
		HTTP: HTTPConfig{
			Addr: v.GetString("http.addr"),
		},
		Postgres: PostgresConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetInt("db.port"),
			Database: v.GetString("db.name"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			SSLMode:  v.GetString("db.sslmode"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		AMQP: AMQPConfig{
			URL:   v.GetString("amqp.url"),
			Queue: v.GetString("amqp.queue"),
		},
		Dispatch: DispatchConfig{
			BaseURL:        v.GetString("dispatch.base_url"),
			Token:          v.GetString("dispatch.token"),
			TimeoutSeconds: v.GetInt("dispatch.timeout_seconds"),
		},
		Campaign: CampaignConfig{
			DailyCap:           v.GetInt("campaign.daily_cap"),
			MaxBatchSize:       v.GetInt("campaign.max_batch_size"),
			WindowStartMinutes: v.GetInt("campaign.window_start_minutes"),
			WindowEndMinutes:   v.GetInt("campaign.window_end_minutes"),
			MinLeadMinutes:     v.GetInt("campaign.min_lead_minutes"),
			DelayMinSeconds:    v.GetInt("campaign.delay_min_seconds"),
			DelayMaxSeconds:    v.GetInt("campaign.delay_max_seconds"),
			SyncDelaySeconds:   v.GetInt("campaign.sync_delay_seconds"),
			SyncCeilingHours:   v.GetInt("campaign.sync_ceiling_hours"),
			ClaimSpec:          v.GetString("campaign.claim_spec"),
			BatchPauseSeconds:  v.GetInt("campaign.batch_pause_seconds"),
			CountryCode:        v.GetString("campaign.country_code"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	return cfg, nil
}
