package config

import (
	"time"

	"github.com/spf13/viper"
)

type LedgerConfig struct {
	DefaultTax      string
	DefaultAmount   string
	DefaultDiscount string
	BookNamePrefix  string
	SessionTTL      time.Duration
	SaveTimeout     time.Duration
	HTTPPort        string
	AllowedOrigins  []string
}

// LoadLedgerConfig reads ledger.* keys. Environment variables LEDGER_* are
// bound by the caller.
func LoadLedgerConfig() *LedgerConfig {
	viper.SetDefault("ledger.default_tax", "20")
	viper.SetDefault("ledger.default_amount", "1")
	viper.SetDefault("ledger.default_discount", "0")
	viper.SetDefault("ledger.book_name_prefix", "Account book")
	viper.SetDefault("ledger.session_ttl", 12*time.Hour)
	viper.SetDefault("ledger.save_timeout", 30*time.Second)
	viper.SetDefault("http.port", "8080")
	viper.SetDefault("http.allowed_origins", []string{"http://localhost:*", "tauri://localhost"})

	return &LedgerConfig{
		DefaultTax:      viper.GetString("ledger.default_tax"),
		DefaultAmount:   viper.GetString("ledger.default_amount"),
		DefaultDiscount: viper.GetString("ledger.default_discount"),
		BookNamePrefix:  viper.GetString("ledger.book_name_prefix"),
		SessionTTL:      viper.GetDuration("ledger.session_ttl"),
		SaveTimeout:     viper.GetDuration("ledger.save_timeout"),
		HTTPPort:        viper.GetString("http.port"),
		AllowedOrigins:  viper.GetStringSlice("http.allowed_origins"),
	}
}

// BindEnv maps environment variables onto the viper keys used across the
// application.
func BindEnv() {
	viper.AutomaticEnv()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("ledger.default_tax", "LEDGER_DEFAULT_TAX")
	viper.BindEnv("ledger.default_amount", "LEDGER_DEFAULT_AMOUNT")
	viper.BindEnv("ledger.book_name_prefix", "LEDGER_BOOK_NAME_PREFIX")
	viper.BindEnv("ledger.session_ttl", "LEDGER_SESSION_TTL")
	viper.BindEnv("ledger.save_timeout", "LEDGER_SAVE_TIMEOUT")

	viper.BindEnv("http.port", "HTTP_PORT")

	viper.BindEnv("log.level", "LOG_LEVEL")
	viper.BindEnv("log.format", "LOG_FORMAT")
	viper.BindEnv("log.output", "LOG_OUTPUT")
}
