package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig       `mapstructure:"server"`
	Log         LogConfig          `mapstructure:"log"`
	Grvt        GrvtConfig         `mapstructure:"grvt"`
	Session     SessionConfig      `mapstructure:"session"`
	Signing     SigningConfig      `mapstructure:"signing"`
	Redis       RedisConfig        `mapstructure:"redis"`
	Metrics     MetricsConfig      `mapstructure:"metrics"`
	Risk        RiskConfig         `mapstructure:"risk"`
	Instruments []InstrumentConfig `mapstructure:"instruments"`
}

type ServerConfig struct {
	Port                  string  `mapstructure:"port"`
	GatewayKey            string  `mapstructure:"gateway_key"` // empty leaves /v1 open
	ReadOnly              bool    `mapstructure:"read_only"`
	RateLimitQPS          float64 `mapstructure:"rate_limit_qps"` // 0 disables
	RateLimitBurst        int     `mapstructure:"rate_limit_burst"`
	IdempotencyTTLSeconds int     `mapstructure:"idempotency_ttl_seconds"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // empty logs to stdout only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type GrvtConfig struct {
	Env              string `mapstructure:"env"`
	ApiKey           string `mapstructure:"api_key"`
	PrivateKey       string `mapstructure:"private_key"`
	TradingAccountID string `mapstructure:"trading_account_id"`
}

type SessionConfig struct {
	LoginTimeoutMs   int     `mapstructure:"login_timeout_ms"`
	RequestTimeoutMs int     `mapstructure:"request_timeout_ms"`
	LoginRetries     int     `mapstructure:"login_retries"`
	QPS              float64 `mapstructure:"qps"`   // 0 disables the throttle
	Burst            int     `mapstructure:"burst"`
}

type SigningConfig struct {
	ExpirationSeconds int `mapstructure:"expiration_seconds"`
}

type RedisConfig struct {
	Addr           string `mapstructure:"addr"`
	Password       string `mapstructure:"password"`
	DB             int    `mapstructure:"db"`
	NonceKeyPrefix string `mapstructure:"nonce_key_prefix"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RiskConfig holds pre-trade limits. Zero disables a limit.
type RiskConfig struct {
	MaxOrderNotional      float64  `mapstructure:"max_order_notional"`
	MaxDailyNotional      float64  `mapstructure:"max_daily_notional"`
	MaxDailyOrders        int      `mapstructure:"max_daily_orders"`
	RestrictedInstruments []string `mapstructure:"restricted_instruments"`
}

type InstrumentConfig struct {
	Instrument     string `mapstructure:"instrument"`
	InstrumentHash string `mapstructure:"instrument_hash"`
	Base           string `mapstructure:"base"`
	Quote          string `mapstructure:"quote"`
	Kind           string `mapstructure:"kind"`
	BaseDecimals   int32  `mapstructure:"base_decimals"`
	QuoteDecimals  int32  `mapstructure:"quote_decimals"`
	TickSize       string `mapstructure:"tick_size"`
	MinSize        string `mapstructure:"min_size"`
}

// EnvConfig resolves the deployment tuple for the configured environment.
func (c *Config) EnvConfig() (Env, EnvConfig, error) {
	env, err := ParseEnv(c.Grvt.Env)
	if err != nil {
		return "", EnvConfig{}, err
	}
	envCfg, err := GetEnvConfig(env)
	if err != nil {
		return "", EnvConfig{}, err
	}
	return env, envCfg, nil
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. GRVTGATE_GRVT_API_KEY
	viper.SetEnvPrefix("grvtgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.gateway_key", "")
	viper.SetDefault("server.read_only", false)
	viper.SetDefault("server.rate_limit_qps", 0)
	viper.SetDefault("server.rate_limit_burst", 10)
	viper.SetDefault("server.idempotency_ttl_seconds", 24*60*60)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("grvt.env", string(EnvTestnet))
	viper.SetDefault("grvt.api_key", "")
	viper.SetDefault("grvt.private_key", "")
	viper.SetDefault("grvt.trading_account_id", "")
	viper.SetDefault("session.login_timeout_ms", 10000)
	viper.SetDefault("session.request_timeout_ms", 10000)
	viper.SetDefault("session.login_retries", 2)
	viper.SetDefault("session.qps", 0)
	viper.SetDefault("session.burst", 1)
	viper.SetDefault("signing.expiration_seconds", 24*60*60)
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.nonce_key_prefix", "grvt:nonce")
	viper.SetDefault("risk.max_order_notional", 0)
	viper.SetDefault("risk.max_daily_notional", 0)
	viper.SetDefault("risk.max_daily_orders", 0)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
