package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Cron     CronConfig     `mapstructure:"cron"`
	Market   MarketConfig   `mapstructure:"market"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Stream   StreamConfig   `mapstructure:"stream"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	PortfolioSnapshot string `mapstructure:"portfolio_snapshot"`
	SnapshotPrune     string `mapstructure:"snapshot_prune"`
}

// MarketConfig carries the paper-market economics.
type MarketConfig struct {
	StartingGrantTokens int64 `mapstructure:"starting_grant_tokens"`
	DefaultFeeBps       int   `mapstructure:"default_fee_bps"`
	DefaultSeedTokens   int64 `mapstructure:"default_seed_tokens"`
	RecentTradesLimit   int   `mapstructure:"recent_trades_limit"`
}

// AuthConfig declares the demo bearer sessions. Each session maps a static
// token to an owner id and role; production deployments replace this with a
// real identity provider in front of the service.
type AuthConfig struct {
	Sessions []SessionConfig `mapstructure:"sessions"`
}

type SessionConfig struct {
	Token   string `mapstructure:"token"`
	OwnerID string `mapstructure:"owner_id"`
	Role    string `mapstructure:"role"`
}

type SnapshotConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

type StreamConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.portfolio_snapshot", "@hourly")
	v.SetDefault("cron.snapshot_prune", "@daily")
	v.SetDefault("market.starting_grant_tokens", 10000)
	v.SetDefault("market.default_fee_bps", 50)
	v.SetDefault("market.default_seed_tokens", 500)
	v.SetDefault("market.recent_trades_limit", 20)
	v.SetDefault("snapshot.retention_days", 90)
	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.buffer_size", 64)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
