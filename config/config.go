package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
	Matching MatchingConfig `mapstructure:"matching"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
	// MetricsAllow lists addresses or CIDR ranges allowed to scrape /metrics.
	// Empty allows everyone.
	MetricsAllow []string `mapstructure:"metrics_allow"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
	// LockTimeoutS bounds row-lock waits (innodb_lock_wait_timeout on MySQL,
	// busy_timeout on SQLite). A timed-out wait surfaces as a transient error.
	LockTimeoutS int `mapstructure:"lock_timeout_s"`
}

type CacheConfig struct {
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	LocalPubSubBuf int    `mapstructure:"local_pubsub_buf"`
}

type SecurityConfig struct {
	JWTSecret      string  `mapstructure:"jwt_secret"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// MatchingConfig is handed to the matching engine by value.
type MatchingConfig struct {
	PageSize         int           `mapstructure:"page_size"`
	MaxPageSize      int           `mapstructure:"max_page_size"`
	TransientRetries int           `mapstructure:"transient_retries"`
	NotifyTimeout    time.Duration `mapstructure:"notify_timeout"`
	NotifyRetryDelay time.Duration `mapstructure:"notify_retry_delay"`
}

// DefaultMatching returns the matching settings used when no config file
// overrides them.
func DefaultMatching() MatchingConfig {
	return MatchingConfig{
		PageSize:         20,
		MaxPageSize:      100,
		TransientRetries: 2,
		NotifyTimeout:    3 * time.Second,
		NotifyRetryDelay: 5 * time.Second,
	}
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MATCHD")
	v.AutomaticEnv()

	// Defaults
	def := DefaultMatching()
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/matchd.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("database.lock_timeout_s", 5)
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("matching.page_size", def.PageSize)
	v.SetDefault("matching.max_page_size", def.MaxPageSize)
	v.SetDefault("matching.transient_retries", def.TransientRetries)
	v.SetDefault("matching.notify_timeout", def.NotifyTimeout.String())
	v.SetDefault("matching.notify_retry_delay", def.NotifyRetryDelay.String())

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
