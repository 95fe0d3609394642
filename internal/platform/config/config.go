// Package config loads service configuration from defaults, an optional
// config file and ESCROWGATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "ESCROWGATE"

const devSigningKey = "dev-signing-key-change-in-production"

type Config struct {
	Server       Server       `mapstructure:"server"`
	Log          Log          `mapstructure:"log"`
	RateLimit    RateLimit    `mapstructure:"ratelimit"`
	Redis        Redis        `mapstructure:"redis"`
	Database     Database     `mapstructure:"database"`
	Kafka        Kafka        `mapstructure:"kafka"`
	Passwordless Passwordless `mapstructure:"passwordless"`
	Mail         Mail         `mapstructure:"mail"`
}

type Server struct {
	Addr            string        `mapstructure:"addr"`
	Environment     string        `mapstructure:"environment"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AdminToken guards /admin routes. Empty disables them.
	AdminToken string `mapstructure:"admin_token"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type RateLimit struct {
	// Store is one of memory, redis or postgres.
	Store         string        `mapstructure:"store"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	SweepGrace    time.Duration `mapstructure:"sweep_grace"`
}

type Redis struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type Database struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type Kafka struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type Passwordless struct {
	SigningKey    string        `mapstructure:"signing_key"`
	LinkTTL       time.Duration `mapstructure:"link_ttl"`
	ContinueURL   string        `mapstructure:"continue_url"`
	VerifyTimeout time.Duration `mapstructure:"verify_timeout"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
}

type Mail struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.admin_token", "")

	v.SetDefault("log.level", "info")

	v.SetDefault("ratelimit.store", "memory")
	v.SetDefault("ratelimit.sweep_interval", "5m")
	v.SetDefault("ratelimit.sweep_grace", "1h")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "escrowgate.audit")

	v.SetDefault("passwordless.signing_key", devSigningKey)
	v.SetDefault("passwordless.link_ttl", "1h")
	v.SetDefault("passwordless.continue_url", "http://localhost:3000/auth/email-action")
	v.SetDefault("passwordless.verify_timeout", "15s")
	v.SetDefault("passwordless.cookie_secure", false)

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "no-reply@escrowgate.local")
}

// Load reads configuration. configFile may be empty, in which case only
// defaults and the environment apply.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.RateLimit.Store {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("ratelimit.store=redis requires redis.url"))
		}
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("ratelimit.store=postgres requires database.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ratelimit.store %q", c.RateLimit.Store))
	}
	if c.RateLimit.SweepInterval <= 0 {
		errs = append(errs, errors.New("ratelimit.sweep_interval must be positive"))
	}
	if c.Passwordless.LinkTTL <= 0 {
		errs = append(errs, errors.New("passwordless.link_ttl must be positive"))
	}
	if c.Passwordless.VerifyTimeout <= 0 {
		errs = append(errs, errors.New("passwordless.verify_timeout must be positive"))
	}
	if !c.IsDevelopment() && c.Passwordless.SigningKey == devSigningKey {
		errs = append(errs, errors.New("passwordless.signing_key must be set outside development"))
	}
	if !c.IsDevelopment() && c.Mail.Host == "" {
		errs = append(errs, errors.New("mail.host must be set outside development; sign-in links are only logged in development"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}
