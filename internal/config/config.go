package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AuthConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
	Migrate         bool          `mapstructure:"migrate"`
}

type RedisConfig struct {
	URL         string        `mapstructure:"url"`
	PresenceTTL time.Duration `mapstructure:"presence_ttl"`
}

type ChatConfig struct {
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
	MaxLength    int           `mapstructure:"max_length"`
}

type PolicyConfig struct {
	SlowConsumer string `mapstructure:"slow_consumer"`
}

type TelemetryConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Port         int           `mapstructure:"port"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	WriteWait    time.Duration `mapstructure:"write_wait"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	HistoryLimit int           `mapstructure:"history_limit"`

	Auth      AuthConfig      `mapstructure:"auth"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("history_limit", 100)

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "roomcast.db")
	v.SetDefault("store.max_open_conns", 10)
	v.SetDefault("store.max_idle_conns", 5)
	v.SetDefault("store.conn_max_lifetime", "30m")
	v.SetDefault("store.ping_timeout", "5s")
	v.SetDefault("store.migrate", true)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.presence_ttl", "24h")

	v.SetDefault("chat.rate_limit", 20)
	v.SetDefault("chat.rate_interval", "10s")
	v.SetDefault("chat.max_length", 4000)

	v.SetDefault("policy.slow_consumer", "drop")

	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", "roomcast")

	v.SetDefault("log.level", "info")
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default) and applies
// ROOMCAST_* environment overrides, e.g. ROOMCAST_AUTH_SECRET.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("ROOMCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.Secret == "" && c.Mode != "debug" {
		errs = append(errs, errors.New("auth.secret is required outside debug mode"))
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	switch c.Policy.SlowConsumer {
	case "", "drop", "kick":
	default:
		errs = append(errs, fmt.Errorf("unknown policy.slow_consumer %q", c.Policy.SlowConsumer))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	return errors.Join(errs...)
}
