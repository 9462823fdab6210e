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

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type PresenceConfig struct {
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PurgeOnStart bool          `mapstructure:"purge_on_start"`
}

type AuthConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type RateLimitConfig struct {
	Events   int           `mapstructure:"events"`
	Interval time.Duration `mapstructure:"interval"`
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls" json:"urls"`
	Username   string   `mapstructure:"username" json:"username,omitempty"`
	Credential string   `mapstructure:"credential" json:"credential,omitempty"`
}

type Config struct {
	Mode         string          `mapstructure:"mode"`
	Port         int             `mapstructure:"port"`
	ReadLimit    int64           `mapstructure:"read_limit"`
	PingPeriod   time.Duration   `mapstructure:"ping_period"`
	WriteWait    time.Duration   `mapstructure:"write_wait"`
	SendBuffer   int             `mapstructure:"send_buffer"`
	Secret       string          `mapstructure:"secret"`
	LogLevel     string          `mapstructure:"log_level"`
	CORSOrigins  []string        `mapstructure:"cors_origins"`
	SlowConsumer string          `mapstructure:"slow_consumer"`
	OpsToken     string          `mapstructure:"ops_token"`
	Database     DatabaseConfig  `mapstructure:"database"`
	Presence     PresenceConfig  `mapstructure:"presence"`
	Auth         AuthConfig      `mapstructure:"auth"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
	ICEServers   []ICEServer     `mapstructure:"ice_servers"`
}

// PongWait is how long the socket may stay silent before it is considered dead.
func (c *Config) PongWait() time.Duration {
	return c.PingPeriod * 10 / 9
}

// Load reads path, or config/config.<CONFIG_ENV>.yaml when path is empty.
// A missing file is not an error; defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		path = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("VOXIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.dsn", "VOXIFY_DATABASE_DSN", "DATABASE_URL"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", path).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", path).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Database.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("db_driver", cfg.Database.Driver).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("slow_consumer", "drop")
	v.SetDefault("ops_token", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "voxify.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("presence.write_timeout", "3s")
	v.SetDefault("presence.purge_on_start", true)
	v.SetDefault("auth.cache_ttl", "30s")
	v.SetDefault("rate_limit.events", 60)
	v.SetDefault("rate_limit.interval", "10s")
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

// normalize picks the postgres driver for postgres URLs and rewrites the
// legacy postgres:// scheme.
func (d *DatabaseConfig) normalize() {
	if rest, ok := strings.CutPrefix(d.DSN, "postgres://"); ok {
		d.DSN = "postgresql://" + rest
	}
	if strings.HasPrefix(d.DSN, "postgresql://") {
		d.Driver = "postgres"
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.PingPeriod <= 0 {
		errs = append(errs, errors.New("ping_period must be positive"))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("send_buffer must be positive"))
	}
	if c.Mode == "release" && len(c.Secret) < 16 {
		errs = append(errs, errors.New("secret of at least 16 bytes is required in release mode"))
	}
	switch c.SlowConsumer {
	case "drop", "kick":
	default:
		errs = append(errs, fmt.Errorf("slow_consumer must be drop or kick, got %q", c.SlowConsumer))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	return errors.Join(errs...)
}
