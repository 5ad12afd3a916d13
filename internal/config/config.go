package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppCfg struct {
	Env             string `mapstructure:"env"`
	Port            int    `mapstructure:"port"`
	RateLimitPerMin int    `mapstructure:"rate_limit_per_min"`
	MetricsAddr     string `mapstructure:"metrics_addr"`
}

func (a AppCfg) Development() bool { return a.Env != "production" }

func (a AppCfg) PortString() string { return fmt.Sprintf("%d", a.Port) }

type MongoCfg struct {
	// URI may contain a <PASSWORD> placeholder filled from Password.
	URI      string `mapstructure:"uri"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
}

// DSN returns the connection string with the password placeholder resolved.
func (m MongoCfg) DSN() string {
	return strings.Replace(m.URI, "<PASSWORD>", m.Password, 1)
}

type JWTCfg struct {
	Secret       string        `mapstructure:"secret"`
	ExpiresIn    time.Duration `mapstructure:"expires_in"`
	CookieExpiry time.Duration `mapstructure:"cookie_expiry"`
}

type SMTPCfg struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaCfg struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Config struct {
	App   AppCfg   `mapstructure:"app"`
	Mongo MongoCfg `mapstructure:"mongo"`
	JWT   JWTCfg   `mapstructure:"jwt"`
	SMTP  SMTPCfg  `mapstructure:"smtp"`
	Redis RedisCfg `mapstructure:"redis"`
	Kafka KafkaCfg `mapstructure:"kafka"`
}

// Load reads the config file (when present) and lets environment variables
// override any key: APP_MONGO_URI, APP_JWT_SECRET, APP_APP_PORT, ...
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 3000)
	v.SetDefault("app.rate_limit_per_min", 30)
	v.SetDefault("app.metrics_addr", ":9100")
	v.SetDefault("mongo.db", "tours")
	v.SetDefault("jwt.expires_in", "2160h") // 90 days
	v.SetDefault("jwt.cookie_expiry", "2160h")
	v.SetDefault("kafka.topic", "tours.events")

	// Empty defaults register the remaining keys so AutomaticEnv can
	// override them even without a config file.
	for _, key := range []string{
		"mongo.uri", "mongo.password",
		"jwt.secret",
		"smtp.host", "smtp.port", "smtp.username", "smtp.password", "smtp.from",
		"redis.addr", "redis.password",
		"kafka.brokers",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.enabled", false)
}

func validate(cfg *Config) error {
	if cfg.App.Port == 0 {
		return errors.New("app.port missing or invalid")
	}
	if cfg.Mongo.URI == "" {
		return errors.New("mongo.uri missing")
	}
	if cfg.Mongo.DB == "" {
		return errors.New("mongo.db missing")
	}
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret missing")
	}
	if cfg.JWT.ExpiresIn <= 0 {
		return errors.New("jwt.expires_in missing or invalid")
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers missing")
	}
	return nil
}
