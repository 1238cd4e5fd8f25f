package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type GRPC struct {
	Addr           string        `yaml:"addr"`
	CallTimeout    time.Duration `yaml:"callTimeout"`    // "10s", если у вызова нет deadline
	HealthInterval time.Duration `yaml:"healthInterval"` // "10s", период пинга БД
}

type HTTP struct {
	Addr         string        `yaml:"addr"`         // ":8080"
	ReadTimeout  time.Duration `yaml:"readTimeout"`  // "15s"
	WriteTimeout time.Duration `yaml:"writeTimeout"` // "30s"
	IdleTimeout  time.Duration `yaml:"idleTimeout"`  // "60s"
	CORSOrigins  []string      `yaml:"corsOrigins"`
	WSPing       time.Duration `yaml:"wsPing"` // "15s"
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // chat-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"maxConns"`
	MinConns         int32         `yaml:"minConns"`
	MaxConnLifetime  time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime  time.Duration `yaml:"maxConnIdleTime"`
	StatementTimeout time.Duration `yaml:"statementTimeout"`
}

type Fanout struct {
	Driver   string `yaml:"driver"` // memory|redis
	RedisURL string `yaml:"redisURL"`
	Channel  string `yaml:"channel"` // chat:events
}

type JWT struct {
	PublicKeyPath string        `yaml:"publicKeyPath"` // пусто - dev-режим (X-User-ID)
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	ClockSkew     time.Duration `yaml:"clockSkew"`
}

type Security struct {
	JWT JWT `yaml:"jwt"`
}

type Chat struct {
	MaxMessageLength int `yaml:"maxMessageLength"` // 4000
}

type RateLimit struct {
	PerSecond float64 `yaml:"perSecond"` // отправка сообщений на пользователя
	Burst     int     `yaml:"burst"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	GRPC      GRPC      `yaml:"grpc"`
	Logging   Logging   `yaml:"logging"`
	Postgres  Postgres  `yaml:"postgres"`
	Fanout    Fanout    `yaml:"fanout"`
	Security  Security  `yaml:"security"`
	Chat      Chat      `yaml:"chat"`
	RateLimit RateLimit `yaml:"ratelimit"`
}

// LoadConfig: .env (если есть) -> yaml из CONFIG_PATH -> секреты из env -> validate.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Fanout.RedisURL = v
	}
	if v := os.Getenv("JWT_PUBLIC_KEY_PATH"); v != "" {
		c.Security.JWT.PublicKeyPath = v
	}
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.GRPC.Addr == "" {
		return errors.New("grpc.addr is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	switch c.Fanout.Driver {
	case "":
		c.Fanout.Driver = "memory"
	case "memory":
	case "redis":
		if c.Fanout.RedisURL == "" {
			return errors.New("fanout.redisURL is required for redis driver")
		}
	default:
		return fmt.Errorf("fanout.driver: unknown %q", c.Fanout.Driver)
	}

	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "chat-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.HTTP.WSPing == 0 {
		c.HTTP.WSPing = 15 * time.Second
	}
	if c.GRPC.CallTimeout == 0 {
		c.GRPC.CallTimeout = 10 * time.Second
	}
	if c.GRPC.HealthInterval == 0 {
		c.GRPC.HealthInterval = 10 * time.Second
	}
	if c.Security.JWT.ClockSkew == 0 {
		c.Security.JWT.ClockSkew = 30 * time.Second
	}
	if c.Chat.MaxMessageLength <= 0 {
		c.Chat.MaxMessageLength = 4000
	}
	if c.RateLimit.PerSecond <= 0 {
		c.RateLimit.PerSecond = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
	return nil
}
