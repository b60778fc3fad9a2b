package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Worker    WorkerConfig
	Twilio    TwilioConfig
	Admin     AdminConfig
	EZTexting EZTextingConfig
}

type ServerConfig struct {
	Address       string
	PublicBaseURL string
}

type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type WorkerConfig struct {
	IdleInterval time.Duration
	BatchSize    int
	OpsAddress   string
}

type TwilioConfig struct {
	AuthToken string
}

type AdminConfig struct {
	APIKey string
}

type EZTextingConfig struct {
	BaseURL     string
	MessagePath string
	AppKey      string
	AppSecret   string
}

// loader accumulates every env problem so a bad deploy reports them all
// at once instead of one per restart.
type loader struct {
	errs []error
}

func (l *loader) require(key string) string {
	v, err := requireEnv(key)
	if err != nil {
		l.errs = append(l.errs, err)
	}
	return v
}

func (l *loader) intOr(key string, def int) int {
	v, err := getEnvInt(key, def)
	if err != nil {
		l.errs = append(l.errs, err)
	}
	return v
}

func (l *loader) check(ok bool, msg string) {
	if !ok {
		l.errs = append(l.errs, errors.New(msg))
	}
}

// LoadServer reads the webhook/admin server's environment.
func LoadServer() (*Config, error) {
	l := &loader{}

	cfg := &Config{
		Server: ServerConfig{
			Address:       getEnv("SERVER_ADDRESS", ":8080"),
			PublicBaseURL: l.require("PUBLIC_BASE_URL"),
		},
		Database: DatabaseConfig{
			PostgresURL: l.require("POSTGRES_URL"),
		},
		Twilio: TwilioConfig{
			AuthToken: l.require("TWILIO_AUTH_TOKEN"),
		},
		Admin: AdminConfig{
			APIKey: l.require("ADMIN_API_KEY"),
		},
	}

	if err := joinErrors(l.errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker reads the queue processor's environment.
func LoadWorker() (*Config, error) {
	l := &loader{}

	cfg := &Config{
		Database: DatabaseConfig{
			PostgresURL: l.require("POSTGRES_URL"),
		},
		Worker: WorkerConfig{
			IdleInterval: time.Duration(l.intOr("WORKER_IDLE_SECONDS", 5)) * time.Second,
			BatchSize:    l.intOr("WORKER_BATCH_SIZE", 10),
			OpsAddress:   getEnv("WORKER_OPS_ADDRESS", ":8081"),
		},
		EZTexting: EZTextingConfig{
			BaseURL:     getEnv("EZTEXTING_BASE_URL", "https://a.eztexting.com"),
			MessagePath: getEnv("EZTEXTING_CREATE_MESSAGE_PATH", "/v1/messages"),
			AppKey:      l.require("EZTEXTING_APP_KEY"),
			AppSecret:   l.require("EZTEXTING_APP_SECRET"),
		},
		Redis: loadRedisConfig(l),
	}

	l.check(cfg.Worker.BatchSize > 0, "WORKER_BATCH_SIZE must be > 0")
	l.check(cfg.Worker.IdleInterval > 0, "WORKER_IDLE_SECONDS must be > 0")

	if err := joinErrors(l.errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig(l *loader) RedisConfig {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       l.intOr("REDIS_DB", 0),
		TTL:      time.Duration(l.intOr("REDIS_TTL_SECONDS", 86400)) * time.Second,
	}
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}
