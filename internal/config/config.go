package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	NotifierLocal = "local"
	NotifierPush  = "push"
)

type Config struct {
	Port      string `mapstructure:"PORT" validate:"required,numeric"`
	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"omitempty,oneof=text json"`
	AppName   string `mapstructure:"APP_NAME"`

	StoreBackend string `mapstructure:"STORE_BACKEND" validate:"required,oneof=memory postgres"`
	DBDSN        string `mapstructure:"DB_DSN" validate:"required_if=StoreBackend postgres"`

	Notifier          string `mapstructure:"NOTIFIER" validate:"required,oneof=local push"`
	PushGatewayURL    string `mapstructure:"PUSH_GATEWAY_URL" validate:"required_if=Notifier push,omitempty,url"`
	PushGatewayAPIKey string `mapstructure:"PUSH_GATEWAY_API_KEY" validate:"required_if=Notifier push"`

	NATSURL     string `mapstructure:"NATS_URL" validate:"omitempty,url"`
	NATSSubject string `mapstructure:"NATS_SUBJECT" validate:"required"`

	ScheduleTimeout time.Duration `mapstructure:"SCHEDULE_TIMEOUT" validate:"gt=0"`
	LocalTick       time.Duration `mapstructure:"LOCAL_TICK" validate:"gt=0"`
}

var keys = []string{
	"PORT", "LOG_LEVEL", "LOG_FORMAT", "APP_NAME",
	"STORE_BACKEND", "DB_DSN",
	"NOTIFIER", "PUSH_GATEWAY_URL", "PUSH_GATEWAY_API_KEY",
	"NATS_URL", "NATS_SUBJECT",
	"SCHEDULE_TIMEOUT", "LOCAL_TICK",
}

// Load lee env (y .env si existe), aplica defaults y valida.
func Load() (*Config, error) {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, envFile string) (*Config, error) {
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
	}
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("APP_NAME", "medication-adherence")
	v.SetDefault("STORE_BACKEND", StoreMemory)
	v.SetDefault("NOTIFIER", NotifierLocal)
	v.SetDefault("NATS_SUBJECT", "reminders.fired")
	v.SetDefault("SCHEDULE_TIMEOUT", "10s")
	v.SetDefault("LOCAL_TICK", "30s")

	// Bind explícito para que Unmarshal vea las env vars sin default.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env es opcional
	if envFile != "" {
		_ = v.ReadInConfig()
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.Notifier = strings.ToLower(strings.TrimSpace(cfg.Notifier))

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
