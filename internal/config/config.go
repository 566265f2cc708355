// Package config provides configuration loading for the consultant service.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/srclab/consultant/internal/apperrors"
)

// Vendor tags accepted by the online_consultant selector.
const (
	VendorTalkMe = "talk_me"
	VendorWebim  = "webim"
)

// Config contains all the application configuration values.
type Config struct {
	// Active vendor: talk_me or webim.
	OnlineConsultant string `koanf:"online_consultant" validate:"required,oneof=talk_me webim"`

	// Time zone vendor timestamps are normalized to.
	ServerTimeZone string `koanf:"server_time_zone"`

	// Site-user id filter for inbound webhooks. Empty means no filter.
	AllowedUserIDs []string `koanf:"allowed_user_ids"`

	// Webhook relay HTTP server.
	ListenAddr  string        `koanf:"listen_addr"`
	HTTPTimeout time.Duration `koanf:"http_timeout"`

	// Logging configuration.
	LogLevel  string `koanf:"log_level"  validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `koanf:"log_format" validate:"omitempty,oneof=json text"`

	// Per-vendor credentials. Presence of the required fields is enforced
	// by the adapter constructors, so an unused vendor section may stay
	// empty.
	TalkMe TalkMe `koanf:"talk_me"`
	Webim  Webim  `koanf:"webim"`

	// Event publishing. An empty URL disables publishing.
	AMQP AMQP `koanf:"amqp"`
}

// TalkMe holds the TalkMe account settings.
type TalkMe struct {
	APIToken        string `koanf:"api_token"`
	WebhookSecret   string `koanf:"webhook_secret"`
	DefaultOperator string `koanf:"default_operator"`
}

// Webim holds the Webim account settings.
type Webim struct {
	APIToken        string `koanf:"api_token"`
	Subdomain       string `koanf:"subdomain"`
	Login           string `koanf:"login"`
	Password        string `koanf:"password"`
	WebhookSecret   string `koanf:"webhook_secret"`
	BotOperatorName string `koanf:"bot_operator_name"`
	BotOperatorID   string `koanf:"bot_operator_id"`
}

// AMQP holds the event exchange settings.
type AMQP struct {
	URL      string `koanf:"url"`
	Exchange string `koanf:"exchange"`
}

// Load reads configuration from a YAML file, applies defaults and validates
// the result.
func Load(filePath string, logger *zap.Logger) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", filePath, err)
	}

	applyDefaults(k, logger)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("configuration loaded successfully",
		zap.String("config_file", filePath),
		zap.String("online_consultant", cfg.OnlineConsultant))

	return &cfg, nil
}

// Validate checks the structural constraints on the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperrors.NewConfigError("invalid configuration", err)
	}

	if _, err := time.LoadLocation(c.ServerTimeZone); err != nil {
		return apperrors.NewConfigError(
			fmt.Sprintf("unknown server time zone %q", c.ServerTimeZone), err)
	}

	return nil
}

// Location returns the configured server time zone. Validate must have
// passed for the result to be meaningful.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ServerTimeZone)
	if err != nil {
		return time.Local
	}

	return loc
}

func applyDefaults(k *koanf.Koanf, logger *zap.Logger) {
	defaults := map[string]any{
		"server_time_zone": "Local",
		"listen_addr":      ":8080",
		"http_timeout":     10 * time.Second,
		"log_level":        "info",
		"log_format":       "json",
		"amqp.exchange":    "consultant.events",
	}

	for key, value := range defaults {
		if k.Exists(key) {
			continue
		}
		if err := k.Set(key, value); err != nil {
			logger.Error("failed to set default config value",
				zap.String("key", key), zap.Error(err))
		}
	}
}
