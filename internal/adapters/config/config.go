package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "REVIEW_XMPP"

// ServerConfig holds the operations HTTP server settings.
type ServerConfig struct {
	HTTPPort int `mapstructure:"http_port" validate:"gte=0,lte=65535"`
}

// SiteConfig describes how absolute links to the review system are built.
type SiteConfig struct {
	DomainMethod string `mapstructure:"domain_method" validate:"required,oneof=http https"`
	Domain       string `mapstructure:"domain" validate:"required"`
}

// XMPPConfig holds the sender account and server used for every delivery.
type XMPPConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required,gt=0,lte=65535"`
	SenderJID      string `mapstructure:"sender_jid" validate:"required,contains=@"`
	SenderPassword string `mapstructure:"sender_password" validate:"required"` // Should primarily come from ENV
	UseTLS         bool   `mapstructure:"use_tls"`
	// TLSSkipVerify disables certificate and hostname checks during STARTTLS.
	// It defaults to true to match the servers the notifier was written for.
	TLSSkipVerify         bool   `mapstructure:"tls_skip_verify"`
	Resource              string `mapstructure:"resource"`
	SessionTimeoutSeconds int    `mapstructure:"session_timeout_seconds" validate:"gt=0"`
}

// Address returns host:port.
func (x XMPPConfig) Address() string {
	return net.JoinHostPort(x.Host, strconv.Itoa(x.Port))
}

// NATSConfig holds NATS-related configurations.
type NATSConfig struct {
	URL           string `mapstructure:"url" validate:"required"`
	StreamName    string `mapstructure:"stream_name"`
	ConsumerName  string `mapstructure:"consumer_name" validate:"required"`
	QueueGroup    string `mapstructure:"queue_group" validate:"required"`
	SubjectPrefix string `mapstructure:"subject_prefix" validate:"required"`
}

// RedisConfig holds Redis-related configurations.
type RedisConfig struct {
	Address  string `mapstructure:"address" validate:"required"`
	Password string `mapstructure:"password"` // Optional
	DB       int    `mapstructure:"db"`       // Optional
}

// LogConfig holds logging-related configurations.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AppConfig holds application-specific configurations.
type AppConfig struct {
	ServiceName            string `mapstructure:"service_name"`
	Version                string `mapstructure:"version"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	DedupTTLSeconds        int    `mapstructure:"dedup_ttl_seconds" validate:"gte=0"`
	NatsAckWaitSeconds     int    `mapstructure:"nats_ack_wait_seconds" validate:"gt=0"`
	NATSMaxAckPending      int    `mapstructure:"nats_max_ack_pending" validate:"gt=0"`
}

// Config holds all configuration for the application.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Site   SiteConfig   `mapstructure:"site"`
	XMPP   XMPPConfig   `mapstructure:"xmpp"`
	NATS   NATSConfig   `mapstructure:"nats"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Log    LogConfig    `mapstructure:"log"`
	App    AppConfig    `mapstructure:"app"`
}

// Provider defines an interface for accessing application configuration.
// It decouples the app from Viper and lets tests hand in a fixed Config.
type Provider interface {
	Get() *Config
}

// ErrInvalidConfig wraps every validation failure returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []string
	err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(e.Fields, "; "))
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrInvalidConfig, e.err}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a full configuration.
func (c *Config) Validate() error {
	return validateStruct(c)
}

// Validate checks only the XMPP section. The dispatcher calls it before each
// session so a hot-reloaded bad value is reported as a config error.
func (x XMPPConfig) Validate() error {
	return validateStruct(x)
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return &ValidationError{Fields: fields, err: err}
}

// SetDefaults registers a default for every key so that env-only deployments
// work and AutomaticEnv can resolve nested keys during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)

	v.SetDefault("site.domain_method", "http")
	v.SetDefault("site.domain", "localhost")

	v.SetDefault("xmpp.host", "localhost")
	v.SetDefault("xmpp.port", 5222)
	v.SetDefault("xmpp.sender_jid", "")
	v.SetDefault("xmpp.sender_password", "")
	v.SetDefault("xmpp.use_tls", true)
	v.SetDefault("xmpp.tls_skip_verify", true)
	v.SetDefault("xmpp.resource", "review-notifier")
	v.SetDefault("xmpp.session_timeout_seconds", 15)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream_name", "reviewboard_events")
	v.SetDefault("nats.consumer_name", "review-xmpp-notifier")
	v.SetDefault("nats.queue_group", "review-xmpp-notifier")
	v.SetDefault("nats.subject_prefix", "reviewboard.events")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")

	v.SetDefault("app.service_name", "review-xmpp-notifier")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.shutdown_timeout_seconds", 30)
	v.SetDefault("app.dedup_ttl_seconds", 86400)
	v.SetDefault("app.nats_ack_wait_seconds", 60)
	v.SetDefault("app.nats_max_ack_pending", 64)
}

// NewViper returns a Viper instance wired for YAML + environment lookup.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName(getEnv("VIPER_CONFIG_NAME", "config"))
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnv("VIPER_CONFIG_PATH", "/app/config"))
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")) // xmpp.sender_jid becomes REVIEW_XMPP_XMPP_SENDER_JID
	return v
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// viperProvider implements the Provider interface using Viper.
type viperProvider struct {
	config atomic.Pointer[Config]
	logger *zap.Logger // zap directly, not domain.Logger, since the domain logger is built from this config
}

// NewViperProvider loads configuration from file and environment, validates it
// and reloads it on SIGHUP or file change. A reload that fails validation is
// logged and the previous configuration is kept.
// appCtx bounds the lifetime of the reload goroutine.
func NewViperProvider(appCtx context.Context, logger *zap.Logger) (Provider, error) {
	v := NewViper()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.Warn("Config file not found; relying on defaults and environment variables", zap.Error(err))
		} else {
			logger.Error("Failed to read config file", zap.Error(err))
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := Load(v)
	if err != nil {
		logger.Error("Failed to load config", zap.Error(err))
		return nil, err
	}

	p := &viperProvider{logger: logger}
	p.config.Store(cfg)

	reload := func(source string) {
		newCfg, err := Load(v)
		if err != nil {
			p.logger.Error("Rejected reloaded configuration; keeping previous one", zap.String("source", source), zap.Error(err))
			return
		}
		p.config.Store(newCfg)
		p.logger.Info("Configuration reloaded successfully", zap.String("source", source))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	go func() {
		defer signal.Stop(sigChan)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in SIGHUP handler goroutine",
					zap.String("goroutine_name", "SIGHUPConfigReloader"),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		for {
			select {
			case <-sigChan:
				p.logger.Info("SIGHUP received, attempting to reload configuration...")
				if err := v.ReadInConfig(); err != nil {
					p.logger.Error("Failed to re-read config file on SIGHUP", zap.Error(err))
					continue
				}
				reload("sighup")
			case <-appCtx.Done():
				return
			}
		}
	}()

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("Panic recovered in OnConfigChange callback",
						zap.String("event_name", e.Name),
						zap.Any("panic_info", r),
						zap.String("stacktrace", string(debug.Stack())),
					)
				}
			}()
			p.logger.Info("Config file changed", zap.String("name", e.Name), zap.String("op", e.Op.String()))
			reload("file_watch")
		})
		v.WatchConfig()
	}

	logger.Info("Configuration loaded successfully", zap.String("config_file_used", v.ConfigFileUsed()))

	return p, nil
}

// Get returns the current configuration.
func (p *viperProvider) Get() *Config {
	return p.config.Load()
}

// StaticProvider serves a fixed configuration.
type StaticProvider struct {
	Config *Config
}

// Get returns the wrapped configuration.
func (s StaticProvider) Get() *Config {
	return s.Config
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
