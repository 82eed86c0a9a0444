// Package config loads service settings from a YAML file and the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/openagi/internal/logging"
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/relay"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when neither --config nor OPENAGI_CONFIG is set.
const DefaultPath = "openagi.yaml"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Relay      RelayConfig      `yaml:"relay"`
	Redis      RedisConfig      `yaml:"redis"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	LLM        domain.LLMConfig `yaml:"llm"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RelayConfig struct {
	// UpstreamURL is the chat-completion endpoint the relay forwards to.
	UpstreamURL string `yaml:"upstream_url"`
	// URL points the CLI at a running relay instead of an ephemeral local one.
	URL                string `yaml:"url"`
	IntegerTemperature bool   `yaml:"integer_temperature"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type EncryptionConfig struct {
	// Key is a base64 encoded 32 byte AES key. Empty disables encryption.
	Key          string   `yaml:"key"`
	FallbackKeys []string `yaml:"fallback_keys"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":5000",
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
		Relay: RelayConfig{
			UpstreamURL: relay.DefaultUpstreamURL,
		},
		Redis: RedisConfig{
			Prefix: "openagi:",
			TTL:    24 * time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		LLM: domain.DefaultLLMConfig(),
	}
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := defaults()
	return &cfg
}

// Load reads the configuration. An explicit path must exist; otherwise OPENAGI_CONFIG
// or DefaultPath is tried and a missing file means defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("OPENAGI_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults + env
	} else {
		// Expand environment variables in YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAGI_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("OPENAGI_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("OPENAGI_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("OPENAGI_UPSTREAM_URL"); v != "" {
		cfg.Relay.UpstreamURL = v
	}
	if v := os.Getenv("OPENAGI_RELAY_URL"); v != "" {
		cfg.Relay.URL = v
	}
	if v := os.Getenv("OPENAGI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("OPENAGI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("OPENAGI_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("OPENAGI_ENCRYPTION_KEY"); v != "" {
		cfg.Encryption.Key = v
	}
	if v := os.Getenv("TOGETHER_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q: want text or json", c.Log.Format))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Relay.UpstreamURL == "" {
		errs = append(errs, errors.New("relay.upstream_url is required"))
	}
	if c.Redis.TTL < 0 {
		errs = append(errs, errors.New("redis.ttl must not be negative"))
	}
	if _, _, err := c.Encryption.Keys(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Enabled reports whether an encryption key is configured.
func (e EncryptionConfig) Enabled() bool {
	return e.Key != ""
}

// Keys decodes the active and fallback keys.
func (e EncryptionConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if e.Key == "" {
		if len(e.FallbackKeys) > 0 {
			return nil, nil, errors.New("encryption.fallback_keys set without encryption.key")
		}
		return nil, nil, nil
	}
	active, err = decodeKey("encryption.key", e.Key)
	if err != nil {
		return nil, nil, err
	}
	for i, k := range e.FallbackKeys {
		key, err := decodeKey(fmt.Sprintf("encryption.fallback_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(name, s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base64: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s: must decode to 32 bytes, got %d", name, len(key))
	}
	return key, nil
}
