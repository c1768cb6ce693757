// Package server provides the runtime configuration for the coordinator,
// loaded from the environment with sane defaults and post-load floors.
package server

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the server configuration settings, populated from the
// environment via envconfig struct tags.
type Config struct {
	Port                    string        `envconfig:"SERVER_PORT" default:":8080"`
	AllowedOrigins          []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	MaxMessageSize          int64         `envconfig:"MAX_MESSAGE_SIZE" default:"12582912"`
	MaxImageBytes           int64         `envconfig:"MAX_IMAGE_BYTES" default:"8388608"`
	SendQueueSize           int           `envconfig:"SEND_QUEUE_SIZE" default:"256"`
	RateLimitBurst          int           `envconfig:"RATE_LIMIT_BURST" default:"10"`
	RateLimitRefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
	ShutdownTimeout         time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel                string        `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig reads the configuration from the environment. Unset variables
// fall back to the struct defaults; out-of-range values are clamped by
// sanitize.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	cfg.sanitize()
	return cfg, nil
}

// NewConfig returns the default configuration without consulting the
// environment. Intended for tests and embedding.
func NewConfig() Config {
	cfg := Config{
		Port:                    ":8080",
		AllowedOrigins:          []string{"http://localhost:8080"},
		MaxMessageSize:          12 << 20,
		MaxImageBytes:           8 << 20,
		SendQueueSize:           256,
		RateLimitBurst:          10,
		RateLimitRefillInterval: time.Second,
		ShutdownTimeout:         10 * time.Second,
		LogLevel:                "info",
	}
	cfg.sanitize()
	return cfg
}

func (c *Config) sanitize() {
	if c.Port == "" {
		c.Port = ":8080"
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = 8 << 20
	}
	// The read limit has to admit a base64-encoded image at the cap plus
	// envelope overhead.
	if floor := c.MaxImageBytes*4/3 + 4096; c.MaxMessageSize < floor {
		c.MaxMessageSize = floor
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 10
	}
	if c.RateLimitRefillInterval <= 0 {
		c.RateLimitRefillInterval = time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}
