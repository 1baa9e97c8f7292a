package ratelimit

import (
	"os"
	"strconv"
	"time"
)

// Config holds rate limiter configuration.
type Config struct {
	// RedisAddr is the Redis server address. Empty disables limiting.
	RedisAddr string

	// RedisPassword is the Redis authentication password (optional)
	RedisPassword string

	// RedisDB is the Redis database number
	RedisDB int

	// Limit is the number of attempts allowed per client within Window
	Limit int

	// Window is the sliding window length
	Window time.Duration

	// KeyPrefix is the prefix for Redis keys
	KeyPrefix string
}

// DefaultConfig returns the credential-route defaults: ten attempts per
// client per minute.
func DefaultConfig() Config {
	return Config{
		Limit:     10,
		Window:    time.Minute,
		KeyPrefix: "tasktracker:ratelimit:",
	}
}

// Option is a function that modifies Config.
type Option func(*Config)

// WithRedisAddr sets the Redis server address.
func WithRedisAddr(addr string) Option {
	return func(c *Config) {
		c.RedisAddr = addr
	}
}

// WithRedisPassword sets the Redis authentication password.
func WithRedisPassword(password string) Option {
	return func(c *Config) {
		c.RedisPassword = password
	}
}

// WithRedisDB sets the Redis database number.
func WithRedisDB(db int) Option {
	return func(c *Config) {
		c.RedisDB = db
	}
}

// WithLimit sets the number of attempts per window.
func WithLimit(limit int) Option {
	return func(c *Config) {
		if limit > 0 {
			c.Limit = limit
		}
	}
}

// WithWindow sets the window length.
func WithWindow(window time.Duration) Option {
	return func(c *Config) {
		if window > 0 {
			c.Window = window
		}
	}
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// NewConfig builds a Config from the defaults and the given options.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// FromEnv returns options read from REDIS_ADDR, REDIS_PASSWORD, REDIS_DB,
// RATELIMIT_LIMIT and RATELIMIT_WINDOW.
func FromEnv() []Option {
	opts := []Option{
		WithRedisAddr(os.Getenv("REDIS_ADDR")),
		WithRedisPassword(os.Getenv("REDIS_PASSWORD")),
	}
	if db, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		opts = append(opts, WithRedisDB(db))
	}
	if limit, err := strconv.Atoi(os.Getenv("RATELIMIT_LIMIT")); err == nil {
		opts = append(opts, WithLimit(limit))
	}
	if window, err := time.ParseDuration(os.Getenv("RATELIMIT_WINDOW")); err == nil {
		opts = append(opts, WithWindow(window))
	}
	return opts
}
