package ratelimit

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Module throttles the credential routes with a Redis sliding window. It is
// a pass-through when no Redis address is configured.
type Module struct {
	config  Config
	client  *redis.Client
	limiter atomic.Pointer[SlidingWindowLimiter]
}

var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new rate limiting module.
func NewModule(opts ...Option) *Module {
	return &Module{config: NewConfig(opts...)}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ratelimit"
}

// Enabled reports whether a Redis address is configured.
func (m *Module) Enabled() bool {
	return m.config.RedisAddr != ""
}

// Start connects to Redis when enabled. An unreachable Redis is not fatal:
// the limiter fails open per request until Redis answers again, and Health
// reports the outage.
func (m *Module) Start(ctx context.Context) error {
	if !m.Enabled() {
		log.Println("[ratelimit] REDIS_ADDR not set, credential routes are not rate limited")
		return nil
	}

	m.client = redis.NewClient(&redis.Options{
		Addr:     m.config.RedisAddr,
		Password: m.config.RedisPassword,
		DB:       m.config.RedisDB,
	})
	m.limiter.Store(NewSlidingWindowLimiter(m.client, m.config.Limit, m.config.Window, m.config.KeyPrefix))

	if err := m.client.Ping(ctx).Err(); err != nil {
		log.Printf("[ratelimit] Warning: Redis at %s unreachable, credential routes are not limited until it recovers: %v",
			m.config.RedisAddr, err)
		return nil
	}

	log.Printf("[ratelimit] Connected to Redis at %s (%d attempts per %s)",
		m.config.RedisAddr, m.config.Limit, m.config.Window)
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			log.Printf("[ratelimit] Error closing Redis connection: %v", err)
		}
	}
	log.Println("[ratelimit] Module stopped")
	return nil
}

// Health verifies the Redis connection.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if !m.Enabled() {
		return mono.HealthStatus{Healthy: true, Message: "disabled"}
	}
	if m.client == nil {
		return mono.HealthStatus{Healthy: false, Message: "Redis client not initialized"}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr":   m.config.RedisAddr,
			"limit":  m.config.Limit,
			"window": m.config.Window.String(),
		},
	}
}

// Handler returns middleware for the credential routes. The limiter is
// looked up per request so routes can be mounted before Start runs.
func (m *Module) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limiter := m.limiter.Load()
		if limiter == nil {
			return c.Next()
		}
		return limiter.Handler()(c)
	}
}
