package web

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/example/task-tracker/modules/activity"
	"github.com/example/task-tracker/modules/identity"
	"github.com/example/task-tracker/modules/taskstore"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// WebModule serves the task tracker over HTTP.
type WebModule struct {
	app           *fiber.App
	addr          string
	secureCookies bool
	identity      identity.IdentityPort
	tasks         taskstore.TaskStorePort
	activity      activity.ActivityPort
	limiter       fiber.Handler
}

// Compile-time interface checks.
var _ mono.Module = (*WebModule)(nil)
var _ mono.DependentModule = (*WebModule)(nil)
var _ mono.HealthCheckableModule = (*WebModule)(nil)

// NewModule creates a new WebModule. HTTP_ADDR sets the listen address and
// COOKIE_SECURE=true marks session cookies Secure.
func NewModule() *WebModule {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":3000"
	}
	return &WebModule{
		addr:          addr,
		secureCookies: os.Getenv("COOKIE_SECURE") == "true",
	}
}

// Name returns the module name.
func (m *WebModule) Name() string {
	return "web"
}

// Dependencies returns the list of module dependencies.
func (m *WebModule) Dependencies() []string {
	return []string{"identity", "taskstore", "activity"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *WebModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "identity":
		m.identity = identity.NewAdapter(container)
	case "taskstore":
		m.tasks = taskstore.NewAdapter(container)
	case "activity":
		m.activity = activity.NewAdapter(container)
	}
}

// SetCredentialLimiter installs middleware run before the login and signup
// actions.
func (m *WebModule) SetCredentialLimiter(limiter fiber.Handler) {
	m.limiter = limiter
}

// Start initializes the Fiber HTTP server.
func (m *WebModule) Start(_ context.Context) error {
	if m.identity == nil {
		return fmt.Errorf("identity dependency not set")
	}
	if m.tasks == nil {
		return fmt.Errorf("taskstore dependency not set")
	}

	handlers := NewHandlers(m.identity, NewTaskRepository(m.tasks), m.activity, m.secureCookies)
	resolver := NewSessionResolver(m.identity, m.secureCookies)
	m.app = newApp(handlers, resolver, m.limiter)

	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			log.Printf("[web] HTTP server error: %v", err)
		}
	}()

	log.Printf("[web] HTTP server started on %s", m.addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *WebModule) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[web] Shutting down HTTP server...")
	return m.app.Shutdown()
}

// Health returns the health status of the module.
func (m *WebModule) Health(_ context.Context) mono.HealthStatus {
	if m.app == nil {
		return mono.HealthStatus{Healthy: false, Message: "HTTP server not started"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr":           m.addr,
			"secure_cookies": m.secureCookies,
		},
	}
}

// newApp builds the Fiber application with its middleware and routes.
// limiter may be nil.
func newApp(h *Handlers, resolver *SessionResolver, limiter fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New())

	app.Get("/healthz", h.Health)

	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	session := SessionMiddleware(resolver)

	app.Get("/login", session, h.LoadAuthPage)
	app.Get("/signup", session, h.LoadAuthPage)
	app.Post("/login", limiter, h.Login)
	app.Post("/signup", limiter, h.Signup)
	app.Get("/auth/confirm", h.Confirm)

	tasks := app.Group("/tasks", session)
	tasks.Get("/", h.LoadTasks)
	tasks.Post("/", h.TaskAction)
	tasks.Get("/activity", h.Activity)
	tasks.Post("/create", h.CreateTask)
	tasks.Post("/update", h.UpdateTask)
	tasks.Post("/delete", h.DeleteTask)
	tasks.Post("/logout", h.Logout)

	return app
}

// customErrorHandler handles errors that escape a handler.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{Error: message})
}
