package taskstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/example/task-tracker/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TaskStoreModule owns the tasks table. It serves owner-scoped list, create,
// update and delete over request-reply and publishes an event per mutation.
// PostgreSQL is used when DATABASE_URL is set, SQLite otherwise.
type TaskStoreModule struct {
	store       Store
	eventBus    mono.EventBus
	dbPath      string
	dbURL       string
	autoMigrate bool
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*TaskStoreModule)(nil)
	_ mono.ServiceProviderModule = (*TaskStoreModule)(nil)
	_ mono.HealthCheckableModule = (*TaskStoreModule)(nil)
	_ mono.EventEmitterModule    = (*TaskStoreModule)(nil)
)

// NewModule creates a new TaskStoreModule configured from the environment.
func NewModule() *TaskStoreModule {
	dbPath := os.Getenv("TASKS_DB_PATH")
	if dbPath == "" {
		dbPath = "tasks.db"
	}
	return &TaskStoreModule{
		dbPath:      dbPath,
		dbURL:       os.Getenv("DATABASE_URL"),
		autoMigrate: os.Getenv("TASKS_AUTO_MIGRATE") != "false",
	}
}

// NewModuleWithStore creates a TaskStoreModule over an already opened store.
func NewModuleWithStore(store Store) *TaskStoreModule {
	return &TaskStoreModule{store: store}
}

// Name returns the module name.
func (m *TaskStoreModule) Name() string {
	return "taskstore"
}

// SetEventBus is called by the framework before Start.
func (m *TaskStoreModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events published by this module.
func (m *TaskStoreModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
	}
}

// Health performs a health check on the task store.
func (m *TaskStoreModule) Health(ctx context.Context) mono.HealthStatus {
	if m.store == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "store not initialized",
		}
	}

	if err := m.store.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": m.store.Driver(),
		},
	}
}

// RegisterServices registers request-reply services in the service container.
// Names are prefixed by the framework, so "list" becomes
// "services.taskstore.list".
func (m *TaskStoreModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "list", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "create", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update", json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register update service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete", json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete service: %w", err)
	}

	log.Printf("[taskstore] Registered services: services.taskstore.{list,create,update,delete}")
	return nil
}

// Start opens the store and, unless disabled, creates the tasks table.
func (m *TaskStoreModule) Start(ctx context.Context) error {
	if m.store == nil {
		store, err := m.open(ctx)
		if err != nil {
			return err
		}
		m.store = store
	}

	if m.autoMigrate {
		if err := m.store.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	} else {
		log.Println("[taskstore] Auto-migration disabled (TASKS_AUTO_MIGRATE=false)")
	}

	if m.eventBus == nil {
		log.Println("[taskstore] Warning: eventBus not set, events will not be published")
	}

	log.Printf("[taskstore] Module started (driver: %s)", m.store.Driver())
	return nil
}

func (m *TaskStoreModule) open(ctx context.Context) (Store, error) {
	if m.dbURL != "" {
		log.Println("[taskstore] Connecting to PostgreSQL")
		pool, err := pgxpool.New(ctx, m.dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return NewPostgresStore(pool), nil
	}

	log.Printf("[taskstore] Connecting to SQLite database: %s", m.dbPath)

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewRepository(db), nil
}

// Stop closes the store.
func (m *TaskStoreModule) Stop(_ context.Context) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	log.Println("[taskstore] Module stopped")
	return nil
}
