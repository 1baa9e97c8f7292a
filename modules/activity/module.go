package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/task-tracker/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// DefaultCapacity is the number of entries kept per owner.
const DefaultCapacity = 50

// Entry is one recorded task mutation.
type Entry struct {
	TaskID    string    `json:"task_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ActivityModule consumes task events and keeps a bounded, per-owner log of
// recent mutations.
type ActivityModule struct {
	mu       sync.RWMutex
	entries  map[string][]Entry
	capacity int
}

var (
	_ mono.Module                = (*ActivityModule)(nil)
	_ mono.EventConsumerModule   = (*ActivityModule)(nil)
	_ mono.ServiceProviderModule = (*ActivityModule)(nil)
	_ mono.HealthCheckableModule = (*ActivityModule)(nil)
)

// NewModule creates a new ActivityModule. ACTIVITY_CAPACITY overrides the
// per-owner history size.
func NewModule() *ActivityModule {
	capacity := DefaultCapacity
	if v, err := strconv.Atoi(os.Getenv("ACTIVITY_CAPACITY")); err == nil && v > 0 {
		capacity = v
	}
	return &ActivityModule{
		entries:  make(map[string][]Entry),
		capacity: capacity,
	}
}

func (m *ActivityModule) Name() string {
	return "activity"
}

func (m *ActivityModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskUpdatedV1, m.handleTaskUpdated, m); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}

	log.Printf("[activity] Registered event consumers: TaskCreated, TaskUpdated, TaskDeleted")
	return nil
}

func (m *ActivityModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "recent", json.Unmarshal, json.Marshal, m.recent,
	); err != nil {
		return fmt.Errorf("failed to register recent service: %w", err)
	}
	log.Printf("[activity] Registered services: services.activity.recent")
	return nil
}

func (m *ActivityModule) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	log.Printf("[activity] Task created: %s - %s", event.TaskID, event.Title)
	m.record(event.UserID, Entry{
		TaskID:    event.TaskID,
		Kind:      "task_created",
		Message:   fmt.Sprintf("Created '%s' (%s priority, due %s)", event.Title, event.Priority, event.DueDate),
		Timestamp: event.CreatedAt,
	})
	return nil
}

func (m *ActivityModule) handleTaskUpdated(_ context.Context, event events.TaskUpdatedEvent, _ *mono.Msg) error {
	if event.RowsAffected == 0 {
		log.Printf("[activity] Update of task %s by user %s matched no rows", event.TaskID, event.UserID)
		return nil
	}
	log.Printf("[activity] Task updated: %s by user %s", event.TaskID, event.UserID)
	m.record(event.UserID, Entry{
		TaskID:    event.TaskID,
		Kind:      "task_updated",
		Message:   fmt.Sprintf("Updated %s", strings.Join(event.Fields, ", ")),
		Timestamp: event.UpdatedAt,
	})
	return nil
}

func (m *ActivityModule) handleTaskDeleted(_ context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	if event.RowsAffected == 0 {
		log.Printf("[activity] Delete of task %s by user %s matched no rows", event.TaskID, event.UserID)
		return nil
	}
	log.Printf("[activity] Task deleted: %s by user %s", event.TaskID, event.UserID)
	m.record(event.UserID, Entry{
		TaskID:    event.TaskID,
		Kind:      "task_deleted",
		Message:   "Deleted task",
		Timestamp: event.DeletedAt,
	})
	return nil
}

// record appends an entry, dropping the oldest once capacity is reached.
func (m *ActivityModule) record(ownerID string, entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append(m.entries[ownerID], entry)
	if len(list) > m.capacity {
		list = list[len(list)-m.capacity:]
	}
	m.entries[ownerID] = list
}

// Recent returns the owner's entries, newest first.
func (m *ActivityModule) Recent(ownerID string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.entries[ownerID]
	out := make([]Entry, len(list))
	for i, e := range list {
		out[len(list)-1-i] = e
	}
	return out
}

func (m *ActivityModule) recent(_ context.Context, req RecentRequest, _ *mono.Msg) (RecentResponse, error) {
	return RecentResponse{Entries: m.Recent(req.OwnerID)}, nil
}

func (m *ActivityModule) Health(_ context.Context) mono.HealthStatus {
	m.mu.RLock()
	owners := len(m.entries)
	m.mu.RUnlock()

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"owners":   owners,
			"capacity": m.capacity,
		},
	}
}

func (m *ActivityModule) Start(_ context.Context) error {
	log.Println("[activity] Module started")
	return nil
}

func (m *ActivityModule) Stop(_ context.Context) error {
	log.Println("[activity] Module stopped")
	return nil
}
