package web

import (
	"context"
	"errors"
	"log"
	"strings"

	domain "github.com/example/task-tracker/domain/task"
	"github.com/example/task-tracker/modules/taskstore"
)

// MissingTableMessage is returned to users when the tasks table is absent.
const MissingTableMessage = "Database table not found. Please run the tasks migration. See server log for details."

// CollaboratorError is a storage failure surfaced to the caller.
type CollaboratorError struct {
	Op      string
	Message string
	Err     error
}

func (e *CollaboratorError) Error() string {
	return e.Message
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// TaskRepository hands out owner-scoped views of the task store.
type TaskRepository struct {
	store taskstore.TaskStorePort
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(store taskstore.TaskStorePort) *TaskRepository {
	return &TaskRepository{store: store}
}

// Scoped returns the task operations of a single owner. The owner id comes
// from the verified session and is attached to every call.
func (r *TaskRepository) Scoped(ownerID string) *ScopedTasks {
	return &ScopedTasks{store: r.store, ownerID: ownerID}
}

// ScopedTasks performs task operations on behalf of one owner.
type ScopedTasks struct {
	store   taskstore.TaskStorePort
	ownerID string
}

// List returns the owner's tasks, newest first. Any failure is logged and
// yields an empty list, so an empty result may also mean the store was
// unreachable.
func (s *ScopedTasks) List(ctx context.Context) []domain.Task {
	tasks, err := s.store.List(ctx, s.ownerID)
	if err != nil {
		log.Printf("[web] Error loading tasks for user %s: %v", s.ownerID, err)
		if isMissingRelation(err) {
			logMissingTable()
		}
		return []domain.Task{}
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks
}

// Create stores a new task for the owner.
func (s *ScopedTasks) Create(ctx context.Context, draft domain.Draft) error {
	if _, err := s.store.Create(ctx, s.ownerID, draft); err != nil {
		return s.failure("create", err)
	}
	return nil
}

// Update applies a patch to one of the owner's tasks. An id the owner does
// not have matches nothing and still succeeds.
func (s *ScopedTasks) Update(ctx context.Context, id string, patch domain.Patch) error {
	if _, err := s.store.Update(ctx, s.ownerID, id, patch); err != nil {
		return s.failure("update", err)
	}
	return nil
}

// Delete removes one of the owner's tasks, with the same matching rule as
// Update.
func (s *ScopedTasks) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Delete(ctx, s.ownerID, id); err != nil {
		return s.failure("delete", err)
	}
	return nil
}

func (s *ScopedTasks) failure(op string, err error) error {
	log.Printf("[web] Error during task %s for user %s: %v", op, s.ownerID, err)
	if isMissingRelation(err) {
		logMissingTable()
		return &CollaboratorError{Op: op, Message: MissingTableMessage, Err: err}
	}
	return &CollaboratorError{Op: op, Message: err.Error(), Err: err}
}

// isMissingRelation recognises a missing tasks table from the store's code
// or, failing that, from the message text.
func isMissingRelation(err error) bool {
	var storeErr *taskstore.StoreError
	if errors.As(err, &storeErr) {
		if storeErr.RelationMissing() || storeErr.Code == "PGRST205" {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "relation") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no such table")
}

func logMissingTable() {
	log.Println("[web] DATABASE TABLE MISSING: the \"tasks\" table does not exist.")
	log.Println("[web] To fix this:")
	log.Println("[web]   1. Restart with TASKS_AUTO_MIGRATE unset (or true) to create it automatically, or")
	log.Println("[web]   2. Create it by hand with the statement in modules/taskstore/postgres.go")
	log.Println("[web]   3. Reload the page")
}
