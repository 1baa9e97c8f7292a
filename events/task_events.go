package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// TaskCreatedEvent is emitted when a new task is stored.
type TaskCreatedEvent struct {
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Priority  string    `json:"priority"`
	DueDate   string    `json:"due_date"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskCreatedV1 is the typed event definition for task creation.
// Subject: events.taskstore.v1.task-created
var TaskCreatedV1 = helper.EventDefinition[TaskCreatedEvent](
	"taskstore", "TaskCreated", "v1",
)

// TaskUpdatedEvent is emitted after an owner-scoped update. RowsAffected is
// zero when the id did not belong to the owner.
type TaskUpdatedEvent struct {
	TaskID       string    `json:"task_id"`
	UserID       string    `json:"user_id"`
	Fields       []string  `json:"fields"`
	RowsAffected int64     `json:"rows_affected"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TaskUpdatedV1 is the typed event definition for task updates.
// Subject: events.taskstore.v1.task-updated
var TaskUpdatedV1 = helper.EventDefinition[TaskUpdatedEvent](
	"taskstore", "TaskUpdated", "v1",
)

// TaskDeletedEvent is emitted after an owner-scoped delete.
type TaskDeletedEvent struct {
	TaskID       string    `json:"task_id"`
	UserID       string    `json:"user_id"`
	RowsAffected int64     `json:"rows_affected"`
	DeletedAt    time.Time `json:"deleted_at"`
}

// TaskDeletedV1 is the typed event definition for task deletion.
// Subject: events.taskstore.v1.task-deleted
var TaskDeletedV1 = helper.EventDefinition[TaskDeletedEvent](
	"taskstore", "TaskDeleted", "v1",
)
