package web

import (
	domain "github.com/example/task-tracker/domain/task"
	"github.com/example/task-tracker/modules/activity"
)

// ErrorResponse is the body of every failed action.
type ErrorResponse struct {
	Error            string      `json:"error,omitempty"`
	ValidationErrors FieldErrors `json:"validation_errors,omitempty"`
}

// SuccessResponse is the success marker returned by mutating actions.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// UserResponse describes the signed-in user.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TasksResponse is the body of the task list page.
type TasksResponse struct {
	User  UserResponse  `json:"user"`
	Tasks []domain.Task `json:"tasks"`
}

// ActivityResponse is the body of the activity feed.
type ActivityResponse struct {
	Entries []activity.Entry `json:"entries"`
}
