package task

import "time"

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether p is one of the enumerated priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status represents the state of a task.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

const (
	// MaxTitleLength is the maximum number of characters in a title.
	MaxTitleLength = 100
	// MaxDescriptionLength is the maximum number of characters in a description.
	MaxDescriptionLength = 500
)

// Task is a user-owned record stored in the tasks table.
type Task struct {
	ID          string    `gorm:"primaryKey;type:text" json:"id"`
	UserID      string    `gorm:"index;not null;type:text" json:"user_id"`
	Title       string    `gorm:"size:100;not null" json:"title"`
	Description *string   `gorm:"size:500" json:"description"`
	Priority    Priority  `gorm:"not null;type:text" json:"priority"`
	DueDate     string    `gorm:"not null;type:text" json:"due_date"`
	Status      Status    `gorm:"not null;type:text;default:Pending" json:"status"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// Draft is a validated task record ready for insertion. It carries no owner:
// the owner is always taken from the verified session.
type Draft struct {
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Priority    Priority `json:"priority"`
	DueDate     string   `json:"due_date"`
	Status      Status   `json:"status"`
}

// Patch is a partial update. A nil field is left untouched. A non-nil
// Description pointing at "" clears the stored description to NULL.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	DueDate     *string   `json:"due_date,omitempty"`
	Status      *Status   `json:"status,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.DueDate == nil && p.Status == nil
}

// Columns returns the column assignments for the patch, keyed by column name.
func (p Patch) Columns() map[string]any {
	cols := make(map[string]any, 5)
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Description != nil {
		if *p.Description == "" {
			cols["description"] = nil
		} else {
			cols["description"] = *p.Description
		}
	}
	if p.Priority != nil {
		cols["priority"] = string(*p.Priority)
	}
	if p.DueDate != nil {
		cols["due_date"] = *p.DueDate
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	return cols
}
