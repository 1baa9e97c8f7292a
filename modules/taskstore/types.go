package taskstore

import domain "github.com/example/task-tracker/domain/task"

// Every request carries the owner id resolved from the verified session.
// Failures the caller is expected to handle are returned in Error and Code
// rather than as transport errors.

// ListRequest is the request for the list service.
type ListRequest struct {
	OwnerID string `json:"owner_id"`
}

// ListResponse is the response for the list service.
type ListResponse struct {
	Tasks []domain.Task `json:"tasks"`
	Error string        `json:"error,omitempty"`
	Code  string        `json:"code,omitempty"`
}

// CreateRequest is the request for the create service.
type CreateRequest struct {
	OwnerID string       `json:"owner_id"`
	Draft   domain.Draft `json:"draft"`
}

// CreateResponse is the response for the create service.
type CreateResponse struct {
	Task  *domain.Task `json:"task,omitempty"`
	Error string       `json:"error,omitempty"`
	Code  string       `json:"code,omitempty"`
}

// UpdateRequest is the request for the update service.
type UpdateRequest struct {
	OwnerID string       `json:"owner_id"`
	ID      string       `json:"id"`
	Patch   domain.Patch `json:"patch"`
}

// DeleteRequest is the request for the delete service.
type DeleteRequest struct {
	OwnerID string `json:"owner_id"`
	ID      string `json:"id"`
}

// MutationResponse is the response for the update and delete services.
type MutationResponse struct {
	RowsAffected int64  `json:"rows_affected"`
	Error        string `json:"error,omitempty"`
	Code         string `json:"code,omitempty"`
}
