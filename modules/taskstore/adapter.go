package taskstore

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/task-tracker/domain/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// TaskStorePort is the interface other modules use to reach the task store.
// Failures reported by the store come back as *StoreError.
type TaskStorePort interface {
	List(ctx context.Context, ownerID string) ([]domain.Task, error)
	Create(ctx context.Context, ownerID string, draft domain.Draft) (*domain.Task, error)
	Update(ctx context.Context, ownerID, id string, patch domain.Patch) (int64, error)
	Delete(ctx context.Context, ownerID, id string) (int64, error)
}

// StoreError is a failure reported by the task store.
type StoreError struct {
	Code    string
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// RelationMissing reports whether the tasks table was not found.
func (e *StoreError) RelationMissing() bool {
	return e.Code == CodeRelationMissing
}

// Adapter wraps a ServiceContainer for calls into the taskstore module.
type Adapter struct {
	container mono.ServiceContainer
}

var _ TaskStorePort = (*Adapter)(nil)

// NewAdapter creates a new adapter for taskstore services.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	if container == nil {
		panic("taskstore adapter requires non-nil ServiceContainer")
	}
	return &Adapter{container: container}
}

// List returns the owner's tasks, newest first.
func (a *Adapter) List(ctx context.Context, ownerID string) ([]domain.Task, error) {
	req := ListRequest{OwnerID: ownerID}
	var resp ListResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"list",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("list service call failed: %w", err)
	}
	if resp.Error != "" {
		return nil, &StoreError{Code: resp.Code, Message: resp.Error}
	}
	return resp.Tasks, nil
}

// Create inserts a task for the owner.
func (a *Adapter) Create(ctx context.Context, ownerID string, draft domain.Draft) (*domain.Task, error) {
	req := CreateRequest{OwnerID: ownerID, Draft: draft}
	var resp CreateResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"create",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("create service call failed: %w", err)
	}
	if resp.Error != "" {
		return nil, &StoreError{Code: resp.Code, Message: resp.Error}
	}
	return resp.Task, nil
}

// Update applies a patch to one of the owner's tasks.
func (a *Adapter) Update(ctx context.Context, ownerID, id string, patch domain.Patch) (int64, error) {
	req := UpdateRequest{OwnerID: ownerID, ID: id, Patch: patch}
	var resp MutationResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"update",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return 0, fmt.Errorf("update service call failed: %w", err)
	}
	if resp.Error != "" {
		return 0, &StoreError{Code: resp.Code, Message: resp.Error}
	}
	return resp.RowsAffected, nil
}

// Delete removes one of the owner's tasks.
func (a *Adapter) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	req := DeleteRequest{OwnerID: ownerID, ID: id}
	var resp MutationResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"delete",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return 0, fmt.Errorf("delete service call failed: %w", err)
	}
	if resp.Error != "" {
		return 0, &StoreError{Code: resp.Code, Message: resp.Error}
	}
	return resp.RowsAffected, nil
}
