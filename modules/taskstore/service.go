package taskstore

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/example/task-tracker/events"
	"github.com/go-monolith/mono"
)

// listTasks handles the list service request.
func (m *TaskStoreModule) listTasks(ctx context.Context, req ListRequest, _ *mono.Msg) (ListResponse, error) {
	if req.OwnerID == "" {
		return ListResponse{Error: ErrOwnerRequired.Error(), Code: CodeInvalidRequest}, nil
	}

	tasks, err := m.store.Scope(req.OwnerID).List(ctx)
	if err != nil {
		log.Printf("[taskstore] list failed for user %s: %v", req.OwnerID, err)
		return ListResponse{Error: err.Error(), Code: errorCode(err)}, nil
	}
	return ListResponse{Tasks: tasks}, nil
}

// createTask handles the create service request.
func (m *TaskStoreModule) createTask(ctx context.Context, req CreateRequest, _ *mono.Msg) (CreateResponse, error) {
	if req.OwnerID == "" {
		return CreateResponse{Error: ErrOwnerRequired.Error(), Code: CodeInvalidRequest}, nil
	}

	t, err := m.store.Scope(req.OwnerID).Create(ctx, req.Draft)
	if err != nil {
		log.Printf("[taskstore] create failed for user %s: %v", req.OwnerID, err)
		return CreateResponse{Error: err.Error(), Code: errorCode(err)}, nil
	}

	if m.eventBus != nil {
		event := events.TaskCreatedEvent{
			TaskID:    t.ID,
			UserID:    t.UserID,
			Title:     t.Title,
			Priority:  string(t.Priority),
			DueDate:   t.DueDate,
			CreatedAt: t.CreatedAt,
		}
		if err := events.TaskCreatedV1.Publish(m.eventBus, event, nil); err != nil {
			log.Printf("[taskstore] Warning: failed to publish TaskCreated event for task %s: %v", t.ID, err)
		}
	}

	return CreateResponse{Task: t}, nil
}

// updateTask handles the update service request.
func (m *TaskStoreModule) updateTask(ctx context.Context, req UpdateRequest, _ *mono.Msg) (MutationResponse, error) {
	if req.OwnerID == "" {
		return MutationResponse{Error: ErrOwnerRequired.Error(), Code: CodeInvalidRequest}, nil
	}

	rows, err := m.store.Scope(req.OwnerID).Update(ctx, req.ID, req.Patch)
	if err != nil {
		log.Printf("[taskstore] update of task %s failed for user %s: %v", req.ID, req.OwnerID, err)
		return MutationResponse{Error: err.Error(), Code: errorCode(err)}, nil
	}

	if m.eventBus != nil {
		fields := make([]string, 0, 5)
		for name := range req.Patch.Columns() {
			fields = append(fields, name)
		}
		sort.Strings(fields)

		event := events.TaskUpdatedEvent{
			TaskID:       req.ID,
			UserID:       req.OwnerID,
			Fields:       fields,
			RowsAffected: rows,
			UpdatedAt:    time.Now(),
		}
		if err := events.TaskUpdatedV1.Publish(m.eventBus, event, nil); err != nil {
			log.Printf("[taskstore] Warning: failed to publish TaskUpdated event for task %s: %v", req.ID, err)
		}
	}

	return MutationResponse{RowsAffected: rows}, nil
}

// deleteTask handles the delete service request.
func (m *TaskStoreModule) deleteTask(ctx context.Context, req DeleteRequest, _ *mono.Msg) (MutationResponse, error) {
	if req.OwnerID == "" {
		return MutationResponse{Error: ErrOwnerRequired.Error(), Code: CodeInvalidRequest}, nil
	}

	rows, err := m.store.Scope(req.OwnerID).Delete(ctx, req.ID)
	if err != nil {
		log.Printf("[taskstore] delete of task %s failed for user %s: %v", req.ID, req.OwnerID, err)
		return MutationResponse{Error: err.Error(), Code: errorCode(err)}, nil
	}

	if m.eventBus != nil {
		event := events.TaskDeletedEvent{
			TaskID:       req.ID,
			UserID:       req.OwnerID,
			RowsAffected: rows,
			DeletedAt:    time.Now(),
		}
		if err := events.TaskDeletedV1.Publish(m.eventBus, event, nil); err != nil {
			log.Printf("[taskstore] Warning: failed to publish TaskDeleted event for task %s: %v", req.ID, err)
		}
	}

	return MutationResponse{RowsAffected: rows}, nil
}
