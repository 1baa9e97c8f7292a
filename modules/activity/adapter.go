package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// RecentRequest is the request for the recent service.
type RecentRequest struct {
	OwnerID string `json:"owner_id"`
}

// RecentResponse is the response for the recent service.
type RecentResponse struct {
	Entries []Entry `json:"entries"`
}

// ActivityPort reads the activity log from other modules.
type ActivityPort interface {
	Recent(ctx context.Context, ownerID string) ([]Entry, error)
}

// Adapter wraps a ServiceContainer for calls into the activity module.
type Adapter struct {
	container mono.ServiceContainer
}

var _ ActivityPort = (*Adapter)(nil)

// NewAdapter creates a new adapter for activity services.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	if container == nil {
		panic("activity adapter requires non-nil ServiceContainer")
	}
	return &Adapter{container: container}
}

// Recent returns the owner's recent activity, newest first.
func (a *Adapter) Recent(ctx context.Context, ownerID string) ([]Entry, error) {
	req := RecentRequest{OwnerID: ownerID}
	var resp RecentResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"recent",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("recent service call failed: %w", err)
	}
	return resp.Entries, nil
}
