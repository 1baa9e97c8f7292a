package web

import (
	"errors"

	domain "github.com/example/task-tracker/domain/identity"
)

// ErrUnauthorized is returned when an action needs a signed-in user.
var ErrUnauthorized = errors.New("unauthorized")

// Require passes a verified identity through and rejects anonymous requests.
func Require(id *domain.Identity) (*domain.Identity, error) {
	if id == nil || id.UserID == "" {
		return nil, ErrUnauthorized
	}
	return id, nil
}
