package web

import (
	"github.com/example/task-tracker/modules/activity"
	"github.com/example/task-tracker/modules/identity"
	"github.com/gofiber/fiber/v2"
)

// Handlers holds the HTTP handlers and their collaborators.
type Handlers struct {
	identity identity.IdentityPort
	tasks    *TaskRepository
	activity activity.ActivityPort
	secure   bool
}

// NewHandlers creates a new Handlers. activityPort may be nil.
func NewHandlers(identityPort identity.IdentityPort, tasks *TaskRepository, activityPort activity.ActivityPort, secure bool) *Handlers {
	return &Handlers{
		identity: identityPort,
		tasks:    tasks,
		activity: activityPort,
		secure:   secure,
	}
}

// Messages shown for transport-level rejections.
const (
	msgInvalidForm  = "Invalid form data"
	msgUnauthorized = "Unauthorized"
)

// fail sends a failure with a single message.
func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: message})
}

// failValidation sends the field errors of a rejected form.
func failValidation(c *fiber.Ctx, errs FieldErrors) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{ValidationErrors: errs})
}

func succeed(c *fiber.Ctx) error {
	return c.JSON(SuccessResponse{Success: true})
}

// Health reports that the HTTP server is up.
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
