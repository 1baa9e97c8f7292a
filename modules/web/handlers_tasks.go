package web

import (
	"log"
	"strings"

	"github.com/example/task-tracker/modules/activity"
	"github.com/gofiber/fiber/v2"
)

const (
	msgTaskIDRequired = "Task ID is required"
	msgUnknownAction  = "Unknown action"
)

// LoadTasks handles GET /tasks.
func (h *Handlers) LoadTasks(c *fiber.Ctx) error {
	id := IdentityFrom(c)
	if id == nil {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	tasks := h.tasks.Scoped(id.UserID).List(c.UserContext())
	return c.JSON(TasksResponse{
		User:  UserResponse{ID: id.UserID, Email: id.Email},
		Tasks: tasks,
	})
}

// CreateTask handles the create action.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	id, err := Require(IdentityFrom(c))
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, msgUnauthorized)
	}

	form, err := DecodeForm(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidForm)
	}

	draft, errs := ValidateTaskCreate(form)
	if len(errs) > 0 {
		return failValidation(c, errs)
	}

	if err := h.tasks.Scoped(id.UserID).Create(c.UserContext(), draft); err != nil {
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
	return succeed(c)
}

// UpdateTask handles the update action.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	id, err := Require(IdentityFrom(c))
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, msgUnauthorized)
	}

	form, err := DecodeForm(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidForm)
	}

	taskID := form.Get("id")
	if taskID == "" {
		return fail(c, fiber.StatusBadRequest, msgTaskIDRequired)
	}

	patch, errs := ValidateTaskUpdate(form)
	if len(errs) > 0 {
		return failValidation(c, errs)
	}

	if err := h.tasks.Scoped(id.UserID).Update(c.UserContext(), taskID, patch); err != nil {
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
	return succeed(c)
}

// DeleteTask handles the delete action.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	id, err := Require(IdentityFrom(c))
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, msgUnauthorized)
	}

	form, err := DecodeForm(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidForm)
	}

	taskID := form.Get("id")
	if taskID == "" {
		return fail(c, fiber.StatusBadRequest, msgTaskIDRequired)
	}

	if err := h.tasks.Scoped(id.UserID).Delete(c.UserContext(), taskID); err != nil {
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
	return succeed(c)
}

// Activity handles GET /tasks/activity.
func (h *Handlers) Activity(c *fiber.Ctx) error {
	id := IdentityFrom(c)
	if id == nil {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	entries := []activity.Entry{}
	if h.activity != nil {
		recent, err := h.activity.Recent(c.UserContext(), id.UserID)
		if err != nil {
			log.Printf("[web] Error loading activity for user %s: %v", id.UserID, err)
			return fail(c, fiber.StatusInternalServerError, err.Error())
		}
		if recent != nil {
			entries = recent
		}
	}
	return c.JSON(ActivityResponse{Entries: entries})
}

// TaskAction dispatches POST /tasks?/<action>, the form-action style used
// by browser forms.
func (h *Handlers) TaskAction(c *fiber.Ctx) error {
	action := strings.TrimPrefix(string(c.Request().URI().QueryString()), "/")
	if i := strings.IndexAny(action, "&="); i >= 0 {
		action = action[:i]
	}

	switch action {
	case "create":
		return h.CreateTask(c)
	case "update":
		return h.UpdateTask(c)
	case "delete":
		return h.DeleteTask(c)
	case "logout":
		return h.Logout(c)
	default:
		return fail(c, fiber.StatusNotFound, msgUnknownAction)
	}
}
