package web

import (
	"errors"
	"log"
	"strings"

	"github.com/example/task-tracker/modules/identity"
	"github.com/gofiber/fiber/v2"
)

const (
	msgCredentialsRequired = "Email and password are required"
	msgAccountExists       = "An account with this email already exists"
	msgCheckEmail          = "Check your email to confirm your account"
	msgConfirmTokenMissing = "Confirmation token is required"
)

// LoadAuthPage serves GET /login and GET /signup. Signed-in users are sent
// to their tasks.
func (h *Handlers) LoadAuthPage(c *fiber.Ctx) error {
	if IdentityFrom(c) != nil {
		return c.Redirect("/tasks", fiber.StatusSeeOther)
	}
	return c.JSON(fiber.Map{})
}

// Login handles POST /login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	form, err := DecodeForm(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidForm)
	}

	email := form.Get("email")
	password := form.Get("password")
	if email == "" || password == "" {
		return fail(c, fiber.StatusBadRequest, msgCredentialsRequired)
	}

	resp, err := h.identity.SignInWithPassword(c.UserContext(), email, password)
	if err != nil {
		return h.handleAuthError(c, "sign-in", err)
	}

	remember := form.Get("remember") == "on"
	applyCookies(c, SessionCookies(resp.Session, remember, h.secure))
	log.Printf("[web] User %s signed in (remember=%t)", resp.UserID, remember)
	return c.Redirect("/tasks", fiber.StatusSeeOther)
}

// Signup handles POST /signup.
func (h *Handlers) Signup(c *fiber.Ctx) error {
	form, err := DecodeForm(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidForm)
	}

	input, errs := ValidateSignup(form)
	if len(errs) > 0 {
		return failValidation(c, errs)
	}

	resp, err := h.identity.SignUp(c.UserContext(), input.Email, input.Password)
	if err != nil {
		var authErr *identity.AuthError
		if errors.As(err, &authErr) && (authErr.Code == identity.CodeUserAlreadyExists || strings.Contains(authErr.Message, "already registered")) {
			return fail(c, fiber.StatusBadRequest, msgAccountExists)
		}
		return h.handleAuthError(c, "sign-up", err)
	}

	if resp.Session != nil {
		applyCookies(c, SessionCookies(*resp.Session, false, h.secure))
		return c.Redirect("/tasks", fiber.StatusSeeOther)
	}
	return c.JSON(SuccessResponse{Success: true, Message: msgCheckEmail})
}

// Confirm handles GET /auth/confirm, the link sent after sign-up when email
// confirmation is enabled.
func (h *Handlers) Confirm(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return fail(c, fiber.StatusBadRequest, msgConfirmTokenMissing)
	}

	tokens, err := h.identity.ConfirmEmail(c.UserContext(), token)
	if err != nil {
		return h.handleAuthError(c, "confirm-email", err)
	}

	applyCookies(c, SessionCookies(*tokens, false, h.secure))
	return c.Redirect("/tasks", fiber.StatusSeeOther)
}

// Logout handles the logout action. Sign-out failures are only logged; the
// cookies are always cleared.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	creds := credentialsFrom(c)
	if err := h.identity.SignOut(c.UserContext(), creds.AccessToken, creds.RefreshToken); err != nil {
		log.Printf("[web] Sign-out failed: %v", err)
	}
	applyCookies(c, ClearSessionCookies(h.secure))
	return c.Redirect("/login", fiber.StatusSeeOther)
}

// handleAuthError maps identity failures: rejections are the user's problem
// (400), anything else is the collaborator's (500).
func (h *Handlers) handleAuthError(c *fiber.Ctx, op string, err error) error {
	var authErr *identity.AuthError
	if errors.As(err, &authErr) {
		return fail(c, fiber.StatusBadRequest, authErr.Message)
	}
	log.Printf("[web] %s failed: %v", op, err)
	return fail(c, fiber.StatusInternalServerError, err.Error())
}
