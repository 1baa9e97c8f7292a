package web

import (
	"regexp"
	"strings"
	"unicode/utf8"

	domain "github.com/example/task-tracker/domain/task"
)

// FieldErrors maps a form field to a human-readable message.
type FieldErrors map[string]string

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 6

// Validation messages.
const (
	msgInvalidEmail       = "Please enter a valid email address"
	msgPasswordTooShort   = "Password must be at least 6 characters long"
	msgPasswordWeak       = "Password must contain at least one uppercase letter, one lowercase letter, and one number"
	msgPasswordMismatch   = "Passwords do not match"
	msgTitleRequired      = "Title is required"
	msgTitleTooLong       = "Title must be 100 characters or less"
	msgDescriptionTooLong = "Description must be 500 characters or less"
	msgPriorityRequired   = "Priority is required"
	msgPriorityInvalid    = "Priority must be Low, Medium, or High"
	msgDueDateRequired    = "Due date is required"
	msgStatusInvalid      = "Status must be Pending, In Progress, or Completed"
)

// SignupInput is a validated sign-up form.
type SignupInput struct {
	Email    string
	Password string
}

// ValidateSignup checks every sign-up rule and reports all failures at once.
func ValidateSignup(form Form) (SignupInput, FieldErrors) {
	errs := FieldErrors{}
	email := form.Get("email")
	password := form.Get("password")

	if !emailPattern.MatchString(email) {
		errs["email"] = msgInvalidEmail
	}

	if utf8.RuneCountInString(password) < minPasswordLength {
		errs["password"] = msgPasswordTooShort
	} else if !hasPasswordClasses(password) {
		errs["password"] = msgPasswordWeak
	}

	if form.Get("confirmPassword") != password {
		errs["confirmPassword"] = msgPasswordMismatch
	}

	return SignupInput{Email: email, Password: password}, errs
}

func hasPasswordClasses(password string) bool {
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && lower && digit
}

// ValidateTaskCreate produces a Draft from a create form. Status defaults
// to Pending when not sent.
func ValidateTaskCreate(form Form) (domain.Draft, FieldErrors) {
	errs := FieldErrors{}
	var draft domain.Draft

	draft.Title = strings.TrimSpace(form.Get("title"))
	switch {
	case draft.Title == "":
		errs["title"] = msgTitleRequired
	case utf8.RuneCountInString(draft.Title) > domain.MaxTitleLength:
		errs["title"] = msgTitleTooLong
	}

	if description := strings.TrimSpace(form.Get("description")); description != "" {
		if utf8.RuneCountInString(description) > domain.MaxDescriptionLength {
			errs["description"] = msgDescriptionTooLong
		}
		draft.Description = &description
	}

	draft.Priority = domain.Priority(form.Get("priority"))
	switch {
	case draft.Priority == "":
		errs["priority"] = msgPriorityRequired
	case !draft.Priority.Valid():
		errs["priority"] = msgPriorityInvalid
	}

	draft.DueDate = strings.TrimSpace(form.Get("due_date"))
	if draft.DueDate == "" {
		errs["due_date"] = msgDueDateRequired
	}

	draft.Status = domain.StatusPending
	if status := form.Get("status"); status != "" {
		draft.Status = domain.Status(status)
		if !draft.Status.Valid() {
			errs["status"] = msgStatusInvalid
		}
	}

	return draft, errs
}

// ValidateTaskUpdate produces a Patch holding only the fields that were
// sent. A sent-but-empty description clears it. Empty priority, due_date
// and status count as not sent.
func ValidateTaskUpdate(form Form) (domain.Patch, FieldErrors) {
	errs := FieldErrors{}
	var patch domain.Patch

	if title, ok := form.Lookup("title"); ok {
		title = strings.TrimSpace(title)
		switch {
		case title == "":
			errs["title"] = msgTitleRequired
		case utf8.RuneCountInString(title) > domain.MaxTitleLength:
			errs["title"] = msgTitleTooLong
		}
		patch.Title = &title
	}

	if description, ok := form.Lookup("description"); ok {
		description = strings.TrimSpace(description)
		if utf8.RuneCountInString(description) > domain.MaxDescriptionLength {
			errs["description"] = msgDescriptionTooLong
		}
		patch.Description = &description
	}

	if priority := form.Get("priority"); priority != "" {
		p := domain.Priority(priority)
		if !p.Valid() {
			errs["priority"] = msgPriorityInvalid
		}
		patch.Priority = &p
	}

	if dueDate := strings.TrimSpace(form.Get("due_date")); dueDate != "" {
		patch.DueDate = &dueDate
	}

	if status := form.Get("status"); status != "" {
		s := domain.Status(status)
		if !s.Valid() {
			errs["status"] = msgStatusInvalid
		}
		patch.Status = &s
	}

	return patch, errs
}
