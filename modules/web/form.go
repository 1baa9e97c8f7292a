package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ErrInvalidForm is returned when a request body cannot be decoded.
var ErrInvalidForm = errors.New("invalid form data")

// Form holds submitted field values and remembers which fields were sent,
// so an absent field can be told apart from one sent empty.
type Form struct {
	values map[string]string
}

// NewForm builds a Form from a map of present fields.
func NewForm(values map[string]string) Form {
	if values == nil {
		values = map[string]string{}
	}
	return Form{values: values}
}

// Get returns the value of a field, or "" when absent.
func (f Form) Get(name string) string {
	return f.values[name]
}

// Lookup returns the value of a field and whether it was sent.
func (f Form) Lookup(name string) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

// DecodeForm reads url-encoded, multipart or JSON bodies. Only the first
// value of a repeated field is kept.
func DecodeForm(c *fiber.Ctx) (Form, error) {
	values := map[string]string{}
	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))

	switch {
	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		mf, err := c.MultipartForm()
		if err != nil {
			return Form{}, fmt.Errorf("%w: %v", ErrInvalidForm, err)
		}
		for name, vs := range mf.Value {
			if len(vs) > 0 {
				values[name] = vs[0]
			}
		}

	case strings.HasPrefix(contentType, fiber.MIMEApplicationJSON):
		if len(c.Body()) == 0 {
			break
		}
		var raw map[string]any
		if err := json.Unmarshal(c.Body(), &raw); err != nil {
			return Form{}, fmt.Errorf("%w: %v", ErrInvalidForm, err)
		}
		for name, v := range raw {
			switch val := v.(type) {
			case nil:
			case string:
				values[name] = val
			case bool:
				if val {
					values[name] = "on"
				}
			default:
				values[name] = fmt.Sprint(val)
			}
		}

	default:
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			name := string(key)
			if _, seen := values[name]; !seen {
				values[name] = string(value)
			}
		})
	}

	return NewForm(values), nil
}
