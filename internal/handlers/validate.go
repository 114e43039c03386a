package handlers

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/identikit/apiserver/internal/apperr"
)

// Field constraints shared by signup and profile update.
const (
	minNameLength       = 3
	minPhoneLength      = 10
	minUsernameLength   = 3
	minPasswordLength   = 6
	minIdentifierLength = 3
)

// fieldErrors collects per-field validation messages. Validation never
// aborts early: clients get every failing field in one response.
type fieldErrors map[string]string

func (fe fieldErrors) requireMin(field, value string, min int) {
	value = strings.TrimSpace(value)
	if value == "" {
		fe[field] = fmt.Sprintf("%s is required", capitalize(field))
		return
	}
	if len(value) < min {
		fe[field] = fmt.Sprintf("%s must be at least %d characters", capitalize(field), min)
	}
}

func (fe fieldErrors) requireEmail(field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		fe[field] = fmt.Sprintf("%s is required", capitalize(field))
		return
	}
	fe.checkEmail(field, value)
}

// optionalMin validates a field only when it is present; an empty string
// counts as absent.
func (fe fieldErrors) optionalMin(field string, value *string, min int) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return
	}
	if len(strings.TrimSpace(*value)) < min {
		fe[field] = fmt.Sprintf("%s must be at least %d characters", capitalize(field), min)
	}
}

func (fe fieldErrors) optionalEmail(field string, value *string) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return
	}
	fe.checkEmail(field, strings.TrimSpace(*value))
}

func (fe fieldErrors) checkEmail(field, value string) {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		fe[field] = fmt.Sprintf("%s must be a valid email address", capitalize(field))
	}
}

// err returns a classified validation error when any field failed.
func (fe fieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return apperr.Validation("Validation failed", fe)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
