// Package validation wraps go-playground/validator with the CRM payload
// rules and turns rejections into domain.ErrValidationFailed.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/etiya/crm-client/internal/core/domain"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the custom tags registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("taskstatus", func(fl validator.FieldLevel) bool {
			return domain.TaskStatus(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return domain.Role(fl.Field().String()).Valid()
		})
		instance = v
	})
	return instance
}

// Struct validates i and returns an error wrapping domain.ErrValidationFailed
// whose message lists every failing field.
func Struct(i any) error {
	err := Validator().Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fieldError(fe))
		}
		return fmt.Errorf("%w: %s", domain.ErrValidationFailed, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
}

func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "taskstatus":
		return field + " must be one of: PENDING IN_PROGRESS COMPLETED"
	case "role":
		return field + " must be one of: ADMIN USER"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
