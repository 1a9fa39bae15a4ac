package handler

import (
	"github.com/etiya/crm-client/internal/core/validation"
)

// echoValidator adapts the shared validator so Echo can call c.Validate(req).
// Failures wrap domain.ErrValidationFailed.
type echoValidator struct{}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	return &echoValidator{}
}

// Validate satisfies the echo.Validator interface.
func (echoValidator) Validate(i any) error {
	return validation.Struct(i)
}
