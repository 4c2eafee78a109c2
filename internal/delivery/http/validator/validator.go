// Package validator adapts go-playground/validator to echo's Validator
// interface so handlers can call c.Validate on bound request bodies.
package validator

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator wraps the go-playground validator instance.
type CustomValidator struct {
	validator *validator.Validate
}

// New creates the validator echo uses for request body validation.
func New() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator.
func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return nil
}
