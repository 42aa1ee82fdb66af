package errors

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lapublica/leadgen/pkg/domain"
	"github.com/lapublica/leadgen/pkg/models"
)

// statusFor maps domain error codes to HTTP statuses.
func statusFor(code string) int {
	switch code {
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeInvalidState, domain.ErrCodeConflict:
		return http.StatusConflict
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeForbidden:
		return http.StatusForbidden
	case domain.ErrCodeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes a domain error as the standard envelope.
func Respond(c echo.Context, err error) error {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return c.JSON(statusFor(domainErr.Code), models.Envelope{
			Success: false,
			Error:   domainErr.Message,
		})
	}

	return c.JSON(http.StatusInternalServerError, models.Envelope{
		Success: false,
		Error:   "Internal server error",
	})
}

// BadRequest writes a 400 envelope with the given message.
func BadRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, models.Envelope{
		Success: false,
		Error:   message,
	})
}
