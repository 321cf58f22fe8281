package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrConfiguration  ErrorType = "CONFIGURATION_ERROR"
	ErrValidation     ErrorType = "VALIDATION_ERROR"
	ErrRefreshFailed  ErrorType = "REFRESH_FAILED"
	ErrInvalidRequest ErrorType = "INVALID_REQUEST"
	ErrInternal       ErrorType = "INTERNAL_ERROR"
	ErrNotFound       ErrorType = "NOT_FOUND"
	ErrUpstream       ErrorType = "UPSTREAM_ERROR"
	ErrReadOnly       ErrorType = "READ_ONLY"
	ErrRiskRejected   ErrorType = "RISK_REJECTED"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError of the same type, so callers can write
// errors.Is(err, apperrors.Configuration).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.Message == ""
}

// Sentinels for errors.Is.
var (
	Configuration = &AppError{Type: ErrConfiguration}
	Validation    = &AppError{Type: ErrValidation}
	RefreshFailed = &AppError{Type: ErrRefreshFailed}
)

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewConfiguration(msg string) *AppError {
	return New(ErrConfiguration, msg, nil)
}

func NewValidation(format string, args ...any) *AppError {
	return New(ErrValidation, fmt.Sprintf(format, args...), nil)
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrValidation, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrRefreshFailed:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUpstream:
		return http.StatusBadGateway
	case ErrReadOnly:
		return http.StatusForbidden
	case ErrRiskRejected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrConfiguration:
		return "Check grvt.api_key and grvt.private_key."
	case ErrValidation:
		return "Check numeric precision against instrument decimals."
	case ErrRefreshFailed:
		return "Retry the request; the session will be refreshed."
	default:
		return ""
	}
}

// ExchangeError is the structured error body returned by the GRVT API.
type ExchangeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("grvt error code=%d status=%d: %s", e.Code, e.Status, e.Message)
}

// InternalServerError is the fallback used when the exchange response
// cannot be interpreted.
func InternalServerError() *ExchangeError {
	return &ExchangeError{
		Code:    http.StatusInternalServerError,
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}
}
