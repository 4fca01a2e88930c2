package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")
	ErrTransport     = errors.New("upstream transport failure")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Conflict creates a 409 error for a concurrent modification.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Transport creates a 502 error for a collaborator call that could not be
// completed. Message names only the service; the cause stays in Err for logs,
// and both it and ErrTransport are reachable through errors.Is.
func Transport(service string, cause error) *AppError {
	return &AppError{
		Code:    "UPSTREAM_ERROR",
		Message: fmt.Sprintf("%s service unavailable", service),
		Status:  http.StatusBadGateway,
		Err:     &transportCause{cause: cause},
	}
}

// TransportStatus is Transport for a collaborator that answered with an
// unexpected HTTP status.
func TransportStatus(service string, status int, cause error) *AppError {
	appErr := Transport(service, cause)
	appErr.Message = fmt.Sprintf("%s service returned status %d", service, status)
	return appErr
}

// transportCause chains ErrTransport in front of the original cause.
type transportCause struct {
	cause error
}

func (t *transportCause) Error() string {
	if t.cause == nil {
		return ErrTransport.Error()
	}
	return ErrTransport.Error() + ": " + t.cause.Error()
}

func (t *transportCause) Unwrap() []error {
	if t.cause == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, t.cause}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// IsNotFound reports whether err is, or wraps, a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// sentinelKinds maps bare sentinels to their client-facing shape. exposeCause
// sends err.Error() to the client; otherwise message is used.
var sentinelKinds = []struct {
	target      error
	code        string
	status      int
	message     string
	exposeCause bool
}{
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound, "resource not found", false},
	{ErrAlreadyExists, "ALREADY_EXISTS", http.StatusConflict, "resource already exists", false},
	{ErrConflict, "CONFLICT", http.StatusConflict, "", true},
	{ErrTransport, "UPSTREAM_ERROR", http.StatusBadGateway, "upstream service unavailable", false},
	{ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest, "", true},
}

// Classify returns the AppError in err's chain, or builds one from the first
// sentinel err wraps. Anything else is Internal.
func Classify(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, k := range sentinelKinds {
		if !errors.Is(err, k.target) {
			continue
		}
		msg := k.message
		if k.exposeCause {
			msg = err.Error()
		}
		return &AppError{Code: k.code, Message: msg, Status: k.status, Err: err}
	}
	return Internal(err)
}

// HTTPStatus returns the HTTP status code Classify assigns to err.
func HTTPStatus(err error) int {
	return Classify(err).Status
}
