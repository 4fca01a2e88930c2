package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorString(t *testing.T) {
	withCause := &AppError{Code: "INTERNAL_ERROR", Message: "store failed", Err: errors.New("conn lost")}
	assert.Equal(t, "INTERNAL_ERROR: store failed: conn lost", withCause.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "wishlist not found"}
	assert.Equal(t, "NOT_FOUND: wishlist not found", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
		message  string
	}{
		{"not found", NotFound("wishlist", "a@x.com#gifts"), "NOT_FOUND", http.StatusNotFound, ErrNotFound,
			"wishlist with id a@x.com#gifts not found"},
		{"already exists", AlreadyExists("wishlist", "key", "a@x.com#gifts"), "ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists,
			`wishlist with key "a@x.com#gifts" already exists`},
		{"invalid input", InvalidInput("user email is required"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput,
			"user email is required"},
		{"conflict", Conflict("wishlist modified concurrently"), "CONFLICT", http.StatusConflict, ErrConflict,
			"wishlist modified concurrently"},
		{"transport", Transport("user", nil), "UPSTREAM_ERROR", http.StatusBadGateway, ErrTransport,
			"user service unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.message, tt.err.Message)
			assert.ErrorIs(t, fmt.Errorf("outer: %w", tt.err), tt.sentinel)
		})
	}
}

func TestTransport_ChainsSentinelAndCause(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:9: connection refused")
	err := Transport("product", cause)

	assert.Equal(t, "product service unavailable", err.Message)
	assert.Contains(t, err.Error(), "dial tcp 127.0.0.1:9")
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsNotFound(err))
}

func TestTransport_MessageHidesUpstreamAddress(t *testing.T) {
	cause := errors.New("GET http://users:8006/api/v1/users/a@x.com: dial tcp 10.0.0.7:8006: connection refused")

	tests := []struct {
		name    string
		err     *AppError
		message string
	}{
		{"transport", Transport("user", cause), "user service unavailable"},
		{"status", TransportStatus("user", http.StatusServiceUnavailable, cause), "user service returned status 503"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Message)
			assert.NotContains(t, tt.err.Message, "users:8006")
			assert.Equal(t, http.StatusBadGateway, tt.err.Status)
			assert.ErrorIs(t, tt.err, cause)
			assert.Contains(t, tt.err.Error(), "users:8006")
		})
	}
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("panic: nil map")
	err := Internal(cause)

	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "an internal error occurred", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("get: %w", NotFound("wishlist", "k"))))
	assert.True(t, IsNotFound(ErrNotFound))
	assert.False(t, IsNotFound(ErrConflict))
	assert.False(t, IsNotFound(nil))
}

func TestClassify_ReturnsAppErrorInChain(t *testing.T) {
	appErr := NotFound("product", "p1")
	got := Classify(fmt.Errorf("add product: %w", appErr))
	assert.Same(t, appErr, got)
}

func TestClassify_Sentinels(t *testing.T) {
	tests := []struct {
		err     error
		code    string
		status  int
		message string
	}{
		{ErrNotFound, "NOT_FOUND", http.StatusNotFound, "resource not found"},
		{fmt.Errorf("lookup: %w", ErrAlreadyExists), "ALREADY_EXISTS", http.StatusConflict, "resource already exists"},
		{fmt.Errorf("append: %w", ErrConflict), "CONFLICT", http.StatusConflict, "append: conflict"},
		{fmt.Errorf("enrich: %w", ErrTransport), "UPSTREAM_ERROR", http.StatusBadGateway, "upstream service unavailable"},
		{fmt.Errorf("page: %w", ErrInvalidInput), "INVALID_INPUT", http.StatusBadRequest, "page: invalid input"},
		{errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError, "an internal error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.message, got.Message)
			assert.ErrorIs(t, got, tt.err)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}
