package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorMessage(t *testing.T) {
	err := NewDomainError(ErrorTypeExternal, "embedding provider error", errors.New("timeout"))
	assert.Equal(t, "external: embedding provider error (timeout)", err.Error())

	bare := NewDomainError(ErrorTypeValidation, "invalid input", nil)
	assert.Equal(t, "validation: invalid input", bare.Error())
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := WrapExternal("provider failed", cause)

	assert.ErrorIs(t, err, cause)
}

func TestDomainErrorIsMatchesOnType(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "some message", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestErrorTypePredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
	}{
		{name: "validation", err: ErrEmptyQuestion, predicate: IsValidationError},
		{name: "unauthorized", err: ErrInvalidToken, predicate: IsUnauthorizedError},
		{name: "internal", err: ErrDatabaseError, predicate: IsInternalError},
		{name: "external", err: ErrGenerationFailed, predicate: IsExternalError},
		{name: "not found", err: NewDomainError(ErrorTypeNotFound, "missing", nil), predicate: IsNotFoundError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.predicate(tt.err))
		})
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("request failed: %w", WrapExternal("provider down", nil))
	assert.True(t, IsExternalError(err))
	assert.False(t, IsInternalError(err))
}

func TestPredicatesRejectPlainErrors(t *testing.T) {
	err := errors.New("plain")
	assert.False(t, IsValidationError(err))
	assert.False(t, IsExternalError(err))
	assert.Equal(t, ErrorType(""), GetErrorType(err))
}

func TestWithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "k out of range", nil).WithDetail("k", 0)

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, 0, details["k"])
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeExternal, GetErrorType(ErrEmbeddingFailed))
	assert.Equal(t, ErrorTypeInternal, GetErrorType(WrapInternal("db", nil)))
}
