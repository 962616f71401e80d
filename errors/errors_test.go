package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.class.String())
	}
}

func TestClassifiedError_Unwrap(t *testing.T) {
	base := errors.New("base failure")
	wrapped := WrapTransient(base, "Engine", "List", "select")

	require.Error(t, wrapped)
	assert.ErrorIs(t, wrapped, base)

	var ce *ClassifiedError
	require.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, ErrorTransient, ce.Class)
	assert.Equal(t, "Engine", ce.Component)
	assert.Equal(t, "List", ce.Operation)
}

func TestWrap_Format(t *testing.T) {
	err := Wrap(errors.New("boom"), "Engine", "Create", "insert statement")
	require.Error(t, err)
	assert.Equal(t, "Engine.Create: insert statement failed: boom", err.Error())
}

func TestWrap_NilPassthrough(t *testing.T) {
	assert.NoError(t, Wrap(nil, "a", "b", "c"))
	assert.NoError(t, WrapTransient(nil, "a", "b", "c"))
	assert.NoError(t, WrapInvalid(nil, "a", "b", "c"))
	assert.NoError(t, WrapFatal(nil, "a", "b", "c"))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"backend unavailable", ErrBackendUnavailable, true},
		{"context deadline", context.DeadlineExceeded, true},
		{"classified transient", WrapTransient(errors.New("x"), "c", "m", "a"), true},
		{"classified invalid", WrapInvalid(errors.New("x"), "c", "m", "a"), false},
		{"timeout pattern", errors.New("request timeout while waiting"), true},
		{"plain domain error", errors.New("field missing"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTransient(tt.err))
		})
	}
}

func TestIsInvalid_Taxonomy(t *testing.T) {
	assert.True(t, IsInvalid(ErrInvalidIdentifier))
	assert.True(t, IsInvalid(ErrInvalidFieldValue))
	assert.True(t, IsInvalid(ErrNoInputSupplied))
	assert.True(t, IsInvalid(ErrDuplicateEntity))
	assert.False(t, IsInvalid(ErrBackendUnavailable))
}

func TestIsFatal_ConfigurationErrors(t *testing.T) {
	assert.True(t, IsFatal(ErrUnknownEntityType))
	assert.True(t, IsFatal(ErrUnknownField))
	assert.True(t, IsFatal(ErrMissingConfig))
	assert.False(t, IsFatal(ErrNotFound))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorInvalid, Classify(ErrDuplicateEntity))
	assert.Equal(t, ErrorFatal, Classify(ErrInvalidConfig))
	assert.Equal(t, ErrorTransient, Classify(ErrBackendUnavailable))
	// Unknown errors default to transient so callers may retry
	assert.Equal(t, ErrorTransient, Classify(errors.New("mystery")))
}

func TestNotFound(t *testing.T) {
	err := NotFound("Engine", "GetByID", "risk--abc123")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsInvalid(err))
	assert.Contains(t, err.Error(), "risk--abc123")
}

func TestNotFound_WrappedFurther(t *testing.T) {
	err := fmt.Errorf("resolving reference field: %w", NotFound("Engine", "Edit", "label--x"))
	assert.True(t, IsNotFound(err))
}
