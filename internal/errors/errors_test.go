package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "queue not found", New(ErrCodeNotFound, "queue not found").Error())

	wrapped := Wrap(errors.New("disk full"), ErrCodeUnavailable, "write spool")
	assert.Equal(t, "write spool: disk full", wrapped.Error())
}

func TestWrap_NilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "x"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "x %d", 1))
}

func TestIsHelpers_SeeThroughWrapping(t *testing.T) {
	cause := errors.New("cause")
	err := fmt.Errorf("outer: %w", Wrap(cause, ErrCodeConflict, "dup"))

	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
	require.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeConflict, GetCode(err))
}

func TestValidationField(t *testing.T) {
	err := ValidationField("policy", "unknown policy")
	assert.True(t, IsValidation(err))
	assert.Equal(t, "policy", GetField(err))
}

func TestGetCode_NonAppError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
	assert.Empty(t, GetField(errors.New("plain")))
}
