package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrConnection, "dial failed").
		WithCause(root).
		WithRetryable(true).
		WithAgent("alice").
		WithEndpoint("deepseek")

	assert.Equal(t, ErrConnection, GetErrorCode(err))
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, root)
	assert.Equal(t, "alice", err.Agent)
	assert.Equal(t, "deepseek", err.Endpoint)
	assert.Contains(t, err.Error(), "CONNECTION_ERROR")
	assert.Contains(t, err.Error(), "root")
}

func TestError_WrappedLookup(t *testing.T) {
	t.Parallel()

	inner := Errorf(ErrUnknownChannel, "channel %q does not exist", "ops")
	wrapped := fmt.Errorf("set permissions: %w", inner)

	assert.Equal(t, ErrUnknownChannel, GetErrorCode(wrapped))
	assert.True(t, IsErrorCode(wrapped, ErrUnknownChannel))
	assert.False(t, IsErrorCode(wrapped, ErrNotMember))
	assert.False(t, IsRetryable(wrapped))

	e, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, `[UNKNOWN_CHANNEL] channel "ops" does not exist`, e.Error())
}

func TestError_PlainErrors(t *testing.T) {
	t.Parallel()

	plain := errors.New("boom")
	assert.Equal(t, ErrorCode(""), GetErrorCode(plain))
	assert.False(t, IsErrorCode(nil, ErrResponse))
	assert.False(t, IsRetryable(plain))
}
