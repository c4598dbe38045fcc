package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OTFiles/CosmoSynthAI/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*Breaker, *fakeClock, *[]State) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	var transitions []State
	b := New(Config{
		Threshold:    threshold,
		ResetTimeout: time.Minute,
		OnStateChange: func(_, to State) {
			transitions = append(transitions, to)
		},
	}, zap.NewNop())
	b.now = clock.now
	return b, clock, &transitions
}

func transportErr(context.Context) error {
	return types.NewError(types.ErrConnection, "refused").WithRetryable(true)
}

func ok(context.Context) error { return nil }

func TestNew_Defaults(t *testing.T) {
	b := New(Config{}, nil)
	assert.Equal(t, 5, b.config.Threshold)
	assert.Equal(t, 60*time.Second, b.config.ResetTimeout)
	assert.Equal(t, 1, b.config.HalfOpenMaxCalls)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _, transitions := newTestBreaker(2)
	ctx := context.Background()

	_ = b.Call(ctx, transportErr)
	assert.Equal(t, StateClosed, b.State())
	_ = b.Call(ctx, transportErr)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Call(ctx, func(context.Context) error { called = true; return nil })
	require.Error(t, err)
	assert.False(t, called, "open breaker must not call through")
	assert.Equal(t, types.ErrConnection, types.GetErrorCode(err))
	assert.False(t, types.IsRetryable(err))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, []State{StateOpen}, *transitions)
}

func TestBreaker_NonTransportErrorsDoNotTrip(t *testing.T) {
	b, _, _ := newTestBreaker(1)
	respErr := types.NewError(types.ErrResponse, "status 400")

	for i := 0; i < 3; i++ {
		err := b.Call(context.Background(), func(context.Context) error { return respErr })
		assert.Same(t, respErr, err)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _, _ := newTestBreaker(2)
	ctx := context.Background()

	_ = b.Call(ctx, transportErr)
	require.NoError(t, b.Call(ctx, ok))
	_ = b.Call(ctx, transportErr)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b, clock, transitions := newTestBreaker(1)
	ctx := context.Background()

	_ = b.Call(ctx, transportErr)
	require.Equal(t, StateOpen, b.State())

	clock.advance(2 * time.Minute)
	require.NoError(t, b.Call(ctx, ok))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, *transitions)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock, _ := newTestBreaker(1)
	ctx := context.Background()

	_ = b.Call(ctx, transportErr)
	clock.advance(2 * time.Minute)
	_ = b.Call(ctx, transportErr)
	assert.Equal(t, StateOpen, b.State())

	err := b.Call(ctx, ok)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
}

func TestBreaker_Reset(t *testing.T) {
	b, _, _ := newTestBreaker(1)
	_ = b.Call(context.Background(), transportErr)
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.NoError(t, b.Call(context.Background(), ok))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Closed", StateClosed.String())
	assert.Equal(t, "Open", StateOpen.String())
	assert.Equal(t, "HalfOpen", StateHalfOpen.String())
	assert.Equal(t, "Unknown", State(9).String())
}
