package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()

	_, ok := Round(ctx)
	assert.False(t, ok)
	_, ok = Agent(ctx)
	assert.False(t, ok)
	_, ok = Purpose(ctx)
	assert.False(t, ok)

	ctx = WithPurpose(WithAgent(WithRound(ctx, 7), "alice"), "turn")

	round, ok := Round(ctx)
	assert.True(t, ok)
	assert.Equal(t, 7, round)
	agent, _ := Agent(ctx)
	assert.Equal(t, "alice", agent)
	purpose, _ := Purpose(ctx)
	assert.Equal(t, "turn", purpose)

	// 空字符串视为未设置
	_, ok = Agent(WithAgent(ctx, ""))
	assert.False(t, ok)
}
