package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	roundKey   contextKey = "round"
	agentKey   contextKey = "agent"
	purposeKey contextKey = "purpose"
)

// WithRound 设置当前回合号
func WithRound(ctx context.Context, round int) context.Context {
	return context.WithValue(ctx, roundKey, round)
}

// Round 获取回合号
func Round(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(roundKey).(int)
	return v, ok
}

// WithAgent 设置发起补全的 agent
func WithAgent(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, agentKey, agent)
}

// Agent 获取 agent id
func Agent(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(agentKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithPurpose 设置补全用途（turn、moderation、regeneration）
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// Purpose 获取补全用途
func Purpose(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(purposeKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
