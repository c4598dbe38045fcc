package mocks

import (
	"context"
	"sync"

	"github.com/OTFiles/CosmoSynthAI/types"
)

// CompleterCall 记录一次补全调用
type CompleterCall struct {
	Endpoint string
	Messages []types.Message
}

// Reply 是一条脚本化的回复
type Reply struct {
	Text string
	Err  error
}

// MockCompleter 是 llm.Completer 的模拟实现。
// 回复按端点排队；某端点的队列耗尽后返回默认回复。
type MockCompleter struct {
	mu sync.Mutex

	queues   map[string][]Reply
	fallback Reply
	fn       func(ctx context.Context, messages []types.Message, endpoint string) (string, error)
	calls    []CompleterCall
}

// NewMockCompleter 创建新的 MockCompleter
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{
		queues:   make(map[string][]Reply),
		fallback: Reply{Text: "ok"},
	}
}

// Script 为端点追加依次返回的回复文本
func (m *MockCompleter) Script(endpoint string, texts ...string) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range texts {
		m.queues[endpoint] = append(m.queues[endpoint], Reply{Text: t})
	}
	return m
}

// Fail 为端点追加一次失败
func (m *MockCompleter) Fail(endpoint string, err error) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[endpoint] = append(m.queues[endpoint], Reply{Err: err})
	return m
}

// WithFunc 设置自定义回复函数，优先于脚本
func (m *MockCompleter) WithFunc(fn func(ctx context.Context, messages []types.Message, endpoint string) (string, error)) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
	return m
}

// Complete 实现 llm.Completer
func (m *MockCompleter) Complete(ctx context.Context, messages []types.Message, endpoint string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, CompleterCall{Endpoint: endpoint, Messages: types.CloneMessages(messages)})
	fn := m.fn
	reply := m.fallback
	if q := m.queues[endpoint]; len(q) > 0 {
		reply = q[0]
		m.queues[endpoint] = q[1:]
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fn != nil {
		return fn(ctx, messages, endpoint)
	}
	return reply.Text, reply.Err
}

// Calls 返回所有调用记录
func (m *MockCompleter) Calls() []CompleterCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompleterCall(nil), m.calls...)
}

// CallsTo 返回发往指定端点的调用记录
func (m *MockCompleter) CallsTo(endpoint string) []CompleterCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []CompleterCall
	for _, c := range m.calls {
		if c.Endpoint == endpoint {
			out = append(out, c)
		}
	}
	return out
}

// CallCount 返回调用次数
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
