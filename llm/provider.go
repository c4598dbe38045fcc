package llm

import (
	"context"
	"time"

	"github.com/OTFiles/CosmoSynthAI/types"
)

// ChatRequest 是发送给补全端点的一次请求
type ChatRequest struct {
	Model       string          `json:"model"`
	Messages    []types.Message `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float32         `json:"temperature,omitempty"`
}

// ChatResponse 是一次非流式补全的结果
type ChatResponse struct {
	ID           string    `json:"id,omitempty"`
	Model        string    `json:"model,omitempty"`
	Content      string    `json:"content"`
	FinishReason string    `json:"finish_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// StreamChunk 是流式补全中的一个增量片段
type StreamChunk struct {
	Content      string `json:"content,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	Err          error  `json:"-"`
}

// Provider 是一个补全后端
type Provider interface {
	// Name 返回后端名称
	Name() string

	// Completion 执行非流式补全
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Stream 执行流式补全，通道在结束或出错后关闭
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)
}

// Completer 是对话运行时依赖的补全服务契约：
// 给定有序的带角色消息和端点名，返回完整的回复文本。
type Completer interface {
	Complete(ctx context.Context, messages []types.Message, endpoint string) (string, error)
}

// CompleterFunc 将函数适配为 Completer
type CompleterFunc func(ctx context.Context, messages []types.Message, endpoint string) (string, error)

// Complete 实现 Completer
func (f CompleterFunc) Complete(ctx context.Context, messages []types.Message, endpoint string) (string, error) {
	return f(ctx, messages, endpoint)
}
