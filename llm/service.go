package llm

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/OTFiles/CosmoSynthAI/internal/ctxkeys"
	"github.com/OTFiles/CosmoSynthAI/llm/circuitbreaker"
	"github.com/OTFiles/CosmoSynthAI/llm/retry"
	"github.com/OTFiles/CosmoSynthAI/types"
	"go.uber.org/zap"
)

// Mode 决定端点使用流式还是阻塞式请求
type Mode string

const (
	ModeStream   Mode = "stream"
	ModeBlocking Mode = "blocking"
)

// Endpoint 是端点目录中的一项
type Endpoint struct {
	Name       string
	Provider   Provider
	Model      string
	Mode       Mode
	MaxRetries int
}

// ServiceConfig 配置补全服务
type ServiceConfig struct {
	// MemoryWindow 发送时保留的非 system 消息条数
	MemoryWindow int
	// MaxMessageLength 单条 user 消息的最大字符数
	MaxMessageLength int
	// Timeout 单次 Complete（含重试）的总超时，0 表示不限
	Timeout time.Duration
	// Retry 退避参数；MaxRetries 由各端点覆盖
	Retry retry.Policy
	// Breaker 每个端点一个熔断器，nil 表示不启用
	Breaker *circuitbreaker.Config
}

// DefaultServiceConfig 返回默认配置
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MemoryWindow:     10,
		MaxMessageLength: 5000,
		Timeout:          2 * time.Minute,
		Retry:            retry.DefaultPolicy(),
	}
}

type endpointEntry struct {
	Endpoint
	retryer *retry.Retryer
	breaker *circuitbreaker.Breaker
}

// Service 按端点名分发补全请求，负责消息窗口、截断、重试与熔断。
// Service 可并发使用。
type Service struct {
	cfg    ServiceConfig
	logger *zap.Logger

	mu        sync.RWMutex
	endpoints map[string]*endpointEntry
}

// NewService 创建补全服务
func NewService(cfg ServiceConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "completion")),
		endpoints: make(map[string]*endpointEntry),
	}
}

// Register 向目录中添加端点
func (s *Service) Register(ep Endpoint) error {
	if ep.Name == "" || ep.Provider == nil {
		return types.NewError(types.ErrConfigInvalid, "endpoint needs a name and a provider")
	}
	if ep.Mode == "" {
		ep.Mode = ModeStream
	}
	if ep.Mode != ModeStream && ep.Mode != ModeBlocking {
		return types.Errorf(types.ErrConfigInvalid, "endpoint %q has unknown mode %q", ep.Name, ep.Mode)
	}

	policy := s.cfg.Retry
	policy.MaxRetries = ep.MaxRetries
	entry := &endpointEntry{
		Endpoint: ep,
		retryer:  retry.New(policy, s.logger.With(zap.String("endpoint", ep.Name))),
	}
	if s.cfg.Breaker != nil {
		entry.breaker = circuitbreaker.New(*s.cfg.Breaker, s.logger.With(zap.String("endpoint", ep.Name)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.endpoints[ep.Name]; dup {
		return types.Errorf(types.ErrConfigInvalid, "duplicate endpoint %q", ep.Name)
	}
	s.endpoints[ep.Name] = entry
	return nil
}

// Endpoints 返回已注册的端点名（排序）
func (s *Service) Endpoints() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.endpoints))
	for name := range s.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Complete 实现 Completer
func (s *Service) Complete(ctx context.Context, messages []types.Message, endpoint string) (string, error) {
	s.mu.RLock()
	ep, ok := s.endpoints[endpoint]
	s.mu.RUnlock()
	if !ok {
		return "", types.Errorf(types.ErrUnknownEndpoint, "endpoint %q is not configured", endpoint).WithEndpoint(endpoint)
	}
	if len(messages) == 0 {
		return "", types.NewError(types.ErrResponse, "no messages to send").WithEndpoint(endpoint)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	req := &ChatRequest{
		Model:    ep.Model,
		Messages: PrepareMessages(messages, s.cfg.MemoryWindow, s.cfg.MaxMessageLength),
	}

	text, err := retry.Do(ctx, ep.retryer, func(ctx context.Context) (string, error) {
		if ep.breaker == nil {
			return s.once(ctx, ep, req)
		}
		var out string
		err := ep.breaker.Call(ctx, func(ctx context.Context) error {
			var err error
			out, err = s.once(ctx, ep, req)
			return err
		})
		return out, err
	})
	if err != nil {
		if te, ok := types.AsError(err); ok && te.Endpoint == "" {
			te.Endpoint = endpoint
		}
		s.logger.Debug("completion failed", append(contextFields(ctx), zap.String("endpoint", endpoint), zap.Error(err))...)
		return "", err
	}
	return text, nil
}

// contextFields 从 ctx 中取出回合、agent 与用途作为日志字段
func contextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if round, ok := ctxkeys.Round(ctx); ok {
		fields = append(fields, zap.Int("round", round))
	}
	if agent, ok := ctxkeys.Agent(ctx); ok {
		fields = append(fields, zap.String("agent", agent))
	}
	if purpose, ok := ctxkeys.Purpose(ctx); ok {
		fields = append(fields, zap.String("purpose", purpose))
	}
	return fields
}

func (s *Service) once(ctx context.Context, ep *endpointEntry, req *ChatRequest) (string, error) {
	var text string
	switch ep.Mode {
	case ModeBlocking:
		resp, err := ep.Provider.Completion(ctx, req)
		if err != nil {
			return "", err
		}
		text = resp.Content
	default:
		chunks, err := ep.Provider.Stream(ctx, req)
		if err != nil {
			return "", err
		}
		text, err = CollectStream(ctx, chunks)
		if err != nil {
			return "", err
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", types.NewError(types.ErrResponse, "completion returned no text")
	}
	return text, nil
}

// CollectStream 拼接流式片段为完整文本。通道中出现错误时返回该错误；
// ctx 在流结束前被取消时返回 CONNECTION_ERROR。
func CollectStream(ctx context.Context, chunks <-chan StreamChunk) (string, error) {
	var b strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			// 排空通道，让生产者退出
			go func() {
				for range chunks {
				}
			}()
			return "", chunk.Err
		}
		b.WriteString(chunk.Content)
	}
	if err := ctx.Err(); err != nil {
		return "", types.NewError(types.ErrConnection, "stream interrupted").WithCause(err)
	}
	return b.String(), nil
}
