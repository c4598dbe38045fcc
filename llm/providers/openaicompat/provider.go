// =============================================================================
// CosmoSynth OpenAI-Compatible Provider
// =============================================================================
// Chat Completions over HTTP. Streaming responses are parsed from SSE
// "data:" lines until the [DONE] sentinel; blocking responses read
// choices[0].message.content.
// =============================================================================

package openaicompat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/OTFiles/CosmoSynthAI/internal/tlsutil"
	"github.com/OTFiles/CosmoSynthAI/llm"
	"github.com/OTFiles/CosmoSynthAI/types"
	"go.uber.org/zap"
)

// Config holds the configuration for an OpenAI-compatible endpoint.
type Config struct {
	// Name identifies the endpoint in logs and errors.
	Name string

	// APIKey is sent as a Bearer token when non-empty.
	APIKey string

	// BaseURL is the API root, e.g. "http://localhost:8000/v1".
	BaseURL string

	// DefaultModel is used when the request names no model.
	DefaultModel string

	// Timeout is the HTTP client timeout. Defaults to 2m if zero.
	Timeout time.Duration

	// EndpointPath is the chat completions path. Defaults to "/chat/completions".
	EndpointPath string

	// Headers are added to every request.
	Headers map[string]string
}

// Provider talks to one OpenAI-compatible endpoint.
type Provider struct {
	Cfg    Config
	Client *http.Client
	Logger *zap.Logger
}

// New creates a new OpenAI-compatible provider with the given config.
func New(cfg Config, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/chat/completions"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		Cfg:    cfg,
		Client: tlsutil.HTTPClient(timeout),
		Logger: logger.With(zap.String("component", "openaicompat"), zap.String("endpoint", cfg.Name)),
	}
}

// Name returns the endpoint name.
func (p *Provider) Name() string { return p.Cfg.Name }

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

type wireChoice struct {
	Index        int          `json:"index"`
	Message      *wireMessage `json:"message,omitempty"`
	Delta        *wireMessage `json:"delta,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

type wireResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Created int64        `json:"created"`
	Choices []wireChoice `json:"choices"`
}

type wireError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) connectionError(err error) *types.Error {
	return types.NewError(types.ErrConnection, err.Error()).
		WithCause(err).
		WithRetryable(true).
		WithEndpoint(p.Name())
}

func (p *Provider) responseError(format string, args ...any) *types.Error {
	return types.Errorf(types.ErrResponse, format, args...).WithEndpoint(p.Name())
}

func (p *Provider) buildRequest(ctx context.Context, req *llm.ChatRequest, stream bool) (*http.Request, error) {
	body := wireRequest{
		Model:       req.Model,
		Messages:    make([]wireMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	if body.Model == "" {
		body.Model = p.Cfg.DefaultModel
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, wireMessage{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, p.responseError("failed to marshal request").WithCause(err)
	}

	url := strings.TrimRight(p.Cfg.BaseURL, "/") + p.Cfg.EndpointPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, types.Errorf(types.ErrConfigInvalid, "failed to create request for %q", url).
			WithEndpoint(p.Name()).WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if p.Cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.Cfg.APIKey)
	}
	for k, v := range p.Cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

func (p *Provider) do(ctx context.Context, req *llm.ChatRequest, stream bool) (*http.Response, error) {
	httpReq, err := p.buildRequest(ctx, req, stream)
	if err != nil {
		return nil, err
	}
	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, p.connectionError(err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, p.responseError("status %d: %s", resp.StatusCode, readErrorMessage(resp.Body))
	}
	return resp, nil
}

// readErrorMessage extracts error.message from a JSON error body, falling
// back to the raw (size-limited) body text.
func readErrorMessage(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	var we wireError
	if err := json.Unmarshal(data, &we); err == nil && we.Error.Message != "" {
		return we.Error.Message
	}
	return strings.TrimSpace(string(data))
}

// Completion performs a non-streaming chat completion.
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := p.do(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wr wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, p.responseError("malformed response: %v", err)
	}
	if len(wr.Choices) == 0 || wr.Choices[0].Message == nil {
		return nil, p.responseError("response has no choices")
	}

	out := &llm.ChatResponse{
		ID:           wr.ID,
		Model:        wr.Model,
		Content:      wr.Choices[0].Message.Content,
		FinishReason: wr.Choices[0].FinishReason,
		CreatedAt:    time.Now(),
	}
	if wr.Created != 0 {
		out.CreatedAt = time.Unix(wr.Created, 0)
	}
	return out, nil
}

// Stream performs a streaming chat completion via SSE.
func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	resp, err := p.do(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return p.streamSSE(ctx, resp.Body), nil
}

// streamSSE parses an SSE body into chunks. The channel is closed after
// [DONE], EOF, an error chunk, or context cancellation.
func (p *Provider) streamSSE(ctx context.Context, body io.ReadCloser) <-chan llm.StreamChunk {
	ch := make(chan llm.StreamChunk)
	send := func(c llm.StreamChunk) bool {
		select {
		case <-ctx.Done():
			return false
		case ch <- c:
			return true
		}
	}

	go func() {
		defer body.Close()
		defer close(ch)
		reader := bufio.NewReader(body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil && (err != io.EOF || line == "") {
				if err != io.EOF && ctx.Err() == nil {
					send(llm.StreamChunk{Err: p.connectionError(err)})
				}
				return
			}
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var wr wireResponse
			if jerr := json.Unmarshal([]byte(data), &wr); jerr != nil {
				send(llm.StreamChunk{Err: p.responseError("malformed stream chunk: %v", jerr)})
				return
			}
			for _, choice := range wr.Choices {
				chunk := llm.StreamChunk{FinishReason: choice.FinishReason}
				if choice.Delta != nil {
					chunk.Content = choice.Delta.Content
				}
				if !send(chunk) {
					return
				}
			}
			if err == io.EOF {
				return
			}
		}
	}()
	return ch
}
