package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OTFiles/CosmoSynthAI/llm"
	"github.com/OTFiles/CosmoSynthAI/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRequest() *llm.ChatRequest {
	return &llm.ChatRequest{
		Messages: []types.Message{
			{Role: types.RoleSystem, Content: "be brief"},
			{Role: types.RoleUser, Content: "[general] hi"},
		},
	}
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{
		Name:         "local",
		APIKey:       "sk-test",
		BaseURL:      server.URL + "/v1/",
		DefaultModel: "qwen",
		Timeout:      5 * time.Second,
		Headers:      map[string]string{"X-Team": "cosmo"},
	}, zap.NewNop())
}

// ---------------------------------------------------------------------------
// New() constructor
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	p := New(Config{Name: "x"}, nil)
	assert.Equal(t, "/chat/completions", p.Cfg.EndpointPath)
	assert.Equal(t, 2*time.Minute, p.Client.Timeout)
	assert.Equal(t, "x", p.Name())
	assert.NotNil(t, p.Logger)
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func TestProvider_Completion(t *testing.T) {
	var got wireRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "cosmo", r.Header.Get("X-Team"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","model":"qwen","created":1700000000,"choices":[{"index":0,"message":{"role":"assistant","content":"[general] hello"},"finish_reason":"stop"}]}`)
	})

	resp, err := p.Completion(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "[general] hello", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, time.Unix(1700000000, 0), resp.CreatedAt)

	assert.Equal(t, "qwen", got.Model, "default model fills an empty request model")
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "[general] hi", got.Messages[1].Content)
}

func TestProvider_Completion_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			name: "http error with json body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
			},
			wantMsg: "status 429: slow down",
		},
		{
			name: "http error with text body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream exploded", http.StatusBadGateway)
			},
			wantMsg: "status 502: upstream exploded",
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"choices": [`)
			},
			wantMsg: "malformed response",
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"choices": []}`)
			},
			wantMsg: "no choices",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, tt.handler)
			_, err := p.Completion(context.Background(), testRequest())
			require.Error(t, err)
			assert.Equal(t, types.ErrResponse, types.GetErrorCode(err))
			assert.False(t, types.IsRetryable(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestProvider_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	p := New(Config{Name: "gone", BaseURL: url, Timeout: time.Second}, zap.NewNop())
	_, err := p.Completion(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrConnection, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))

	te, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "gone", te.Endpoint)
}

func TestProvider_InvalidBaseURL(t *testing.T) {
	p := New(Config{Name: "broken", BaseURL: "http://bad\x7fhost", Timeout: time.Second}, zap.NewNop())
	_, err := p.Completion(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrConfigInvalid, types.GetErrorCode(err))
	assert.False(t, types.IsRetryable(err))

	te, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "broken", te.Endpoint)

	_, err = p.Stream(context.Background(), testRequest())
	assert.Equal(t, types.ErrConfigInvalid, types.GetErrorCode(err))
}

// ---------------------------------------------------------------------------
// Stream
// ---------------------------------------------------------------------------

func sseHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprint(w, line+"\n\n")
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func TestProvider_Stream(t *testing.T) {
	var got wireRequest
	stream := sseHandler(
		`data: {"choices":[{"index":0,"delta":{"role":"assistant","content":"[general] "}}]}`,
		`: keep-alive`,
		`data: {"choices":[{"index":0,"delta":{"content":"hello"}}]}`,
		`data: {"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
		`data: {"choices":[{"index":0,"delta":{"content":"ignored"}}]}`,
	)
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		stream(w, r)
	})

	ctx := context.Background()
	chunks, err := p.Stream(ctx, testRequest())
	require.NoError(t, err)
	text, err := llm.CollectStream(ctx, chunks)
	require.NoError(t, err)

	assert.Equal(t, "[general] hello", text)
	assert.True(t, got.Stream)
}

func TestProvider_Stream_NoTrailingNewline(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `data: {"choices":[{"index":0,"delta":{"content":"tail"}}]}`)
	})

	ctx := context.Background()
	chunks, err := p.Stream(ctx, testRequest())
	require.NoError(t, err)
	text, err := llm.CollectStream(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, "tail", text)
}

func TestProvider_Stream_MalformedChunk(t *testing.T) {
	p := newTestProvider(t, sseHandler(
		`data: {"choices":[{"index":0,"delta":{"content":"ok"}}]}`,
		`data: {not json`,
	))

	ctx := context.Background()
	chunks, err := p.Stream(ctx, testRequest())
	require.NoError(t, err)
	_, err = llm.CollectStream(ctx, chunks)
	require.Error(t, err)
	assert.Equal(t, types.ErrResponse, types.GetErrorCode(err))
}

func TestProvider_Stream_HTTPError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	})

	_, err := p.Stream(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, types.ErrResponse, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "bad key")
}
