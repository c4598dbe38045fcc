// Package openaicompat implements llm.Provider for any endpoint that speaks
// the OpenAI Chat Completions protocol (vLLM, Ollama, llama.cpp server,
// hosted OpenAI-style APIs).
//
// Transport failures map to a retryable CONNECTION_ERROR. HTTP status codes
// of 400 and above, malformed JSON and malformed stream chunks map to
// RESPONSE_ERROR and are not retried.
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    Name:         "local",
//	    BaseURL:      "http://localhost:8000/v1",
//	    DefaultModel: "qwen2.5-7b-instruct",
//	}, logger)
package openaicompat
