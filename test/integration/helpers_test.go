// Package integration provides end-to-end tests for chatbridge.
//
// Tests assemble the full chain (configuration, HTTP completions backend,
// chat template, adapter and middleware) against the deterministic mock
// backend started in-process using net/http/httptest.
package integration

import (
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rhuss/chatbridge/pkg/bridge"
	"github.com/rhuss/chatbridge/pkg/config"
	"github.com/rhuss/chatbridge/pkg/mockbackend"
	"github.com/rhuss/chatbridge/pkg/openai"
)

// testEnv holds the shared environment for all integration tests.
var testEnv *TestEnvironment

// TestEnvironment holds the mock backend and the bridge wired to it.
type TestEnvironment struct {
	MockBackend *httptest.Server
	Bridge      *bridge.Bridge
}

// TestMain starts the mock backend and bridge before running tests.
func TestMain(m *testing.M) {
	testEnv = setupTestEnvironment(mockbackend.Options{}, nil)
	code := m.Run()
	testEnv.Teardown()
	os.Exit(code)
}

// setupTestEnvironment creates a mock backend and a bridge wired to it.
// modify, if set, adjusts the configuration before the bridge is built.
func setupTestEnvironment(opts mockbackend.Options, modify func(*config.Config)) *TestEnvironment {
	mockBackend := httptest.NewServer(mockbackend.NewHandler(opts))

	cfg := config.Defaults()
	cfg.Backend.BaseURL = mockBackend.URL
	cfg.Backend.DefaultModel = mockbackend.DefaultModel
	cfg.Backend.Timeout = 10 * time.Second
	if modify != nil {
		modify(&cfg)
	}

	b, err := bridge.New(&cfg, bridge.Options{})
	if err != nil {
		mockBackend.Close()
		panic(fmt.Sprintf("creating bridge: %v", err))
	}

	return &TestEnvironment{
		MockBackend: mockBackend,
		Bridge:      b,
	}
}

// newTestEnvironment is setupTestEnvironment scoped to a single test.
func newTestEnvironment(t *testing.T, opts mockbackend.Options, modify func(*config.Config)) *TestEnvironment {
	t.Helper()
	env := setupTestEnvironment(opts, modify)
	t.Cleanup(env.Teardown)
	return env
}

// Teardown closes the bridge and stops the backend.
func (env *TestEnvironment) Teardown() {
	if env.Bridge != nil {
		env.Bridge.Close()
	}
	if env.MockBackend != nil {
		env.MockBackend.Close()
	}
}

// --- Request helpers ---

func userMessage(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: "user", Content: content}
}

func systemMessage(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: "system", Content: content}
}

func chatRequest(messages ...openai.ChatCompletionMessage) *openai.ChatCompletionRequest {
	return &openai.ChatCompletionRequest{
		Model:    mockbackend.DefaultModel,
		Messages: messages,
	}
}

func streamRequest(messages ...openai.ChatCompletionMessage) *openai.ChatCompletionRequest {
	req := chatRequest(messages...)
	req.Stream = ptr(true)
	return req
}

func ptr[T any](v T) *T {
	return &v
}

// collectStream drains a stream and returns its chunks and the first error.
func collectStream(t *testing.T, stream *openai.ChatCompletionStream) ([]*openai.ChatCompletionChunk, error) {
	t.Helper()
	var chunks []*openai.ChatCompletionChunk
	for chunk, err := range stream.All() {
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// streamText concatenates the delta content of chunks.
func streamText(chunks []*openai.ChatCompletionChunk) string {
	var text string
	for _, c := range chunks {
		if len(c.Choices) > 0 {
			text += c.Choices[0].Delta.Content
		}
	}
	return text
}
