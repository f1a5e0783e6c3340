package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/openai"
)

func okModel() openai.ChatModel {
	return openai.ChatModelFunc(func(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
		return &openai.ChatCompletionResponse{Completion: &openai.ChatCompletion{ID: "cmpl-1"}}, nil
	})
}

func testRequest() *openai.ChatCompletionRequest {
	return &openai.ChatCompletionRequest{
		Model:    "test-model",
		Messages: []openai.ChatCompletionMessage{{Role: "user", Content: "hi"}},
	}
}

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next openai.ChatModel) openai.ChatModel {
			return openai.ChatModelFunc(func(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
				order = append(order, name+":before")
				resp, err := next.CreateChatCompletion(ctx, req)
				order = append(order, name+":after")
				return resp, err
			})
		}
	}

	model := openai.ChatModelFunc(func(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
		order = append(order, "model")
		return nil, nil
	})

	wrapped := Chain(mw("first"), mw("second"), mw("third"))(model)
	wrapped.CreateChatCompletion(context.Background(), testRequest())

	expected := []string{
		"first:before", "second:before", "third:before",
		"model",
		"third:after", "second:after", "first:after",
	}

	if len(order) != len(expected) {
		t.Fatalf("execution order length = %d, want %d: %v", len(order), len(expected), order)
	}
	for i, got := range order {
		if got != expected[i] {
			t.Errorf("order[%d] = %q, want %q", i, got, expected[i])
		}
	}
}

func TestChainEmpty(t *testing.T) {
	resp, err := Chain()(okModel()).CreateChatCompletion(context.Background(), testRequest())
	if err != nil || resp.Completion.ID != "cmpl-1" {
		t.Errorf("empty chain should pass through, got %v, %v", resp, err)
	}
}

func TestRecoveryCatchesPanic(t *testing.T) {
	model := openai.ChatModelFunc(func(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
		panic("test panic")
	})

	resp, err := Recovery()(model).CreateChatCompletion(context.Background(), testRequest())

	if resp != nil {
		t.Errorf("expected nil response after panic, got %+v", resp)
	}
	apiErr, ok := err.(*api.APIError)
	if !ok {
		t.Fatalf("expected *api.APIError, got %T: %v", err, err)
	}
	if apiErr.Type != api.ErrorTypeServerError {
		t.Errorf("error type = %q, want %q", apiErr.Type, api.ErrorTypeServerError)
	}
	if !strings.Contains(apiErr.Message, "test panic") {
		t.Errorf("error message = %q, should contain %q", apiErr.Message, "test panic")
	}
}

func TestRecoveryPassesThroughNormalExecution(t *testing.T) {
	resp, err := Recovery()(okModel()).CreateChatCompletion(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Completion.ID != "cmpl-1" {
		t.Errorf("response not passed through: %+v", resp)
	}
}

func TestRequestIDGeneratesNewID(t *testing.T) {
	var capturedID string
	model := openai.ChatModelFunc(func(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
		capturedID = RequestIDFromContext(ctx)
		return nil, nil
	})

	RequestID()(model).CreateChatCompletion(context.Background(), testRequest())

	if _, err := uuid.Parse(capturedID); err != nil {
		t.Errorf("request ID %q is not a UUID: %v", capturedID, err)
	}
}

func TestRequestIDPreservesExistingID(t *testing.T) {
	var capturedID string
	model := openai.ChatModelFunc(func(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
		capturedID = RequestIDFromContext(ctx)
		return nil, nil
	})

	ctx := ContextWithRequestID(context.Background(), "req-existing")
	RequestID()(model).CreateChatCompletion(ctx, testRequest())

	if capturedID != "req-existing" {
		t.Errorf("request ID = %q, want %q", capturedID, "req-existing")
	}
}

func TestLoggingSuccess(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	wrapped := Chain(RequestID(), Logging(logger))(okModel())
	if _, err := wrapped.CreateChatCompletion(context.Background(), testRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"chat completion served", "model=test-model", "stream=false", "request_id="} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestLoggingFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	failing := openai.ChatModelFunc(func(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
		return nil, errors.New("backend down")
	})

	_, err := Logging(logger)(failing).CreateChatCompletion(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error to pass through")
	}

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "backend down") {
		t.Errorf("log output = %s, want error entry", out)
	}
}
