package provider

import (
	"context"

	"github.com/rhuss/chatbridge/pkg/openai"
)

// Provider is a completion backend that can also list its models.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	openai.CompletionModel

	// Name returns the backend label (e.g., "vllm", "litellm").
	Name() string

	// ListModels returns available models from the backend.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}

// ModelInfo holds information about a model served by the provider.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}
