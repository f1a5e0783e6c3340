package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/debug"
	"github.com/rhuss/chatbridge/pkg/openai"
	"github.com/rhuss/chatbridge/pkg/provider"
)

// DefaultTimeout applies to non-streaming requests when Config.Timeout is zero.
const DefaultTimeout = 120 * time.Second

// Config holds configuration for a Client.
type Config struct {
	// Name labels the backend in logs and metrics. Defaults to "openai".
	Name string

	// BaseURL is the server URL (e.g., "http://localhost:8000").
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout for non-streaming HTTP requests. Defaults to 120s.
	Timeout time.Duration

	// ModelMapping maps requested model names to backend model identifiers.
	// Models not in the map are passed through unchanged.
	ModelMapping map[string]string

	// Transport overrides the HTTP transport (nil uses http.DefaultTransport).
	Transport http.RoundTripper
}

// Client performs HTTP requests against an OpenAI-compatible completions
// backend. It is safe for concurrent use.
type Client struct {
	name       string
	httpClient *http.Client
	baseURL    string
	apiKey     string

	// ModelMapper transforms the model name before it is sent to the
	// backend. If nil, the model name is used as-is.
	ModelMapper func(string) string
}

// Ensure Client implements provider.Provider at compile time.
var _ provider.Provider = (*Client)(nil)

// NewClient creates a new Client. Returns an error if the configuration is
// invalid.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openaicompat: BaseURL is required")
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		name: cfg.Name,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}

	if len(cfg.ModelMapping) > 0 {
		mapping := cfg.ModelMapping
		c.ModelMapper = func(model string) string {
			if mapped, ok := mapping[model]; ok {
				return mapped
			}
			return model
		}
	}

	return c, nil
}

// Name returns the backend label.
func (c *Client) Name() string {
	return c.name
}

// CreateCompletion sends req to /v1/completions. A streaming request returns
// a CompletionStream that reads the SSE body as the caller pulls from it.
//
// The HTTP client timeout is not applied to streaming requests because a
// stream can legitimately outlive any fixed timeout. The context controls
// the stream lifetime instead.
func (c *Client) CreateCompletion(ctx context.Context, req *openai.CompletionRequest) (*openai.CompletionResponse, error) {
	reqCopy := *req
	if c.ModelMapper != nil {
		reqCopy.Model = c.ModelMapper(reqCopy.Model)
	}
	streaming := reqCopy.IsStream()

	body, err := json.Marshal(&reqCopy)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.baseURL + "/v1/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	c.authorize(httpReq)

	debug.Log(debug.Providers, "request",
		"backend", c.name,
		"method", http.MethodPost,
		"url", url,
		"model", reqCopy.Model,
		"stream", streaming,
	)
	if debug.TraceIsEnabled(debug.Providers) {
		debug.Raw(debug.Providers, string(body))
	}

	client := c.httpClient
	if streaming {
		client = &http.Client{Transport: c.httpClient.Transport}
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		apiErr := MapHTTPError(httpResp)
		slog.Warn("backend returned error",
			"backend", c.name,
			"status", httpResp.StatusCode,
			"error", apiErr.Message,
		)
		return nil, apiErr
	}

	if streaming {
		return &openai.CompletionResponse{Stream: newSSEStream(ctx, httpResp.Body)}, nil
	}

	defer httpResp.Body.Close()
	var completion openai.Completion
	if err := json.NewDecoder(httpResp.Body).Decode(&completion); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	debug.Log(debug.Providers, "response",
		"backend", c.name,
		"id", completion.ID,
		"choices", len(completion.Choices),
	)

	return &openai.CompletionResponse{Completion: &completion}, nil
}

// ListModels returns available models from the backend by querying the
// /v1/models endpoint.
func (c *Client) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	url := c.baseURL + "/v1/models"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	c.authorize(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(httpResp)
	}

	var modelsResp ModelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&modelsResp); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse models response: %s", err.Error()))
	}

	models := make([]provider.ModelInfo, 0, len(modelsResp.Data))
	for _, m := range modelsResp.Data {
		models = append(models, provider.ModelInfo{
			ID:      m.ID,
			Object:  m.Object,
			OwnedBy: m.OwnedBy,
		})
	}
	return models, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
