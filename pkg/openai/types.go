package openai

import (
	"encoding/json"
	"fmt"
)

// Object tags for the chat-shaped results.
const (
	ObjectChatCompletion      = "chat.completion"
	ObjectChatCompletionChunk = "chat.completion.chunk"
	ObjectTextCompletion      = "text_completion"
)

// DefaultResponseRole is the role of the synthesized message when the
// templater does not choose one.
const DefaultResponseRole = "assistant"

// ---------------------------------------------------------------------------
// Chat request
// ---------------------------------------------------------------------------

// ChatCompletionMessage is a single chat turn. The role is kept as a plain
// string so templaters can support roles beyond user/assistant/system.
type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatPrompt is the output of a ChatTemplater.
type ChatPrompt struct {
	Prompt       string `json:"prompt"`
	ResponseRole string `json:"response_role,omitempty"`
}

// Role returns the response role, defaulting to "assistant".
func (p *ChatPrompt) Role() string {
	if p.ResponseRole == "" {
		return DefaultResponseRole
	}
	return p.ResponseRole
}

// ChatCompletionRequest is the request body of /v1/chat/completions.
// Optional parameters are pointers (or nil-able maps/slices) so that an
// absent field can be told apart from a zero value.
type ChatCompletionRequest struct {
	Model            string                  `json:"model"`
	Messages         []ChatCompletionMessage `json:"messages"`
	FrequencyPenalty *float64                `json:"frequency_penalty,omitempty"`
	LogitBias        map[string]int          `json:"logit_bias,omitempty"`
	Logprobs         *bool                   `json:"logprobs,omitempty"`
	MaxTokens        *int                    `json:"max_tokens,omitempty"`
	N                *int                    `json:"n,omitempty"`
	PresencePenalty  *float64                `json:"presence_penalty,omitempty"`
	Seed             *int64                  `json:"seed,omitempty"`
	Stop             StopSequences           `json:"stop,omitempty"`
	Stream           *bool                   `json:"stream,omitempty"`
	Temperature      *float64                `json:"temperature,omitempty"`
	TopLogprobs      *int                    `json:"top_logprobs,omitempty"`
	TopP             *float64                `json:"top_p,omitempty"`
	User             *string                 `json:"user,omitempty"`
}

// IsStream reports whether the request asks for a streamed response.
func (r *ChatCompletionRequest) IsStream() bool {
	return r.Stream != nil && *r.Stream
}

// StopSequences holds the "stop" parameter, which the API accepts either as
// a single string or as an array of strings.
type StopSequences []string

// UnmarshalJSON accepts a string, an array of strings, or null.
func (s *StopSequences) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StopSequences{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("stop must be a string or an array of strings: %w", err)
	}
	*s = many
	return nil
}

// ---------------------------------------------------------------------------
// Completion request and result (backend side)
// ---------------------------------------------------------------------------

// CompletionRequest is the request body of /v1/completions. Fields left nil
// are omitted so the backend only sees parameters the caller set.
type CompletionRequest struct {
	Model            string         `json:"model"`
	Prompt           string         `json:"prompt"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
	LogitBias        map[string]int `json:"logit_bias,omitzero"`
	Logprobs         *int           `json:"logprobs,omitempty"`
	MaxTokens        *int           `json:"max_tokens,omitempty"`
	N                *int           `json:"n,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	Seed             *int64         `json:"seed,omitempty"`
	Stop             StopSequences  `json:"stop,omitzero"`
	Stream           *bool          `json:"stream,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	User             *string        `json:"user,omitempty"`
}

// IsStream reports whether the backend is expected to return a stream.
func (r *CompletionRequest) IsStream() bool {
	return r.Stream != nil && *r.Stream
}

// Completion is a text completion result, or one element of a completion
// stream.
type Completion struct {
	ID                string             `json:"id"`
	Object            string             `json:"object"`
	Created           int64              `json:"created"`
	Model             string             `json:"model"`
	SystemFingerprint string             `json:"system_fingerprint,omitempty"`
	Choices           []CompletionChoice `json:"choices"`
	Usage             *CompletionUsage   `json:"usage,omitempty"`
}

// CompletionChoice is one generated text alternative.
type CompletionChoice struct {
	Index        int       `json:"index"`
	Text         string    `json:"text"`
	FinishReason string    `json:"finish_reason,omitempty"`
	Logprobs     *Logprobs `json:"logprobs,omitempty"`
}

// Logprobs holds the per-token log probabilities of a completion choice as
// parallel arrays.
type Logprobs struct {
	Tokens        []string          `json:"tokens"`
	TokenLogprobs []float64         `json:"token_logprobs"`
	TopLogprobs   []OrderedLogprobs `json:"top_logprobs"`
	TextOffset    []int             `json:"text_offset,omitempty"`
}

// CompletionUsage reports token accounting for a request.
type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ---------------------------------------------------------------------------
// Chat results
// ---------------------------------------------------------------------------

// ChatCompletion is the non-streaming chat completion result.
type ChatCompletion struct {
	ID                string                 `json:"id"`
	Object            string                 `json:"object"`
	Created           int64                  `json:"created"`
	Model             string                 `json:"model"`
	SystemFingerprint string                 `json:"system_fingerprint,omitempty"`
	Choices           []ChatCompletionChoice `json:"choices"`
	Usage             *CompletionUsage       `json:"usage,omitempty"`
}

// ChatCompletionChoice is a chat choice carrying a full message.
type ChatCompletionChoice struct {
	Index        int                   `json:"index"`
	FinishReason string                `json:"finish_reason,omitempty"`
	Message      ChatCompletionMessage `json:"message"`
	Logprobs     *ChoiceLogprobs       `json:"logprobs,omitempty"`
}

// ChatCompletionChunk is one incremental unit of a streamed chat completion.
// Chunks never carry usage.
type ChatCompletionChunk struct {
	ID                string        `json:"id"`
	Object            string        `json:"object"`
	Created           int64         `json:"created"`
	Model             string        `json:"model"`
	SystemFingerprint string        `json:"system_fingerprint,omitempty"`
	Choices           []ChunkChoice `json:"choices"`
}

// ChunkChoice is a chat choice carrying a message delta.
type ChunkChoice struct {
	Index        int             `json:"index"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Delta        ChoiceDelta     `json:"delta"`
	Logprobs     *ChoiceLogprobs `json:"logprobs,omitempty"`
}

// ChoiceDelta is the message fragment of a chunk.
type ChoiceDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

// ChoiceLogprobs holds the reshaped log probabilities of a chat choice.
type ChoiceLogprobs struct {
	Content []ChatCompletionTokenLogprob `json:"content"`
}

// ChatCompletionTokenLogprob describes one generated token.
type ChatCompletionTokenLogprob struct {
	Token       string       `json:"token"`
	Bytes       []int        `json:"bytes"`
	Logprob     float64      `json:"logprob"`
	TopLogprobs []TopLogprob `json:"top_logprobs"`
}

// TopLogprob is one of the most likely alternatives at a token position.
type TopLogprob struct {
	Token   string  `json:"token"`
	Bytes   []int   `json:"bytes"`
	Logprob float64 `json:"logprob"`
}
