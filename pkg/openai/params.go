package openai

import (
	"fmt"

	"github.com/rhuss/chatbridge/pkg/api"
)

// passthroughParam copies one optional chat parameter onto a completion
// request. It reports whether the parameter was present.
type passthroughParam struct {
	name string
	copy func(dst *CompletionRequest, src *ChatCompletionRequest) bool
}

// passthroughParams is the allow-list of optional parameters shared by the
// chat and completion APIs. A new optional parameter must be added here
// explicitly; nothing else is forwarded.
var passthroughParams = []passthroughParam{
	{"frequency_penalty", func(d *CompletionRequest, s *ChatCompletionRequest) bool {
		d.FrequencyPenalty = s.FrequencyPenalty
		return s.FrequencyPenalty != nil
	}},
	{"logit_bias", func(d *CompletionRequest, s *ChatCompletionRequest) bool {
		d.LogitBias = s.LogitBias
		return s.LogitBias != nil
	}},
	{"max_tokens", func(d *CompletionRequest, s *ChatCompletionRequest) bool {
		d.MaxTokens = s.MaxTokens
		return s.MaxTokens != nil
	}},
	{"n", func(d *CompletionRequest, s *ChatCompletionRequest) bool {
		d.N = s.N
		return s.N != nil
	}},
	{"presence_penalty", func(d *CompletionRequest, s *ChatCompletionRequest) bool {
		d.PresencePenalty = s.PresencePenalty
		return s.PresencePenalty != nil
	}},
	{"seed", func(d *CompletionRequest, s *ChatCompletionRequest) bool {
		d.Seed = s.Seed
		return s.Seed != nil
	}},
	{"stop", func(d *CompletionRequest, s *ChatCompletionRequest) bool {
		d.Stop = s.Stop
		return s.Stop != nil
	}},
	{"stream", func(d *CompletionRequest, s *ChatCompletionRequest) bool {
		d.Stream = s.Stream
		return s.Stream != nil
	}},
	{"temperature", func(d *CompletionRequest, s *ChatCompletionRequest) bool {
		d.Temperature = s.Temperature
		return s.Temperature != nil
	}},
	{"top_p", func(d *CompletionRequest, s *ChatCompletionRequest) bool {
		d.TopP = s.TopP
		return s.TopP != nil
	}},
	{"user", func(d *CompletionRequest, s *ChatCompletionRequest) bool {
		d.User = s.User
		return s.User != nil
	}},
}

// PassthroughParamNames returns the names of the optional parameters that
// are copied from a chat request to a completion request.
func PassthroughParamNames() []string {
	names := make([]string, len(passthroughParams))
	for i, p := range passthroughParams {
		names[i] = p.name
	}
	return names
}

// ValidateChoiceCount rejects requests asking for anything but a single
// choice. An absent n counts as 1.
func ValidateChoiceCount(req *ChatCompletionRequest) error {
	if req.N != nil && *req.N != 1 {
		return api.NewUnsupportedParameterError("n", fmt.Sprintf("n != 1 is not supported (got %d)", *req.N))
	}
	return nil
}

// ToCompletionParams translates a chat completion request into the
// equivalent completion request using prompt as the prompt text.
//
// The model is copied, the allow-listed optional parameters are copied only
// when present, and a present logprobs flag becomes a top-k count
// (top_logprobs, default 1) whatever its value. The stream flag decides whether the backend must answer with
// a stream.
func ToCompletionParams(req *ChatCompletionRequest, prompt string) (*CompletionRequest, error) {
	if err := ValidateChoiceCount(req); err != nil {
		return nil, err
	}

	out := &CompletionRequest{
		Model:  req.Model,
		Prompt: prompt,
	}
	for _, p := range passthroughParams {
		p.copy(out, req)
	}

	if req.Logprobs != nil {
		topK := 1
		if req.TopLogprobs != nil {
			topK = *req.TopLogprobs
		}
		out.Logprobs = &topK
	}

	return out, nil
}

// presentParams lists the allow-listed parameters set on req, for logging.
func presentParams(req *ChatCompletionRequest) []string {
	var names []string
	var scratch CompletionRequest
	for _, p := range passthroughParams {
		if p.copy(&scratch, req) {
			names = append(names, p.name)
		}
	}
	return names
}
