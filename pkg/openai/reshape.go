package openai

import (
	"fmt"

	"github.com/rhuss/chatbridge/pkg/api"
)

// ToChatCompletion converts a completion result into a chat completion whose
// single message has the given role. Only the first choice is translated;
// a completion without choices yields a chat completion without choices.
// Identity fields and usage are copied verbatim.
func ToChatCompletion(c *Completion, role string) (*ChatCompletion, error) {
	out := &ChatCompletion{
		ID:                c.ID,
		Object:            ObjectChatCompletion,
		Created:           c.Created,
		Model:             c.Model,
		SystemFingerprint: c.SystemFingerprint,
		Choices:           []ChatCompletionChoice{},
		Usage:             c.Usage,
	}
	if len(c.Choices) == 0 {
		return out, nil
	}

	choice := c.Choices[0]
	logprobs, err := choiceLogprobs(choice.Logprobs)
	if err != nil {
		return nil, err
	}
	out.Choices = append(out.Choices, ChatCompletionChoice{
		Index:        0,
		FinishReason: choice.FinishReason,
		Message: ChatCompletionMessage{
			Role:    role,
			Content: choice.Text,
		},
		Logprobs: logprobs,
	})
	return out, nil
}

// ToChatCompletionChunk converts one element of a completion stream into a
// chat completion chunk. It follows the same choice policy as
// ToChatCompletion but emits a delta and never carries usage.
func ToChatCompletionChunk(c *Completion, role string) (*ChatCompletionChunk, error) {
	out := &ChatCompletionChunk{
		ID:                c.ID,
		Object:            ObjectChatCompletionChunk,
		Created:           c.Created,
		Model:             c.Model,
		SystemFingerprint: c.SystemFingerprint,
		Choices:           []ChunkChoice{},
	}
	if len(c.Choices) == 0 {
		return out, nil
	}

	choice := c.Choices[0]
	logprobs, err := choiceLogprobs(choice.Logprobs)
	if err != nil {
		return nil, err
	}
	out.Choices = append(out.Choices, ChunkChoice{
		Index:        0,
		FinishReason: choice.FinishReason,
		Delta: ChoiceDelta{
			Role:    role,
			Content: choice.Text,
		},
		Logprobs: logprobs,
	})
	return out, nil
}

func choiceLogprobs(lp *Logprobs) (*ChoiceLogprobs, error) {
	if lp == nil {
		return nil, nil
	}
	return ToChoiceLogprobs(lp)
}

// ToChoiceLogprobs reshapes the parallel completion logprob arrays into one
// record per token. Each record carries the UTF-8 bytes of its own token and
// its top-k alternatives in the order the backend listed them.
//
// The arrays must have equal lengths; a mismatch is a backend contract
// violation and is reported as a server error.
func ToChoiceLogprobs(lp *Logprobs) (*ChoiceLogprobs, error) {
	n := len(lp.Tokens)
	if len(lp.TokenLogprobs) != n || len(lp.TopLogprobs) != n {
		return nil, api.NewServerError(fmt.Sprintf(
			"malformed backend logprobs: %d tokens, %d token_logprobs, %d top_logprobs",
			n, len(lp.TokenLogprobs), len(lp.TopLogprobs)))
	}

	content := make([]ChatCompletionTokenLogprob, 0, n)
	for i, token := range lp.Tokens {
		top := make([]TopLogprob, 0, len(lp.TopLogprobs[i]))
		for _, alt := range lp.TopLogprobs[i] {
			top = append(top, TopLogprob{
				Token:   alt.Token,
				Bytes:   utf8Bytes(alt.Token),
				Logprob: alt.Logprob,
			})
		}
		content = append(content, ChatCompletionTokenLogprob{
			Token:       token,
			Bytes:       utf8Bytes(token),
			Logprob:     lp.TokenLogprobs[i],
			TopLogprobs: top,
		})
	}
	return &ChoiceLogprobs{Content: content}, nil
}

// utf8Bytes returns the UTF-8 encoding of s as individual byte values.
func utf8Bytes(s string) []int {
	b := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		b[i] = int(s[i])
	}
	return b
}
