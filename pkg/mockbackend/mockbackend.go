// Package mockbackend implements a deterministic OpenAI-compatible
// completions server for tests and local development. Responses are chosen
// from the prompt text:
//
//   - "count from 1 to 5" produces "1, 2, 3, 4, 5"
//   - "pirate" produces a pirate greeting
//   - "café" produces "café" split as ["caf", "é"]
//   - "fail mid-stream" makes a streaming response emit one chunk and then
//     an error event
//   - anything else produces "Hello, nice day!"
package mockbackend

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/openai"
)

// DefaultModel is the model served when Options.Models is empty.
const DefaultModel = "mock-model"

// Options configures the mock backend.
type Options struct {
	// Models lists the served model names. Requests for other models get a
	// 404. Defaults to [DefaultModel].
	Models []string

	// ChunkDelay is slept between streamed chunks.
	ChunkDelay time.Duration
}

// Handler returns the mock backend with default options.
func Handler() http.Handler {
	return NewHandler(Options{})
}

// NewHandler returns the mock backend routes:
//
//	POST /v1/completions
//	GET  /v1/models
//	GET  /healthz
func NewHandler(opts Options) http.Handler {
	if len(opts.Models) == 0 {
		opts.Models = []string{DefaultModel}
	}
	b := &backend{opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/completions", b.handleCompletions)
	mux.HandleFunc("GET /v1/models", b.handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

type backend struct {
	opts Options
}

func (b *backend) handleCompletions(w http.ResponseWriter, r *http.Request) {
	var req openai.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: "+err.Error())
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "prompt is required")
		return
	}
	if !slices.Contains(b.opts.Models, req.Model) {
		writeError(w, http.StatusNotFound, "not_found_error", fmt.Sprintf("The model `%s` does not exist.", req.Model))
		return
	}

	tokens, finish := b.generate(&req)

	if req.IsStream() {
		b.stream(w, r, &req, tokens, finish)
		return
	}

	n := 1
	if req.N != nil && *req.N > 1 {
		n = *req.N
	}
	completion := openai.Completion{
		ID:      api.NewCompletionID(),
		Object:  openai.ObjectTextCompletion,
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: make([]openai.CompletionChoice, 0, n),
		Usage: &openai.CompletionUsage{
			PromptTokens:     promptTokens(req.Prompt),
			CompletionTokens: len(tokens),
			TotalTokens:      promptTokens(req.Prompt) + len(tokens),
		},
	}
	for i := 0; i < n; i++ {
		completion.Choices = append(completion.Choices, openai.CompletionChoice{
			Index:        i,
			Text:         strings.Join(tokens, ""),
			FinishReason: finish,
			Logprobs:     logprobsFor(tokens, req.Logprobs),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(completion)
}

// generate picks the response tokens for the prompt and applies max_tokens.
func (b *backend) generate(req *openai.CompletionRequest) ([]string, string) {
	prompt := strings.ToLower(req.Prompt)

	var tokens []string
	switch {
	case strings.Contains(prompt, "count from 1 to 5"):
		tokens = []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}
	case strings.Contains(prompt, "pirate"):
		tokens = []string{"Ahoy", " there", ",", " matey", "!"}
	case strings.Contains(prompt, "café"):
		tokens = []string{"caf", "é"}
	default:
		tokens = []string{"Hello", ",", " nice", " day", "!"}
	}

	if req.MaxTokens != nil && *req.MaxTokens >= 0 && *req.MaxTokens < len(tokens) {
		return tokens[:*req.MaxTokens], "length"
	}
	return tokens, "stop"
}

func (b *backend) stream(w http.ResponseWriter, r *http.Request, req *openai.CompletionRequest, tokens []string, finish string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "server_error", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := api.NewCompletionID()
	created := time.Now().Unix()
	failMidStream := strings.Contains(strings.ToLower(req.Prompt), "fail mid-stream")

	for i, token := range tokens {
		if i > 0 && b.opts.ChunkDelay > 0 {
			select {
			case <-r.Context().Done():
				slog.Debug("mock stream cancelled by client", "sent", i)
				return
			case <-time.After(b.opts.ChunkDelay):
			}
		}
		if r.Context().Err() != nil {
			return
		}

		if failMidStream && i == 1 {
			writeSSE(w, map[string]any{
				"error": map[string]any{"message": "mock backend failure", "type": "server_error"},
			})
			flusher.Flush()
			return
		}

		choice := openai.CompletionChoice{
			Index:    0,
			Text:     token,
			Logprobs: logprobsFor([]string{token}, req.Logprobs),
		}
		if i == len(tokens)-1 {
			choice.FinishReason = finish
		}
		writeSSE(w, openai.Completion{
			ID:      id,
			Object:  openai.ObjectTextCompletion,
			Created: created,
			Model:   req.Model,
			Choices: []openai.CompletionChoice{choice},
		})
		flusher.Flush()
	}

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (b *backend) handleModels(w http.ResponseWriter, r *http.Request) {
	data := make([]map[string]any, 0, len(b.opts.Models))
	for _, m := range b.opts.Models {
		data = append(data, map[string]any{"id": m, "object": "model", "owned_by": "chatbridge-mock"})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
}

// logprobsFor builds deterministic logprobs for tokens when k is set. The
// top-k mapping always lists the sampled token first, then k-1 alternatives named
// "<alt-N>" counting down, so the key order differs from lexical order.
func logprobsFor(tokens []string, k *int) *openai.Logprobs {
	if k == nil || *k < 0 {
		return nil
	}

	lp := &openai.Logprobs{
		Tokens:        make([]string, len(tokens)),
		TokenLogprobs: make([]float64, len(tokens)),
		TopLogprobs:   make([]openai.OrderedLogprobs, len(tokens)),
		TextOffset:    make([]int, len(tokens)),
	}
	offset := 0
	for i, token := range tokens {
		logprob := -0.1 * float64(i+1)
		lp.Tokens[i] = token
		lp.TokenLogprobs[i] = logprob
		lp.TextOffset[i] = offset
		offset += len(token)

		top := openai.OrderedLogprobs{{Token: token, Logprob: logprob}}
		for j := 1; j < *k; j++ {
			top = append(top, openai.TokenProb{
				Token:   fmt.Sprintf("<alt-%d>", *k-j),
				Logprob: logprob - float64(j),
			})
		}
		lp.TopLogprobs[i] = top
	}
	return lp
}

func promptTokens(prompt string) int {
	return len(strings.Fields(prompt))
}

func writeSSE(w http.ResponseWriter, v any) {
	data, _ := json.Marshal(v)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": errType},
	})
}
