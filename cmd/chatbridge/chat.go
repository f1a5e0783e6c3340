package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/bridge"
	"github.com/rhuss/chatbridge/pkg/openai"
	"github.com/spf13/cobra"
)

type chatOptions struct {
	model        string
	system       string
	template     string
	stream       bool
	jsonOutput   bool
	printMetrics bool

	maxTokens        int
	temperature      float64
	topP             float64
	frequencyPenalty float64
	presencePenalty  float64
	seed             int64
	n                int
	stop             []string
	user             string
	logprobs         bool
	topLogprobs      int
}

func newChatCmd() *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat [flags] MESSAGE...",
		Short: "Run a chat completion",
		Long: `Send the given message as a user turn, optionally preceded by a system turn,
and print the assistant reply. With --stream the reply is printed as it arrives.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, strings.Join(args, " "))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.model, "model", "m", "", "model name (default: backend.default_model)")
	f.StringVarP(&opts.system, "system", "s", "", "system message")
	f.StringVar(&opts.template, "template", "", "chat template format: chatml, plain or custom")
	f.BoolVar(&opts.stream, "stream", false, "stream the reply")
	f.BoolVar(&opts.jsonOutput, "json", false, "print the raw chat completion (or one chunk per line) as JSON")
	f.BoolVar(&opts.printMetrics, "print-metrics", false, "print chatbridge metrics to stderr when done")

	f.IntVar(&opts.maxTokens, "max-tokens", 0, "maximum number of tokens to generate")
	f.Float64Var(&opts.temperature, "temperature", 0, "sampling temperature")
	f.Float64Var(&opts.topP, "top-p", 0, "nucleus sampling probability mass")
	f.Float64Var(&opts.frequencyPenalty, "frequency-penalty", 0, "frequency penalty")
	f.Float64Var(&opts.presencePenalty, "presence-penalty", 0, "presence penalty")
	f.Int64Var(&opts.seed, "seed", 0, "sampling seed")
	f.IntVar(&opts.n, "n", 1, "number of choices (only 1 is supported)")
	f.StringSliceVar(&opts.stop, "stop", nil, "stop sequence (repeatable)")
	f.StringVar(&opts.user, "user", "", "end-user identifier")
	f.BoolVar(&opts.logprobs, "logprobs", false, "return token log probabilities")
	f.IntVar(&opts.topLogprobs, "top-logprobs", 0, "number of alternatives per token (requires --logprobs)")

	return cmd
}

// buildRequest creates the chat request. Only flags given on the command
// line are set, so unset parameters are not forwarded to the backend.
func buildRequest(cmd *cobra.Command, opts *chatOptions, message string) *openai.ChatCompletionRequest {
	req := &openai.ChatCompletionRequest{Model: opts.model}
	if opts.system != "" {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: "system", Content: opts.system})
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: "user", Content: message})

	f := cmd.Flags()
	if opts.stream {
		req.Stream = &opts.stream
	}
	if f.Changed("max-tokens") {
		req.MaxTokens = &opts.maxTokens
	}
	if f.Changed("temperature") {
		req.Temperature = &opts.temperature
	}
	if f.Changed("top-p") {
		req.TopP = &opts.topP
	}
	if f.Changed("frequency-penalty") {
		req.FrequencyPenalty = &opts.frequencyPenalty
	}
	if f.Changed("presence-penalty") {
		req.PresencePenalty = &opts.presencePenalty
	}
	if f.Changed("seed") {
		req.Seed = &opts.seed
	}
	if f.Changed("n") {
		req.N = &opts.n
	}
	if len(opts.stop) > 0 {
		req.Stop = opts.stop
	}
	if f.Changed("user") {
		req.User = &opts.user
	}
	if f.Changed("logprobs") {
		req.Logprobs = &opts.logprobs
	}
	if f.Changed("top-logprobs") {
		req.TopLogprobs = &opts.topLogprobs
	}
	return req
}

func runChat(cmd *cobra.Command, opts *chatOptions, message string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.template != "" {
		cfg.Template.Format = opts.template
	}

	b, err := bridge.New(cfg, bridge.Options{})
	if err != nil {
		return err
	}
	defer b.Close()

	if opts.printMetrics {
		defer printMetrics(cmd.ErrOrStderr())
	}

	req := buildRequest(cmd, opts, message)
	out := cmd.OutOrStdout()
	resp, err := b.Model.CreateChatCompletion(cmd.Context(), req)
	if err == nil {
		if resp.IsStream() {
			err = printStream(out, resp.Stream, opts.jsonOutput)
		} else {
			err = printCompletion(out, resp.Completion, opts.jsonOutput)
		}
	}
	if err != nil && opts.jsonOutput {
		printError(out, err)
	}
	return err
}

// printError writes an API error in the {"error": {...}} wire shape.
func printError(w io.Writer, err error) {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		apiErr = api.NewServerError(err.Error())
	}
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

func printCompletion(w io.Writer, c *openai.ChatCompletion, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}
	if len(c.Choices) == 0 {
		return fmt.Errorf("backend returned no choices")
	}
	_, err := fmt.Fprintln(w, c.Choices[0].Message.Content)
	return err
}

func printStream(w io.Writer, stream *openai.ChatCompletionStream, jsonOutput bool) error {
	enc := json.NewEncoder(w)
	for chunk, err := range stream.All() {
		if err != nil {
			return err
		}
		if jsonOutput {
			if err := enc.Encode(chunk); err != nil {
				return err
			}
			continue
		}
		if len(chunk.Choices) > 0 {
			fmt.Fprint(w, chunk.Choices[0].Delta.Content)
		}
	}
	if !jsonOutput {
		fmt.Fprintln(w)
	}
	return nil
}

// printMetrics writes the chatbridge metric families in the Prometheus text
// exposition format.
func printMetrics(w io.Writer) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		fmt.Fprintf(w, "gathering metrics: %v\n", err)
		return
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "chatbridge_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			fmt.Fprintf(w, "writing metrics: %v\n", err)
			return
		}
	}
}
