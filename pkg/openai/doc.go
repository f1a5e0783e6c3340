// Package openai adapts completion-only model backends to the OpenAI chat
// completions API.
//
// A [ChatAdapter] turns a multi-turn [ChatCompletionRequest] into a single
// prompt via a [ChatTemplater], maps the chat parameters onto a
// [CompletionRequest], calls the [CompletionModel] exactly once and reshapes
// the result into a [ChatCompletion] or, for streaming requests, into a lazy
// [ChatCompletionStream] of [ChatCompletionChunk] values.
//
// Only the first completion choice is translated and its index is always
// rewritten to 0. Streams are pulled on demand: every Recv on the chat stream
// performs exactly one Recv on the backend stream, and Close releases the
// backend stream.
package openai
