// Package openaicompat implements openai.CompletionModel on top of any
// OpenAI-compatible /v1/completions endpoint (vLLM, LiteLLM, llama.cpp
// server, and similar). It handles request serialization, response parsing,
// SSE streaming and error mapping.
package openaicompat
