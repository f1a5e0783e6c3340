// Package api defines the error taxonomy and identifier helpers shared by
// the chatbridge packages.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O. Errors serialize to the OpenAI error wire format so they
// can be returned to API clients unchanged.
//
// Core types:
//   - [APIError]: Structured error with type, code, param, and message
//   - [ErrorResponse]: Top-level {"error": ...} wrapper
//
// Completion identifiers ("cmpl-") are produced for backends that synthesize
// completions (see pkg/mockbackend). The chat adapter never invents
// identifiers: it copies the backend's completion ID.
package api
