// Package provider defines the interface for completion backends. Each
// adapter (currently openaicompat) handles its own wire protocol and
// exposes the backend as an openai.CompletionModel plus model discovery.
package provider
