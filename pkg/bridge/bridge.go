// Package bridge assembles a chat completion endpoint from configuration:
// an OpenAI-compatible completions backend, a chat templater and the
// middleware chain.
package bridge

import (
	"fmt"
	"log/slog"

	"github.com/rhuss/chatbridge/pkg/config"
	"github.com/rhuss/chatbridge/pkg/middleware"
	"github.com/rhuss/chatbridge/pkg/observability"
	"github.com/rhuss/chatbridge/pkg/openai"
	"github.com/rhuss/chatbridge/pkg/provider"
	"github.com/rhuss/chatbridge/pkg/provider/openaicompat"
	"github.com/rhuss/chatbridge/pkg/template"
)

// Bridge is a configured chat endpoint. Close releases the backend
// connections.
type Bridge struct {
	// Model serves chat completions.
	Model openai.ChatModel

	// Provider is the completions backend behind Model.
	Provider provider.Provider

	// Templater renders chat messages into prompts.
	Templater *template.Templater
}

// Options adjust how New wires the components.
type Options struct {
	// Logger receives the per-request log records. Nil uses slog.Default.
	Logger *slog.Logger

	// Provider replaces the HTTP backend built from cfg.Backend.
	Provider provider.Provider
}

// New builds a Bridge from cfg.
func New(cfg *config.Config, opts Options) (*Bridge, error) {
	prov := opts.Provider
	if prov == nil {
		client, err := openaicompat.NewClient(openaicompat.Config{
			Name:         cfg.Backend.Name,
			BaseURL:      cfg.Backend.BaseURL,
			APIKey:       cfg.Backend.APIKey,
			Timeout:      cfg.Backend.Timeout,
			ModelMapping: cfg.Backend.ModelMapping,
		})
		if err != nil {
			return nil, fmt.Errorf("creating provider: %w", err)
		}
		prov = client
	}

	tmpl, err := template.New(template.Config{
		Format:       cfg.Template.Format,
		Text:         cfg.Template.Text,
		TextFile:     cfg.Template.TextFile,
		ResponseRole: cfg.Template.ResponseRole,
	})
	if err != nil {
		prov.Close()
		return nil, fmt.Errorf("creating templater: %w", err)
	}

	var backend openai.CompletionModel = prov
	if cfg.Observability.Metrics.Enabled {
		backend = observability.InstrumentModel(prov.Name(), prov)
	}

	adapter, err := openai.NewChatAdapter(backend, tmpl, openai.Config{
		DefaultModel: cfg.Backend.DefaultModel,
	})
	if err != nil {
		prov.Close()
		return nil, fmt.Errorf("creating adapter: %w", err)
	}

	chain := []middleware.Middleware{
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
	}
	if cfg.Observability.Metrics.Enabled {
		chain = append(chain, observability.Metrics())
	}

	slog.Debug("bridge assembled",
		"backend", prov.Name(),
		"template", tmpl.Name(),
		"default_model", cfg.Backend.DefaultModel,
		"metrics", cfg.Observability.Metrics.Enabled,
	)

	return &Bridge{
		Model:     middleware.Chain(chain...)(adapter),
		Provider:  prov,
		Templater: tmpl,
	}, nil
}

// Close releases the backend.
func (b *Bridge) Close() error {
	return b.Provider.Close()
}
