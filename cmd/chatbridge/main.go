// Command chatbridge serves chat completions on top of an OpenAI-compatible
// /v1/completions backend. Chat messages are rendered into a single prompt
// with a chat template and the backend's text completion is reshaped into
// a chat completion, or a stream of chat completion chunks.
//
// Configuration is read from a YAML file (--config, CHATBRIDGE_CONFIG,
// ./config.yaml or /etc/chatbridge/config.yaml) and CHATBRIDGE_* environment
// variables, e.g.:
//
//	CHATBRIDGE_BACKEND_URL - Completions backend URL (required)
//	CHATBRIDGE_MODEL       - Default model name
//	CHATBRIDGE_TEMPLATE    - Chat template: chatml, plain or custom
//	CHATBRIDGE_DEBUG       - Debug categories, e.g. "providers,adapter"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/config"
	"github.com/rhuss/chatbridge/pkg/debug"
	"github.com/spf13/cobra"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatbridge",
		Short: "Chat completions on top of a text completions backend",
		Long: `chatbridge renders chat messages into a prompt with a chat template, sends it
to an OpenAI-compatible /v1/completions backend and returns the result in the
chat completion shape, either as a single completion or as a stream of chunks.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "configuration file path")

	rootCmd.AddCommand(newChatCmd(), newModelsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// loadConfig loads the configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	debug.Init(cfg.Logging.Debug, cfg.Logging.Level)
	slog.Debug("configuration loaded",
		"backend", cfg.Backend.BaseURL,
		"template", cfg.Template.Format,
		"debug_categories", debug.Categories(),
	)
	return cfg, nil
}

// exitCode returns 2 for rejected requests and 1 for every other failure.
func exitCode(err error) int {
	if api.IsInvalidRequest(err) {
		return 2
	}
	return 1
}
