// Command mock-backend runs a deterministic OpenAI-compatible completions
// server for integration testing and local development of chatbridge.
//
// Configuration:
//
//	MOCK_PORT        - Listen port (default: 9090)
//	MOCK_MODELS      - Comma-separated served model names (default: mock-model)
//	MOCK_CHUNK_DELAY - Delay between streamed chunks, e.g. "50ms" (default: 0)
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rhuss/chatbridge/pkg/mockbackend"
	"github.com/rhuss/chatbridge/pkg/observability"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	var opts mockbackend.Options
	if v := os.Getenv("MOCK_MODELS"); v != "" {
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				opts.Models = append(opts.Models, m)
			}
		}
	}
	if v := os.Getenv("MOCK_CHUNK_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Error("invalid MOCK_CHUNK_DELAY", "value", v, "error", err)
			os.Exit(1)
		}
		opts.ChunkDelay = d
	}

	mux := http.NewServeMux()
	mux.Handle("/", observability.HTTPMetrics(mockbackend.NewHandler(opts)))
	mux.Handle("GET /metrics", observability.Handler())

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port, "models", opts.Models)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
