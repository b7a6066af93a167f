// Package commands implements the reelgen CLI actions.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kiranshivaraju/reelgen/internal/config"
	"github.com/kiranshivaraju/reelgen/internal/genapi"
	"github.com/kiranshivaraju/reelgen/internal/generation"
	"github.com/kiranshivaraju/reelgen/internal/history"
	"github.com/kiranshivaraju/reelgen/internal/keychain"
)

// AppContext holds what every command needs: configuration, the generation
// service and the history store.
type AppContext struct {
	Config  *config.Config
	Service *generation.Service
	History *history.Store

	historyCloser io.Closer
}

// NewAppContext loads configuration from envFile and opens the history
// backend and the service client.
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	setupLogger(cfg.Log, os.Stderr)

	backend, closer, err := history.Open(ctx, cfg.History.URL)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	hist := history.NewStore(backend)

	client, err := genapi.NewHTTPClient(cfg.Service.URL, keychain.Resolve(cfg.Service.Token), cfg.Service.Timeout)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("create service client: %w", err)
	}

	return &AppContext{
		Config:        cfg,
		Service:       generation.NewService(client, hist, cfg.Service.PollInterval),
		History:       hist,
		historyCloser: closer,
	}, nil
}

// Close releases the history backend.
func (ac *AppContext) Close() {
	if ac.historyCloser == nil {
		return
	}
	if err := ac.historyCloser.Close(); err != nil {
		slog.Warn("closing history backend failed", "error", err)
	}
}

func setupLogger(cfg config.LogConfig, w io.Writer) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}
