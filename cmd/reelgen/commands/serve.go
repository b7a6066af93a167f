package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/kiranshivaraju/reelgen/internal/api"
	"github.com/kiranshivaraju/reelgen/internal/api/handler"
	mw "github.com/kiranshivaraju/reelgen/internal/api/middleware"
	"github.com/kiranshivaraju/reelgen/internal/cache"
	"github.com/kiranshivaraju/reelgen/internal/generation"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 30 * time.Second

// ServeAction runs the local HTTP API until ctx is canceled.
func ServeAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cfg := appCtx.Config
	port := cfg.Server.Port
	if cmd.IsSet("port") {
		port = cmd.Int("port")
	}
	slog.Info("config loaded", "service_url", cfg.Service.URL, "env", cfg.Server.Env)

	limiterCache, err := rateLimitCache(cfg.History.URL)
	if err != nil {
		return err
	}
	defer limiterCache.Close()

	tracker := generation.NewTracker(appCtx.Service)
	defer tracker.Shutdown()

	auth := mw.NewAuth(cfg.Server.APIKeyHash)
	if !auth.Enabled() {
		slog.Warn("REELGEN_API_KEY_HASH is not set, local API is unauthenticated")
	}

	router := api.NewRouter(dependencies(appCtx, tracker, auth, mw.NewRateLimit(limiterCache, cfg.Server.RateLimitPerMin)))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return serve(ctx, srv)
}

func dependencies(appCtx *AppContext, tracker *generation.Tracker, auth *mw.Auth, limit *mw.RateLimit) api.Dependencies {
	return api.Dependencies{
		Auth:      auth,
		RateLimit: limit,

		HealthHandler:           handler.NewHealthHandler(appCtx.Service, appCtx.History),
		SubmitHandler:           handler.NewSubmitHandler(tracker),
		GetGenerationHandler:    handler.NewGetGenerationHandler(tracker),
		CancelGenerationHandler: handler.NewCancelGenerationHandler(tracker),
		ListHistoryHandler:      handler.NewListHistoryHandler(appCtx.History),
		RemoveHistoryHandler:    handler.NewRemoveHistoryHandler(appCtx.History),
		ClearHistoryHandler:     handler.NewClearHistoryHandler(appCtx.History),
	}
}

// serve runs srv until ctx ends, then drains connections.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// rateLimitCache shares Redis with history when history lives there, so
// several local API instances count against one limit.
func rateLimitCache(historyURL string) (cache.Cache, error) {
	u, err := url.Parse(historyURL)
	if err == nil && (u.Scheme == "redis" || u.Scheme == "rediss") {
		c, err := cache.NewRedisCache(historyURL)
		if err != nil {
			return nil, fmt.Errorf("create rate limit cache: %w", err)
		}
		return c, nil
	}
	return cache.NewMemoryCache(), nil
}
