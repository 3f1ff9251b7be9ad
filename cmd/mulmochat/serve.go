package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/tutumi2011kt-gif/mulmochat/callbacks"
	"github.com/tutumi2011kt-gif/mulmochat/config"
	"github.com/tutumi2011kt-gif/mulmochat/providers/browseapi"
	"github.com/tutumi2011kt-gif/mulmochat/providers/gemini"
	"github.com/tutumi2011kt-gif/mulmochat/providers/imageapi"
	"github.com/tutumi2011kt-gif/mulmochat/providers/realtime"
	"github.com/tutumi2011kt-gif/mulmochat/providers/webfetch"
	"github.com/tutumi2011kt-gif/mulmochat/server"
	"github.com/tutumi2011kt-gif/mulmochat/store"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
	"github.com/tutumi2011kt-gif/mulmochat/tools/builtin"
	"golang.org/x/sync/errgroup"
)

// cleanupInterval of expired sessions
const cleanupInterval = 10 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := newProviders(ctx, cfg)
	if err != nil {
		return err
	}

	st, closeStore, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	reg, err := builtin.NewRegistry(builtin.Deps{
		Images:          providers.images,
		Browser:         providers.browser,
		BeatConcurrency: cfg.Plugins.BeatConcurrency,
		BeatTimeout:     cfg.Plugins.BeatTimeoutDuration(),
	})
	if err != nil {
		return err
	}

	scratchpad := callbacks.NewScratchpad(callbacks.ModeDefault)
	dispatcher := tools.NewDispatcher(reg,
		tools.WithCallback(callbacks.NewFanout(
			callbacks.NewPackageLogger(logger),
			scratchpad,
		)),
	)

	srv, err := server.New(server.Config{
		Environment:  cfg.HTTP.Environment,
		StaticDir:    cfg.HTTP.StaticDir,
		Instructions: cfg.OpenAI.Instructions,
		GoogleMapKey: cfg.GoogleMaps.APIKey,
	}, server.Deps{
		Dispatcher: dispatcher,
		Store:      st,
		Scratchpad: scratchpad,
		Realtime:   providers.realtime,
		Images:     providers.images,
		Browser:    providers.browser,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTP.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.KV(xlog.INFO,
			"status", "listening",
			"addr", cfg.HTTP.ListenAddr,
			"environment", cfg.HTTP.Environment,
			"tools", reg.Names(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen failed")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeoutDuration())
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown failed")
		}
		logger.KV(xlog.INFO, "status", "shutdown")
		return nil
	})
	g.Go(func() error {
		cleanupSessions(gctx, st, scratchpad, cfg.Store.TTLDuration())
		return nil
	})

	return g.Wait()
}

type providerSet struct {
	realtime server.SecretIssuer
	images   imageapi.Generator
	browser  browseapi.Browser
}

// newProviders returns the configured backends.
// A missing API key disables the backend instead of failing the start.
func newProviders(ctx context.Context, cfg *config.Config) (*providerSet, error) {
	timeout := cfg.Plugins.RequestTimeoutDuration()
	ps := new(providerSet)

	rt, err := realtime.New(realtime.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Voice:   cfg.OpenAI.Voice,
	})
	switch {
	case err == nil:
		ps.realtime = rt
	case errors.Is(err, realtime.ErrNoAPIKey):
		logger.KV(xlog.WARNING, "status", "realtime_disabled", "reason", err.Error())
	default:
		return nil, err
	}

	if cfg.Plugins.ImageEndpoint != "" {
		ps.images, err = imageapi.New(imageapi.Config{
			Endpoint: cfg.Plugins.ImageEndpoint,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, err
		}
	} else {
		gen, err := gemini.New(ctx, gemini.Config{
			APIKey:     cfg.Gemini.APIKey,
			Model:      cfg.Gemini.Model,
			BaseURL:    cfg.Gemini.BaseURL,
			HTTPClient: &http.Client{Timeout: timeout},
		})
		switch {
		case err == nil:
			ps.images = gen
		case errors.Is(err, gemini.ErrNoAPIKey):
			logger.KV(xlog.WARNING, "status", "images_disabled", "reason", err.Error())
			ps.images = imageapi.Unavailable{Err: err}
		default:
			return nil, err
		}
	}

	if cfg.Plugins.BrowseEndpoint != "" {
		ps.browser, err = browseapi.New(browseapi.Config{
			Endpoint: cfg.Plugins.BrowseEndpoint,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, err
		}
	} else {
		ps.browser = webfetch.New(webfetch.Config{Timeout: timeout})
	}
	return ps, nil
}

func newStore(cfg *config.Config) (store.SessionStore, func(), error) {
	ttl := cfg.Store.TTLDuration()
	if cfg.Store.Kind != config.StoreRedis {
		return store.NewMemoryStore(ttl), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.Store.RedisURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid store.redis_url")
	}
	client := redis.NewClient(opts)
	closer := func() {
		if err := client.Close(); err != nil {
			logger.KV(xlog.ERROR, "status", "redis_close", "err", err.Error())
		}
	}
	return store.NewRedisStore(client, cfg.Store.Prefix, ttl), closer, nil
}

func cleanupSessions(ctx context.Context, st store.SessionStore, sp *callbacks.Scratchpad, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expireSessions(ctx, st, sp, ttl)
		}
	}
}

// expireSessions removes the sessions idle for longer than ttl
// from the store and from the scratchpad.
func expireSessions(ctx context.Context, st store.SessionStore, sp *callbacks.Scratchpad, ttl time.Duration) {
	if n := sp.Sweep(callbacks.TimeNowFn().Add(-ttl)); n > 0 {
		logger.ContextKV(ctx, xlog.DEBUG, "status", "scratchpad_sweep", "removed", n)
	}

	n, err := st.Cleanup(ctx, ttl)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "status", "cleanup_failed", "err", err.Error())
		return
	}
	if n > 0 {
		logger.ContextKV(ctx, xlog.DEBUG, "status", "cleanup", "deleted", n)
	}
}
