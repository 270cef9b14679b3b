package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/fitlog/internal/activity"
	"github.com/claude/fitlog/internal/aggregate"
	"github.com/claude/fitlog/internal/config"
	"github.com/claude/fitlog/internal/ingest/alpha"
	"github.com/claude/fitlog/internal/ingest/hae"
	"github.com/claude/fitlog/internal/logging"
	"github.com/claude/fitlog/internal/mcp"
	"github.com/claude/fitlog/internal/nutrition"
	"github.com/claude/fitlog/internal/server"
	"github.com/claude/fitlog/internal/state"
	"github.com/claude/fitlog/internal/storage"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, logCloser, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, *migrateOnly, log)
	if err != nil {
		log.Error("fitlog stopped", "error", err)
	}
	_ = logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}

// run serves until SIGINT or SIGTERM. Everything it opens is closed before it
// returns.
func run(cfg *config.Config, migrateOnly bool, log *slog.Logger) error {
	log.Info("FitLog starting", "version", Version, "storage", cfg.Storage.Driver)

	if migrateOnly {
		if cfg.Storage.Driver != "sqlite" {
			log.Info("migrate-only: nothing to migrate", "driver", cfg.Storage.Driver)
			return nil
		}
		if err := storage.RunMigrations(cfg.Storage.Path); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		log.Info("migrations applied")
		return nil
	}

	backend, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer backend.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := storage.NewStore(backend, log)
	st := state.Open(ctx, store, log, state.WithStrictDurability(cfg.Storage.Strict))
	loc := cfg.Location()

	// Nutrition AI, barcode lookup and coach
	gemini := nutrition.NewGeminiClient(nutrition.GeminiConfig{
		APIKey:      cfg.Nutrition.GeminiAPIKey,
		VisionModel: cfg.Nutrition.VisionModel,
		TextModel:   cfg.Nutrition.TextModel,
	}, log)

	deps := server.Deps{
		State:    st,
		Alpha:    alpha.NewProvider(st, loc, log),
		HAE:      hae.NewProvider(st, loc, log),
		Barcode:  nutrition.NewOpenFoodFactsClient(cfg.Nutrition.BarcodeURL, log),
		Coach:    nutrition.NewCoach(gemini, log),
		APIKey:   cfg.Auth.APIKey,
		Location: loc,
		Goals:    aggregate.DefaultGoals,
	}
	if gemini.Configured() {
		deps.Analyzer = gemini
	} else {
		log.Warn("gemini api key not set; meal scan disabled")
	}
	if cfg.Strava.Enabled() {
		deps.Activity = activity.NewClient(activity.Config{
			ClientID:     cfg.Strava.ClientID,
			ClientSecret: cfg.Strava.ClientSecret,
			RedirectURL:  cfg.Strava.RedirectURL,
		}, backend, log)
	}

	mcpServer := mcp.New(mcp.NewLocal(st, loc, aggregate.DefaultGoals), Version, log)
	deps.MCP = mcp.Handler(mcpServer)

	srv := server.New(deps, log)

	// Start server: tsnet or plain HTTP
	listener, tsServer, err := listen(cfg, srv, log)
	if err != nil {
		return err
	}
	if tsServer != nil {
		defer tsServer.Close()
	}

	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// listen opens the tailnet listener when Tailscale is enabled, otherwise a
// plain TCP listener on the configured address.
func listen(cfg *config.Config, srv *server.Server, log *slog.Logger) (net.Listener, *tsnet.Server, error) {
	if !cfg.Tailscale.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("listen %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
		return ln, nil, nil
	}

	tsServer := &tsnet.Server{
		Hostname: cfg.Tailscale.Hostname,
		Dir:      cfg.Tailscale.StateDir,
	}
	if err := tsServer.Start(); err != nil {
		return nil, nil, fmt.Errorf("tsnet start: %w", err)
	}
	lc, err := tsServer.LocalClient()
	if err != nil {
		tsServer.Close()
		return nil, nil, fmt.Errorf("tsnet local client: %w", err)
	}
	srv.SetTailscale(lc)

	ln, err := tsServer.Listen("tcp", ":80")
	if err != nil {
		tsServer.Close()
		return nil, nil, fmt.Errorf("tsnet listen: %w", err)
	}
	log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	return ln, tsServer, nil
}
