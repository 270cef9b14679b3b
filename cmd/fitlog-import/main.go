package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/fitlog/internal/config"
	"github.com/claude/fitlog/internal/ingest"
	"github.com/claude/fitlog/internal/ingest/alpha"
	"github.com/claude/fitlog/internal/ingest/hae"
	"github.com/claude/fitlog/internal/logging"
	"github.com/claude/fitlog/internal/state"
	"github.com/claude/fitlog/internal/storage"
	"github.com/claude/fitlog/internal/upload"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	path := flag.String("path", "", "export file, or directory of exports (required)")
	format := flag.String("format", "alpha", "export format: alpha (CSV) or hae (Health Auto Export JSON)")
	serverURL := flag.String("server", "", "upload to a remote fitlog server instead of the local store")
	apiKey := flag.String("api-key", "", "API key for -server (default: FITLOG_AUTH_API_KEY)")
	stateDir := flag.String("state-dir", defaultStateDir(), "where -server mode remembers uploaded files")
	dryRun := flag.Bool("dry-run", false, "parse exports without importing")
	quiet := flag.Bool("quiet", false, "suppress log output")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("fitlog-import", Version)
		return
	}

	if *path == "" {
		fmt.Fprintf(os.Stderr, "Usage: fitlog-import -path <file|dir> [-format alpha|hae] [-server URL -api-key KEY] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	f := upload.Format(*format)
	if f != upload.FormatAlpha && f != upload.FormatHAE {
		fmt.Fprintf(os.Stderr, "Error: -format must be alpha or hae\n")
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.Discard()
	if !*quiet {
		var closer io.Closer
		log, closer, err = logging.New(logging.Options{Level: cfg.Log.Level})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
			os.Exit(1)
		}
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *serverURL != "" || *dryRun {
		key := *apiKey
		if key == "" {
			key = cfg.Auth.APIKey
		}
		if err := runUpload(ctx, cfg, f, *serverURL, key, *stateDir, *path, *dryRun, log); err != nil {
			log.Error("upload failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runLocal(ctx, cfg, f, *path, log); err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fitlog-import"
	}
	return filepath.Join(home, ".fitlog-import")
}

func runUpload(ctx context.Context, cfg *config.Config, f upload.Format, serverURL, apiKey, stateDir, path string, dryRun bool, log *slog.Logger) error {
	if dryRun {
		log.Info("DRY RUN mode: nothing will be sent to the server")
	}

	var st *upload.StateDB
	if !dryRun {
		var err error
		st, err = upload.OpenStateDB(stateDir)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	u := upload.New(upload.NewClient(serverURL, apiKey), f, st, path, dryRun, cfg.Location(), log)
	stats, err := u.Run(ctx)
	log.Info("upload stats",
		"files_total", stats.FilesTotal,
		"files_uploaded", stats.FilesUploaded,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"sessions_parsed", stats.SessionsParsed,
		"sessions_inserted", stats.SessionsInserted,
		"sets_imported", stats.SetsImported,
		"snapshots_inserted", stats.SnapshotsInserted,
	)
	if err != nil {
		return err
	}
	if stats.FilesErrored > 0 {
		return fmt.Errorf("%d file(s) failed", stats.FilesErrored)
	}
	return nil
}

// runLocal imports directly into the configured store. The server must not
// be running against the same store.
func runLocal(ctx context.Context, cfg *config.Config, f upload.Format, path string, log *slog.Logger) error {
	backend, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer backend.Close()

	st := state.Open(ctx, storage.NewStore(backend, log), log, state.WithStrictDurability(true))

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening export: %w", err)
	}
	defer file.Close()
	if info, err := file.Stat(); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory; local import takes a single export file", path)
	}

	var result *ingest.Result
	switch f {
	case upload.FormatHAE:
		result, err = hae.NewProvider(st, cfg.Location(), log).Ingest(ctx, file)
	default:
		result, err = alpha.NewProvider(st, cfg.Location(), log).Ingest(ctx, file)
	}
	if err != nil {
		return err
	}
	log.Info("import complete",
		"sessions_inserted", result.SessionsInserted,
		"sessions_skipped", result.SessionsSkipped,
		"sets_imported", result.SetsImported,
		"warmups_skipped", result.WarmupsSkipped,
		"snapshots_inserted", result.SnapshotsInserted,
		"snapshots_skipped", result.SnapshotsSkipped,
	)
	return nil
}
