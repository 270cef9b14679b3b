package main

import (
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/claude/fitlog/internal/config"
)

// TestRunReturnsListenError verifies a busy port is reported as an error
// from run instead of exiting the process.
func TestRunReturnsListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()

	cfg := config.Default()
	cfg.Storage.Driver = "memory"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = busy.Addr().(*net.TCPAddr).Port

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(cfg, false, log); err == nil {
		t.Error("run should fail when the port is taken")
	}
}

// TestRunMigrateOnlyWithoutSQLite verifies migrate-only is a no-op for other drivers.
func TestRunMigrateOnlyWithoutSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "memory"

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(cfg, true, log); err != nil {
		t.Errorf("run = %v, want nil", err)
	}
}
