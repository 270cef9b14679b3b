// Command fitlog-mcp serves the fitlog MCP tools over stdio. Data is read
// from a running fitlog server, typically reached over the tailnet.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/claude/fitlog/internal/logging"
	"github.com/claude/fitlog/internal/mcp"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "fitlog server URL (default: FITLOG_SERVER_URL)")
	logLevel := flag.String("log-level", "warn", "log level (logs go to stderr)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("fitlog-mcp", Version)
		return
	}

	_ = godotenv.Load()

	url := *serverURL
	if url == "" {
		url = os.Getenv("FITLOG_SERVER_URL")
	}
	if url == "" {
		fmt.Fprintf(os.Stderr, "Usage: fitlog-mcp -server https://fitlog.<tailnet>.ts.net\n")
		os.Exit(1)
	}

	// stdout carries the protocol.
	log, closer, err := logging.New(logging.Options{Level: *logLevel, Stdout: os.Stderr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	s := mcp.New(mcp.NewHTTPClient(url), Version, log)
	log.Info("fitlog-mcp serving on stdio", "server", url)
	if err := server.ServeStdio(s); err != nil {
		log.Error("stdio server stopped", "error", err)
		os.Exit(1)
	}
}
