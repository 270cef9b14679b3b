// Package upload sends Alpha Progression or Health Auto Export files from a
// local directory to a remote fitlog server, skipping files already sent.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/claude/fitlog/internal/ingest/alpha"
	"github.com/claude/fitlog/internal/ingest/hae"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	SessionsParsed    int
	SessionsInserted  int
	SetsImported      int
	SnapshotsInserted int
}

// Uploader walks a directory of exports and POSTs each new or changed
// file to the server.
type Uploader struct {
	client *Client
	format Format
	state  *StateDB
	root   string
	dryRun bool
	loc    *time.Location
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. state may be nil to upload every file.
// In dry-run mode files are only parsed; loc is the zone used for their dates.
func New(client *Client, format Format, state *StateDB, root string, dryRun bool, loc *time.Location, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		format: format,
		state:  state,
		root:   root,
		dryRun: dryRun,
		loc:    loc,
		log:    log,
	}
}

// Run executes the upload. A single failing file does not stop the run.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	files, err := findExports(u.root, u.format.extension())
	if err != nil {
		return &u.stats, err
	}
	u.stats.FilesTotal = len(files)
	u.log.Info("found exports", "count", len(files), "root", u.root)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		if err := u.processFile(ctx, path); err != nil {
			u.stats.FilesErrored++
			u.log.Error("upload failed", "file", path, "error", err)
		}
	}
	return &u.stats, nil
}

func (u *Uploader) processFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading export: %w", err)
	}
	hash := hashBytes(data)

	if u.state != nil {
		done, err := u.state.IsUploaded(ctx, path, hash)
		if err != nil {
			return fmt.Errorf("checking upload state: %w", err)
		}
		if done {
			u.stats.FilesSkipped++
			u.log.Debug("skipping unchanged export", "file", path)
			return nil
		}
	}

	if err := u.check(path, data); err != nil {
		return err
	}
	if u.dryRun {
		return nil
	}

	result, err := u.client.Send(ctx, u.format, data)
	if err != nil {
		return err
	}
	u.stats.FilesUploaded++
	u.stats.SessionsInserted += result.SessionsInserted
	u.stats.SetsImported += result.SetsImported
	u.stats.SnapshotsInserted += result.SnapshotsInserted
	u.log.Info("uploaded export",
		"file", path,
		"sessions", result.SessionsInserted,
		"snapshots", result.SnapshotsInserted,
	)

	if u.state != nil {
		if err := u.state.MarkUploaded(ctx, path, hash, result.SessionsInserted+result.SnapshotsInserted); err != nil {
			return fmt.Errorf("recording upload: %w", err)
		}
	}
	return nil
}

// check parses data locally so malformed files fail before upload.
func (u *Uploader) check(path string, data []byte) error {
	if u.format == FormatHAE {
		var payload hae.Payload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parsing export: %w", err)
		}
		if u.dryRun {
			u.log.Info("dry run", "file", path, "metrics", len(payload.Data.Metrics))
		}
		return nil
	}

	sessions, err := alpha.Parse(bytes.NewReader(data), u.loc)
	if err != nil {
		return fmt.Errorf("parsing export: %w", err)
	}
	u.stats.SessionsParsed += len(sessions)
	if u.dryRun {
		u.log.Info("dry run", "file", path, "sessions", len(sessions))
	}
	return nil
}

// findExports returns root itself when it is a file, otherwise every file
// with extension ext below it in lexical order.
func findExports(root, ext string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("export path: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}
