package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/claude/forgemetrics/internal/models"
	"github.com/tidwall/gjson"
)

// Stats tracks sync progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int
	FilesRejected int

	CompletedSent int
	DraftsSent    int
}

// sender is the part of Client the uploader needs.
type sender interface {
	SendSession(ctx context.Context, raw []byte, completed bool) (string, error)
}

// Uploader walks a directory of session backups (one JSON record per file)
// and saves each new or changed one on the server.
type Uploader struct {
	client sender
	state  *StateDB
	dir    string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader.
func New(client *Client, state *StateDB, dir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		dir:    dir,
		dryRun: dryRun,
		log:    log,
	}
}

// Run executes the sync. A file that fails is logged and counted; the walk
// goes on. Only a server that stays unreachable or a cancelled context stops
// the run early.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	err := filepath.WalkDir(u.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return u.processFile(ctx, path)
	})
	if err != nil {
		return &u.stats, fmt.Errorf("syncing %s: %w", u.dir, err)
	}
	return &u.stats, nil
}

func (u *Uploader) processFile(ctx context.Context, path string) error {
	u.stats.FilesTotal++

	relPath, _ := filepath.Rel(u.dir, path)
	info, err := os.Stat(path)
	if err != nil {
		u.log.Warn("stat failed", "file", relPath, "error", err)
		u.stats.FilesErrored++
		return nil
	}

	hash, err := HashFile(path)
	if err != nil {
		u.log.Warn("hash failed", "file", relPath, "error", err)
		u.stats.FilesErrored++
		return nil
	}

	synced, err := u.state.IsSynced(ctx, relPath, info.Size(), hash)
	if err != nil {
		u.log.Warn("state check failed", "file", relPath, "error", err)
		u.stats.FilesErrored++
		return nil
	}
	if synced {
		u.stats.FilesSkipped++
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		u.log.Warn("read failed", "file", relPath, "error", err)
		u.stats.FilesErrored++
		return nil
	}
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		u.log.Warn("not a session record", "file", relPath)
		u.stats.FilesErrored++
		return nil
	}
	completed := gjson.GetBytes(raw, "status").String() == models.StatusCompleted

	if u.dryRun {
		u.log.Info("dry-run: would send", "file", relPath, "completed", completed)
		u.count(completed)
		return nil
	}

	id, err := u.client.SendSession(ctx, raw, completed)
	if errors.Is(err, ErrRejected) {
		u.log.Warn("session rejected", "file", relPath, "error", err)
		u.stats.FilesRejected++
		return nil
	}
	if err != nil {
		return fmt.Errorf("sending %s: %w", relPath, err)
	}

	if err := u.state.MarkSynced(ctx, relPath, info.Size(), hash, id); err != nil {
		u.log.Warn("failed to mark synced", "file", relPath, "error", err)
	}
	u.count(completed)
	u.log.Info("synced session", "file", relPath, "session_id", id, "completed", completed)
	return nil
}

func (u *Uploader) count(completed bool) {
	u.stats.FilesUploaded++
	if completed {
		u.stats.CompletedSent++
	} else {
		u.stats.DraftsSent++
	}
}
