package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/suspectuso/earn-bot/internal/ledger"
	"github.com/suspectuso/earn-bot/internal/metrics"
	"github.com/suspectuso/earn-bot/internal/storage"
)

// Source provides a consistent copy of the committed account table
type Source interface {
	Snapshot(ctx context.Context) ([]ledger.Account, error)
}

// Uploader stores a backup object off-host
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) error
}

// Job writes ledger snapshots in users.json format
type Job struct {
	source   Source
	dir      string
	uploader Uploader
	clock    clockwork.Clock
	log      *slog.Logger
}

// NewJob creates a backup job. uploader may be nil.
func NewJob(source Source, dir string, uploader Uploader, clock clockwork.Clock, log *slog.Logger) *Job {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Job{
		source:   source,
		dir:      dir,
		uploader: uploader,
		clock:    clock,
		log:      log,
	}
}

// Run writes one snapshot and returns its local path
func (j *Job) Run(ctx context.Context) (string, error) {
	path, err := j.run(ctx)
	if err != nil {
		metrics.Backups.WithLabelValues("error").Inc()
		return path, err
	}
	metrics.Backups.WithLabelValues("ok").Inc()
	return path, nil
}

func (j *Job) run(ctx context.Context) (string, error) {
	accounts, err := j.source.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot ledger: %w", err)
	}

	data, err := storage.MarshalUsers(accounts)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := FileName(j.clock.Now())
	path := filepath.Join(j.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	j.log.Info("ledger backup written", "path", path, "accounts", len(accounts))

	if j.uploader != nil {
		key := "backups/" + name
		if err := j.uploader.Upload(ctx, key, data); err != nil {
			return path, fmt.Errorf("upload backup: %w", err)
		}
		j.log.Info("ledger backup uploaded", "key", key)
	}

	return path, nil
}

// FileName is the backup file name for a snapshot taken at t
func FileName(t time.Time) string {
	return "ledger-" + t.UTC().Format("20060102T150405Z") + ".json"
}
