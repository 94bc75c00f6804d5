package policy

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/errs"
)

// Watch reloads path into store whenever the file changes, until ctx ends.
// An invalid file is logged and the previous policy stays in force.
func Watch(ctx context.Context, path string, store *Store) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if store == nil {
		return errNoPolicy
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("policy file is required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "infrastructure.policy"), slog.String("path", path))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Wrap(err, "create policy watcher")
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errs.Wrap(err, "watch policy directory")
	}
	target := filepath.Clean(path)
	logging.Info(logCtx, "policy watcher started")

	for {
		select {
		case <-ctx.Done():
			logging.Info(logCtx, "policy watcher stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			reload(logCtx, path, store)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn(logCtx, "policy watcher error", slog.Any("err", errs.Loggable(err)))
		}
	}
}

func reload(ctx context.Context, path string, store *Store) {
	p, err := Load(path)
	if err != nil {
		logging.Warn(ctx, "policy reload rejected, keeping previous policy", slog.Any("err", errs.Loggable(err)))
		return
	}
	store.Swap(p)
	logging.Info(ctx, "policy reloaded",
		slog.Duration("alert_ttl", p.AlertTTL.Duration()),
		slog.Int("sender_velocity_max", p.SenderVelocityMax),
		slog.Int("max_identifiers_per_owner", p.MaxIdentifiersPerOwner),
	)
}
