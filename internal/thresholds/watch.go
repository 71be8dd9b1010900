package thresholds

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Reload re-reads the backing file and applies it through Update when it differs
// from the current thresholds. Unreadable or invalid content is logged and ignored.
func (s *Store) Reload() error {
	if s.path == "" {
		return errors.New("store has no backing file")
	}
	cfg, err := Load(s.path)
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("ignoring unusable thresholds file")
		return err
	}
	if cfg == s.Current() {
		return nil
	}
	return s.Update(cfg)
}

// Watch applies external edits of the threshold file until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return errors.New("store has no backing file")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)
	s.log.Debug().Str("path", target).Msg("watching thresholds file")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			_ = s.Reload()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("thresholds watcher error")
		}
	}
}
