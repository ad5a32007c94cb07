package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/forum/pkg/observability"
)

// ReadLogLevel reads observability.log_level from a YAML config file.
// ok is false when the file does not set it.
func ReadLogLevel(path string) (level observability.LogLevel, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return observability.InfoLevel, false, err
	}
	var doc struct {
		Observability struct {
			LogLevel *observability.LogLevel `yaml:"log_level"`
		} `yaml:"observability"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return observability.InfoLevel, false, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if doc.Observability.LogLevel == nil {
		return observability.InfoLevel, false, nil
	}
	return *doc.Observability.LogLevel, true, nil
}

// WatchLogLevel calls apply with the file's log level every time the file is
// written or replaced, until ctx is cancelled. The containing directory is
// watched so that editors that rename over the file are seen too.
func WatchLogLevel(ctx context.Context, path string, logger *observability.Logger, apply func(observability.LogLevel)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			level, set, err := ReadLogLevel(abs)
			if err != nil {
				logger.WithError(err).Warn("failed to reload log level")
				continue
			}
			if set {
				apply(level)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("config watcher error")
		}
	}
}
