package subscribers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// File is the on-disk form read by subscriberctl.
//
//	subscribers:
//	  - name: On-call
//	    email: oncall@example.com
//	    active: true
type File struct {
	Subscribers []Subscriber `yaml:"subscribers"`
}

// LoadFile reads and validates a subscriber YAML file. Unknown fields are rejected.
func LoadFile(path string) ([]Subscriber, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseFile(data)
}

// ParseFile decodes subscriber YAML.
func ParseFile(data []byte) ([]Subscriber, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse subscribers: %w", err)
	}
	if err := Validate(f.Subscribers); err != nil {
		return nil, err
	}
	if f.Subscribers == nil {
		return []Subscriber{}, nil
	}
	return f.Subscribers, nil
}

// Watch reloads path whenever it is written or replaced and passes the new
// list to onChange. The parent directory is watched so that editors saving
// through a rename keep being followed. A file that fails to load is logged
// and skipped. Watch runs until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func([]Subscriber)) error {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	slog.Info("Watching subscriber file", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			// A rename over path arrives as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			list, err := LoadFile(path)
			if err != nil {
				slog.Error("Subscriber file reload failed, keeping previous list", "path", path, "error", err)
				continue
			}

			slog.Info("Subscriber file reloaded", "path", path, "count", len(list))
			onChange(list)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Subscriber file watcher error", "error", err)
		}
	}
}
