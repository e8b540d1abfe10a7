package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/livehost/internal/logging"
	"github.com/aretw0/livehost/pkg/ports"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 150 * time.Millisecond

// Source is a single source file on disk.
// It implements ports.Watchable so `run --watch` can rebuild on save.
type Source struct {
	Path     string
	Debounce time.Duration
	Logger   *slog.Logger
}

// NewSource returns a Source for path with the default debounce.
func NewSource(path string) *Source {
	return &Source{Path: path, Debounce: DefaultDebounce, Logger: logging.NewNop()}
}

// Read loads the file into a ports.Source named after its path.
func (s *Source) Read() (ports.Source, error) {
	code, err := os.ReadFile(s.Path)
	if err != nil {
		return ports.Source{}, fmt.Errorf("failed to read source %s: %w", s.Path, err)
	}
	return ports.Source{Name: filepath.Base(s.Path), Code: code}, nil
}

// Watch signals once per debounced burst of writes to the file.
// The directory is watched rather than the file, so atomic-rename saves are seen.
// The returned channel is closed when ctx is done.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	abs, err := filepath.Abs(s.Path)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	debounce := s.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := s.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				fire = timer.C
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error", "path", abs, "err", err)
			case <-fire:
				fire = nil
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

var _ ports.Watchable = (*Source)(nil)
