package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
)

// DefaultWatchDebounce is how long Watch waits for writes to settle.
const DefaultWatchDebounce = 100 * time.Millisecond

// FileSource serves snapshots from a JSON file, re-read on every fetch.
type FileSource struct {
	path     string
	debounce time.Duration
	logger   logging.Logger
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string, logger logging.Logger) *FileSource {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FileSource{
		path:     path,
		debounce: DefaultWatchDebounce,
		logger:   logger.With(logging.Component("file-source"), logging.Path(path)),
	}
}

// Path returns the watched file.
func (s *FileSource) Path() string { return s.path }

// FetchSnapshot reads the file and applies the request's type, focus and
// limit restrictions.
func (s *FileSource) FetchSnapshot(ctx context.Context, req FetchRequest) (graph.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return graph.Snapshot{}, &RequestError{Op: OpFetch, Cause: err}
	}
	snap, err := graph.DecodeSnapshot(data)
	if err != nil {
		return graph.Snapshot{}, &RequestError{Op: OpFetch, Cause: err}
	}
	return NewMemory(snap).FetchSnapshot(ctx, req)
}

// Watch calls onChange after the file is written, created or replaced, once
// events have been quiet for the debounce window. It blocks until ctx is done.
// The parent directory is watched so editors that replace the file are seen.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
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
			if timer == nil {
				timer = time.NewTimer(s.debounce)
				timerC = timer.C
			} else {
				timer.Reset(s.debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			s.logger.Debug("snapshot file changed")
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", logging.Error(err))
		}
	}
}
