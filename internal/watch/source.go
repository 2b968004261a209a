package watch

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	watchErrors "github.com/bashhack/gitwatcher/internal/errors"
	"github.com/bashhack/gitwatcher/internal/logger"
)

// Source delivers filesystem events. A source that stops delivering reports
// Alive() == false and is replaced by the supervisor.
type Source interface {
	Start() error
	Alive() bool
	Close() error
}

// SourceFactory builds a fresh, unstarted source.
type SourceFactory func() Source

// Relevance decides whether an event path matters.
type Relevance interface {
	IsRelevant(eventPath string) bool
}

// Sink receives relevant events.
type Sink interface {
	Trigger()
}

// FSNotifySource watches the top level of one directory with fsnotify.
type FSNotifySource struct {
	root      string
	relevance Relevance
	sink      Sink
	logger    logger.Logger

	watcher   *fsnotify.Watcher
	alive     atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewFSNotifySource creates a source for root. Subdirectories are not
// watched.
func NewFSNotifySource(root string, relevance Relevance, sink Sink, log logger.Logger) *FSNotifySource {
	return &FSNotifySource{
		root:      filepath.Clean(root),
		relevance: relevance,
		sink:      sink,
		logger:    log,
		done:      make(chan struct{}),
	}
}

// Start registers the watch and begins forwarding events.
func (s *FSNotifySource) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return watchErrors.Wrap(err, "failed to create filesystem watcher")
	}
	if err := w.Add(s.root); err != nil {
		_ = w.Close()
		return watchErrors.Wrapf(err, "failed to watch %s", s.root)
	}

	s.watcher = w
	s.alive.Store(true)
	go s.loop()
	return nil
}

func (s *FSNotifySource) loop() {
	defer close(s.done)
	defer s.alive.Store(false)

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !s.handle(event) {
				return
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				s.logger.Warning("Filesystem watcher overflowed, events were lost")
				return
			}
			s.logger.Warning("Filesystem watcher error: %v", err)
		}
	}
}

// handle returns false when the source can no longer deliver events.
func (s *FSNotifySource) handle(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) == s.root && event.Has(fsnotify.Remove|fsnotify.Rename) {
		s.logger.Error("Watched directory %s was removed or renamed", s.root)
		return false
	}

	// Permission changes alone do not alter content.
	if event.Op == fsnotify.Chmod {
		return true
	}

	if s.relevance.IsRelevant(event.Name) {
		s.logger.Debug("Relevant change: %s %s", event.Op, event.Name)
		s.sink.Trigger()
	}
	return true
}

// Alive reports whether the event loop is still running.
func (s *FSNotifySource) Alive() bool {
	return s.alive.Load()
}

// Close stops the watcher and waits for the event loop to exit.
func (s *FSNotifySource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.watcher == nil {
			return
		}
		err = s.watcher.Close()
		<-s.done
	})
	return err
}
