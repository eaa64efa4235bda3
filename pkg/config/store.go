package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/erdide/nodedebug/pkg/logflags"
)

// Store holds the active configuration and serves it to the components
// that read settings on every call. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	path      string
	conf      *Config
	overrides func(*Config)
}

// NewStore returns a Store serving conf. The path is the file Reload and
// Watch read from, it may be empty if the configuration is never reloaded.
func NewStore(path string, conf *Config) *Store {
	if conf == nil {
		conf = defaultConfig()
	}
	return &Store{path: path, conf: conf}
}

// SetOverrides registers a function applied to the configuration now and
// after every reload, used for command line flags that take precedence
// over the file.
func (s *Store) SetOverrides(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = fn
	if fn != nil {
		fn(s.conf)
	}
}

// Config returns a copy of the active configuration. The copy shares no
// memory with the active configuration.
func (s *Store) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := *s.conf
	if s.conf.Aliases != nil {
		c.Aliases = make(map[string][]string, len(s.conf.Aliases))
		for cmd, aliases := range s.conf.Aliases {
			c.Aliases[cmd] = append([]string(nil), aliases...)
		}
	}
	return &c
}

// Update applies fn to the active configuration. Changes that are not
// saved are lost on the next reload.
func (s *Store) Update(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.conf)
}

// Path returns the file the configuration is loaded from.
func (s *Store) Path() string {
	return s.path
}

// TestnetURL returns the test network endpoint.
func (s *Store) TestnetURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conf.TestnetURL
}

// RestDebuggerPort returns the port of the local debug server.
func (s *Store) RestDebuggerPort() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conf.RestDebuggerPort
}

// IdeFolder returns the SDK tools folder.
func (s *Store) IdeFolder() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conf.IdeFolder
}

// Reload reads the configuration file again. On error the active
// configuration is left untouched.
func (s *Store) Reload() error {
	c, err := LoadConfigFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overrides != nil {
		s.overrides(c)
	}
	s.conf = c
	return nil
}

// Watch reloads the configuration every time its file changes, until ctx
// is done. The containing directory is watched since editors often replace
// files instead of writing them in place.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	logger := logflags.ControllerLogger()
	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.Reload(); err != nil {
				logger.Warnf("could not reload %s: %v", s.path, err)
				continue
			}
			logger.Debugf("reloaded %s", s.path)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("config watcher: %v", err)
		}
	}
}
