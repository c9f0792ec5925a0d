// Package script runs operator-authored Tengo scripts for the tools module.
// Scripts live in a directory on an abstracted filesystem and are hot
// reloaded when the underlying files change.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

const scriptExt = ".tengo"

// Script is a single loaded script.
type Script struct {
	Name    string
	Path    string
	Content []byte
}

// Service loads, watches and executes scripts. The filesystem is injected
// so tests can run against an in-memory one.
type Service struct {
	fs      afero.Fs
	dir     string
	timeout time.Duration

	mu      sync.RWMutex
	scripts map[string]*Script
}

// NewService creates a script service rooted at dir. timeout bounds a
// single execution; zero means no limit.
func NewService(fs afero.Fs, dir string, timeout time.Duration) *Service {
	return &Service{
		fs:      fs,
		dir:     dir,
		timeout: timeout,
		scripts: make(map[string]*Script),
	}
}

// Load discovers every *.tengo file under the service's directory. A
// missing directory is not an error; the tools module simply has no
// scripts to offer.
func (s *Service) Load() error {
	exists, err := afero.DirExists(s.fs, s.dir)
	if err != nil {
		return fmt.Errorf("script dir: %w", err)
	}
	if !exists {
		slog.Info("Script directory does not exist, no tools loaded", "dir", s.dir)
		return nil
	}

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return fmt.Errorf("read script dir: %w", err)
	}

	loaded := make(map[string]*Script)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), scriptExt) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		content, err := afero.ReadFile(s.fs, path)
		if err != nil {
			slog.Warn("Skipping unreadable script", "path", path, "error", err)
			continue
		}
		name := strings.TrimSuffix(entry.Name(), scriptExt)
		loaded[name] = &Script{Name: name, Path: path, Content: content}
	}

	s.mu.Lock()
	s.scripts = loaded
	s.mu.Unlock()

	slog.Info("Loaded tool scripts", "count", len(loaded), "dir", s.dir)
	return nil
}

// List returns the loaded script names, sorted.
func (s *Service) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.scripts))
	for name := range s.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes a script by name with the given input variables and returns
// its "output" variable, if the script set one.
func (s *Service) Run(ctx context.Context, name string, input map[string]interface{}) (string, error) {
	s.mu.RLock()
	sc, ok := s.scripts[name]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown script %q", name)
	}

	script := tengo.NewScript(sc.Content)
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))
	for k, v := range input {
		if err := script.Add(k, v); err != nil {
			return "", fmt.Errorf("set input %q: %w", k, err)
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	compiled, err := script.RunContext(ctx)
	if err != nil {
		return "", fmt.Errorf("run script %q: %w", name, err)
	}

	if out := compiled.Get("output"); out != nil {
		return out.String(), nil
	}
	return "", nil
}

// Watch hot-reloads the script set when files under the directory change.
// It blocks until the context is canceled, so run it on its own goroutine.
// fsnotify watches the real filesystem; in-memory test filesystems simply
// never fire events.
func (s *Service) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("script watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch %q: %w", s.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, scriptExt) {
				continue
			}
			slog.Debug("Script change detected, reloading", "event", event.Op.String(), "path", event.Name)
			if err := s.Load(); err != nil {
				slog.Error("Failed to reload scripts", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Script watcher error", "error", err)
		}
	}
}
