package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileStore is a Store persisted as a YAML file. Every write rewrites the
// file atomically. Watch reloads it when another process changes it.
type FileStore struct {
	path string

	mu  sync.RWMutex
	doc document

	watcher *fsnotify.Watcher
	once    sync.Once
}

// OpenFileStore loads the store at path. A missing file is an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, doc: make(document)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, scope Scope, vis Visibility, key string) (string, bool, error) {
	if err := validate(scope, vis); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.doc.get(scope, vis, key)
	return v, ok, nil
}

// Set implements Store.
func (s *FileStore) Set(_ context.Context, scope Scope, vis Visibility, key, value string) error {
	if err := validate(scope, vis); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.set(scope, vis, key, value)
	return s.save()
}

// Remove implements Store.
func (s *FileStore) Remove(_ context.Context, scope Scope, vis Visibility, key string) error {
	if err := validate(scope, vis); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.doc.remove(scope, vis, key) {
		return nil
	}
	return s.save()
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading store: %w", err)
	}

	doc := make(document)
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing store %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// save writes the document. Must be called with the lock held.
func (s *FileStore) save() error {
	data, err := yaml.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".store-*")
	if err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("writing store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	return nil
}

// Watch reloads the store whenever the file is written or replaced, until
// ctx is done or Close is called. onReload, if set, runs after each reload.
func (s *FileStore) Watch(ctx context.Context, onReload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		w.Close() //nolint:errcheck
		return fmt.Errorf("creating store dir: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close() //nolint:errcheck
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	s.watcher = w
	log.Debug("fsnotify watching store", "dir", dir)

	go s.watch(ctx, w, onReload)
	return nil
}

func (s *FileStore) watch(ctx context.Context, w *fsnotify.Watcher, onReload func()) {
	for {
		select {
		case <-ctx.Done():
			s.Close() //nolint:errcheck
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			log.Debug("fsnotify event", "file", ev.Name, "event", ev.Op)
			if err := s.load(); err != nil {
				log.Warn("Failed to reload store", "path", s.path, "err", err)
				continue
			}
			if onReload != nil {
				onReload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Debug("fsnotify error", "path", s.path, "err", err)
		}
	}
}

// Close stops watching the file.
func (s *FileStore) Close() error {
	var err error
	s.once.Do(func() {
		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}
