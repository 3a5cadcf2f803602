// Package tokenfile implements an auth.Authenticator backed by a YAML file
// of bearer tokens. The file is watched with fsnotify so token changes take
// effect without a restart. Intended for single-operator and development
// deployments; production services should prefer a JWT authenticator.
package tokenfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/driphttp/drip/auth"
)

// Entry is one token record in the file.
type Entry struct {
	Token  string   `yaml:"token"`
	UserID string   `yaml:"user"`
	Scopes []string `yaml:"scopes,omitempty"`
}

type tokenFile struct {
	Tokens []Entry `yaml:"tokens"`
}

// Authenticator validates bearer tokens against the file contents.
type Authenticator struct {
	path string
	log  *slog.Logger

	mu     sync.RWMutex
	byTok  map[string]Entry
	cancel context.CancelFunc
	done   chan struct{}
}

var _ auth.Authenticator = (*Authenticator)(nil)

// Option configures the Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger used for reload events. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) { a.log = l }
}

// New loads path and starts watching it for changes. The watch stops when
// ctx ends or Close is called.
func New(ctx context.Context, path string, opts ...Option) (*Authenticator, error) {
	a := &Authenticator{
		path: path,
		log:  slog.Default(),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("token file watcher: %w", err)
	}
	// Watch the directory rather than the file itself: editors and config
	// management tools typically replace the file, which would drop a watch
	// on the old inode.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("token file watch %q: %w", path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go a.run(ctx, watcher)
	return a, nil
}

// Close stops the file watcher.
func (a *Authenticator) Close() error {
	a.cancel()
	<-a.done
	return nil
}

func (a *Authenticator) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(a.done)
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(a.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := a.reload(); err != nil {
				a.log.Warn("tokenfile.reload.fail", slog.String("path", a.path), slog.String("err", err.Error()))
				continue
			}
			a.log.Info("tokenfile.reload.ok", slog.String("path", a.path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			a.log.Warn("tokenfile.watch.err", slog.String("err", err.Error()))
		}
	}
}

func (a *Authenticator) reload() error {
	raw, err := os.ReadFile(a.path)
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}
	var tf tokenFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return fmt.Errorf("parse token file: %w", err)
	}
	byTok := make(map[string]Entry, len(tf.Tokens))
	for _, e := range tf.Tokens {
		if e.Token == "" || e.UserID == "" {
			return fmt.Errorf("token file entry missing token or user")
		}
		byTok[e.Token] = e
	}
	a.mu.Lock()
	a.byTok = byTok
	a.mu.Unlock()
	return nil
}

// CheckAuthentication implements auth.Authenticator.
func (a *Authenticator) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	a.mu.RLock()
	e, ok := a.byTok[tok]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", auth.ErrUnauthorized)
	}
	return user{e: e}, nil
}

type user struct{ e Entry }

func (u user) UserID() string { return u.e.UserID }

func (u user) Claims(ref any) error {
	b, err := yaml.Marshal(map[string]any{"sub": u.e.UserID, "scopes": u.e.Scopes})
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, ref)
}
