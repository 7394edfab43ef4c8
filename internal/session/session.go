// Package session binds chat recipient handles to identity codes.
//
// The registry keeps an in-memory mirror of sessions.json. Every mutation
// writes the full mapping first and only then updates the mirror, so a failed
// write leaves memory equal to the last persisted state.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zbday/internal/birthday"
	"github.com/zarlcorp/zbday/internal/store"
)

const sessionsFile = "sessions.json"

// Directory resolves identity codes to display names.
type Directory interface {
	Resolve(code string) (string, error)
}

// Session is one handle to code binding.
type Session struct {
	Handle string
	Code   string
}

// Registry is the durable handle to code mapping.
type Registry struct {
	fs     zfilesystem.ReadWriteFileFS
	dir    Directory
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]string
}

// Open loads sessions.json. Sessions whose code is no longer in dir are
// dropped and the file is rewritten without them.
func Open(fsys zfilesystem.ReadWriteFileFS, dir Directory, logger *slog.Logger) (*Registry, error) {
	r := &Registry{
		fs:       fsys,
		dir:      dir,
		logger:   logger,
		sessions: make(map[string]string),
	}

	loaded, err := r.read()
	if err != nil {
		return nil, fmt.Errorf("open sessions: %w", err)
	}

	kept := make(map[string]string, len(loaded))
	for handle, code := range loaded {
		if _, err := dir.Resolve(code); err != nil {
			logger.Warn("dropping orphaned session", "handle", handle, "code", code)
			continue
		}
		kept[handle] = code
	}

	if len(kept) != len(loaded) {
		if err := r.write(kept); err != nil {
			return nil, fmt.Errorf("open sessions: %w", err)
		}
	}

	r.sessions = kept
	return r, nil
}

// Bind overwrites any binding for handle. The mapping is persisted before
// the call returns.
func (r *Registry) Bind(handle, code string) error {
	if _, err := r.dir.Resolve(code); err != nil {
		return fmt.Errorf("bind session: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := maps.Clone(r.sessions)
	next[handle] = code

	if err := r.write(next); err != nil {
		return fmt.Errorf("bind session: %w", err)
	}

	r.sessions = next
	return nil
}

// Unbind removes the binding for handle. Unknown handles are a no-op.
func (r *Registry) Unbind(handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[handle]; !ok {
		return nil
	}

	next := maps.Clone(r.sessions)
	delete(next, handle)

	if err := r.write(next); err != nil {
		return fmt.Errorf("unbind session: %w", err)
	}

	r.sessions = next
	return nil
}

// Lookup returns the code bound to handle or birthday.ErrUnauthorized.
func (r *Registry) Lookup(handle string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	code, ok := r.sessions[handle]
	if !ok {
		return "", birthday.ErrUnauthorized
	}
	return code, nil
}

// All returns a snapshot of every session sorted by handle.
func (r *Registry) All() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := slices.Sorted(maps.Keys(r.sessions))
	out := make([]Session, len(handles))
	for i, h := range handles {
		out[i] = Session{Handle: h, Code: r.sessions[h]}
	}
	return out
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) read() (map[string]string, error) {
	data, err := r.fs.ReadFile(sessionsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, birthday.IOError("read "+sessionsFile, err)
	}

	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, birthday.IOError("decode "+sessionsFile, err)
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

func (r *Registry) write(m map[string]string) error {
	data, err := store.Encode(m)
	if err != nil {
		return fmt.Errorf("encode %s: %w", sessionsFile, err)
	}

	if err := r.fs.WriteFile(sessionsFile, data, 0o600); err != nil {
		return birthday.IOError("write "+sessionsFile, err)
	}
	return nil
}
