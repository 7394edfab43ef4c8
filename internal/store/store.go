// Package store provides per-identity birthday lists backed by a filesystem.
// Each identity code owns one JSON file under users/.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zbday/internal/birthday"
	"golang.org/x/text/cases"
)

const usersDir = "users"

// Store manages birthday list files on a filesystem.
type Store struct {
	fs zfilesystem.ReadWriteFileFS

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open prepares the users directory and returns a store.
func Open(fsys zfilesystem.ReadWriteFileFS) (*Store, error) {
	if err := fsys.MkdirAll(usersDir, 0o700); err != nil {
		return nil, fmt.Errorf("open store: create users dir: %w", err)
	}

	return &Store{fs: fsys, locks: make(map[string]*sync.Mutex)}, nil
}

// Load returns the list for code. A missing file is an empty list.
func (s *Store) Load(code string) (birthday.List, error) {
	unlock := s.lock(code)
	defer unlock()

	return s.load(code)
}

// Add validates r, appends it and rewrites the list.
func (s *Store) Add(code string, r birthday.Record) error {
	r.Name = strings.TrimSpace(r.Name)
	if err := r.Validate(); err != nil {
		return fmt.Errorf("add birthday: %w", err)
	}

	unlock := s.lock(code)
	defer unlock()

	list, err := s.load(code)
	if err != nil {
		return fmt.Errorf("add birthday: %w", err)
	}

	list = append(list, r)
	if err := s.save(code, list); err != nil {
		return fmt.Errorf("add birthday: %w", err)
	}

	return nil
}

// Remove deletes the first record whose name contains query, ignoring case,
// and returns it.
func (s *Store) Remove(code, query string) (birthday.Record, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return birthday.Record{}, errors.New("remove birthday: empty query")
	}

	unlock := s.lock(code)
	defer unlock()

	list, err := s.load(code)
	if err != nil {
		return birthday.Record{}, fmt.Errorf("remove birthday: %w", err)
	}

	i := FindFirst(list, q)
	if i < 0 {
		return birthday.Record{}, fmt.Errorf("remove birthday %q: %w", q, birthday.ErrNotFound)
	}

	removed := list[i]
	list = append(list[:i:i], list[i+1:]...)
	if err := s.save(code, list); err != nil {
		return birthday.Record{}, fmt.Errorf("remove birthday: %w", err)
	}

	return removed, nil
}

// FindFirst returns the index of the first record whose case-folded name
// contains the case-folded query, or -1.
func FindFirst(list birthday.List, query string) int {
	fold := cases.Fold()
	q := fold.String(query)
	for i, r := range list {
		if strings.Contains(fold.String(r.Name), q) {
			return i
		}
	}
	return -1
}

func (s *Store) load(code string) (birthday.List, error) {
	path, err := userPath(code)
	if err != nil {
		return nil, err
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return birthday.List{}, nil
		}
		return nil, birthday.IOError("read "+path, err)
	}

	var list birthday.List
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, birthday.IOError("decode "+path, err)
	}
	if list == nil {
		list = birthday.List{}
	}

	return list, nil
}

func (s *Store) save(code string, list birthday.List) error {
	path, err := userPath(code)
	if err != nil {
		return err
	}

	if list == nil {
		list = birthday.List{}
	}

	data, err := Encode(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := s.fs.WriteFile(path, data, 0o600); err != nil {
		return birthday.IOError("write "+path, err)
	}

	return nil
}

// lock serializes read-modify-write cycles per identity code.
func (s *Store) lock(code string) func() {
	s.mu.Lock()
	l, ok := s.locks[code]
	if !ok {
		l = &sync.Mutex{}
		s.locks[code] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Encode renders v as indented UTF-8 JSON without HTML escaping.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func userPath(code string) (string, error) {
	if code == "" || strings.ContainsAny(code, `/\`) || strings.Contains(code, "..") {
		return "", fmt.Errorf("%w: %q", birthday.ErrInvalidCode, code)
	}
	return usersDir + "/user_" + code + ".json", nil
}
