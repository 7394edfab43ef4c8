// Package directory holds the static table of identity codes and display
// names. The table is read once from a YAML file at startup.
package directory

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/zbday/internal/birthday"
	"gopkg.in/yaml.v3"
)

// file is the on-disk layout:
//
//	users:
//	  "2": Надежда
//	  "14": Нася
type file struct {
	Users map[string]string `yaml:"users"`
}

// Directory maps identity codes to display names. It is read-only after Load.
type Directory struct {
	names map[string]string
}

// New builds a directory from an in-memory table.
func New(names map[string]string) (*Directory, error) {
	d := &Directory{names: make(map[string]string, len(names))}
	for code, name := range names {
		code = strings.TrimSpace(code)
		name = strings.TrimSpace(name)
		if err := checkCode(code); err != nil {
			return nil, err
		}
		if name == "" {
			return nil, fmt.Errorf("code %q: empty name", code)
		}
		if _, dup := d.names[code]; dup {
			return nil, fmt.Errorf("code %q: duplicate", code)
		}
		d.names[code] = name
	}
	return d, nil
}

// Load reads a directory file.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load directory: %w", err)
	}
	return Parse(data)
}

// Parse decodes a directory file body.
func Parse(data []byte) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse directory: %w", err)
	}
	if len(f.Users) == 0 {
		return nil, errors.New("parse directory: no users defined")
	}

	d, err := New(f.Users)
	if err != nil {
		return nil, fmt.Errorf("parse directory: %w", err)
	}
	return d, nil
}

// Resolve returns the display name for code.
func (d *Directory) Resolve(code string) (string, error) {
	name, ok := d.names[strings.TrimSpace(code)]
	if !ok {
		return "", birthday.ErrInvalidCode
	}
	return name, nil
}

// Codes returns every code in sorted order.
func (d *Directory) Codes() []string {
	return slices.Sorted(maps.Keys(d.names))
}

// Len returns the number of codes.
func (d *Directory) Len() int {
	return len(d.names)
}

// NewCode returns a random alphanumeric code of length n that is not
// already in the directory.
func (d *Directory) NewCode(n int) string {
	for {
		var b strings.Builder
		for b.Len() < n {
			for _, c := range zcrypto.GeneratePassword(n * 2) {
				if b.Len() == n {
					break
				}
				if isAlnum(c) {
					b.WriteRune(c)
				}
			}
		}

		code := b.String()
		if _, taken := d.names[code]; !taken {
			return code
		}
	}
}

// With returns a copy of the directory with one more entry.
func (d *Directory) With(code, name string) (*Directory, error) {
	if _, taken := d.names[strings.TrimSpace(code)]; taken {
		return nil, fmt.Errorf("code %q: already exists", code)
	}
	next := maps.Clone(d.names)
	next[code] = name
	return New(next)
}

// Marshal encodes the directory in file layout.
func (d *Directory) Marshal() ([]byte, error) {
	return yaml.Marshal(file{Users: d.names})
}

// Save writes the directory to path.
func (d *Directory) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return fmt.Errorf("save directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("save directory: %w", err)
	}
	return nil
}

// checkCode rejects codes that cannot be used as a file name. Any script
// and punctuation is fine.
func checkCode(code string) error {
	switch {
	case code == "":
		return errors.New("empty code")
	case strings.ContainsAny(code, `/\`):
		return fmt.Errorf("code %q: must not contain path separators", code)
	case strings.Contains(code, ".."):
		return fmt.Errorf("code %q: must not contain \"..\"", code)
	case strings.ContainsFunc(code, unicode.IsControl):
		return fmt.Errorf("code %q: must not contain control characters", code)
	}
	return nil
}

func isAlnum(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
