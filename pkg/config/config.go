// Package config reads and writes the per-user ogit settings file,
// $HOME/.ogit/config.toml.
package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
	"github.com/odvcencio/ogit/pkg/object"
	"github.com/warpfork/go-errcat"
)

const (
	dirName  = ".ogit"
	fileName = "config.toml"
)

// File is the decoded settings file. Unset values are empty.
type File struct {
	User UserSection `toml:"user"`
	HTTP HTTPSection `toml:"http"`
}

// UserSection holds the identity recorded in commits.
type UserSection struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

// HTTPSection tunes the remote client.
type HTTPSection struct {
	// Timeout is a Go duration string such as "60s".
	Timeout  string `toml:"timeout,omitempty"`
	Attempts int    `toml:"attempts,omitempty"`
}

// TimeoutDuration parses Timeout. An unset timeout is zero.
func (h HTTPSection) TimeoutDuration() (time.Duration, error) {
	if h.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(h.Timeout)
	if err != nil || d <= 0 {
		return 0, errcat.Errorf(object.KindMalformed, "http.timeout %q is not a positive duration", h.Timeout)
	}
	return d, nil
}

// DefaultPath returns $HOME/.ogit/config.toml.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errcat.Errorf(object.KindIO, "locate home directory: %s", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// Load reads the settings file at path. A missing file yields an empty
// File; unknown keys are Malformed.
func Load(path string) (*File, error) {
	f := &File{}
	md, err := toml.DecodeFile(path, f)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &File{}, nil
		}
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return nil, errcat.Errorf(object.KindMalformed, "config %s: %s", path, perr.ErrorWithPosition())
		}
		return nil, errcat.Errorf(object.KindMalformed, "config %s: %s", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errcat.Errorf(object.KindMalformed, "config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if _, err := f.HTTP.TimeoutDuration(); err != nil {
		return nil, err
	}
	if f.HTTP.Attempts < 0 {
		return nil, errcat.Errorf(object.KindMalformed, "config %s: http.attempts must be positive, got %d", path, f.HTTP.Attempts)
	}
	return f, nil
}

// Save writes f to path, creating the parent directory. The file is
// replaced atomically.
func (f *File) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return errcat.Errorf(object.KindIO, "encode config: %s", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errcat.Errorf(object.KindIO, "config dir: %s", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-config-*")
	if err != nil {
		return errcat.Errorf(object.KindIO, "write config: %s", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errcat.Errorf(object.KindIO, "write config: %s", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errcat.Errorf(object.KindIO, "write config: %s", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errcat.Errorf(object.KindIO, "write config: %s", err)
	}
	return nil
}

type field struct {
	get func(*File) string
	set func(*File, string) error
}

var fields = map[string]field{
	"user.name": {
		get: func(f *File) string { return f.User.Name },
		set: func(f *File, v string) error {
			if strings.ContainsAny(v, "<>\n") {
				return errcat.Errorf(object.KindMalformed, "user.name must not contain '<', '>' or newline")
			}
			f.User.Name = v
			return nil
		},
	},
	"user.email": {
		get: func(f *File) string { return f.User.Email },
		set: func(f *File, v string) error {
			if strings.ContainsAny(v, "<>\n") {
				return errcat.Errorf(object.KindMalformed, "user.email must not contain '<', '>' or newline")
			}
			f.User.Email = v
			return nil
		},
	},
	"http.timeout": {
		get: func(f *File) string { return f.HTTP.Timeout },
		set: func(f *File, v string) error {
			if _, err := (HTTPSection{Timeout: v}).TimeoutDuration(); err != nil {
				return err
			}
			f.HTTP.Timeout = v
			return nil
		},
	},
	"http.attempts": {
		get: func(f *File) string {
			if f.HTTP.Attempts == 0 {
				return ""
			}
			return strconv.Itoa(f.HTTP.Attempts)
		},
		set: func(f *File, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return errcat.Errorf(object.KindMalformed, "http.attempts %q is not a positive integer", v)
			}
			f.HTTP.Attempts = n
			return nil
		},
	},
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dotted key. Unknown keys are Malformed and
// unset ones NotFound.
func (f *File) Get(key string) (string, error) {
	fd, ok := fields[key]
	if !ok {
		return "", errcat.Errorf(object.KindMalformed, "unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	v := fd.get(f)
	if v == "" {
		return "", errcat.Errorf(object.KindNotFound, "config key %q is not set", key)
	}
	return v, nil
}

// Set validates and stores the value of a dotted key.
func (f *File) Set(key, value string) error {
	fd, ok := fields[key]
	if !ok {
		return errcat.Errorf(object.KindMalformed, "unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	return fd.set(f, value)
}
