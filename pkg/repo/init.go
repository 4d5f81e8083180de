package repo

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/warpfork/go-errcat"
)

// Init creates a new repository at path. It creates the .git/ directory
// structure: HEAD, config, objects/, refs/ and refs/heads/. Returns an
// AlreadyExists error, without touching anything, if path/.git exists.
func Init(path string) (*Repo, error) {
	gitDir := filepath.Join(path, gitDirName)

	if _, err := os.Lstat(gitDir); err == nil {
		return nil, errcat.Errorf(object.KindAlreadyExists, "init: repository already exists at %s", gitDir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, errcat.Errorf(object.KindIO, "init: %s", err)
	}

	dirs := []string{
		gitDir,
		filepath.Join(gitDir, "objects"),
		filepath.Join(gitDir, "refs"),
		filepath.Join(gitDir, "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, errcat.Errorf(object.KindIO, "init: mkdir %s: %s", d, err)
		}
	}

	r := newRepo(path, gitDir)
	if err := writeFileAtomic(r.headPath(), []byte("ref: refs/heads/"+defaultBranch+"\n")); err != nil {
		return nil, errcat.Errorf(object.KindIO, "init: write HEAD: %s", err)
	}
	if err := r.initConfig(); err != nil {
		return nil, err
	}
	return r, nil
}

// Open searches upward from path for a .git/ directory and opens the
// repository. Returns a NotFound error if no .git/ directory is found.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errcat.Errorf(object.KindIO, "open: abs path: %s", err)
	}

	cur := abs
	for {
		gitDir := filepath.Join(cur, gitDirName)
		info, err := os.Stat(gitDir)
		if err == nil && info.IsDir() {
			return newRepo(cur, gitDir), nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, errcat.Errorf(object.KindNotFound, "not a repository (or any parent up to %s): %s", cur, abs)
		}
		cur = parent
	}
}
