package repo

import (
	"github.com/odvcencio/ogit/pkg/object"
)

const (
	gitDirName    = ".git"
	defaultBranch = "main"
)

// Repo represents an opened repository.
type Repo struct {
	RootDir string        // working directory root
	GitDir  string        // .git/ directory
	Store   *object.Store // loose object store under .git/objects
}

func newRepo(root, gitDir string) *Repo {
	return &Repo{
		RootDir: root,
		GitDir:  gitDir,
		Store:   object.NewStore(gitDir),
	}
}
