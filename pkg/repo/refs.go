package repo

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/warpfork/go-errcat"
)

const symrefPrefix = "ref: "

func (r *Repo) headPath() string {
	return filepath.Join(r.GitDir, "HEAD")
}

// Head reads .git/HEAD. If HEAD is symbolic it returns the ref path (e.g.
// "refs/heads/main"); otherwise it returns the detached hex object id.
func (r *Repo) Head() (string, error) {
	data, err := os.ReadFile(r.headPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errcat.Errorf(object.KindNotFound, "head: %s missing", r.headPath())
		}
		return "", errcat.Errorf(object.KindIO, "head: %s", err)
	}
	content := strings.TrimRight(string(data), "\n")
	if target, ok := strings.CutPrefix(content, symrefPrefix); ok {
		return target, nil
	}
	return content, nil
}

// SetSymbolicHead points HEAD at ref, which must be a full ref name such as
// "refs/heads/main". The ref itself need not exist yet.
func (r *Repo) SetSymbolicHead(ref string) error {
	if err := validateRefName(ref); err != nil {
		return err
	}
	if err := writeFileAtomic(r.headPath(), []byte(symrefPrefix+ref+"\n")); err != nil {
		return errcat.Errorf(object.KindIO, "set HEAD: %s", err)
	}
	return nil
}

// ResolveRef resolves a ref name to an object id.
//
// Resolution order:
//  1. "HEAD" reads HEAD, following a symbolic HEAD to its target.
//  2. Names starting with "refs/" are read from .git/<name>.
//  3. Otherwise refs/heads/<name>, refs/tags/<name> and refs/remotes/<name>
//     are tried in turn.
//
// A ref that does not exist (including the branch of a fresh repository)
// is NotFound.
func (r *Repo) ResolveRef(name string) (object.OID, error) {
	if name == "HEAD" {
		head, err := r.Head()
		if err != nil {
			return object.ZeroOID, err
		}
		if strings.HasPrefix(head, "refs/") {
			return r.ResolveRef(head)
		}
		oid, err := object.ParseOID(head)
		if err != nil {
			return object.ZeroOID, errcat.Errorf(object.KindMalformed, "detached HEAD: %s", err)
		}
		return oid, nil
	}

	candidates := []string{name}
	if !strings.HasPrefix(name, "refs/") {
		candidates = []string{"refs/heads/" + name, "refs/tags/" + name, "refs/remotes/" + name}
	}
	for _, ref := range candidates {
		if validateRefName(ref) != nil {
			continue
		}
		oid, ok, err := readRefFile(r.refPath(ref))
		if err != nil {
			return object.ZeroOID, errcat.Errorf(object.KindOf(err), "resolve ref %q: %s", name, err)
		}
		if ok {
			return oid, nil
		}
	}
	return object.ZeroOID, errcat.Errorf(object.KindNotFound, "ref %q not found", name)
}

// UpdateRef writes oid to the named ref file under .git/, creating parent
// directories as needed. The new content is written to a temp file in the
// ref's directory and renamed into place; no lock file is taken.
func (r *Repo) UpdateRef(name string, oid object.OID) error {
	if err := validateRefName(name); err != nil {
		return err
	}
	path := r.refPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errcat.Errorf(object.KindIO, "update ref %q: mkdir: %s", name, err)
	}
	if err := writeFileAtomic(path, []byte(oid.String()+"\n")); err != nil {
		return errcat.Errorf(object.KindIO, "update ref %q: %s", name, err)
	}
	return nil
}

// ListRefs lists references under .git/refs.
// Names are returned relative to refs root, e.g. "heads/main", "tags/v1".
func (r *Repo) ListRefs(prefix string) (map[string]object.OID, error) {
	root := filepath.Join(r.GitDir, "refs")
	dir := root
	if strings.TrimSpace(prefix) != "" {
		dir = filepath.Join(root, filepath.FromSlash(prefix))
	}

	refs := make(map[string]object.OID)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		oid, ok, err := readRefFile(path)
		if err != nil {
			return err
		}
		if ok {
			refs[filepath.ToSlash(rel)] = oid
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return refs, nil
	}
	if err != nil {
		return nil, errcat.Errorf(object.KindOf(err), "list refs: %s", err)
	}
	return refs, nil
}

func (r *Repo) refPath(name string) string {
	return filepath.Join(r.GitDir, filepath.FromSlash(name))
}

// readRefFile reads a loose ref. A missing file is reported as ok=false.
func readRefFile(path string) (object.OID, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return object.ZeroOID, false, nil
		}
		return object.ZeroOID, false, errcat.Errorf(object.KindIO, "%s", err)
	}
	oid, err := object.ParseOID(strings.TrimSpace(string(data)))
	if err != nil {
		return object.ZeroOID, false, errcat.Errorf(object.KindMalformed, "ref file %s: %s", path, err)
	}
	return oid, true, nil
}

// validateRefName accepts full ref names under refs/ made of non-empty
// components that are not "." or "..", and rejects characters git forbids
// in ref names.
func validateRefName(name string) error {
	if !strings.HasPrefix(name, "refs/") {
		return errcat.Errorf(object.KindMalformed, "ref name %q must start with refs/", name)
	}
	if strings.ContainsAny(name, " ~^:?*[\\\x7f") || strings.Contains(name, "@{") {
		return errcat.Errorf(object.KindMalformed, "ref name %q contains a forbidden character", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." || strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".lock") {
			return errcat.Errorf(object.KindMalformed, "ref name %q has invalid component %q", name, part)
		}
		for i := 0; i < len(part); i++ {
			if part[i] < 0x20 {
				return errcat.Errorf(object.KindMalformed, "ref name %q contains a control character", name)
			}
		}
	}
	return nil
}

// writeFileAtomic replaces path with data via a temp file in the same
// directory and a rename.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
