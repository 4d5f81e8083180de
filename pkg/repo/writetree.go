package repo

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/warpfork/go-errcat"
)

// WriteTree snapshots dir into the object store and returns the OID of its
// tree. Every regular file and symlink becomes a blob and every directory a
// subtree; entries named .git are skipped and symlinks are stored, never
// followed. Any other file type is Unsupported.
//
// The result depends only on names, contents and the owner-exec bit, so
// snapshots of identical directories hash identically.
func (r *Repo) WriteTree(dir string) (object.OID, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return object.ZeroOID, statError("write tree", dir, err)
	}
	if !info.IsDir() {
		return object.ZeroOID, errcat.Errorf(object.KindUnsupported, "write tree: %s is not a directory", dir)
	}
	return r.writeTreeDir(dir)
}

func (r *Repo) writeTreeDir(dir string) (object.OID, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return object.ZeroOID, statError("write tree", dir, err)
	}

	tr := &object.Tree{Entries: make([]object.TreeEntry, 0, len(children))}
	for _, child := range children {
		name := child.Name()
		if name == gitDirName {
			continue
		}
		path := filepath.Join(dir, name)

		info, err := os.Lstat(path)
		if err != nil {
			return object.ZeroOID, statError("write tree", path, err)
		}
		mode, ok := modeFromFileInfo(info)
		if !ok {
			return object.ZeroOID, errcat.Errorf(object.KindUnsupported, "write tree: %s is a %s", path, describeFileType(info.Mode()))
		}

		var oid object.OID
		switch mode {
		case object.TreeModeDir:
			oid, err = r.writeTreeDir(path)
		case object.TreeModeSymlink:
			oid, err = r.writeSymlinkBlob(path)
		default:
			oid, err = r.writeFileBlob(path)
		}
		if err != nil {
			return object.ZeroOID, err
		}
		tr.Entries = append(tr.Entries, object.TreeEntry{Mode: mode, Name: name, OID: oid})
	}

	oid, err := r.Store.WriteTree(tr)
	if err != nil {
		return object.ZeroOID, errcat.Errorf(object.KindOf(err), "write tree %s: %s", dir, err)
	}
	return oid, nil
}

func (r *Repo) writeFileBlob(path string) (object.OID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return object.ZeroOID, statError("read file", path, err)
	}
	return r.Store.Write(object.TypeBlob, data)
}

func (r *Repo) writeSymlinkBlob(path string) (object.OID, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return object.ZeroOID, statError("read link", path, err)
	}
	return r.Store.Write(object.TypeBlob, []byte(target))
}

// HashFile returns the blob OID of the file at path. The blob is stored
// only when store is non-nil.
func HashFile(path string, store *object.Store) (object.OID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return object.ZeroOID, statError("hash object", path, err)
	}
	if store == nil {
		return object.HashObject(object.TypeBlob, data), nil
	}
	return store.Write(object.TypeBlob, data)
}

func statError(op, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return errcat.Errorf(object.KindNotFound, "%s: %s does not exist", op, path)
	}
	return errcat.Errorf(object.KindIO, "%s: %s", op, err)
}
