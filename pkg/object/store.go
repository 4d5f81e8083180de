package object

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/warpfork/go-errcat"
)

// Store is a loose object store with a 2-character fan-out directory
// layout: objects/ce/013625030ba8dba906f756967f9e9ca394464a. Each file holds
// the zlib-compressed framed object.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given .git directory. The objects/
// subdirectory is created lazily on first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// ObjectPath returns the filesystem path for a given identifier.
func (s *Store) ObjectPath(oid OID) string {
	h := oid.String()
	return filepath.Join(s.root, "objects", h[:2], h[2:])
}

// Has reports whether the store contains an object with the given
// identifier. Content is not verified.
func (s *Store) Has(oid OID) bool {
	_, err := os.Stat(s.ObjectPath(oid))
	return err == nil
}

// Write stores an object and returns its identifier. An object already on
// disk is left untouched. New objects are written to a temp file in the
// fan-out directory and renamed into place, so readers never observe a
// partial file.
func (s *Store) Write(objType ObjectType, data []byte) (OID, error) {
	if _, ok := ParseObjectType(string(objType)); !ok {
		return ZeroOID, errcat.Errorf(KindMalformed, "object write: unknown type %q", objType)
	}
	framed := Frame(objType, data)
	oid := HashBytes(framed)

	// Fast path: already exists.
	if s.Has(oid) {
		return oid, nil
	}

	compressed, err := Compress(framed)
	if err != nil {
		return ZeroOID, err
	}

	dest := s.ObjectPath(oid)
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ZeroOID, errcat.Errorf(KindIO, "object write mkdir: %s", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return ZeroOID, errcat.Errorf(KindIO, "object write tmpfile: %s", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return ZeroOID, errcat.Errorf(KindIO, "object write: %s", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return ZeroOID, errcat.Errorf(KindIO, "object write close: %s", err)
	}
	// Loose objects are read-only, as git leaves them.
	if err := os.Chmod(tmpName, 0o444); err != nil {
		os.Remove(tmpName)
		return ZeroOID, errcat.Errorf(KindIO, "object write chmod: %s", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return ZeroOID, errcat.Errorf(KindIO, "object write rename: %s", err)
	}

	return oid, nil
}

// Read retrieves an object by identifier, returning its type and payload.
// The decompressed frame is re-hashed; content that does not hash to oid
// is reported as Corrupt.
func (s *Store) Read(oid OID) (ObjectType, []byte, error) {
	compressed, err := os.ReadFile(s.ObjectPath(oid))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, errcat.Errorf(KindNotFound, "object %s not found", oid)
		}
		return "", nil, errcat.Errorf(KindIO, "object read %s: %s", oid, err)
	}

	framed, err := Decompress(compressed)
	if err != nil {
		return "", nil, errcat.Errorf(KindCorrupt, "object read %s: %s", oid, err)
	}
	objType, payload, err := Unframe(framed)
	if err != nil {
		return "", nil, errcat.Errorf(KindCorrupt, "object read %s: %s", oid, err)
	}
	if got := HashBytes(framed); got != oid {
		return "", nil, errcat.Errorf(KindCorrupt, "object read %s: content hashes to %s", oid, got)
	}
	return objType, payload, nil
}

// ReadObject reads and decodes an object of any kind.
func (s *Store) ReadObject(oid OID) (Object, error) {
	objType, data, err := s.Read(oid)
	if err != nil {
		return nil, err
	}
	obj, err := Decode(objType, data)
	if err != nil {
		return nil, errcat.Errorf(KindMalformed, "object %s: %s", oid, err)
	}
	return obj, nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// WriteBlob stores a Blob.
func (s *Store) WriteBlob(b *Blob) (OID, error) {
	return s.Write(TypeBlob, b.Data)
}

// ReadBlob reads a Blob.
func (s *Store) ReadBlob(oid OID) (*Blob, error) {
	data, err := s.readTyped(oid, TypeBlob)
	if err != nil {
		return nil, err
	}
	return &Blob{Data: data}, nil
}

// WriteTree validates and stores a Tree. Entries are encoded in canonical
// order regardless of their order in tr.
func (s *Store) WriteTree(tr *Tree) (OID, error) {
	if err := ValidateTree(tr); err != nil {
		return ZeroOID, err
	}
	return s.Write(TypeTree, MarshalTree(tr))
}

// ReadTree reads and parses a Tree.
func (s *Store) ReadTree(oid OID) (*Tree, error) {
	data, err := s.readTyped(oid, TypeTree)
	if err != nil {
		return nil, err
	}
	return ParseTree(data)
}

// WriteCommit validates and stores a Commit.
func (s *Store) WriteCommit(c *Commit) (OID, error) {
	if err := ValidateCommit(c); err != nil {
		return ZeroOID, err
	}
	return s.Write(TypeCommit, MarshalCommit(c))
}

// ReadCommit reads and parses a Commit.
func (s *Store) ReadCommit(oid OID) (*Commit, error) {
	data, err := s.readTyped(oid, TypeCommit)
	if err != nil {
		return nil, err
	}
	return UnmarshalCommit(data)
}

func (s *Store) readTyped(oid OID, want ObjectType) ([]byte, error) {
	objType, data, err := s.Read(oid)
	if err != nil {
		return nil, err
	}
	if objType != want {
		return nil, errcat.Errorf(KindMalformed, "object %s: type mismatch: got %q, want %q", oid, objType, want)
	}
	return data, nil
}
