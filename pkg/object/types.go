package object

import "time"

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
	TypeTag    ObjectType = "tag"
)

// ParseObjectType maps a kind name to its ObjectType.
func ParseObjectType(s string) (ObjectType, bool) {
	switch t := ObjectType(s); t {
	case TypeBlob, TypeTree, TypeCommit, TypeTag:
		return t, true
	default:
		return "", false
	}
}

const (
	// Tree mode strings exactly as they appear in a tree payload.
	TreeModeDir        = "40000"
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
	TreeModeSymlink    = "120000"
	// TreeModeGitlink marks a submodule commit. It is never produced, but
	// cloned trees may carry it.
	TreeModeGitlink = "160000"
)

// Object is a decoded object of one of the known kinds.
type Object interface {
	Type() ObjectType
	// Payload returns the canonical payload bytes, without the frame header.
	Payload() []byte
}

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a tree object. Name holds the raw name bytes.
type TreeEntry struct {
	Mode string
	Name string
	OID  OID
}

// IsDir reports whether the entry refers to a subtree.
func (e TreeEntry) IsDir() bool { return e.Mode == TreeModeDir }

// EntryType returns the kind of object the entry points at.
func (e TreeEntry) EntryType() ObjectType {
	switch e.Mode {
	case TreeModeDir:
		return TypeTree
	case TreeModeGitlink:
		return TypeCommit
	default:
		return TypeBlob
	}
}

// Tree holds the entries of a tree object in canonical order.
type Tree struct {
	Entries []TreeEntry
}

// Signature identifies the author or committer of a commit.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// CommitHeader is a commit header line the codec does not model, such as
// gpgsig or encoding. Value may span several lines.
type CommitHeader struct {
	Key   string
	Value string
}

// Commit links a tree to its parents with authorship and a message.
type Commit struct {
	Tree      OID
	Parents   []OID
	Author    Signature
	Committer Signature
	// ExtraHeaders follow committer in the order they were parsed.
	ExtraHeaders []CommitHeader
	Message      string
}

// Tag is an annotated tag read from a remote. Tags are stored as received
// and never produced locally.
type Tag struct {
	Target     OID
	TargetType ObjectType
	Name       string
	Data       []byte
}

func (b *Blob) Type() ObjectType   { return TypeBlob }
func (t *Tree) Type() ObjectType   { return TypeTree }
func (c *Commit) Type() ObjectType { return TypeCommit }
func (t *Tag) Type() ObjectType    { return TypeTag }

func (b *Blob) Payload() []byte   { return b.Data }
func (t *Tree) Payload() []byte   { return MarshalTree(t) }
func (c *Commit) Payload() []byte { return MarshalCommit(c) }
func (t *Tag) Payload() []byte    { return t.Data }
