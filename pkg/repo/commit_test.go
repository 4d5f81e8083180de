package repo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/odvcencio/ogit/pkg/object"
)

func testSignature() object.Signature {
	return object.Signature{Name: "A", Email: "a@x", When: time.Unix(0, 0).UTC()}
}

// Test 1: root commit over the empty tree has a fixed OID.
func TestCommitTree_RootCommit(t *testing.T) {
	r := initRepo(t)
	sig := testSignature()

	oid, err := r.CommitTree(object.EmptyTreeOID, nil, sig, sig, "init\n")
	if err != nil {
		t.Fatalf("CommitTree: %v", err)
	}
	if oid.String() != "eafcd34920e940972a46d4742d8c62fa4d5f51e7" {
		t.Fatalf("commit OID = %s", oid)
	}
	if _, err := os.Stat(filepath.Join(r.GitDir, "objects", "ea", "fcd34920e940972a46d4742d8c62fa4d5f51e7")); err != nil {
		t.Fatalf("commit object not on disk: %v", err)
	}

	// No ref moves.
	if _, err := r.ResolveRef("HEAD"); object.KindOf(err) != object.KindNotFound {
		t.Fatalf("ResolveRef(HEAD) err = %v, want not-found", err)
	}
}

// Test 2: parents are recorded in order and the message verbatim.
func TestCommitTree_ParentsInOrder(t *testing.T) {
	r := initRepo(t)
	sig := testSignature()

	first, err := r.CommitTree(object.EmptyTreeOID, nil, sig, sig, "one\n")
	if err != nil {
		t.Fatalf("CommitTree(one): %v", err)
	}
	second, err := r.CommitTree(object.EmptyTreeOID, nil, sig, sig, "two\n")
	if err != nil {
		t.Fatalf("CommitTree(two): %v", err)
	}

	if err := os.WriteFile(filepath.Join(r.RootDir, "hello.txt"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tree, err := r.WriteTree(r.RootDir)
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	committer := object.Signature{Name: "C", Email: "c@x", When: time.Unix(1700000000, 0).In(time.FixedZone("", -5*3600))}
	merge, err := r.CommitTree(tree, []object.OID{second, first}, sig, committer, "  merge\n\n\nno trailing newline")
	if err != nil {
		t.Fatalf("CommitTree(merge): %v", err)
	}

	c, err := r.Store.ReadCommit(merge)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if c.Tree != tree {
		t.Errorf("Tree = %s, want %s", c.Tree, tree)
	}
	if len(c.Parents) != 2 || c.Parents[0] != second || c.Parents[1] != first {
		t.Errorf("Parents = %v, want [%s %s]", c.Parents, second, first)
	}
	if c.Message != "  merge\n\n\nno trailing newline" {
		t.Errorf("Message = %q", c.Message)
	}
	if c.Committer.String() != "C <c@x> 1700000000 -0500" {
		t.Errorf("Committer = %q", c.Committer.String())
	}
}

func TestCommitTree_MissingTree(t *testing.T) {
	r := initRepo(t)
	sig := testSignature()
	missing := object.HashObject(object.TypeTree, []byte("nope"))

	if _, err := r.CommitTree(missing, nil, sig, sig, "x\n"); object.KindOf(err) != object.KindNotFound {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestCommitTree_TreeIsBlob(t *testing.T) {
	r := initRepo(t)
	sig := testSignature()
	blob, err := r.Store.WriteBlob(&object.Blob{Data: []byte("not a tree")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	if _, err := r.CommitTree(blob, nil, sig, sig, "x\n"); object.KindOf(err) != object.KindMalformed {
		t.Fatalf("err = %v, want malformed", err)
	}
}

func TestCommitTree_MissingParent(t *testing.T) {
	r := initRepo(t)
	sig := testSignature()
	missing := object.HashObject(object.TypeCommit, []byte("nope"))

	if _, err := r.CommitTree(object.EmptyTreeOID, []object.OID{missing}, sig, sig, "x\n"); object.KindOf(err) != object.KindNotFound {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestCommitTree_BadIdentity(t *testing.T) {
	r := initRepo(t)
	bad := object.Signature{Name: "A <evil>", Email: "a@x", When: time.Unix(0, 0)}

	if _, err := r.CommitTree(object.EmptyTreeOID, nil, bad, testSignature(), "x\n"); object.KindOf(err) != object.KindMalformed {
		t.Fatalf("err = %v, want malformed", err)
	}
}
