package object

import (
	"os"
	"testing"
	"time"
)

func writeTestCommit(t *testing.T, s *Store, blobData string, parents ...OID) (commit, tree, blob OID) {
	t.Helper()
	blob, err := s.Write(TypeBlob, []byte(blobData))
	if err != nil {
		t.Fatalf("write blob: %v", err)
	}
	tree, err = s.WriteTree(&Tree{Entries: []TreeEntry{{Mode: TreeModeFile, Name: "f", OID: blob}}})
	if err != nil {
		t.Fatalf("write tree: %v", err)
	}
	sig := Signature{Name: "A", Email: "a@x", When: time.Unix(0, 0).UTC()}
	commit, err = s.WriteCommit(&Commit{Tree: tree, Parents: parents, Author: sig, Committer: sig, Message: blobData})
	if err != nil {
		t.Fatalf("write commit: %v", err)
	}
	return commit, tree, blob
}

func TestMissingReachableCompleteHistory(t *testing.T) {
	s := tempStore(t)
	c1, _, _ := writeTestCommit(t, s, "one\n")
	c2, _, _ := writeTestCommit(t, s, "two\n", c1)

	missing, err := s.MissingReachable([]OID{c2})
	if err != nil {
		t.Fatalf("MissingReachable: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("missing = %v, want none", missing)
	}

	set, err := s.ReachableSet([]OID{c2})
	if err != nil {
		t.Fatalf("ReachableSet: %v", err)
	}
	if len(set) != 6 {
		t.Fatalf("reachable = %d objects, want 6", len(set))
	}
}

func TestMissingReachableReportsGaps(t *testing.T) {
	s := tempStore(t)
	absentParent := HashObject(TypeCommit, []byte("elsewhere"))
	c, _, blob := writeTestCommit(t, s, "x\n", absentParent)

	if err := removeObject(s, blob); err != nil {
		t.Fatalf("remove blob: %v", err)
	}
	missing, err := s.MissingReachable([]OID{c})
	if err != nil {
		t.Fatalf("MissingReachable: %v", err)
	}
	want := []OID{absentParent, blob}
	if want[0].Compare(want[1]) > 0 {
		want[0], want[1] = want[1], want[0]
	}
	if len(missing) != 2 || missing[0] != want[0] || missing[1] != want[1] {
		t.Fatalf("missing = %v, want %v", missing, want)
	}
}

func TestMissingReachableSkipsGitlinks(t *testing.T) {
	s := tempStore(t)
	sub := HashObject(TypeCommit, []byte("submodule"))
	tree, err := s.WriteTree(&Tree{Entries: []TreeEntry{{Mode: TreeModeGitlink, Name: "vendor", OID: sub}}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	missing, err := s.MissingReachable([]OID{tree})
	if err != nil {
		t.Fatalf("MissingReachable: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("missing = %v, want none", missing)
	}
}

func removeObject(s *Store, oid OID) error {
	return os.Remove(s.ObjectPath(oid))
}
