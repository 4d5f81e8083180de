package repo

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/odvcencio/ogit/pkg/object"
	"gopkg.in/src-d/go-billy.v4/osfs"
	git "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/cache"
	"gopkg.in/src-d/go-git.v4/plumbing/filemode"
	"gopkg.in/src-d/go-git.v4/storage/filesystem"
)

// Objects written here must be readable by an independent git
// implementation, and objects it writes must be readable here.

func TestInterop_GoGitReadsSnapshot(t *testing.T) {
	r := initRepo(t)
	if err := os.WriteFile(filepath.Join(r.RootDir, "hello.txt"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(r.RootDir, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(r.RootDir, "bin", "run"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(filepath.Join(r.RootDir, "bin", "run"), 0o755); err != nil {
		t.Fatal(err)
	}

	tree, err := r.WriteTree(r.RootDir)
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	sig := testSignature()
	commit, err := r.CommitTree(tree, nil, sig, sig, "init\n")
	if err != nil {
		t.Fatalf("CommitTree: %v", err)
	}
	if err := r.UpdateRef("refs/heads/main", commit); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}

	gr, err := git.PlainOpen(r.RootDir)
	if err != nil {
		t.Fatalf("PlainOpen: %v", err)
	}

	gt, err := gr.TreeObject(plumbing.NewHash(tree.String()))
	if err != nil {
		t.Fatalf("go-git TreeObject: %v", err)
	}
	if len(gt.Entries) != 2 {
		t.Fatalf("go-git tree has %d entries, want 2", len(gt.Entries))
	}
	if gt.Entries[0].Name != "bin" || gt.Entries[0].Mode != filemode.Dir {
		t.Errorf("entry 0 = %s %v", gt.Entries[0].Name, gt.Entries[0].Mode)
	}
	if gt.Entries[1].Name != "hello.txt" || gt.Entries[1].Mode != filemode.Regular {
		t.Errorf("entry 1 = %s %v", gt.Entries[1].Name, gt.Entries[1].Mode)
	}
	run, err := gt.FindEntry("bin/run")
	if err != nil {
		t.Fatalf("FindEntry(bin/run): %v", err)
	}
	if run.Mode != filemode.Executable {
		t.Errorf("bin/run mode = %v, want executable", run.Mode)
	}

	gc, err := gr.CommitObject(plumbing.NewHash(commit.String()))
	if err != nil {
		t.Fatalf("go-git CommitObject: %v", err)
	}
	if gc.TreeHash.String() != tree.String() {
		t.Errorf("go-git commit tree = %s, want %s", gc.TreeHash, tree)
	}
	if gc.Author.Name != "A" || gc.Author.Email != "a@x" || gc.Message != "init\n" {
		t.Errorf("go-git commit = %+v", gc)
	}

	ref, err := gr.Reference(plumbing.ReferenceName("refs/heads/main"), false)
	if err != nil {
		t.Fatalf("go-git Reference: %v", err)
	}
	if ref.Hash().String() != commit.String() {
		t.Errorf("go-git ref = %s, want %s", ref.Hash(), commit)
	}
}

func TestInterop_ReadsGoGitObjects(t *testing.T) {
	dir := t.TempDir()
	gr, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}

	enc := gr.Storer.NewEncodedObject()
	enc.SetType(plumbing.BlobObject)
	w, err := enc.Writer()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, "written elsewhere\n"); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	h, err := gr.Storer.SetEncodedObject(enc)
	if err != nil {
		t.Fatalf("SetEncodedObject: %v", err)
	}

	r, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	oid, err := object.ParseOID(h.String())
	if err != nil {
		t.Fatal(err)
	}
	if oid != object.HashObject(object.TypeBlob, []byte("written elsewhere\n")) {
		t.Fatalf("go-git blob OID %s does not match local hash", oid)
	}
	blob, err := r.Store.ReadBlob(oid)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(blob.Data) != "written elsewhere\n" {
		t.Fatalf("blob = %q", blob.Data)
	}
}

func TestInterop_GoGitReadsConfigAndHead(t *testing.T) {
	r := initRepo(t)
	if err := r.SetRemote("origin", "https://example.com/proj.git"); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}

	st := filesystem.NewStorage(osfs.New(r.GitDir), cache.NewObjectLRUDefault())
	cfg, err := st.Config()
	if err != nil {
		t.Fatalf("go-git Config: %v", err)
	}
	if cfg.Core.IsBare {
		t.Error("core.bare = true")
	}
	origin, ok := cfg.Remotes["origin"]
	if !ok {
		t.Fatalf("go-git sees remotes %v, want origin", cfg.Remotes)
	}
	if len(origin.URLs) != 1 || origin.URLs[0] != "https://example.com/proj.git" {
		t.Errorf("origin URLs = %v", origin.URLs)
	}

	head, err := st.Reference(plumbing.HEAD)
	if err != nil {
		t.Fatalf("go-git Reference(HEAD): %v", err)
	}
	if head.Type() != plumbing.SymbolicReference || head.Target() != "refs/heads/main" {
		t.Errorf("HEAD = %s", head)
	}
}
