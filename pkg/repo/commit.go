package repo

import (
	"github.com/odvcencio/ogit/pkg/object"
	"github.com/warpfork/go-errcat"
)

// CommitTree writes a commit object pointing at tree and returns its OID.
// Parents are recorded in the given order and the message is stored
// verbatim. No ref is updated.
//
// The tree must be present in the store (the empty tree is always
// accepted) and so must every parent.
func (r *Repo) CommitTree(tree object.OID, parents []object.OID, author, committer object.Signature, message string) (object.OID, error) {
	if tree != object.EmptyTreeOID {
		if _, err := r.Store.ReadTree(tree); err != nil {
			return object.ZeroOID, errcat.Errorf(object.KindOf(err), "commit tree: %s", err)
		}
	}
	for _, p := range parents {
		if !r.Store.Has(p) {
			return object.ZeroOID, errcat.Errorf(object.KindNotFound, "commit tree: parent %s not found", p)
		}
	}

	c := &object.Commit{
		Tree:      tree,
		Parents:   parents,
		Author:    author,
		Committer: committer,
		Message:   message,
	}
	return r.Store.WriteCommit(c)
}
