package remote

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/odvcencio/ogit/pkg/repo"
	"github.com/warpfork/go-errcat"
)

// DefaultRemoteName is the remote a clone records its source under.
const DefaultRemoteName = "origin"

// FetchIntoStore decodes pack, writes every object it contains into store,
// and then verifies that the full history under roots is present. Ref-delta
// bases missing from the pack are read from store. It returns the number of
// objects the pack held.
func FetchIntoStore(store *object.Store, pack []byte, roots []object.OID) (int, error) {
	pf, err := object.ReadPack(pack, store.Read)
	if err != nil {
		return 0, errcat.Errorf(object.KindOf(err), "decode pack: %s", err)
	}

	for _, raw := range pf.Objects {
		oid, err := store.Write(raw.Type, raw.Data)
		if err != nil {
			return 0, err
		}
		if oid != raw.OID {
			return 0, errcat.Errorf(object.KindCorrupt, "object %s stored as %s", raw.OID, oid)
		}
	}

	missing, err := store.MissingReachable(uniqueOIDs(roots))
	if err != nil {
		return 0, err
	}
	if len(missing) > 0 {
		return 0, errcat.Errorf(object.KindRemote, "pack is incomplete: %d reachable objects missing (first %s)", len(missing), missing[0])
	}
	return len(pf.Objects), nil
}

// CloneOptions configures Clone.
type CloneOptions struct {
	// RemoteName defaults to origin.
	RemoteName string
	// Progress receives server progress text; nil disables it.
	Progress func(string)
}

// CloneResult describes a finished clone.
type CloneResult struct {
	Repo *repo.Repo
	// Objects is the number of objects received.
	Objects int
	// Branch is the local branch HEAD names, e.g. refs/heads/main.
	Branch string
	// Empty is true when the remote had no refs.
	Empty bool
}

// Clone initializes a repository at dir and fills it from the remote c
// points at: every branch and tag is fetched, branches are recorded under
// refs/remotes/<name>/, tags under refs/tags/, and the remote's default
// branch becomes the local HEAD branch. The working tree is not populated.
//
// dir must be missing or empty. Refs are discovered before anything is
// written, and a clone that fails later removes what it created, so it can
// be retried into the same dir.
func Clone(ctx context.Context, c *Client, dir string, opts CloneOptions) (_ *CloneResult, err error) {
	remoteName := opts.RemoteName
	if remoteName == "" {
		remoteName = DefaultRemoteName
	}

	existed, err := ensureEmptyDir(dir)
	if err != nil {
		return nil, err
	}
	adv, err := c.DiscoverRefs(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err == nil {
			return
		}
		if existed {
			os.RemoveAll(filepath.Join(dir, ".git"))
		} else {
			os.RemoveAll(dir)
		}
	}()
	r, err := repo.Init(dir)
	if err != nil {
		return nil, err
	}
	if err := r.SetRemote(remoteName, c.Endpoint().BaseURL); err != nil {
		return nil, err
	}
	result := &CloneResult{Repo: r}

	var wants []object.OID
	for _, ref := range adv.Refs {
		if strings.HasPrefix(ref.Name, "refs/heads/") || strings.HasPrefix(ref.Name, "refs/tags/") {
			wants = append(wants, ref.OID)
		}
	}
	if len(wants) == 0 {
		result.Empty = true
		if strings.HasPrefix(adv.Head, "refs/heads/") {
			if err := r.SetSymbolicHead(adv.Head); err != nil {
				return nil, err
			}
			result.Branch = adv.Head
		} else {
			result.Branch, _ = r.Head()
		}
		return result, nil
	}

	pack, err := c.FetchPack(ctx, adv, wants, opts.Progress)
	if err != nil {
		return nil, err
	}
	n, err := FetchIntoStore(r.Store, pack, wants)
	if err != nil {
		return nil, err
	}
	result.Objects = n

	for _, ref := range adv.Refs {
		var local string
		switch {
		case strings.HasPrefix(ref.Name, "refs/heads/"):
			local = "refs/remotes/" + remoteName + "/" + strings.TrimPrefix(ref.Name, "refs/heads/")
		case strings.HasPrefix(ref.Name, "refs/tags/"):
			local = ref.Name
		default:
			continue
		}
		if err := r.UpdateRef(local, ref.OID); err != nil {
			return nil, err
		}
	}

	branch, oid, ok := defaultBranch(adv)
	if !ok {
		return result, nil
	}
	if err := r.UpdateRef(branch, oid); err != nil {
		return nil, err
	}
	if err := r.SetSymbolicHead(branch); err != nil {
		return nil, err
	}
	if err := r.SetBranchUpstream(strings.TrimPrefix(branch, "refs/heads/"), remoteName); err != nil {
		return nil, err
	}
	result.Branch = branch
	return result, nil
}

// ensureEmptyDir reports whether dir already exists. An existing dir must
// be an empty directory.
func ensureEmptyDir(dir string) (bool, error) {
	info, err := os.Lstat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errcat.Errorf(object.KindIO, "clone destination: %s", err)
	}
	if !info.IsDir() {
		return true, errcat.Errorf(object.KindAlreadyExists, "destination path %q exists and is not a directory", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return true, errcat.Errorf(object.KindIO, "clone destination: %s", err)
	}
	if len(entries) > 0 {
		return true, errcat.Errorf(object.KindAlreadyExists, "destination path %q already exists and is not an empty directory", dir)
	}
	return true, nil
}

// defaultBranch picks the branch to check out: the symref target of HEAD,
// else the first branch whose tip equals HEAD, else the first branch.
func defaultBranch(adv *Advertisement) (string, object.OID, bool) {
	if strings.HasPrefix(adv.Head, "refs/heads/") {
		if oid, ok := adv.Lookup(adv.Head); ok {
			return adv.Head, oid, true
		}
	}
	var first *Ref
	for i := range adv.Refs {
		ref := &adv.Refs[i]
		if !strings.HasPrefix(ref.Name, "refs/heads/") {
			continue
		}
		if !adv.HeadOID.IsZero() && ref.OID == adv.HeadOID {
			return ref.Name, ref.OID, true
		}
		if first == nil {
			first = ref
		}
	}
	if first == nil {
		return "", object.ZeroOID, false
	}
	return first.Name, first.OID, true
}
