package object

import (
	"slices"

	"github.com/warpfork/go-errcat"
)

// ReachableSet returns all object identifiers reachable from roots by
// following object references. Missing objects are ignored.
func (s *Store) ReachableSet(roots []OID) (map[OID]struct{}, error) {
	out := make(map[OID]struct{}, len(roots))
	err := s.walkReachable(roots, func(oid OID) {
		out[oid] = struct{}{}
	}, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MissingReachable walks the graph from roots and returns, sorted, every
// referenced object that is absent from the store. An empty result means
// the history under roots is complete.
func (s *Store) MissingReachable(roots []OID) ([]OID, error) {
	var missing []OID
	err := s.walkReachable(roots, nil, func(oid OID) {
		missing = append(missing, oid)
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(missing, OID.Compare)
	return missing, nil
}

func (s *Store) walkReachable(roots []OID, present, absent func(OID)) error {
	seen := make(map[OID]struct{}, len(roots))
	stack := slices.Clone(roots)
	for len(stack) > 0 {
		oid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[oid]; ok {
			continue
		}
		seen[oid] = struct{}{}

		if !s.Has(oid) {
			if absent != nil {
				absent(oid)
			}
			continue
		}
		if present != nil {
			present(oid)
		}

		objType, data, err := s.Read(oid)
		if err != nil {
			return err
		}
		refs, err := referencedOIDs(objType, data)
		if err != nil {
			return errcat.Errorf(KindOf(err), "reachable %s (%s): %s", oid, objType, err)
		}
		stack = append(stack, refs...)
	}
	return nil
}

func referencedOIDs(objType ObjectType, data []byte) ([]OID, error) {
	switch objType {
	case TypeBlob:
		return nil, nil
	case TypeTag:
		tag, err := UnmarshalTag(data)
		if err != nil {
			return nil, err
		}
		return []OID{tag.Target}, nil
	case TypeCommit:
		commit, err := UnmarshalCommit(data)
		if err != nil {
			return nil, err
		}
		refs := make([]OID, 0, 1+len(commit.Parents))
		refs = append(refs, commit.Tree)
		refs = append(refs, commit.Parents...)
		return refs, nil
	case TypeTree:
		tree, err := ParseTree(data)
		if err != nil {
			return nil, err
		}
		refs := make([]OID, 0, len(tree.Entries))
		for _, e := range tree.Entries {
			// Submodule commits live in another repository.
			if e.Mode == TreeModeGitlink {
				continue
			}
			refs = append(refs, e.OID)
		}
		return refs, nil
	default:
		return nil, errcat.Errorf(KindMalformed, "unsupported object type %q", objType)
	}
}
