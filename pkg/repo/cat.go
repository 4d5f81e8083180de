package repo

import (
	"strings"

	"github.com/odvcencio/ogit/pkg/object"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Cat returns the kind and payload of the object named by oid. The payload
// is unchanged.
func (r *Repo) Cat(oid object.OID) (object.ObjectType, []byte, error) {
	return r.Store.Read(oid)
}

// LsTree returns the entries of the tree named by oid in stored order.
// Objects of any other type are Malformed.
func (r *Repo) LsTree(oid object.OID) ([]object.TreeEntry, error) {
	tr, err := r.Store.ReadTree(oid)
	if err != nil {
		return nil, err
	}
	return tr.Entries, nil
}

// LsTreeNames returns the entry names of a tree as text. Bytes that are not
// valid UTF-8 are replaced with U+FFFD; use LsTreeNamesRaw for the exact
// bytes.
func (r *Repo) LsTreeNames(oid object.OID) ([]string, error) {
	entries, err := r.LsTree(oid)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = DisplayName(e.Name)
	}
	return names, nil
}

// LsTreeNamesRaw returns the entry names of a tree as stored.
func (r *Repo) LsTreeNamesRaw(oid object.OID) ([][]byte, error) {
	entries, err := r.LsTree(oid)
	if err != nil {
		return nil, err
	}
	names := make([][]byte, len(entries))
	for i, e := range entries {
		names[i] = []byte(e.Name)
	}
	return names, nil
}

// DisplayName repairs ill-formed UTF-8 in a tree entry name for printing.
func DisplayName(name string) string {
	out, _, err := transform.String(runes.ReplaceIllFormed(), name)
	if err != nil {
		return strings.ToValidUTF8(name, "\uFFFD")
	}
	return out
}

// FormatTreeEntry renders an entry the way ls-tree prints it:
// "<mode> <type> <oid>\t<name>" with the mode zero-padded to six digits.
func FormatTreeEntry(e object.TreeEntry) string {
	var b strings.Builder
	if pad := 6 - len(e.Mode); pad > 0 {
		b.WriteString(strings.Repeat("0", pad))
	}
	b.WriteString(e.Mode)
	b.WriteByte(' ')
	b.WriteString(string(e.EntryType()))
	b.WriteByte(' ')
	b.WriteString(e.OID.String())
	b.WriteByte('\t')
	b.WriteString(DisplayName(e.Name))
	return b.String()
}
