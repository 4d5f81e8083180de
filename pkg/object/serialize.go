package object

import (
	"bytes"
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/warpfork/go-errcat"
)

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// MarshalTree serializes a Tree in canonical order. Each entry is
//
//	<mode> SP <name> NUL <20-byte oid>
//
// The input is not modified; a sorted copy is encoded.
func MarshalTree(tr *Tree) []byte {
	sorted := slices.Clone(tr.Entries)
	SortTreeEntries(sorted)

	size := 0
	for _, e := range sorted {
		size += len(e.Mode) + len(e.Name) + 2 + OIDSize
	}
	buf := make([]byte, 0, size)
	for _, e := range sorted {
		buf = append(buf, e.Mode...)
		buf = append(buf, ' ')
		buf = append(buf, e.Name...)
		buf = append(buf, 0)
		buf = append(buf, e.OID[:]...)
	}
	return buf
}

// ParseTree decodes a tree payload into its entries, in payload order.
func ParseTree(data []byte) (*Tree, error) {
	tr := &Tree{}
	for rest := data; len(rest) > 0; {
		idx := len(tr.Entries)

		sp := bytes.IndexByte(rest, ' ')
		if sp < 0 {
			return nil, errcat.Errorf(KindMalformed, "parse tree: entry %d: truncated mode", idx)
		}
		mode := string(rest[:sp])
		if err := validateTreeMode(mode); err != nil {
			return nil, errcat.Errorf(KindMalformed, "parse tree: entry %d: %s", idx, err)
		}
		rest = rest[sp+1:]

		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return nil, errcat.Errorf(KindMalformed, "parse tree: entry %d: truncated name", idx)
		}
		name := string(rest[:nul])
		if err := ValidateEntryName(name); err != nil {
			return nil, errcat.Errorf(KindMalformed, "parse tree: entry %d: %s", idx, err)
		}
		rest = rest[nul+1:]

		oid, err := OIDFromBytes(rest[:min(OIDSize, len(rest))])
		if err != nil {
			return nil, errcat.Errorf(KindMalformed, "parse tree: entry %d (%q): truncated object id", idx, name)
		}
		e := TreeEntry{Mode: mode, Name: name, OID: oid}
		rest = rest[OIDSize:]

		tr.Entries = append(tr.Entries, e)
	}
	return tr, nil
}

// ValidateTree checks every entry's mode and name and rejects duplicate
// names.
func ValidateTree(tr *Tree) error {
	seen := make(map[string]struct{}, len(tr.Entries))
	for _, e := range tr.Entries {
		if err := validateTreeMode(e.Mode); err != nil {
			return errcat.Errorf(KindMalformed, "tree entry %q: %s", e.Name, err)
		}
		if err := ValidateEntryName(e.Name); err != nil {
			return errcat.Errorf(KindMalformed, "tree entry: %s", err)
		}
		if _, dup := seen[e.Name]; dup {
			return errcat.Errorf(KindMalformed, "tree entry %q: duplicate name", e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}

// ValidateEntryName rejects names that cannot appear in a tree: empty
// names, names containing '/' or NUL, "." and "..", and ".git" in any
// letter case.
func ValidateEntryName(name string) error {
	switch {
	case name == "":
		return errcat.Errorf(KindMalformed, "empty entry name")
	case strings.ContainsAny(name, "/\x00"):
		return errcat.Errorf(KindMalformed, "entry name %q contains '/' or NUL", name)
	case name == "." || name == "..":
		return errcat.Errorf(KindMalformed, "entry name %q is reserved", name)
	case strings.EqualFold(name, ".git"):
		return errcat.Errorf(KindMalformed, "entry name %q is reserved", name)
	}
	return nil
}

func validateTreeMode(mode string) error {
	if mode == "" {
		return errcat.Errorf(KindMalformed, "empty mode")
	}
	for i := 0; i < len(mode); i++ {
		if mode[i] < '0' || mode[i] > '7' {
			return errcat.Errorf(KindMalformed, "mode %q has non-octal digit", mode)
		}
	}
	switch mode {
	case TreeModeFile, TreeModeExecutable, TreeModeSymlink, TreeModeDir, TreeModeGitlink:
		return nil
	}
	return errcat.Errorf(KindMalformed, "unknown mode %q", mode)
}

// SortTreeEntries sorts entries in canonical tree order.
func SortTreeEntries(entries []TreeEntry) {
	slices.SortFunc(entries, CompareTreeEntries)
}

// CompareTreeEntries orders entries by name bytes, comparing a subtree's
// name as if it ended in '/'. This places "foo.c" before the directory
// "foo" and the directory "foo" before "foo0".
func CompareTreeEntries(a, b TreeEntry) int {
	n := min(len(a.Name), len(b.Name))
	if c := strings.Compare(a.Name[:n], b.Name[:n]); c != 0 {
		return c
	}
	return cmp.Compare(treeNameByte(a, n), treeNameByte(b, n))
}

func treeNameByte(e TreeEntry, i int) byte {
	if i < len(e.Name) {
		return e.Name[i]
	}
	if e.IsDir() {
		return '/'
	}
	return 0
}

// ---------------------------------------------------------------------------
// Signature
// ---------------------------------------------------------------------------

// String formats the signature as it appears in a commit header:
// "Name <email> <unix-seconds> <+HHMM>".
func (s Signature) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString(" <")
	b.WriteString(s.Email)
	b.WriteString("> ")
	b.WriteString(strconv.FormatInt(s.When.Unix(), 10))
	b.WriteByte(' ')
	b.WriteString(s.When.Format("-0700"))
	return b.String()
}

// Validate rejects names and emails that would break the header format.
func (s Signature) Validate() error {
	if strings.ContainsAny(s.Name, "<>\n") {
		return errcat.Errorf(KindMalformed, "signature name %q contains '<', '>' or newline", s.Name)
	}
	if strings.ContainsAny(s.Email, "<>\n") {
		return errcat.Errorf(KindMalformed, "signature email %q contains '<', '>' or newline", s.Email)
	}
	return nil
}

// ParseSignature parses the value of an author or committer header.
func ParseSignature(val string) (Signature, error) {
	lt := strings.IndexByte(val, '<')
	gt := strings.LastIndexByte(val, '>')
	if lt < 0 || gt < lt {
		return Signature{}, errcat.Errorf(KindMalformed, "signature %q: missing <email>", val)
	}
	sig := Signature{
		Name:  strings.TrimSuffix(val[:lt], " "),
		Email: val[lt+1 : gt],
	}

	fields := strings.Fields(val[gt+1:])
	if len(fields) != 2 {
		return Signature{}, errcat.Errorf(KindMalformed, "signature %q: want timestamp and timezone", val)
	}
	secs, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, errcat.Errorf(KindMalformed, "signature %q: bad timestamp", val)
	}
	offset, err := parseTZOffset(fields[1])
	if err != nil {
		return Signature{}, err
	}
	sig.When = time.Unix(secs, 0).In(time.FixedZone("", offset))
	return sig, nil
}

// parseTZOffset converts "+HHMM" or "-HHMM" to seconds east of UTC.
func parseTZOffset(tz string) (int, error) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return 0, errcat.Errorf(KindMalformed, "bad timezone %q", tz)
	}
	for i := 1; i < 5; i++ {
		if tz[i] < '0' || tz[i] > '9' {
			return 0, errcat.Errorf(KindMalformed, "bad timezone %q", tz)
		}
	}
	hh := int(tz[1]-'0')*10 + int(tz[2]-'0')
	mm := int(tz[3]-'0')*10 + int(tz[4]-'0')
	offset := hh*3600 + mm*60
	if tz[0] == '-' {
		offset = -offset
	}
	return offset, nil
}

// ---------------------------------------------------------------------------
// Commit
// ---------------------------------------------------------------------------

// MarshalCommit serializes a Commit:
//
//	tree H
//	parent H     (zero or more)
//	author S
//	committer S
//	<extra headers>
//
//	message
//
// The message is written verbatim.
func MarshalCommit(c *Commit) []byte {
	var buf bytes.Buffer
	buf.WriteString("tree ")
	buf.WriteString(c.Tree.String())
	buf.WriteByte('\n')
	for _, p := range c.Parents {
		buf.WriteString("parent ")
		buf.WriteString(p.String())
		buf.WriteByte('\n')
	}
	buf.WriteString("author ")
	buf.WriteString(c.Author.String())
	buf.WriteByte('\n')
	buf.WriteString("committer ")
	buf.WriteString(c.Committer.String())
	buf.WriteByte('\n')
	for _, h := range c.ExtraHeaders {
		buf.WriteString(h.Key)
		buf.WriteByte(' ')
		buf.WriteString(strings.ReplaceAll(h.Value, "\n", "\n "))
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// ValidateCommit checks the signatures of c.
func ValidateCommit(c *Commit) error {
	if err := c.Author.Validate(); err != nil {
		return err
	}
	return c.Committer.Validate()
}

// UnmarshalCommit parses a commit payload. Headers other than tree, parent,
// author and committer are kept in ExtraHeaders; continuation lines (those
// starting with a space) extend the previous header's value.
func UnmarshalCommit(data []byte) (*Commit, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, errcat.Errorf(KindMalformed, "unmarshal commit: missing header/message separator")
	}
	header := string(data[:idx])

	c := &Commit{Message: string(data[idx+2:])}
	var haveTree, haveAuthor, haveCommitter bool
	for _, line := range strings.Split(header, "\n") {
		if strings.HasPrefix(line, " ") {
			if len(c.ExtraHeaders) == 0 {
				return nil, errcat.Errorf(KindMalformed, "unmarshal commit: continuation line %q without header", line)
			}
			last := &c.ExtraHeaders[len(c.ExtraHeaders)-1]
			last.Value += "\n" + line[1:]
			continue
		}
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, errcat.Errorf(KindMalformed, "unmarshal commit: malformed header line %q", line)
		}
		switch key {
		case "tree":
			oid, err := parseHeaderOID(key, val)
			if err != nil {
				return nil, err
			}
			c.Tree, haveTree = oid, true
		case "parent":
			oid, err := parseHeaderOID(key, val)
			if err != nil {
				return nil, err
			}
			c.Parents = append(c.Parents, oid)
		case "author":
			sig, err := ParseSignature(val)
			if err != nil {
				return nil, err
			}
			c.Author, haveAuthor = sig, true
		case "committer":
			sig, err := ParseSignature(val)
			if err != nil {
				return nil, err
			}
			c.Committer, haveCommitter = sig, true
		default:
			c.ExtraHeaders = append(c.ExtraHeaders, CommitHeader{Key: key, Value: val})
		}
	}
	switch {
	case !haveTree:
		return nil, errcat.Errorf(KindMalformed, "unmarshal commit: missing tree header")
	case !haveAuthor:
		return nil, errcat.Errorf(KindMalformed, "unmarshal commit: missing author header")
	case !haveCommitter:
		return nil, errcat.Errorf(KindMalformed, "unmarshal commit: missing committer header")
	}
	return c, nil
}

func parseHeaderOID(key, val string) (OID, error) {
	oid, err := ParseOID(val)
	if err != nil {
		return ZeroOID, errcat.Errorf(KindMalformed, "%s header: %s", key, err)
	}
	return oid, nil
}

// ---------------------------------------------------------------------------
// Tag
// ---------------------------------------------------------------------------

// UnmarshalTag reads the object, type and tag headers of an annotated tag.
// The full payload is kept in Data.
func UnmarshalTag(data []byte) (*Tag, error) {
	header := data
	if idx := bytes.Index(data, []byte("\n\n")); idx >= 0 {
		header = data[:idx]
	}
	t := &Tag{Data: data}
	var haveObject bool
	for _, line := range strings.Split(string(header), "\n") {
		key, val, _ := strings.Cut(line, " ")
		switch key {
		case "object":
			oid, err := parseHeaderOID(key, val)
			if err != nil {
				return nil, err
			}
			t.Target, haveObject = oid, true
		case "type":
			typ, ok := ParseObjectType(val)
			if !ok {
				return nil, errcat.Errorf(KindMalformed, "unmarshal tag: unknown target type %q", val)
			}
			t.TargetType = typ
		case "tag":
			t.Name = val
		}
	}
	if !haveObject {
		return nil, errcat.Errorf(KindMalformed, "unmarshal tag: missing object header")
	}
	return t, nil
}
