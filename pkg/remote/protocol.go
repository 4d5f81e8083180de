package remote

import (
	"sort"
	"strings"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/warpfork/go-errcat"
)

const (
	uploadPackService = "git-upload-pack"

	contentTypeAdvertisement = "application/x-git-upload-pack-advertisement"
	contentTypeRequest       = "application/x-git-upload-pack-request"
	contentTypeResult        = "application/x-git-upload-pack-result"

	capSideBand64k = "side-band-64k"
	capSideBand    = "side-band"
	capOfsDelta    = "ofs-delta"
	capNoProgress  = "no-progress"
	capSymref      = "symref"
	capAgent       = "agent"
)

// Agent is sent to servers in the agent capability.
var Agent = "ogit/dev"

// Capabilities is the set of capabilities advertised after the first ref.
// A capability may carry a value (symref=HEAD:refs/heads/main) and may
// repeat.
type Capabilities struct {
	set map[string][]string
}

// ParseCapabilities parses a space-separated capability list.
func ParseCapabilities(raw string) Capabilities {
	caps := Capabilities{set: make(map[string][]string)}
	for _, field := range strings.Fields(raw) {
		name, value, _ := strings.Cut(field, "=")
		caps.set[name] = append(caps.set[name], value)
	}
	return caps
}

// Has returns true if the capability is present.
func (c Capabilities) Has(name string) bool {
	_, ok := c.set[name]
	return ok
}

// Values returns every value given for name, in advertised order.
func (c Capabilities) Values(name string) []string {
	return c.set[name]
}

// Intersect returns the names in want that are also advertised, in the
// order given.
func (c Capabilities) Intersect(want ...string) []string {
	var out []string
	for _, name := range want {
		if c.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

// String returns a sorted space-separated capability string.
func (c Capabilities) String() string {
	names := make([]string, 0, len(c.set))
	for name, values := range c.set {
		for _, v := range values {
			if v == "" {
				names = append(names, name)
			} else {
				names = append(names, name+"="+v)
			}
		}
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}

// symrefTarget returns the ref HEAD points at according to the symref
// capability, or "" if the server did not say.
func (c Capabilities) symrefTarget() string {
	for _, v := range c.Values(capSymref) {
		if src, dst, ok := strings.Cut(v, ":"); ok && src == "HEAD" {
			return dst
		}
	}
	return ""
}

// remoteErrLine turns an "ERR <msg>" packet into a Remote error, or returns
// nil for any other payload.
func remoteErrLine(payload []byte) error {
	line := strings.TrimSuffix(string(payload), "\n")
	if msg, ok := strings.CutPrefix(line, "ERR "); ok {
		return errcat.Errorf(object.KindRemote, "remote error: %s", msg)
	}
	return nil
}
