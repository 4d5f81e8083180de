package object

import (
	"errors"

	"github.com/warpfork/go-errcat"
)

// Kind is the category attached to every error the object layer and the
// layers built on it return. Kinds are errcat categories, so callers can
// switch on errcat.Category(err) or use KindOf.
type Kind string

// ExitCode is the process exit status a command reports for a Kind.
type ExitCode int

const (
	ExitSuccess                          = ExitCode(0)
	ExitUsage                            = ExitCode(1)                         // bad command-line arguments
	ExitNotFound, KindNotFound           = ExitCode(2), Kind("not-found")      // object file or referenced path missing
	ExitMalformed, KindMalformed         = ExitCode(3), Kind("malformed")      // unparseable frame, tree entry or commit; forbidden name
	ExitCorrupt, KindCorrupt             = ExitCode(4), Kind("corrupt")        // bad zlib stream, or content disagreeing with its hash
	ExitBadOid, KindBadOid               = ExitCode(5), Kind("bad-oid")        // hex identifier of wrong length or with non-hex digits
	ExitUnsupported, KindUnsupported     = ExitCode(6), Kind("unsupported")    // file type the tree writer cannot represent
	ExitAlreadyExists, KindAlreadyExists = ExitCode(7), Kind("already-exists") // init over a repository, clone into a non-empty dir
	ExitIO, KindIO                       = ExitCode(8), Kind("io")             // any other filesystem failure
	ExitRemote, KindRemote               = ExitCode(9), Kind("remote")         // transport or protocol failure talking to a remote
)

var kindExitCodes = map[Kind]ExitCode{
	KindNotFound:      ExitNotFound,
	KindMalformed:     ExitMalformed,
	KindCorrupt:       ExitCorrupt,
	KindBadOid:        ExitBadOid,
	KindUnsupported:   ExitUnsupported,
	KindAlreadyExists: ExitAlreadyExists,
	KindIO:            ExitIO,
	KindRemote:        ExitRemote,
}

// ExitCode returns the exit status for k. Unknown kinds map to ExitIO.
func (k Kind) ExitCode() ExitCode {
	if code, ok := kindExitCodes[k]; ok {
		return code
	}
	return ExitIO
}

// KindOf returns the Kind carried by err. Errors without a Kind are
// reported as KindIO; a nil error has the empty Kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce errcat.Error
	if errors.As(err, &ce) {
		if k, ok := ce.Category().(Kind); ok {
			return k
		}
	}
	return KindIO
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
