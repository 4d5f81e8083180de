package object

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"strconv"

	"github.com/warpfork/go-errcat"
)

const (
	// OIDSize is the length of a raw object identifier.
	OIDSize = sha1.Size
	// OIDHexSize is the length of its text form.
	OIDHexSize = 2 * OIDSize
)

// OID is a SHA-1 object identifier.
type OID [OIDSize]byte

// ZeroOID is the all-zero identifier. No object hashes to it in practice.
var ZeroOID OID

// EmptyTreeOID identifies the tree with no entries.
var EmptyTreeOID = HashObject(TypeTree, nil)

// String returns the 40-character lowercase hex form.
func (o OID) String() string {
	return hex.EncodeToString(o[:])
}

// IsZero reports whether o is ZeroOID.
func (o OID) IsZero() bool { return o == ZeroOID }

// Compare orders identifiers byte-wise.
func (o OID) Compare(other OID) int {
	return bytes.Compare(o[:], other[:])
}

// ParseOID decodes a 40-character hex identifier.
func ParseOID(s string) (OID, error) {
	var o OID
	if len(s) != OIDHexSize {
		return o, errcat.Errorf(KindBadOid, "invalid object id %q: want %d hex digits, got %d", s, OIDHexSize, len(s))
	}
	if _, err := hex.Decode(o[:], []byte(s)); err != nil {
		return ZeroOID, errcat.Errorf(KindBadOid, "invalid object id %q: %s", s, err)
	}
	return o, nil
}

// OIDFromBytes copies a raw 20-byte identifier.
func OIDFromBytes(b []byte) (OID, error) {
	var o OID
	if len(b) != OIDSize {
		return o, errcat.Errorf(KindMalformed, "raw object id has %d bytes, want %d", len(b), OIDSize)
	}
	copy(o[:], b)
	return o, nil
}

// HashBytes computes the SHA-1 of data.
func HashBytes(data []byte) OID {
	return OID(sha1.Sum(data))
}

// HashObject computes the identifier of the framed object
// "type len\0content" without materializing the frame.
func HashObject(objType ObjectType, data []byte) OID {
	h := sha1.New()
	h.Write(appendFrameHeader(nil, objType, len(data)))
	h.Write(data)
	var o OID
	h.Sum(o[:0])
	return o
}

func appendFrameHeader(dst []byte, objType ObjectType, size int) []byte {
	dst = append(dst, objType...)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(size), 10)
	return append(dst, 0)
}
