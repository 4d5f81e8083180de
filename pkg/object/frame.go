package object

import (
	"bytes"

	"github.com/warpfork/go-errcat"
)

// Frame returns the canonical "type len\0content" form of an object. It is
// the exact input to the hash and the plaintext written to disk.
func Frame(objType ObjectType, payload []byte) []byte {
	buf := appendFrameHeader(make([]byte, 0, len(payload)+32), objType, len(payload))
	return append(buf, payload...)
}

// Unframe splits a framed object into its type and payload. The returned
// payload aliases raw.
func Unframe(raw []byte) (ObjectType, []byte, error) {
	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return "", nil, errcat.Errorf(KindMalformed, "object frame: no NUL after header")
	}
	header, payload := raw[:nul], raw[nul+1:]

	sp := bytes.IndexByte(header, ' ')
	if sp < 0 {
		return "", nil, errcat.Errorf(KindMalformed, "object frame: header %q has no space", header)
	}
	objType, ok := ParseObjectType(string(header[:sp]))
	if !ok {
		return "", nil, errcat.Errorf(KindMalformed, "object frame: unknown type %q", header[:sp])
	}

	size, err := parseFrameSize(header[sp+1:])
	if err != nil {
		return "", nil, err
	}
	if size != len(payload) {
		return "", nil, errcat.Errorf(KindMalformed, "object frame: size mismatch (header=%d, actual=%d)", size, len(payload))
	}
	return objType, payload, nil
}

// parseFrameSize accepts plain decimal with no sign and no leading zeroes.
func parseFrameSize(digits []byte) (int, error) {
	if len(digits) == 0 {
		return 0, errcat.Errorf(KindMalformed, "object frame: empty size")
	}
	if len(digits) > 1 && digits[0] == '0' {
		return 0, errcat.Errorf(KindMalformed, "object frame: size %q has leading zero", digits)
	}
	if len(digits) > 18 {
		return 0, errcat.Errorf(KindMalformed, "object frame: size %q too large", digits)
	}
	n := 0
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, errcat.Errorf(KindMalformed, "object frame: bad size digits %q", digits)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// Decode parses payload as an object of the given type.
func Decode(objType ObjectType, payload []byte) (Object, error) {
	switch objType {
	case TypeBlob:
		return &Blob{Data: payload}, nil
	case TypeTree:
		t, err := ParseTree(payload)
		if err != nil {
			return nil, err
		}
		return t, nil
	case TypeCommit:
		c, err := UnmarshalCommit(payload)
		if err != nil {
			return nil, err
		}
		return c, nil
	case TypeTag:
		t, err := UnmarshalTag(payload)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, errcat.Errorf(KindMalformed, "unknown object type %q", objType)
	}
}

// Encode returns the framed bytes of obj.
func Encode(obj Object) []byte {
	return Frame(obj.Type(), obj.Payload())
}

// OIDOf returns the identifier obj would be stored under.
func OIDOf(obj Object) OID {
	return HashObject(obj.Type(), obj.Payload())
}
