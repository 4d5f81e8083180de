package object

import (
	"github.com/warpfork/go-errcat"
)

// maxDeltaResult bounds a delta's declared result size.
const maxDeltaResult = 1 << 32

// deltaCursor walks a delta instruction stream. Running off the end is
// Corrupt.
type deltaCursor struct {
	buf []byte
	pos int
}

func (c *deltaCursor) more() bool { return c.pos < len(c.buf) }

func (c *deltaCursor) next(what string) (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, errcat.Errorf(KindCorrupt, "delta truncated reading %s", what)
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// varint reads a little-endian base-128 size.
func (c *deltaCursor) varint(what string) (uint64, error) {
	var v uint64
	for shift := uint(0); ; shift += 7 {
		if shift > 63 {
			return 0, errcat.Errorf(KindCorrupt, "delta %s overflows", what)
		}
		b, err := c.next(what)
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
	}
}

// copyArgs decodes the offset and size operands of a copy instruction.
// Bits 0-3 of cmd select offset bytes and bits 4-6 size bytes, least
// significant first; a size of zero means 0x10000.
func (c *deltaCursor) copyArgs(cmd byte) (offset, size uint64, err error) {
	for i := uint(0); i < 7; i++ {
		if cmd&(1<<i) == 0 {
			continue
		}
		b, err := c.next("copy operand")
		if err != nil {
			return 0, 0, err
		}
		if i < 4 {
			offset |= uint64(b) << (8 * i)
		} else {
			size |= uint64(b) << (8 * (i - 4))
		}
	}
	if size == 0 {
		size = 0x10000
	}
	return offset, size, nil
}

// decodeOfsDeltaDistance reads the backward distance of an ofs-delta entry
// from its base, returning the distance and the bytes consumed. Each
// continuation byte adds one before shifting, so encodings are unique.
func decodeOfsDeltaDistance(data []byte) (uint64, int, error) {
	var dist uint64
	for i, b := range data {
		if i > 0 {
			if dist > 1<<56 {
				return 0, 0, errcat.Errorf(KindCorrupt, "ofs-delta distance overflows")
			}
			dist = (dist + 1) << 7
		}
		dist |= uint64(b & 0x7f)
		if b&0x80 == 0 {
			return dist, i + 1, nil
		}
	}
	return 0, 0, errcat.Errorf(KindCorrupt, "ofs-delta distance truncated")
}

// applyDelta rebuilds an object from its base and a git delta: two sizes
// followed by copy-from-base and insert-literal instructions. Any
// disagreement between the delta and the base is Corrupt.
func applyDelta(base, delta []byte) ([]byte, error) {
	c := &deltaCursor{buf: delta}

	baseSize, err := c.varint("base size")
	if err != nil {
		return nil, err
	}
	if baseSize != uint64(len(base)) {
		return nil, errcat.Errorf(KindCorrupt, "delta expects a %d byte base, have %d", baseSize, len(base))
	}
	resultSize, err := c.varint("result size")
	if err != nil {
		return nil, err
	}
	if resultSize > maxDeltaResult {
		return nil, errcat.Errorf(KindCorrupt, "delta result size %d too large", resultSize)
	}

	// The declared size is untrusted until the instructions produce it.
	out := make([]byte, 0, min(resultSize, uint64(len(base)+len(delta))))
	for c.more() {
		cmd, _ := c.next("command")
		switch {
		case cmd&0x80 != 0:
			offset, size, err := c.copyArgs(cmd)
			if err != nil {
				return nil, err
			}
			if offset+size > uint64(len(base)) {
				return nil, errcat.Errorf(KindCorrupt, "delta copy [%d,+%d) outside %d byte base", offset, size, len(base))
			}
			out = append(out, base[offset:offset+size]...)
		case cmd == 0:
			return nil, errcat.Errorf(KindCorrupt, "reserved delta command 0")
		default:
			n := int(cmd)
			if len(c.buf)-c.pos < n {
				return nil, errcat.Errorf(KindCorrupt, "delta insert of %d bytes truncated", n)
			}
			out = append(out, c.buf[c.pos:c.pos+n]...)
			c.pos += n
		}
	}

	if uint64(len(out)) != resultSize {
		return nil, errcat.Errorf(KindCorrupt, "delta produced %d bytes, header says %d", len(out), resultSize)
	}
	return out, nil
}
