package object

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// testPack assembles pack streams for the reader tests. Pack writing is
// not part of the package, so the encoders live here.
type testPack struct {
	t       *testing.T
	body    bytes.Buffer
	count   uint32
	offsets []int
}

func newTestPack(t *testing.T) *testPack {
	t.Helper()
	p := &testPack{t: t}
	p.body.Write(make([]byte, packHeaderSize))
	return p
}

// add appends an entry and returns its offset. prefix is written between
// the entry header and the compressed data (ofs distance or base id).
func (p *testPack) add(objType PackObjectType, prefix, data []byte) int {
	p.t.Helper()
	offset := p.body.Len()
	p.body.Write(encodePackEntryHeader(objType, uint64(len(data))))
	p.body.Write(prefix)
	zw := zlib.NewWriter(&p.body)
	if _, err := zw.Write(data); err != nil {
		p.t.Fatalf("compress entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		p.t.Fatalf("close entry: %v", err)
	}
	p.count++
	p.offsets = append(p.offsets, offset)
	return offset
}

func (p *testPack) addObject(objType PackObjectType, data []byte) int {
	return p.add(objType, nil, data)
}

func (p *testPack) addOfsDelta(baseOffset int, delta []byte) int {
	dist := uint64(p.body.Len() - baseOffset)
	return p.add(PackOfsDelta, encodeOfsDeltaDistance(dist), delta)
}

func (p *testPack) addRefDelta(base OID, delta []byte) int {
	return p.add(PackRefDelta, base[:], delta)
}

func (p *testPack) bytes() []byte {
	out := append([]byte(nil), p.body.Bytes()...)
	copy(out[:4], packMagic[:])
	binary.BigEndian.PutUint32(out[4:8], supportedPackVersion)
	binary.BigEndian.PutUint32(out[8:12], p.count)
	sum := sha1.Sum(out)
	return append(out, sum[:]...)
}

func encodePackEntryHeader(objType PackObjectType, size uint64) []byte {
	b := byte((objType & 0x7) << 4)
	b |= byte(size & 0x0f)
	size >>= 4

	out := make([]byte, 0, 10)
	if size > 0 {
		b |= 0x80
	}
	out = append(out, b)

	for size > 0 {
		next := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			next |= 0x80
		}
		out = append(out, next)
	}
	return out
}

func encodeDeltaVarint(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	out := make([]byte, 0, 10)
	for v > 0 {
		b := byte(v & 0x7f)
		v >>= 7
		if v > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func encodeOfsDeltaDistance(distance uint64) []byte {
	if distance == 0 {
		return []byte{0}
	}
	b := []byte{byte(distance & 0x7f)}
	for distance >>= 7; distance > 0; distance >>= 7 {
		distance--
		b = append([]byte{byte((distance & 0x7f) | 0x80)}, b...)
	}
	return b
}

// copyThenInsertDelta copies base[0:n] and appends extra.
func copyThenInsertDelta(base []byte, n int, extra []byte) []byte {
	var out bytes.Buffer
	out.Write(encodeDeltaVarint(uint64(len(base))))
	out.Write(encodeDeltaVarint(uint64(n + len(extra))))
	if n > 0 {
		// copy with offset 0 and a one-byte size.
		out.WriteByte(0x80 | 0x10)
		out.WriteByte(byte(n))
	}
	for pos := 0; pos < len(extra); {
		chunk := min(len(extra)-pos, 127)
		out.WriteByte(byte(chunk))
		out.Write(extra[pos : pos+chunk])
		pos += chunk
	}
	return out.Bytes()
}

func TestUnmarshalPackHeader(t *testing.T) {
	data := []byte{'P', 'A', 'C', 'K', 0, 0, 0, 2, 0, 0, 0, 42}
	got, err := UnmarshalPackHeader(data)
	if err != nil {
		t.Fatalf("UnmarshalPackHeader: %v", err)
	}
	if got.Version != 2 || got.NumObjects != 42 {
		t.Fatalf("header = %+v, want version 2 with 42 objects", got)
	}
}

func TestPackHeaderRejectsInvalidMagic(t *testing.T) {
	bad := []byte("JUNK00000000")
	if _, err := UnmarshalPackHeader(bad); KindOf(err) != KindCorrupt {
		t.Fatalf("err = %v, want corrupt", err)
	}
}

func TestPackHeaderRejectsVersion3(t *testing.T) {
	data := []byte{'P', 'A', 'C', 'K', 0, 0, 0, 3, 0, 0, 0, 1}
	if _, err := UnmarshalPackHeader(data); KindOf(err) != KindUnsupported {
		t.Fatalf("err = %v, want unsupported", err)
	}
}

func TestPackEntryTypeEncodingRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		objType PackObjectType
		size    uint64
	}{
		{name: "blob-zero", objType: PackBlob, size: 0},
		{name: "commit-small", objType: PackCommit, size: 127},
		{name: "tree-mid", objType: PackTree, size: 256},
		{name: "blob-large", objType: PackBlob, size: 1 << 20},
		{name: "ofs-delta", objType: PackOfsDelta, size: 100},
		{name: "ref-delta", objType: PackRefDelta, size: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodePackEntryHeader(tt.objType, tt.size)
			gotType, gotSize, consumed, err := decodePackEntryHeader(data)
			if err != nil {
				t.Fatalf("decodePackEntryHeader: %v", err)
			}
			if gotType != tt.objType || gotSize != tt.size {
				t.Fatalf("decode = (%d,%d), want (%d,%d)", gotType, gotSize, tt.objType, tt.size)
			}
			if consumed != len(data) {
				t.Fatalf("consumed = %d, want %d", consumed, len(data))
			}
		})
	}
}

func TestDecodePackEntryHeaderTruncated(t *testing.T) {
	data := encodePackEntryHeader(PackBlob, 1<<20)
	if _, _, _, err := decodePackEntryHeader(data[:1]); KindOf(err) != KindCorrupt {
		t.Fatalf("err = %v, want corrupt", err)
	}
}

func TestPackObjectTypeString(t *testing.T) {
	tests := map[PackObjectType]string{
		PackCommit:   "commit",
		PackTree:     "tree",
		PackBlob:     "blob",
		PackTag:      "tag",
		PackOfsDelta: "ofs-delta",
		PackRefDelta: "ref-delta",
		5:            "type-5",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("PackObjectType(%d).String() = %q, want %q", typ, got, want)
		}
	}
}
