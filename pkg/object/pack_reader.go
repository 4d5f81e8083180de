package object

import (
	"bytes"
	"crypto/sha1"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/warpfork/go-errcat"
)

// PackEntry is one entry of a pack stream as it appears on the wire.
// Delta entries carry their instructions in Data and name their base by
// BaseOffset (ofs-delta) or BaseOID (ref-delta).
type PackEntry struct {
	Offset     int
	Type       PackObjectType
	Size       uint64
	Data       []byte
	BaseOffset int
	BaseOID    OID
}

// RawObject is a fully resolved object decoded from a pack.
type RawObject struct {
	OID  OID
	Type ObjectType
	Data []byte
}

// PackFile is the decoded content of a full pack stream. Objects is in
// entry order and holds every entry resolved to its final type and payload.
type PackFile struct {
	Header   PackHeader
	Entries  []PackEntry
	Objects  []RawObject
	Checksum OID
}

// BaseLookup resolves a ref-delta base that is not in the pack itself,
// typically by reading the local store.
type BaseLookup func(OID) (ObjectType, []byte, error)

// ReadPack parses a full pack stream, verifies its trailing SHA-1, and
// resolves every delta. lookup may be nil when the pack is self-contained.
func ReadPack(data []byte, lookup BaseLookup) (*PackFile, error) {
	if len(data) < packHeaderSize+sha1.Size {
		return nil, errcat.Errorf(KindCorrupt, "pack too short: %d bytes", len(data))
	}

	payload := data[:len(data)-sha1.Size]
	trailer := data[len(data)-sha1.Size:]

	header, err := UnmarshalPackHeader(payload)
	if err != nil {
		return nil, err
	}
	if sum := sha1.Sum(payload); !bytes.Equal(sum[:], trailer) {
		return nil, errcat.Errorf(KindCorrupt, "pack checksum mismatch")
	}

	entries, err := readPackEntries(payload, header.NumObjects)
	if err != nil {
		return nil, err
	}
	objects, err := resolvePackEntries(entries, lookup)
	if err != nil {
		return nil, err
	}

	pf := &PackFile{
		Header:  *header,
		Entries: entries,
		Objects: objects,
	}
	copy(pf.Checksum[:], trailer)
	return pf, nil
}

// ReadPackFromReader reads a complete pack stream from r and delegates to
// ReadPack for decode and verification.
func ReadPackFromReader(r io.Reader, lookup BaseLookup) (*PackFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errcat.Errorf(KindIO, "read pack stream: %s", err)
	}
	return ReadPack(data, lookup)
}

func readPackEntries(payload []byte, count uint32) ([]PackEntry, error) {
	offset := packHeaderSize
	// The count comes off the wire; don't trust it for preallocation.
	entries := make([]PackEntry, 0, min(int(count), len(payload)/2))
	for i := uint32(0); i < count; i++ {
		start := offset
		objType, size, n, err := decodePackEntryHeader(payload[offset:])
		if err != nil {
			return nil, errcat.Errorf(KindCorrupt, "pack entry %d: %s", i, err)
		}
		offset += n

		entry := PackEntry{Offset: start, Type: objType, Size: size}
		switch objType {
		case PackCommit, PackTree, PackBlob, PackTag:
		case PackOfsDelta:
			dist, n, err := decodeOfsDeltaDistance(payload[offset:])
			if err != nil {
				return nil, errcat.Errorf(KindCorrupt, "pack entry %d: %s", i, err)
			}
			if dist == 0 || dist > uint64(start) {
				return nil, errcat.Errorf(KindCorrupt, "pack entry %d: ofs-delta base distance %d out of range", i, dist)
			}
			entry.BaseOffset = start - int(dist)
			offset += n
		case PackRefDelta:
			base, err := OIDFromBytes(payload[offset:min(offset+OIDSize, len(payload))])
			if err != nil {
				return nil, errcat.Errorf(KindCorrupt, "pack entry %d: truncated ref-delta base: %s", i, err)
			}
			entry.BaseOID = base
			offset += OIDSize
		default:
			return nil, errcat.Errorf(KindCorrupt, "pack entry %d: invalid object type %d", i, objType)
		}

		if offset >= len(payload) {
			return nil, errcat.Errorf(KindCorrupt, "pack entry %d: missing compressed payload", i)
		}

		// bytes.Reader is an io.ByteReader, so inflate reads exactly the
		// compressed stream and the remaining length marks the next entry.
		sub := bytes.NewReader(payload[offset:])
		zr, err := zlib.NewReader(sub)
		if err != nil {
			return nil, errcat.Errorf(KindCorrupt, "pack entry %d: zlib reader: %s", i, err)
		}
		raw, err := io.ReadAll(io.LimitReader(zr, int64(size)+1))
		if err != nil {
			_ = zr.Close()
			return nil, errcat.Errorf(KindCorrupt, "pack entry %d: decompress: %s", i, err)
		}
		if err := zr.Close(); err != nil {
			return nil, errcat.Errorf(KindCorrupt, "pack entry %d: close zlib stream: %s", i, err)
		}
		if uint64(len(raw)) != size {
			return nil, errcat.Errorf(KindCorrupt, "pack entry %d: size mismatch header=%d decoded=%d", i, size, len(raw))
		}

		offset += len(payload[offset:]) - sub.Len()
		entry.Data = raw
		entries = append(entries, entry)
	}

	if offset != len(payload) {
		return nil, errcat.Errorf(KindCorrupt, "pack has trailing undecoded bytes: %d", len(payload)-offset)
	}
	return entries, nil
}

// resolvePackEntries turns entries into objects. Bases inside the pack are
// preferred; lookup is only consulted once nothing more can be resolved
// from the pack alone, since ref-delta bases may appear after their deltas.
func resolvePackEntries(entries []PackEntry, lookup BaseLookup) ([]RawObject, error) {
	resolved := make([]*RawObject, len(entries))
	byOffset := make(map[int]int, len(entries))
	byOID := make(map[OID]int, len(entries))
	for i, e := range entries {
		byOffset[e.Offset] = i
	}

	remaining := len(entries)
	pass := func(external bool) (bool, error) {
		progress := false
		for i, e := range entries {
			if resolved[i] != nil {
				continue
			}

			var base *RawObject
			switch e.Type {
			case PackOfsDelta:
				j, ok := byOffset[e.BaseOffset]
				if !ok {
					return false, errcat.Errorf(KindCorrupt, "pack entry at %d: no entry at ofs-delta base offset %d", e.Offset, e.BaseOffset)
				}
				base = resolved[j]
			case PackRefDelta:
				if j, ok := byOID[e.BaseOID]; ok {
					base = resolved[j]
				} else if external && lookup != nil {
					if t, data, err := lookup(e.BaseOID); err == nil {
						base = &RawObject{OID: e.BaseOID, Type: t, Data: data}
					}
				}
			}

			var obj RawObject
			if t, ok := e.Type.ObjectType(); ok {
				obj = RawObject{Type: t, Data: e.Data}
			} else if base != nil {
				data, err := applyDelta(base.Data, e.Data)
				if err != nil {
					return false, errcat.Errorf(KindCorrupt, "pack entry at %d: %s", e.Offset, err)
				}
				obj = RawObject{Type: base.Type, Data: data}
			} else {
				continue
			}
			obj.OID = HashObject(obj.Type, obj.Data)
			resolved[i] = &obj
			byOID[obj.OID] = i
			remaining--
			progress = true
		}
		return progress, nil
	}

	for remaining > 0 {
		progress, err := pass(false)
		if err != nil {
			return nil, err
		}
		if progress {
			continue
		}
		progress, err = pass(true)
		if err != nil {
			return nil, err
		}
		if !progress {
			return nil, errcat.Errorf(KindCorrupt, "pack has %d deltas with missing bases", remaining)
		}
	}

	out := make([]RawObject, len(resolved))
	for i, obj := range resolved {
		out[i] = *obj
	}
	return out, nil
}
