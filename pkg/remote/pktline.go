package remote

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/warpfork/go-errcat"
)

const (
	pktLenSize = 4
	// MaxPktLen is the largest pkt-line, length prefix included.
	MaxPktLen = 65520
	// MaxPktPayload is the largest payload a single pkt-line can carry.
	MaxPktPayload = MaxPktLen - pktLenSize
)

// FlushPkt terminates a section of a pkt-line stream.
var FlushPkt = []byte("0000")

// EncodePktLine frames data with its 4-hex-digit length prefix.
func EncodePktLine(data []byte) ([]byte, error) {
	if len(data) > MaxPktPayload {
		return nil, errcat.Errorf(object.KindRemote, "pkt-line payload of %d bytes exceeds %d", len(data), MaxPktPayload)
	}
	out := make([]byte, 0, pktLenSize+len(data))
	out = append(out, fmt.Sprintf("%04x", pktLenSize+len(data))...)
	return append(out, data...), nil
}

// PktReader splits a byte stream into pkt-lines.
type PktReader struct {
	r *bufio.Reader
}

func NewPktReader(r io.Reader) *PktReader {
	return &PktReader{r: bufio.NewReaderSize(r, MaxPktLen)}
}

// ReadPkt returns the next payload. flush is true for a 0000 packet, whose
// payload is nil. io.EOF is returned only at a packet boundary; a stream cut
// inside a packet is a Remote error.
func (pr *PktReader) ReadPkt() (payload []byte, flush bool, err error) {
	var hdr [pktLenSize]byte
	if _, err := io.ReadFull(pr.r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, false, io.EOF
		}
		return nil, false, errcat.Errorf(object.KindRemote, "pkt-line: truncated length: %s", err)
	}
	n, err := strconv.ParseUint(string(hdr[:]), 16, 16)
	if err != nil {
		return nil, false, errcat.Errorf(object.KindRemote, "pkt-line: bad length %q", hdr[:])
	}
	switch {
	case n == 0:
		return nil, true, nil
	case n < pktLenSize:
		return nil, false, errcat.Errorf(object.KindRemote, "pkt-line: invalid length %d", n)
	case n > MaxPktLen:
		return nil, false, errcat.Errorf(object.KindRemote, "pkt-line: length %d exceeds %d", n, MaxPktLen)
	}
	payload = make([]byte, n-pktLenSize)
	if _, err := io.ReadFull(pr.r, payload); err != nil {
		return nil, false, errcat.Errorf(object.KindRemote, "pkt-line: truncated payload: %s", err)
	}
	return payload, false, nil
}

// Reader exposes the bytes that follow the last packet read, for servers
// that send a raw pack after NAK.
func (pr *PktReader) Reader() io.Reader {
	return pr.r
}
