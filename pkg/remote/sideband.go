package remote

import (
	"io"
	"strings"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/warpfork/go-errcat"
)

// Sideband channel identifiers.
const (
	SidebandData     byte = 0x01
	SidebandProgress byte = 0x02
	SidebandError    byte = 0x03
)

// SidebandDataReader presents side-band data frames carried in pkt-lines as
// a sequential io.Reader. Progress frames go to onProgress when set; an
// error frame ends the stream with a Remote error. A flush packet or EOF
// ends the data.
type SidebandDataReader struct {
	pr         *PktReader
	onProgress func(string)
	buf        []byte
	done       bool
}

func NewSidebandDataReader(pr *PktReader, onProgress func(string)) *SidebandDataReader {
	return &SidebandDataReader{
		pr:         pr,
		onProgress: onProgress,
	}
}

func (dr *SidebandDataReader) Read(p []byte) (int, error) {
	for len(dr.buf) == 0 {
		if dr.done {
			return 0, io.EOF
		}
		payload, flush, err := dr.pr.ReadPkt()
		if err == io.EOF || flush {
			dr.done = true
			return 0, io.EOF
		}
		if err != nil {
			return 0, err
		}
		if len(payload) == 0 {
			continue
		}
		switch payload[0] {
		case SidebandData:
			dr.buf = payload[1:]
		case SidebandProgress:
			if dr.onProgress != nil {
				dr.onProgress(string(payload[1:]))
			}
		case SidebandError:
			dr.done = true
			return 0, errcat.Errorf(object.KindRemote, "remote error: %s", strings.TrimSpace(string(payload[1:])))
		default:
			return 0, errcat.Errorf(object.KindRemote, "side-band: unknown channel %d", payload[0])
		}
	}

	n := copy(p, dr.buf)
	dr.buf = dr.buf[n:]
	return n, nil
}
