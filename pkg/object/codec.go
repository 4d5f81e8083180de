package object

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/warpfork/go-errcat"
)

// Compress wraps data in a zlib stream at the default level.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		return nil, errcat.Errorf(KindIO, "zlib compress: %s", err)
	}
	if err := zw.Close(); err != nil {
		return nil, errcat.Errorf(KindIO, "zlib compress: %s", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates a zlib stream. Raw deflate without the zlib wrapper,
// truncated input, and checksum failures are all Corrupt.
func Decompress(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errcat.Errorf(KindCorrupt, "zlib header: %s", err)
	}
	out, err := io.ReadAll(zr)
	if err != nil {
		_ = zr.Close()
		return nil, errcat.Errorf(KindCorrupt, "zlib decompress: %s", err)
	}
	if err := zr.Close(); err != nil {
		return nil, errcat.Errorf(KindCorrupt, "zlib close: %s", err)
	}
	return out, nil
}
