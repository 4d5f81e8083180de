package remote

import (
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// responseBody returns resp.Body, decoded when the server sent it with
// Content-Encoding: gzip. The transport's transparent decompression is off
// because the client sets Accept-Encoding itself.
func responseBody(resp *http.Response) (io.ReadCloser, error) {
	if !isGzipEncoded(resp.Header.Get("Content-Encoding")) {
		return resp.Body, nil
	}
	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, err
	}
	return &gzipReadCloser{zr: zr, body: resp.Body}, nil
}

type gzipReadCloser struct {
	zr   *gzip.Reader
	body io.Closer
}

func (g *gzipReadCloser) Read(p []byte) (int, error) {
	return g.zr.Read(p)
}

func (g *gzipReadCloser) Close() error {
	g.zr.Close()
	return g.body.Close()
}

// isGzipEncoded checks if the content encoding includes gzip.
func isGzipEncoded(contentEncoding string) bool {
	return strings.Contains(strings.ToLower(contentEncoding), "gzip")
}
