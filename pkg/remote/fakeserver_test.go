package remote

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/odvcencio/ogit/pkg/object"
)

// packObject is one undeltified pack entry.
type packObject struct {
	typ  object.ObjectType
	data []byte
}

var packTypeCodes = map[object.ObjectType]byte{
	object.TypeCommit: 1,
	object.TypeTree:   2,
	object.TypeBlob:   3,
	object.TypeTag:    4,
}

func buildPack(t *testing.T, objs ...packObject) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("PACK")
	_ = binary.Write(&buf, binary.BigEndian, uint32(2))
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(objs)))
	for _, o := range objs {
		size := uint64(len(o.data))
		b := packTypeCodes[o.typ]<<4 | byte(size&0x0f)
		size >>= 4
		for size > 0 {
			buf.WriteByte(b | 0x80)
			b = byte(size & 0x7f)
			size >>= 7
		}
		buf.WriteByte(b)

		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(o.data); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
	}
	sum := sha1.Sum(buf.Bytes())
	buf.Write(sum[:])
	return buf.Bytes()
}

// testHistory is a two-commit history over a one-file tree.
type testHistory struct {
	blob, tree, root, tip object.OID
	objects               []packObject
}

func newTestHistory() testHistory {
	var h testHistory
	blob := []byte("hello\n")
	h.blob = object.HashObject(object.TypeBlob, blob)

	tree := object.MarshalTree(&object.Tree{Entries: []object.TreeEntry{
		{Mode: object.TreeModeFile, Name: "hello.txt", OID: h.blob},
	}})
	h.tree = object.HashObject(object.TypeTree, tree)

	sig := object.Signature{Name: "A", Email: "a@x", When: time.Unix(0, 0).UTC()}
	root := object.MarshalCommit(&object.Commit{Tree: h.tree, Author: sig, Committer: sig, Message: "root\n"})
	h.root = object.HashObject(object.TypeCommit, root)
	tip := object.MarshalCommit(&object.Commit{Tree: h.tree, Parents: []object.OID{h.root}, Author: sig, Committer: sig, Message: "tip\n"})
	h.tip = object.HashObject(object.TypeCommit, tip)

	h.objects = []packObject{
		{object.TypeCommit, tip},
		{object.TypeCommit, root},
		{object.TypeTree, tree},
		{object.TypeBlob, blob},
	}
	return h
}

// fakeUploadPack serves a fixed ref advertisement and pack over smart HTTP
// at /repo.git.
type fakeUploadPack struct {
	refs     []string // "<hex> <name>" lines, HEAD first if present
	caps     string
	pack     []byte
	sideband bool
	gzip     bool
	progress string
	errLine  string

	mu       sync.Mutex
	requests []string
	auth     []string
}

func (f *fakeUploadPack) start(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)
	return ts
}

func (f *fakeUploadPack) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	user, pass, _ := r.BasicAuth()
	f.auth = append(f.auth, user+":"+pass)
	f.mu.Unlock()

	var out bytes.Buffer
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/repo.git/info/refs" && r.URL.Query().Get("service") == "git-upload-pack":
		w.Header().Set("Content-Type", contentTypeAdvertisement)
		writePkt(&out, "# service=git-upload-pack\n")
		out.Write(FlushPkt)
		for i, line := range f.refs {
			if i == 0 {
				line += "\x00" + f.caps
			}
			writePkt(&out, line+"\n")
		}
		out.Write(FlushPkt)

	case r.Method == http.MethodPost && r.URL.Path == "/repo.git/git-upload-pack":
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, string(body))
		f.mu.Unlock()

		w.Header().Set("Content-Type", contentTypeResult)
		if f.errLine != "" {
			writePkt(&out, "ERR "+f.errLine+"\n")
			break
		}
		writePkt(&out, "NAK\n")
		if !f.sideband {
			out.Write(f.pack)
			break
		}
		if f.progress != "" {
			writePkt(&out, "\x02"+f.progress)
		}
		for rest := f.pack; len(rest) > 0; {
			n := min(len(rest), 1000)
			writePkt(&out, "\x01"+string(rest[:n]))
			rest = rest[n:]
		}
		out.Write(FlushPkt)

	default:
		http.NotFound(w, r)
		return
	}

	if f.gzip && strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Encoding", "gzip")
		zw := gzip.NewWriter(w)
		_, _ = zw.Write(out.Bytes())
		_ = zw.Close()
		return
	}
	_, _ = w.Write(out.Bytes())
}

func writePkt(w *bytes.Buffer, payload string) {
	pkt, err := EncodePktLine([]byte(payload))
	if err != nil {
		panic(err)
	}
	w.Write(pkt)
}
