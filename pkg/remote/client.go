package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/warpfork/go-errcat"
)

// Endpoint identifies a smart-HTTP repository.
// BaseURL has no trailing slash and no userinfo.
type Endpoint struct {
	Raw     string
	BaseURL string
	user    string
	pass    string
}

// ParseEndpoint parses a remote URL into a canonical endpoint. Only http and
// https URLs are accepted; userinfo becomes Basic credentials.
func ParseEndpoint(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, errcat.Errorf(object.KindMalformed, "remote URL is required")
	}
	if !strings.Contains(raw, "://") && strings.Contains(raw, ":") {
		return Endpoint{}, errcat.Errorf(object.KindUnsupported, "remote URL %q: ssh transport is not supported", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, errcat.Errorf(object.KindMalformed, "parse remote URL: %s", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoint{}, errcat.Errorf(object.KindUnsupported, "remote URL %q: only http and https are supported", raw)
	}
	if u.Host == "" {
		return Endpoint{}, errcat.Errorf(object.KindMalformed, "remote URL %q has no host", raw)
	}

	endpointURL := *u
	endpointURL.RawQuery = ""
	endpointURL.Fragment = ""
	user := ""
	pass := ""
	if endpointURL.User != nil {
		user = endpointURL.User.Username()
		pass, _ = endpointURL.User.Password()
	}
	endpointURL.User = nil

	return Endpoint{
		Raw:     raw,
		BaseURL: strings.TrimRight(endpointURL.String(), "/"),
		user:    user,
		pass:    pass,
	}, nil
}

// Ref is one advertised reference.
type Ref struct {
	Name string
	OID  object.OID
}

// Advertisement is the server's answer to ref discovery.
type Advertisement struct {
	// Refs in advertised order. HEAD and peeled tag entries are omitted.
	Refs []Ref
	// Head is the ref HEAD points at, taken from the symref capability.
	Head string
	// HeadOID is the advertised HEAD value, zero if absent.
	HeadOID      object.OID
	Capabilities Capabilities
}

// Lookup returns the OID of the named ref.
func (a *Advertisement) Lookup(name string) (object.OID, bool) {
	for _, r := range a.Refs {
		if r.Name == name {
			return r.OID, true
		}
	}
	return object.ZeroOID, false
}

// ClientOptions configures the remote protocol client.
type ClientOptions struct {
	Timeout     time.Duration // HTTP client timeout (default 60s)
	MaxAttempts int           // retry attempts (default 3)
}

// Response limits per endpoint type.
const (
	responseLimitRefs  = 8 << 20 // 8MB
	responseLimitError = 64 << 10
)

// Client speaks the smart-HTTP upload-pack protocol (version 0).
type Client struct {
	endpoint    Endpoint
	httpClient  *http.Client
	maxAttempts int
}

// NewClient creates a remote protocol client with default options.
func NewClient(remoteURL string) (*Client, error) {
	return NewClientWithOptions(remoteURL, ClientOptions{})
}

// NewClientWithOptions creates a remote protocol client with configurable options.
// Zero-value or negative fields in opts receive defaults (60s timeout, 3 attempts).
func NewClientWithOptions(remoteURL string, opts ClientOptions) (*Client, error) {
	endpoint, err := ParseEndpoint(remoteURL)
	if err != nil {
		return nil, err
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		maxAttempts: opts.MaxAttempts,
	}, nil
}

// Endpoint returns the parsed endpoint metadata.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// DiscoverRefs fetches the upload-pack ref advertisement.
func (c *Client) DiscoverRefs(ctx context.Context) (*Advertisement, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.BaseURL+"/info/refs?service="+uploadPackService, nil)
	if err != nil {
		return nil, errcat.Errorf(object.KindRemote, "discover refs: %s", err)
	}
	body, err := c.do(req, contentTypeAdvertisement)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	adv, err := parseAdvertisement(io.LimitReader(body, responseLimitRefs))
	if err != nil {
		return nil, errcat.Errorf(object.KindOf(err), "discover refs from %s: %s", c.endpoint.BaseURL, err)
	}
	return adv, nil
}

func parseAdvertisement(r io.Reader) (*Advertisement, error) {
	pr := NewPktReader(r)

	banner, flush, err := pr.ReadPkt()
	if err != nil {
		return nil, errcat.Errorf(object.KindRemote, "read service banner: %s", err)
	}
	if flush || strings.TrimSuffix(string(banner), "\n") != "# service="+uploadPackService {
		return nil, errcat.Errorf(object.KindRemote, "unexpected service banner %q", banner)
	}
	if _, flush, err := pr.ReadPkt(); err != nil || !flush {
		return nil, errcat.Errorf(object.KindRemote, "missing flush after service banner")
	}

	adv := &Advertisement{Capabilities: ParseCapabilities("")}
	first := true
	for {
		payload, flush, err := pr.ReadPkt()
		if err == io.EOF {
			return nil, errcat.Errorf(object.KindRemote, "ref advertisement ended without flush")
		}
		if err != nil {
			return nil, err
		}
		if flush {
			break
		}
		if rerr := remoteErrLine(payload); rerr != nil {
			return nil, rerr
		}

		line := strings.TrimSuffix(string(payload), "\n")
		if first {
			var caps string
			line, caps, _ = strings.Cut(line, "\x00")
			adv.Capabilities = ParseCapabilities(caps)
			first = false
		}

		hexOID, name, ok := strings.Cut(line, " ")
		if !ok {
			return nil, errcat.Errorf(object.KindRemote, "malformed ref line %q", line)
		}
		oid, err := object.ParseOID(hexOID)
		if err != nil {
			return nil, errcat.Errorf(object.KindRemote, "ref %q: %s", name, err)
		}
		switch {
		case name == "capabilities^{}" && oid.IsZero():
			// Empty repository: capabilities only.
		case name == "HEAD":
			adv.HeadOID = oid
		case strings.HasSuffix(name, "^{}"):
			// Peeled tag; the tag object itself is enough.
		default:
			adv.Refs = append(adv.Refs, Ref{Name: name, OID: oid})
		}
	}
	adv.Head = adv.Capabilities.symrefTarget()
	return adv, nil
}

// FetchPack asks the server for a pack containing wants and everything they
// reach, and returns the raw pack bytes. Side-band progress text is passed
// to onProgress, which may be nil.
func (c *Client) FetchPack(ctx context.Context, adv *Advertisement, wants []object.OID, onProgress func(string)) ([]byte, error) {
	wants = uniqueOIDs(wants)
	if len(wants) == 0 {
		return nil, errcat.Errorf(object.KindMalformed, "fetch pack: at least one want is required")
	}

	caps := negotiateCaps(adv.Capabilities, onProgress != nil)
	sideband := len(caps) > 0 && (caps[0] == capSideBand64k || caps[0] == capSideBand)

	var reqBody bytes.Buffer
	for i, oid := range wants {
		line := "want " + oid.String()
		if i == 0 && len(caps) > 0 {
			line += " " + strings.Join(caps, " ")
		}
		pkt, err := EncodePktLine([]byte(line + "\n"))
		if err != nil {
			return nil, err
		}
		reqBody.Write(pkt)
	}
	reqBody.Write(FlushPkt)
	done, _ := EncodePktLine([]byte("done\n"))
	reqBody.Write(done)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.BaseURL+"/"+uploadPackService, &reqBody)
	if err != nil {
		return nil, errcat.Errorf(object.KindRemote, "fetch pack: %s", err)
	}
	req.Header.Set("Content-Type", contentTypeRequest)
	req.Header.Set("Accept", contentTypeResult)

	body, err := c.do(req, contentTypeResult)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	pr := NewPktReader(body)
	if err := readNAK(pr); err != nil {
		return nil, err
	}

	var packStream io.Reader = pr.Reader()
	if sideband {
		packStream = NewSidebandDataReader(pr, onProgress)
	}
	pack, err := io.ReadAll(packStream)
	if err != nil {
		return nil, errcat.Errorf(object.KindOf(err), "fetch pack: %s", err)
	}
	if len(pack) == 0 {
		return nil, errcat.Errorf(object.KindRemote, "fetch pack: server sent no pack data")
	}
	return pack, nil
}

// negotiateCaps picks the capabilities to request. A side-band variant,
// when present, is always first.
func negotiateCaps(server Capabilities, wantProgress bool) []string {
	var caps []string
	switch {
	case server.Has(capSideBand64k):
		caps = append(caps, capSideBand64k)
	case server.Has(capSideBand):
		caps = append(caps, capSideBand)
	}
	caps = append(caps, server.Intersect(capOfsDelta)...)
	if !wantProgress && server.Has(capNoProgress) {
		caps = append(caps, capNoProgress)
	}
	if server.Has(capAgent) {
		caps = append(caps, capAgent+"="+Agent)
	}
	return caps
}

// readNAK consumes the negotiation acknowledgement that precedes the pack.
func readNAK(pr *PktReader) error {
	for {
		payload, flush, err := pr.ReadPkt()
		if err == io.EOF {
			return errcat.Errorf(object.KindRemote, "fetch pack: response ended before NAK")
		}
		if err != nil {
			return err
		}
		if flush {
			continue
		}
		if rerr := remoteErrLine(payload); rerr != nil {
			return rerr
		}
		line := strings.TrimSuffix(string(payload), "\n")
		if line == "NAK" || strings.HasPrefix(line, "ACK ") {
			return nil
		}
		return errcat.Errorf(object.KindRemote, "fetch pack: expected NAK, got %q", line)
	}
}

// do sends req with retry and returns the decoded body of a 200 response
// whose Content-Type matches wantType.
func (c *Client) do(req *http.Request, wantType string) (io.ReadCloser, error) {
	c.applyHeaders(req)
	resp, err := retryDo(c.httpClient, req, c.maxAttempts)
	if err != nil {
		return nil, errcat.Errorf(object.KindRemote, "%s %s: %s", req.Method, req.URL.Redacted(), err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseLimitError))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return nil, errcat.Errorf(object.KindRemote, "remote request failed (%s %s): %d %s", req.Method, req.URL.Path, resp.StatusCode, text)
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, wantType) {
		resp.Body.Close()
		return nil, errcat.Errorf(object.KindUnsupported, "unexpected content type %q from %s %s (dumb HTTP servers are not supported)", ct, req.Method, req.URL.Path)
	}

	body, err := responseBody(resp)
	if err != nil {
		resp.Body.Close()
		return nil, errcat.Errorf(object.KindRemote, "decode response body: %s", err)
	}
	return body, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "git/2.0 "+Agent)
	req.Header.Set("Accept-Encoding", "gzip")
	if c.endpoint.user != "" {
		req.SetBasicAuth(c.endpoint.user, c.endpoint.pass)
	}
}

func uniqueOIDs(in []object.OID) []object.OID {
	seen := make(map[object.OID]struct{}, len(in))
	out := make([]object.OID, 0, len(in))
	for _, oid := range in {
		if oid.IsZero() {
			continue
		}
		if _, ok := seen[oid]; ok {
			continue
		}
		seen[oid] = struct{}{}
		out = append(out, oid)
	}
	return out
}
