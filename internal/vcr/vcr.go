// Package vcr implements the cassette recorder/player described in spec.md
// §6 (Cassette format): a minimal http.RoundTripper that either records a
// live exchange to a JSON fixture or replays one, so catalog/search tests
// run offline and deterministically. Grounded on httpx's own RoundTripper
// test seam (internal/httpx/client.go's package-level RoundTripper var,
// already used by every httpx-dependent test this session) and on the
// sanitization habit of the teacher's logging helpers, which never print
// API keys verbatim.
package vcr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
)

// sensitiveHeaders lists header names redacted before a cassette is written,
// per spec.md §6 ("API keys sanitised to REDACTED").
var sensitiveHeaders = map[string]bool{
	"x-api-key":     true,
	"authorization": true,
}

const redacted = "REDACTED"

// Request is the recorded half of one HTTP exchange.
type Request struct {
	Method  string              `json:"method"`
	URL     string              `json:"url"`
	Query   map[string]string   `json:"query,omitempty"`
	Headers map[string][]string `json:"headers,omitempty"`
}

// Response is the recorded half of one HTTP exchange.
type Response struct {
	Status  int                 `json:"status"`
	Headers map[string][]string `json:"headers,omitempty"`
	Body    string              `json:"body"`
}

// Cassette is one recorded HTTP exchange (spec.md §6 Cassette format).
type Cassette struct {
	Name       string    `json:"name"`
	Request    Request   `json:"request"`
	Response   Response  `json:"response"`
	RecordedAt string    `json:"recorded_at"`
}

// Load reads a single cassette file from disk.
func Load(path string) (*Cassette, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cassette %s: %w", path, err)
	}
	var c Cassette
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("parse cassette %s: %w", path, err)
	}
	return &c, nil
}

// Save writes a cassette to disk as indented JSON, matching the style of a
// hand-inspectable test fixture.
func Save(path string, c *Cassette) error {
	body, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o644)
}

// sanitize returns a copy of headers with sensitive values replaced, never
// mutating the caller's map.
func sanitize(headers http.Header) map[string][]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string][]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[httpCanonical(k)] {
			out[k] = []string{redacted}
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}

func httpCanonical(k string) string {
	// header names are matched case-insensitively against sensitiveHeaders,
	// which is keyed in lowercase.
	b := []byte(k)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// FromRequest builds a sanitized Request record from a live *http.Request.
func FromRequest(req *http.Request) Request {
	q := make(map[string]string)
	for k, v := range req.URL.Query() {
		if len(v) > 0 {
			q[k] = v[0]
		}
	}
	u := *req.URL
	u.RawQuery = ""
	return Request{
		Method:  req.Method,
		URL:     u.String(),
		Query:   q,
		Headers: sanitize(req.Header),
	}
}

// Recorder is an http.RoundTripper that delegates to an underlying
// transport and writes a cassette for every exchange it completes.
type Recorder struct {
	Underlying http.RoundTripper
	Dir        string
	clock      func() string // overridable in tests; defaults to a fixed stamp
	seq        int
}

// NewRecorder wraps an underlying transport, writing cassettes into dir.
func NewRecorder(underlying http.RoundTripper, dir string) *Recorder {
	if underlying == nil {
		underlying = http.DefaultTransport
	}
	return &Recorder{Underlying: underlying, Dir: dir}
}

func (r *Recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.Underlying.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if readErr != nil {
		return resp, nil
	}

	r.seq++
	name := fmt.Sprintf("%s-%03d", sanitizeName(req.URL.Path), r.seq)
	c := &Cassette{
		Name:    name,
		Request: FromRequest(req),
		Response: Response{
			Status:  resp.StatusCode,
			Headers: sanitize(resp.Header),
			Body:    string(body),
		},
		RecordedAt: r.timestamp(),
	}
	_ = Save(r.Dir+"/"+name+".json", c) // best-effort: recording never fails the real request

	return resp, nil
}

func (r *Recorder) timestamp() string {
	if r.clock != nil {
		return r.clock()
	}
	return "unset"
}

func sanitizeName(urlPath string) string {
	out := make([]rune, 0, len(urlPath))
	for _, c := range urlPath {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "root"
	}
	return string(out)
}

// Player is an http.RoundTripper that replays a fixed set of cassettes by
// method and URL (query string ignored); it can stand in for
// httpx.RoundTripper for offline runs.
type Player struct {
	byKey map[string]*Cassette
}

// NewPlayer loads every cassette in dir and indexes it by "METHOD URL";
// RoundTrip drops a request's query string before the lookup.
func NewPlayer(dir string) (*Player, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read cassette dir %s: %w", dir, err)
	}
	p := &Player{byKey: make(map[string]*Cassette)}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		c, err := Load(dir + "/" + name)
		if err != nil {
			return nil, err
		}
		p.byKey[key(c.Request.Method, c.Request.URL)] = c
	}
	return p, nil
}

func key(method, url string) string { return method + " " + url }

// RoundTrip answers from the loaded cassette set rather than the network.
func (p *Player) RoundTrip(req *http.Request) (*http.Response, error) {
	u := *req.URL
	u.RawQuery = ""
	c, ok := p.byKey[key(req.Method, u.String())]
	if !ok {
		return nil, fmt.Errorf("vcr: no cassette recorded for %s %s", req.Method, u.String())
	}

	header := make(http.Header, len(c.Response.Headers))
	for k, v := range c.Response.Headers {
		header[k] = v
	}
	return &http.Response{
		StatusCode: c.Response.Status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewBufferString(c.Response.Body)),
		Request:    req,
	}, nil
}
