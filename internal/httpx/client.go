// Package httpx is the shared HTTP transport for every upstream collaborator:
// the five VersionCatalog sources, the Modrinth and CurseForge search APIs,
// and template/artifact downloads. Grounded on the teacher's util.go
// (dnscache-backed dialer + http2 transport + a fixed User-Agent), with a
// per-request deadline added per spec.md §5 ("every upstream call has a
// deadline, default 10s per request").
package httpx

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/viki-org/dnscache"
	"golang.org/x/net/http2"
)

const (
	connTimeout       = 5 * time.Second
	DefaultTimeout    = 10 * time.Second
	CatalogTimeout    = 60 * time.Second
	userAgentTemplate = "empack/%s (+https://github.com/empack/empack)"
)

var resolver = dnscache.New(15 * time.Minute)

// Version is set by cmd/empack at startup (build-time ldflags in the real
// binary); tests leave it at the zero value.
var Version = "dev"

func userAgent() string {
	return fmt.Sprintf(userAgentTemplate, Version)
}

// NewClient builds an http.Client with a DNS-caching dialer and HTTP/2
// enabled, following redirects only when followRedirects is true (the
// teacher keeps two clients — one per mode — for the same reason: some
// downloads need to inspect the final redirected URL themselves).
func NewClient(followRedirects bool) *http.Client {
	t := &http.Transport{
		MaxIdleConnsPerHost:   10,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 10 * time.Second,
		DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
			sep := strings.LastIndex(address, ":")
			host, port := address[:sep], address[sep:]
			ip, err := resolver.FetchOneString(host)
			if err != nil {
				return nil, err
			}
			ipStr := ip.String()
			if ip.To4() == nil {
				ipStr = "[" + ipStr + "]"
			}
			d := net.Dialer{Timeout: connTimeout}
			return d.DialContext(ctx, network, ipStr+port)
		},
	}
	_ = http2.ConfigureTransport(t)

	c := &http.Client{Transport: t}
	if !followRedirects {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return c
}

var getter = NewClient(true)
var redirector = NewClient(false)

// RoundTripper, when non-nil, replaces the shared transport; tests set it to
// http.DefaultTransport to reach local httptest servers, and an
// internal/vcr Player can be plugged in here for cassette playback.
var RoundTripper http.RoundTripper

func client(followRedirects bool) *http.Client {
	if RoundTripper == nil {
		if followRedirects {
			return getter
		}
		return redirector
	}
	base := getter
	if !followRedirects {
		base = redirector
	}
	c := *base
	c.Transport = RoundTripper
	return &c
}

// Get issues a GET request with the tool's User-Agent and a default
// per-request timeout, honoring ctx cancellation (spec.md §5 "Cancellation").
func Get(ctx context.Context, url string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent())
	resp, err := client(true).Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	// cancel is deliberately not deferred here: the caller owns resp.Body
	// and must Close() it, at which point the context can be released.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// GetWithHeaders issues a GET with additional headers (e.g. CurseForge's
// x-api-key), otherwise identical to Get.
func GetWithHeaders(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client(true).Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// ReadString issues a GET and returns the trimmed body as a string, used for
// single-value endpoints (e.g. the teacher's "latest.v4" version file).
func ReadString(ctx context.Context, url string) (string, error) {
	resp, err := Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to read %s: HTTP %d", url, resp.StatusCode)
	}
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(buf)), nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
