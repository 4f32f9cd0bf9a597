// Package httpfetch implements the upstream fetcher over HTTP.
package httpfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strings"

	"github.com/duewell/syncgate/internal/domain"
	"github.com/duewell/syncgate/internal/ports"
)

// hopHeaders are connection-scoped headers that are never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Fetcher forwards requests to a single upstream origin. It implements
// both ports.Fetcher and ports.ConnectivityProbe.
type Fetcher struct {
	client     ports.HTTPClient
	base       *url.URL
	instanceID string
}

var (
	_ ports.Fetcher           = (*Fetcher)(nil)
	_ ports.ConnectivityProbe = (*Fetcher)(nil)
)

// New creates a Fetcher for the given upstream origin URL.
func New(client ports.HTTPClient, upstreamURL, instanceID string) (*Fetcher, error) {
	base, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("upstream url %q: scheme must be http or https", upstreamURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("upstream url %q: missing host", upstreamURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	return &Fetcher{client: client, base: base, instanceID: instanceID}, nil
}

// Forward re-issues an inbound request against the upstream origin.
func (f *Fetcher) Forward(ctx context.Context, in *http.Request) (*http.Response, error) {
	out, err := http.NewRequestWithContext(ctx, in.Method, f.rewrite(in.URL.RequestURI()), in.Body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if in.ContentLength > 0 {
		out.ContentLength = in.ContentLength
	}
	copyHeaders(out.Header, in.Header)
	f.stamp(out)

	resp, err := f.client.Do(out)
	if err != nil {
		return nil, fmt.Errorf("forward request: %w", err)
	}
	return resp, nil
}

// Get fetches a path from the upstream origin.
func (f *Fetcher) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.rewrite(path), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	f.stamp(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return resp, nil
}

// Replay re-issues a queued mutation against the upstream origin.
func (f *Fetcher) Replay(ctx context.Context, m domain.Mutation) (*http.Response, error) {
	var body io.Reader
	if len(m.Body) > 0 {
		body = bytes.NewReader(m.Body)
	}
	req, err := http.NewRequestWithContext(ctx, m.Method, f.rewrite(m.URL), body)
	if err != nil {
		return nil, fmt.Errorf("create replay request: %w", err)
	}
	copyHeaders(req.Header, m.Header)
	f.stamp(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replay %s %s: %w", m.Method, m.URL, err)
	}
	return resp, nil
}

// Online reports whether the upstream origin answers at all. Any HTTP
// status counts as online; only transport failures do not.
func (f *Fetcher) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, f.rewrite("/"), nil)
	if err != nil {
		return false
	}
	f.stamp(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// rewrite builds the absolute upstream URL for a request target.
func (f *Fetcher) rewrite(target string) string {
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return f.base.Scheme + "://" + f.base.Host + f.base.Path + target
}

// stamp adds gateway identification headers.
func (f *Fetcher) stamp(req *http.Request) {
	if f.instanceID != "" {
		req.Header.Set("X-Syncgate-Instance", f.instanceID)
	}
	req.Header.Set("X-Syncgate-OSArch", runtime.GOOS+"/"+runtime.GOARCH)
}

// copyHeaders copies all headers except the hop-by-hop set.
func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		dst.Del(h)
	}
}
