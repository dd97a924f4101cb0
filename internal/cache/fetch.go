package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// hopByHopHeaders are stripped when forwarding requests and responses.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// HTTPFetcher performs the network leg over a shared HTTP client, resolving
// intercepted request targets against the backend base URL.
type HTTPFetcher struct {
	client  *http.Client
	baseURL *url.URL
}

func NewHTTPFetcher(client *http.Client, baseURL string) (*HTTPFetcher, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}

	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend base url must be absolute, got %q", baseURL)
	}

	return &HTTPFetcher{client: client, baseURL: parsed}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, r *http.Request) (*Entry, error) {
	target := *f.baseURL
	target.Path = singleJoiningSlash(f.baseURL.Path, r.URL.Path)
	target.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(ctx, r.Method, target.String(), r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	copyHeaders(req.Header, r.Header)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	header := make(http.Header, len(resp.Header))
	copyHeaders(header, resp.Header)

	return &Entry{
		Status:   resp.StatusCode,
		Header:   header,
		Body:     body,
		StoredAt: time.Now().UTC(),
	}, nil
}

func copyHeaders(dst http.Header, src http.Header) {
	for key, values := range src {
		if _, skip := hopByHopHeaders[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

func singleJoiningSlash(a string, b string) string {
	aSlash := strings.HasSuffix(a, "/")
	bSlash := strings.HasPrefix(b, "/")
	switch {
	case aSlash && bSlash:
		return a + b[1:]
	case !aSlash && !bSlash:
		return a + "/" + b
	}
	return a + b
}
