// Package preview derives preview-deployment URLs from branch names and
// probes them for readiness.
package preview

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// maxSlugLen matches the deployment platform's branch alias truncation rule.
// Changing it breaks probe URLs.
const maxSlugLen = 28

// Slug converts a branch ref into the deployment platform's subdomain slug:
// path separators become hyphens, the result is lowercased and truncated to
// 28 characters.
func Slug(branchRef string) string {
	s := strings.ReplaceAll(branchRef, "/", "-")
	s = strings.ToLower(s)
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	return s
}

// Result is the outcome of a preview probe.
type Result struct {
	URL   string `json:"url"`
	Ready bool   `json:"ready"`
}

// Prober checks whether a branch's preview deployment responds.
type Prober struct {
	domain string
	scheme string
	client *http.Client
}

// Option configures a Prober.
type Option func(*Prober)

// WithHTTPClient overrides the HTTP client used for probes.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) { p.client = c }
}

// WithScheme overrides the URL scheme (useful for testing).
func WithScheme(scheme string) Option {
	return func(p *Prober) { p.scheme = scheme }
}

// NewProber creates a Prober for the given preview domain
// (e.g. "example-dot-com.pages.dev").
func NewProber(domain string, opts ...Option) *Prober {
	p := &Prober{
		domain: domain,
		scheme: "https",
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// URL returns the preview deployment URL for a branch ref.
func (p *Prober) URL(branchRef string) string {
	return p.scheme + "://" + Slug(branchRef) + "." + p.domain
}

// Check issues a HEAD request against the branch's preview URL. Any 2xx
// response means the preview is ready; network failures and non-success
// statuses mean it is not. Check never returns an error.
func (p *Prober) Check(ctx context.Context, branchRef string) Result {
	url := p.URL(branchRef)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return Result{URL: url}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Result{URL: url}
	}
	resp.Body.Close()

	return Result{URL: url, Ready: resp.StatusCode >= 200 && resp.StatusCode < 300}
}
