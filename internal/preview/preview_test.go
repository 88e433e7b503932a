package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestSlug_ReplacesPathSeparators(t *testing.T) {
	if got := Slug("copilot/fix-42"); got != "copilot-fix-42" {
		t.Errorf("expected 'copilot-fix-42', got %q", got)
	}
}

func TestSlug_Lowercases(t *testing.T) {
	if got := Slug("Copilot/Fix-Header"); got != "copilot-fix-header" {
		t.Errorf("expected 'copilot-fix-header', got %q", got)
	}
}

func TestSlug_TruncatesTo28(t *testing.T) {
	long := "copilot/fix-the-header-and-also-the-footer-42"
	got := Slug(long)
	if len(got) != 28 {
		t.Errorf("expected length 28, got %d (%q)", len(got), got)
	}
	if got != "copilot-fix-the-header-and-a" {
		t.Errorf("unexpected slug: %q", got)
	}
}

func TestSlug_Properties(t *testing.T) {
	refs := []string{
		"main",
		"copilot/fix-42",
		"Feature/Some/Deeply/Nested/Branch-Name-That-Goes-On",
		"UPPER",
		"a/b/c",
	}
	for _, ref := range refs {
		got := Slug(ref)
		if strings.Contains(got, "/") {
			t.Errorf("Slug(%q) contains a path separator: %q", ref, got)
		}
		if got != strings.ToLower(got) {
			t.Errorf("Slug(%q) is not lowercase: %q", ref, got)
		}
		if len(got) > 28 {
			t.Errorf("Slug(%q) exceeds 28 chars: %q", ref, got)
		}
	}
}

func TestProber_URL(t *testing.T) {
	p := NewProber("example-dot-com.pages.dev")
	got := p.URL("copilot/fix-42")
	if got != "https://copilot-fix-42.example-dot-com.pages.dev" {
		t.Errorf("unexpected URL: %q", got)
	}
}

// rewriteTransport sends every request to the test server regardless of the
// request host, so the prober's slugged URL can be exercised against httptest.
type rewriteTransport struct {
	target string
}

func (rt rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	u, err := url.Parse(rt.target)
	if err != nil {
		return nil, err
	}
	clone := r.Clone(r.Context())
	clone.URL.Scheme = u.Scheme
	clone.URL.Host = u.Host
	return http.DefaultTransport.RoundTrip(clone)
}

func TestProber_Check_Ready(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProber("example-dot-com.pages.dev",
		WithHTTPClient(&http.Client{Transport: rewriteTransport{target: srv.URL}}))
	res := p.Check(context.Background(), "copilot/fix-42")

	if method != http.MethodHead {
		t.Errorf("expected HEAD request, got %s", method)
	}
	if !res.Ready {
		t.Error("expected ready=true for 200 response")
	}
	if res.URL != "https://copilot-fix-42.example-dot-com.pages.dev" {
		t.Errorf("unexpected URL: %q", res.URL)
	}
}

func TestProber_Check_NotReadyOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewProber("example-dot-com.pages.dev",
		WithHTTPClient(&http.Client{Transport: rewriteTransport{target: srv.URL}}))
	res := p.Check(context.Background(), "copilot/fix-42")

	if res.Ready {
		t.Error("expected ready=false for 404 response")
	}
	if res.URL == "" {
		t.Error("URL should be populated even when not ready")
	}
}

func TestProber_Check_NotReadyOnNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // probe hits a dead server

	p := NewProber("example-dot-com.pages.dev",
		WithHTTPClient(&http.Client{Transport: rewriteTransport{target: srv.URL}}))
	res := p.Check(context.Background(), "copilot/fix-42")

	if res.Ready {
		t.Error("expected ready=false on connection failure")
	}
	if res.URL != "https://copilot-fix-42.example-dot-com.pages.dev" {
		t.Errorf("unexpected URL: %q", res.URL)
	}
}
