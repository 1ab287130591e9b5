package flarebypass

import (
	"net/url"
	"testing"

	http "github.com/bogdanfinn/fhttp"
)

func TestSessionRequestHeaders(t *testing.T) {
	session := newSession(nil, "UA1")

	base := http.Header{
		"User-Agent":    {"caller-ua"},
		"Cache-Control": {"max-age=60"},
		"X-App":         {"demo"},
	}

	headers := session.RequestHeaders(base)

	if got := headers.Get("User-Agent"); got != "UA1" {
		t.Errorf("user-agent = %q, want session identity %q", got, "UA1")
	}
	if got := headers.Get("Cache-Control"); got != "no-cache" {
		t.Errorf("cache-control = %q, want %q", got, "no-cache")
	}
	if got := headers.Get("X-App"); got != "demo" {
		t.Errorf("x-app = %q, want passthrough %q", got, "demo")
	}
	if got := base.Get("User-Agent"); got != "caller-ua" {
		t.Errorf("caller headers mutated: user-agent = %q", got)
	}
}

func TestSessionRequestHeadersCanonicalizesKeys(t *testing.T) {
	session := newSession(nil, "UA1")

	base := http.Header{
		"user-agent": {"caller-ua"},
		"x-app":      {"demo"},
	}

	headers := session.RequestHeaders(base)

	if _, ok := headers["user-agent"]; ok {
		t.Error("non-canonical user-agent key survived the merge")
	}
	if got := headers["User-Agent"]; len(got) != 1 || got[0] != "UA1" {
		t.Errorf("User-Agent = %v, want the session identity alone", got)
	}
	if got := headers.Get("X-App"); got != "demo" {
		t.Errorf("x-app = %q, want passthrough under the canonical key", got)
	}
}

func TestSessionApplySolution(t *testing.T) {
	session := newSession(nil, "UA1")

	err := session.ApplySolution("https://example.com/a", "UA2", []Cookie{
		{Name: "cf_clearance", Value: "v1", Domain: "example.com", Path: "/"},
		{Name: "pref", Value: "x"}, // no domain, no path
	})
	if err != nil {
		t.Fatalf("ApplySolution() error = %v", err)
	}

	if got := session.UserAgent(); got != "UA2" {
		t.Errorf("UserAgent() = %q, want %q", got, "UA2")
	}

	cookies := session.SnapshotCookies()
	if len(cookies) != 2 {
		t.Fatalf("snapshot has %d cookies, want 2", len(cookies))
	}
	if cookies[0].Name != "cf_clearance" || cookies[0].Value != "v1" {
		t.Errorf("cookie[0] = %+v, want cf_clearance=v1", cookies[0])
	}
	if cookies[1].Domain != "" {
		t.Errorf("missing domain should default to empty, got %q", cookies[1].Domain)
	}
	if cookies[1].Path != "/" {
		t.Errorf("missing path should default to /, got %q", cookies[1].Path)
	}
}

func TestSessionCookieUpsert(t *testing.T) {
	session := newSession(nil, "UA1")

	if err := session.ApplySolution("https://example.com/", "UA2", []Cookie{
		{Name: "cf_clearance", Value: "old", Domain: "example.com", Path: "/"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := session.ApplySolution("https://example.com/", "UA3", []Cookie{
		{Name: "cf_clearance", Value: "new", Domain: "example.com", Path: "/"},
		{Name: "cf_clearance", Value: "scoped", Domain: "example.com", Path: "/app"},
	}); err != nil {
		t.Fatal(err)
	}

	cookies := session.SnapshotCookies()
	if len(cookies) != 2 {
		t.Fatalf("snapshot has %d cookies, want 2 (same key overwritten, new path appended)", len(cookies))
	}
	if cookies[0].Value != "new" {
		t.Errorf("cookie with same (name, domain, path) not overwritten: value = %q", cookies[0].Value)
	}
	if cookies[1].Path != "/app" || cookies[1].Value != "scoped" {
		t.Errorf("path-scoped cookie = %+v, want separate /app entry", cookies[1])
	}
}

func TestSessionObserveCookies(t *testing.T) {
	session := newSession(nil, "UA1")

	u, _ := url.Parse("https://shop.example.com/cart")
	session.observeCookies(u, []*http.Cookie{
		{Name: "sess", Value: "abc"},
		{Name: "region", Value: "eu", Domain: ".example.com", Path: "/cart"},
	})

	cookies := session.SnapshotCookies()
	if len(cookies) != 2 {
		t.Fatalf("snapshot has %d cookies, want 2", len(cookies))
	}
	if cookies[0].Domain != "shop.example.com" {
		t.Errorf("attribute-less cookie should inherit request host, got %q", cookies[0].Domain)
	}
	if cookies[0].Path != "/" {
		t.Errorf("attribute-less cookie path = %q, want /", cookies[0].Path)
	}
	if cookies[1].Domain != ".example.com" || cookies[1].Path != "/cart" {
		t.Errorf("cookie attributes not preserved: %+v", cookies[1])
	}

	// A solve must merge, never replace: observed cookies survive.
	if err := session.ApplySolution("https://shop.example.com/", "UA2", []Cookie{
		{Name: "cf_clearance", Value: "v1"},
	}); err != nil {
		t.Fatal(err)
	}
	if got := len(session.SnapshotCookies()); got != 3 {
		t.Errorf("snapshot has %d cookies after solve, want 3", got)
	}
}
