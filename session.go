package flarebypass

import (
	"net/url"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
)

// Cookie is the wire shape cookies take when exchanged with the solver.
type Cookie struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Domain  string `json:"domain"`
	Path    string `json:"path"`
	// Port is accepted in solver solutions but never populated locally:
	// cookie jars carry no port information.
	Port    string `json:"port,omitempty"`
	Secure  bool   `json:"secure"`
	Expires int64  `json:"expires,omitempty"`
}

type cookieKey struct {
	name, domain, path string
}

// Session holds the identity used on outgoing requests: the current
// user-agent and an ordered cookie record keyed by (name, domain, path).
// The user-agent starts at the browser profile default and is replaced by
// each successful solve; cookies are only ever merged, never purged.
//
// A Session belongs to exactly one open client scope and is not safe for
// concurrent use. Callers sharing a client must serialize their requests.
type Session struct {
	userAgent string
	transport tls_client.HttpClient
	entries   []Cookie
	index     map[cookieKey]int
}

func newSession(transport tls_client.HttpClient, userAgent string) *Session {
	return &Session{
		userAgent: userAgent,
		transport: transport,
		index:     make(map[cookieKey]int),
	}
}

// UserAgent returns the identity currently presented to the target site.
func (s *Session) UserAgent() string {
	return s.userAgent
}

// RequestHeaders merges the session identity over caller-supplied headers.
// Caller keys are canonicalized so a lowercase duplicate cannot slip past the
// overrides. The user-agent always comes from the session. cache-control is forced to
// no-cache so an intermediary cannot serve a cached interstitial and mask a
// since-cleared block.
func (s *Session) RequestHeaders(base http.Header) http.Header {
	headers := make(http.Header, len(base)+2)
	for k, v := range base {
		ck := http.CanonicalHeaderKey(k)
		headers[ck] = append(headers[ck], v...)
	}
	headers.Set("user-agent", s.userAgent)
	headers.Set("cache-control", "no-cache")
	return headers
}

// SnapshotCookies returns a copy of every cookie the session holds, in
// insertion order. The solver gets all of them, not just protection
// markers, because it may need unrelated application cookies to reproduce
// the session server-side.
func (s *Session) SnapshotCookies() []Cookie {
	out := make([]Cookie, len(s.entries))
	copy(out, s.entries)
	return out
}

// observeCookies records Set-Cookie output from an ordinary response. The
// transport's own jar already stores them for sending; this keeps the
// session's solver-facing record in sync.
func (s *Session) observeCookies(u *url.URL, cookies []*http.Cookie) {
	for _, c := range cookies {
		domain := c.Domain
		if domain == "" {
			domain = u.Hostname()
		}
		ck := Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: domain,
			Path:   defaultPath(c.Path),
			Secure: c.Secure,
		}
		if !c.Expires.IsZero() {
			ck.Expires = c.Expires.Unix()
		}
		s.upsert(ck)
	}
}

// ApplySolution installs the identity returned by a solve: the user-agent is
// replaced unconditionally, and each cookie is upserted by
// (name, domain, path) with a missing domain defaulting to the empty string
// and a missing path to "/". Nothing is removed.
func (s *Session) ApplySolution(targetURL, userAgent string, cookies []Cookie) error {
	target, err := url.Parse(targetURL)
	if err != nil {
		return err
	}

	s.userAgent = userAgent

	for _, ck := range cookies {
		ck.Path = defaultPath(ck.Path)
		s.upsert(ck)

		if s.transport == nil {
			continue
		}

		setURL := target
		if ck.Domain != "" {
			setURL = &url.URL{Scheme: "https", Host: strings.TrimPrefix(ck.Domain, ".")}
		}
		cookie := &http.Cookie{
			Name:   ck.Name,
			Value:  ck.Value,
			Domain: ck.Domain,
			Path:   ck.Path,
			Secure: ck.Secure,
		}
		if ck.Expires != 0 {
			cookie.Expires = time.Unix(ck.Expires, 0)
		}
		s.transport.SetCookies(setURL, []*http.Cookie{cookie})
	}

	return nil
}

func (s *Session) upsert(ck Cookie) {
	key := cookieKey{name: ck.Name, domain: ck.Domain, path: ck.Path}
	if i, ok := s.index[key]; ok {
		s.entries[i] = ck
		return
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, ck)
}

func defaultPath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
