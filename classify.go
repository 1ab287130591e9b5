package flarebypass

import (
	"regexp"
	"strings"
)

// Classification is the verdict for a single HTTP response. It is recomputed
// per response and never stored.
type Classification int

const (
	// ClassOK means the response is not a protection page and should be
	// returned to the caller unchanged.
	ClassOK Classification = iota

	// ClassHardBlock means the page is a permanent denial (IP ban, access
	// denied). No challenge solve can restore access.
	ClassHardBlock

	// ClassChallenge means the page is a solvable interstitial.
	ClassChallenge

	// ClassUnrelated403 means a genuine 403 unrelated to the protection
	// layer. Returned to the caller as-is.
	ClassUnrelated403
)

func (c Classification) String() string {
	switch c {
	case ClassOK:
		return "ok"
	case ClassHardBlock:
		return "hard_block"
	case ClassChallenge:
		return "challenge"
	case ClassUnrelated403:
		return "unrelated_403"
	}
	return "unknown"
}

// Title patterns are deliberately tolerant substring matches rather than a
// structural HTML parse: block pages frequently ship malformed markup and a
// strict parser would regress detection.
var (
	accessDeniedTitleRe = regexp.MustCompile(`<\s*title\s*>\s*access denied\s[^><]*cloudflare[^><]*<\s*/\s*title\s*>`)
	ipBannedTitleRe     = regexp.MustCompile(`<\s*title\s*>\s*ip banned[^><]*<\s*/\s*title\s*>`)
)

// challengeMarkers are the known interstitial pages. A page counts as a
// challenge when the marker phrase appears in the body AND inside the
// <title> element; each pair is checked independently, first match wins.
var challengeMarkers = []struct {
	phrase  string
	titleRe *regexp.Regexp
}{
	{"just a moment...", regexp.MustCompile(`<\s*title\s*>[^><]*just a moment\.\.\.[^><]*<\s*/\s*title\s*>`)},
	{"attention required!", regexp.MustCompile(`<\s*title\s*>[^><]*attention required\s*![^><]*<\s*/\s*title\s*>`)},
	{"captcha challenge", regexp.MustCompile(`<\s*title\s*>[^><]*captcha challenge[^><]*<\s*/\s*title\s*>`)},
	{"ddos-guard", regexp.MustCompile(`<\s*title\s*>[^><]*ddos-guard[^><]*<\s*/\s*title\s*>`)},
}

// Classify maps an HTTP response to a protection-layer verdict. Only 403
// responses with an HTML content type and a non-empty body are inspected;
// everything else passes through as ClassOK.
func Classify(statusCode int, contentType, body string) Classification {
	if statusCode != 403 || !strings.HasPrefix(contentType, "text/html") || body == "" {
		return ClassOK
	}

	body = strings.ToLower(body)

	if (strings.Contains(body, "access denied") && accessDeniedTitleRe.MatchString(body)) ||
		(strings.Contains(body, "ip banned") && strings.Contains(body, "cloudflare") && ipBannedTitleRe.MatchString(body)) {
		return ClassHardBlock
	}

	for _, m := range challengeMarkers {
		if strings.Contains(body, m.phrase) && m.titleRe.MatchString(body) {
			return ClassChallenge
		}
	}

	return ClassUnrelated403
}
