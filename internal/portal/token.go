package portal

import "regexp"

// The portal's markup has changed across revisions, so the anti-forgery
// token is extracted by trying several deterministic patterns in priority
// order. Each pattern is a pure function of the response body; the first
// match wins.
type tokenPattern struct {
	name string
	re   *regexp.Regexp
}

var tokenPatterns = []tokenPattern{
	{"input-csrf_token", regexp.MustCompile(`<input[^>]*\bname="csrf_token"[^>]*\bvalue="([^"]+)"`)},
	{"data-csrf-token", regexp.MustCompile(`\bdata-csrf-token="([^"]+)"`)},
	{"json-csrf-token", regexp.MustCompile(`"csrf-token"\s*:\s*"([^"]+)"`)},
	{"input-_csrf_token", regexp.MustCompile(`<input[^>]*\bname="_csrf_token"[^>]*\bvalue="([^"]+)"`)},
	{"meta-csrf-token", regexp.MustCompile(`<meta[^>]*\bname="csrf-token"[^>]*\bcontent="([^"]+)"`)},
}

// ExtractToken scans body for an anti-forgery token. It returns the token,
// the name of the pattern that matched, and whether any pattern matched.
func ExtractToken(body string) (token, pattern string, ok bool) {
	for _, p := range tokenPatterns {
		if m := p.re.FindStringSubmatch(body); m != nil {
			return m[1], p.name, true
		}
	}
	return "", "", false
}
