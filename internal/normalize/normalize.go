// Package normalize validates and canonicalizes the URLs, hosts, emails and
// phone numbers that flow between discovery, audit and persistence.
package normalize

import (
	"net/url"
	"strings"
	"unicode"
)

// UnknownHost is returned by Host when the URL cannot be parsed.
const UnknownHost = "unknown"

var (
	assetSuffixes       = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".css", ".js", ".woff"}
	strictAssetSuffixes = []string{".ttf", ".eot"}
	knownTLDs           = []string{"com", "net", "org", "tr", "edu", "gov", "info", "co", "io", "me", "biz", "xyz"}
)

// URL trims raw, prepends https:// when no http(s) scheme is present and
// returns the result if it parses as an absolute URL with a host.
func URL(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if !hasHTTPScheme(s) {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || u.Hostname() == "" {
		return "", false
	}
	return s, true
}

// Host returns the lowercase host of rawURL, or UnknownHost.
func Host(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return UnknownHost
	}
	return strings.ToLower(u.Hostname())
}

// Domain normalizes raw and returns its host. ok is false when raw is not a
// usable URL.
func Domain(raw string) (string, bool) {
	s, ok := URL(raw)
	if !ok {
		return "", false
	}
	host := Host(s)
	if host == UnknownHost {
		return "", false
	}
	return host, true
}

// Resolve resolves href against base. Unresolvable hrefs are returned as-is
// and an empty href resolves to base.
func Resolve(base, href string) string {
	if strings.TrimSpace(href) == "" {
		return base
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// IsValidEmail applies the lenient email checks used during extraction.
func IsValidEmail(email string) bool {
	return validEmail(email, false)
}

// IsValidEmailStrict additionally rejects font assets and unknown TLDs.
func IsValidEmailStrict(email string) bool {
	return validEmail(email, true)
}

func validEmail(email string, strict bool) bool {
	if strings.TrimSpace(email) == "" {
		return false
	}
	if len(email) < 5 || len(email) > 254 {
		return false
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	if !strings.Contains(email[at+1:], ".") {
		return false
	}
	lower := strings.ToLower(email)
	if hasAnySuffix(lower, assetSuffixes) {
		return false
	}
	if !strict {
		return true
	}
	if hasAnySuffix(lower, strictAssetSuffixes) {
		return false
	}
	for _, tld := range knownTLDs {
		if strings.HasSuffix(lower, "."+tld) {
			return true
		}
	}
	return false
}

// Phone canonicalizes a Turkish phone number. Only the digits are counted:
// 11 digits with a leading 0 and 12 digits with a leading 90 are returned
// trimmed, 10 digits get a 0 prepended, anything else yields ok=false.
func Phone(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}
	var digits strings.Builder
	for _, r := range trimmed {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	switch {
	case len(d) < 10 || len(d) > 14:
		return "", false
	case len(d) == 11 && strings.HasPrefix(d, "0"):
		return trimmed, true
	case len(d) == 12 && strings.HasPrefix(d, "90"):
		return trimmed, true
	case len(d) == 10:
		return "0" + trimmed, true
	default:
		return "", false
	}
}

// SplitCSV splits a comma-joined column into trimmed, non-empty values.
func SplitCSV(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinCSV comma-joins values; an empty list yields "".
func JoinCSV(values []string) string {
	return strings.Join(values, ",")
}

// DistinctFold removes case-insensitive duplicates, keeping the first
// occurrence, and truncates the result to limit entries when limit > 0.
func DistinctFold(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Distinct removes exact duplicates, keeping the first occurrence.
func Distinct(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
