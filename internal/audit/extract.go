package audit

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxTitleRunes = 256

var (
	titlePattern    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	viewportPattern = regexp.MustCompile(`(?i)<meta[^>]+name\s*=\s*["']viewport["'][^>]*>`)
	emailPattern    = regexp.MustCompile(
		`(?i)\b[A-Z0-9._%+\-]{1,64}@[A-Z0-9.\-]{1,255}\.(com|net|org|tr|edu|gov|info|co|io|me|biz|xyz)\b`,
	)
	phonePattern  = regexp.MustCompile(`(?:\+90|0)?[\s\-\(]?\d{3}[\s\-\)]?\d{3}[\s\-]?\d{2}[\s\-]?\d{2}\b`)
	anchorPattern = regexp.MustCompile(`(?is)<a[^>]+href\s*=\s*["']([^"'#>]+)["'][^>]*>(.*?)</a>`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// extractTitle returns the first <title> text, unescaped and trimmed, or ""
// when the page has none.
func extractTitle(body string) string {
	if body == "" {
		return ""
	}
	m := titlePattern.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	title := strings.TrimSpace(html.UnescapeString(m[1]))
	if utf8.RuneCountInString(title) > maxTitleRunes {
		title = string([]rune(title)[:maxTitleRunes])
	}
	return title
}

func hasViewport(body string) bool {
	return body != "" && viewportPattern.MatchString(body)
}

func hasEmail(body string) bool {
	return emailPattern.MatchString(body)
}

// contacts accumulates raw email and phone matches across pages.
type contacts struct {
	emails []string
	phones []string
}

func (c *contacts) scan(body string) {
	if body == "" {
		return
	}
	c.emails = append(c.emails, emailPattern.FindAllString(body, -1)...)
	for _, m := range phonePattern.FindAllString(body, -1) {
		c.phones = append(c.phones, strings.TrimSpace(spacePattern.ReplaceAllString(m, " ")))
	}
}

// contactAnchors returns the hrefs of anchors whose href or text mentions a
// contact page.
func contactAnchors(body string) []string {
	if body == "" {
		return nil
	}
	var hrefs []string
	for _, m := range anchorPattern.FindAllStringSubmatch(body, -1) {
		if looksLikeContact(m[1]) || looksLikeContact(m[2]) {
			hrefs = append(hrefs, m[1])
		}
	}
	return hrefs
}

func looksLikeContact(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return false
	}
	return strings.Contains(s, "contact") ||
		strings.Contains(s, "iletisim") ||
		strings.Contains(s, "bize-ulas")
}

// homepageContactSignal reports explicit contact markers on the homepage.
func homepageContactSignal(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "mailto:") ||
		strings.Contains(lower, "tel:") ||
		strings.Contains(lower, strings.ToLower(">İletişim<")) ||
		strings.Contains(lower, ">contact<")
}
