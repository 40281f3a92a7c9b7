// Package privacy scrubs credentials and query strings from text that leaves
// the process: telemetry events, notification errors and logs.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Redacted replaces every scrubbed value.
const Redacted = "[REDACTED]"

var (
	// URL pattern for finding URLs of any scheme in text, including
	// shoutrrr service URLs and database DSNs.
	urlPattern = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9+.-]*://[^\s"'<>]+`)

	// secretPatterns match credentials outside URLs.
	secretPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)password[=:]\S+`),
		regexp.MustCompile(`(?i)secret[=:]\S+`),
		regexp.MustCompile(`(?i)client[_-]?id[=:]\S+`),
		regexp.MustCompile(`[^\s:/@]+:[^\s:/@]+@tcp\(`),
	}
)

// ScrubMessage redacts URL credentials and queries, key=value secrets and
// MySQL DSN user info in message.
func ScrubMessage(message string) string {
	scrubbed := urlPattern.ReplaceAllStringFunc(message, RedactURL)
	for _, p := range secretPatterns {
		scrubbed = p.ReplaceAllString(scrubbed, Redacted)
	}
	return scrubbed
}

// RedactURL keeps the scheme, host and path of rawURL and replaces user info
// and query with Redacted. Unparseable input is replaced by a short hash.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(Redacted)
		b.WriteByte('@')
	}
	b.WriteString(u.Host)
	b.WriteString(u.EscapedPath())
	if u.RawQuery != "" || u.ForceQuery {
		b.WriteByte('?')
		b.WriteString(Redacted)
	}
	return b.String()
}
