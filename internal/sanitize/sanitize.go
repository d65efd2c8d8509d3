// Package sanitize provides pure normalization helpers applied to values
// crossing the trust boundary with the document store, both on input and
// immediately before every write.
package sanitize

import (
	"net/url"
	"strings"
	"unicode"
)

// String trims surrounding whitespace and collapses internal whitespace
// runs to a single space.
func String(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// Email lowercases and trims an email address. It does not validate;
// validation is the schema layer's job.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Phone keeps digits and a single leading plus sign, dropping separators
// and formatting characters.
func Phone(s string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(s) {
		if unicode.IsDigit(r) || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// URL trims a URL and normalizes its scheme and host to lowercase.
// Unparseable values are returned trimmed rather than rejected.
func URL(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

// StripNulls recursively removes nil-valued keys from decoded JSON maps.
// The document store rejects explicit nulls for absent optional fields, so
// every payload passes through here before a write. Nils inside arrays are
// kept: element positions are meaningful.
func StripNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if val == nil {
				delete(t, k)
				continue
			}
			t[k] = StripNulls(val)
		}
		return t
	case []any:
		for i, val := range t {
			if val != nil {
				t[i] = StripNulls(val)
			}
		}
		return t
	default:
		return v
	}
}
