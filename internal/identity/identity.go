// Package identity derives the stable dedup key for an episode link.
//
// The normalization rule is a contract, not an implementation detail: the
// same logical link must always map to the same identity, and the tests in
// this package pin the rule down. Normalization lowercases the scheme and
// host, strips default ports, drops the fragment, removes known tracking
// query parameters, sorts the remaining query, and trims a trailing slash
// from the path. The identity is the hex SHA-256 digest of the normalized
// URL.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// trackingParams are query parameters that never change which episode a link
// points at and are stripped before hashing.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"spm":          {},
	"from":         {},
	"s":            {},
}

// ForURL returns the dedup identity for a raw episode link.
func ForURL(raw string) (string, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:]), nil
}

// Normalize applies the canonical link normalization rule.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("normalize url: empty link")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("normalize url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("normalize url: %q is not an absolute link", trimmed)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Host = stripDefaultPort(parsed.Scheme, parsed.Host)
	parsed.Fragment = ""

	if strings.HasSuffix(parsed.Path, "/") {
		parsed.RawPath = ""
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	parsed.RawQuery = normalizeQuery(parsed.Query())
	return parsed.String(), nil
}

func stripDefaultPort(scheme, host string) string {
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		return strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		return strings.TrimSuffix(host, ":443")
	default:
		return host
	}
}

func normalizeQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		if _, tracking := trackingParams[strings.ToLower(key)]; tracking {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	var builder strings.Builder
	for _, key := range keys {
		for _, value := range values[key] {
			if builder.Len() > 0 {
				builder.WriteByte('&')
			}
			builder.WriteString(url.QueryEscape(key))
			builder.WriteByte('=')
			builder.WriteString(url.QueryEscape(value))
		}
	}
	return builder.String()
}
