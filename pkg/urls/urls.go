// Package urls cleans, validates and keys the URLs the crawler and the
// fetch cache work with.
package urls

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	markdownLink = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)
	validURL     = regexp.MustCompile(`^https?://[a-zA-Z0-9][-a-zA-Z0-9.]*[a-zA-Z0-9](:\d+)?(/[^\s]*)?$`)
)

// ContentHash computes SHA256 hash of content and returns hex string.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// SanitizeURL cleans copy-paste debris from a URL: surrounding whitespace,
// markdown link syntax, and stray leading/trailing punctuation.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	if m := markdownLink.FindStringSubmatch(cleaned); len(m) > 1 {
		cleaned = m[1]
	}

	cleaned = strings.TrimRight(cleaned, ",.)}]\"'>;")
	cleaned = strings.TrimLeft(cleaned, "([<\"'")

	return strings.TrimSpace(cleaned)
}

// ValidateURL sanitizes a URL and checks it is an absolute http(s) URL with a
// plausible host. It returns the sanitized form.
func ValidateURL(rawURL string) (string, error) {
	cleaned := SanitizeURL(rawURL)
	if cleaned == "" {
		return "", fmt.Errorf("empty URL")
	}
	if strings.Contains(cleaned, " ") {
		return "", fmt.Errorf("URL contains spaces (encode as %%20): %s", rawURL)
	}
	if !validURL.MatchString(cleaned) {
		return "", fmt.Errorf("malformed URL: %s", rawURL)
	}

	parsed, err := url.Parse(cleaned)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Host == "" || strings.ContainsAny(parsed.Host, "{}[]<>\"'") {
		return "", fmt.Errorf("invalid host in URL: %s", rawURL)
	}
	return cleaned, nil
}

// DomainKey derives the storage key for a seed URL: the first dot-delimited
// label of its hostname. "https://example-events.com/list" -> "example-events".
func DomainKey(rawURL string) (string, error) {
	parsed, err := url.Parse(SanitizeURL(rawURL))
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		return "", fmt.Errorf("URL has no host: %s", rawURL)
	}
	label, _, _ := strings.Cut(host, ".")
	return strings.ToLower(label), nil
}
