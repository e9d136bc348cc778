// Package security validates URLs taken from page content.
package security

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateLinkURL checks that rawURL is safe to open from a demo box link.
// Only absolute http and https URLs with a host are accepted; credentials
// embedded in the URL are rejected.
func ValidateLinkURL(rawURL string) error {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return fmt.Errorf("URL must have a host")
	}
	if parsed.User != nil {
		return fmt.Errorf("URL must not carry credentials")
	}
	return nil
}
