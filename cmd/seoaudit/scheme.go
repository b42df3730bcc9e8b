package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ensureScheme adds https:// when rawURL has no scheme. An explicit scheme
// must be http or https.
func ensureScheme(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.New("url is empty")
	}

	// "example.com:8080" parses with scheme "example.com", so only treat
	// an explicit "://" as a scheme.
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q, use http or https", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return rawURL, nil
}
