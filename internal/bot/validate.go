package bot

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// youtubeURLPattern detects bare YouTube links in plain messages.
var youtubeURLPattern = regexp.MustCompile(`(youtube\.com|youtu\.be)`)

// allowedDomains for downloads. Only YouTube hosts are accepted.
var allowedDomains = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

// URL validation errors.
var (
	ErrEmptyURL         = errors.New("URL cannot be empty")
	ErrInvalidURL       = errors.New("invalid URL format")
	ErrSchemeNotAllowed = errors.New("only http and https URLs are allowed")
	ErrDomainNotAllowed = errors.New("only YouTube links are supported")
	ErrUserInfoPresent  = errors.New("URLs with user credentials are not allowed")
)

// ValidateURL checks that a URL is a well-formed YouTube link. The URL
// is later handed to an external process, so anything unexpected is
// rejected up front.
func ValidateURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ErrEmptyURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL
	}

	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return ErrSchemeNotAllowed
	}

	if parsed.User != nil {
		return ErrUserInfoPresent
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return ErrInvalidURL
	}
	if !allowedDomains[host] {
		return ErrDomainNotAllowed
	}

	return nil
}

// NormalizeURL strips fragments and trailing slashes for consistent
// handling.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.Fragment = ""
	normalized := parsed.String()

	if len(normalized) > 0 && normalized[len(normalized)-1] == '/' && parsed.Path != "/" {
		normalized = normalized[:len(normalized)-1]
	}

	return normalized
}
