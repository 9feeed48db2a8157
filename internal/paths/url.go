package paths

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	// MomBaseURL is the public base of the MOM web application
	MomBaseURL = "https://www.monasterium.net/mom"

	// ImageHost is the hosting domain for images served by MOM itself
	ImageHost = "images.monasterium.net"

	// ImageBaseURL is the absolute base for hosted image paths
	ImageBaseURL = "http://images.monasterium.net"

	// SavedCharterBaseURL prefixes the atom-id path of a saved charter
	SavedCharterBaseURL = "https://www.monasterium.net/mom/saved-charter?id=tag:www.monasterium.net,2011:/charter"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// JoinURL joins URL parts with exactly one slash between them.
// Leading and trailing slashes of inner parts are dropped, so
// JoinURL("http://host/", "/a/", "/b") == JoinURL("http://host", "a", "b").
// Empty parts are skipped.
func JoinURL(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for i, part := range parts {
		if i == 0 {
			part = strings.TrimRight(part, "/")
		} else {
			part = strings.Trim(part, "/")
		}
		if part == "" {
			continue
		}
		cleaned = append(cleaned, part)
	}
	return strings.Join(cleaned, "/")
}

// IsValidURL reports whether s is a well-formed absolute URL
func IsValidURL(s string) bool {
	if s == "" {
		return false
	}
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate.Var(s, "required,url") == nil
}

// IsAbsoluteURL reports whether s carries an http(s) scheme
func IsAbsoluteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// IsHostedImage reports whether an image URL points at the MOM image host
func IsHostedImage(url string) bool {
	return strings.Contains(url, ImageHost)
}
