package validate

import (
	"errors"
	"net/url"
	"strings"
)

// NormalizeURL turns user input such as "example.com" into an absolute URL
// ("https://www.example.com"). The same rule applies on create and edit.
func NormalizeURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://www." + u
	}
	if !strings.Contains(u, ".") {
		u += ".com"
	}

	parsed, err := url.Parse(u)
	if err == nil && (parsed.Host == "" || strings.ContainsAny(parsed.Host, " \t")) {
		err = errors.New("missing or malformed host")
	}
	if err != nil {
		return "", &InvalidURLError{Message: msgInvalidURL, Input: raw, Err: err}
	}
	return u, nil
}
