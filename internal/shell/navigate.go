package shell

import (
	"net/url"
	"strings"
	"unicode"
)

// DefaultSearchURL is the query prefix used for non-address input.
const DefaultSearchURL = "https://www.google.com/search?q="

// Normalize turns user input into a loadable address. Input with an http or
// https scheme passes through, a dotted string without whitespace is treated
// as a host, anything else becomes a search query. It does not validate.
func Normalize(input, searchURL string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return s
	}
	if strings.Contains(s, ".") && !strings.ContainsFunc(s, unicode.IsSpace) {
		return "https://" + s
	}
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	return searchURL + strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
