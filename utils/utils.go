package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

func UrlQuery(s string) string { return url.QueryEscape(s) }

func Str(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9]`)

// SafeName turns a URL into a filesystem-safe token of at most max bytes.
func SafeName(rawURL string, max int) string {
	if i := strings.Index(rawURL, "//"); i >= 0 {
		rawURL = rawURL[i+2:]
	}
	s := unsafeName.ReplaceAllString(rawURL, "_")
	if max > 0 && len(s) > max {
		s = s[:max]
	}
	return s
}
