package helpers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"
)

var (
	ErrEmptyURL       = errors.New("empty url")
	ErrMissingHost    = errors.New("url missing host")
	ErrUnsupportedURL = errors.New("unsupported url scheme")
)

// click identifiers appended by ad networks and newsletters
var clickIDs = map[string]bool{
	"gclid": true, "dclid": true, "fbclid": true, "msclkid": true,
	"igshid": true, "mc_cid": true, "mc_eid": true, "ref_src": true,
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	return strings.HasPrefix(key, "utm_") || clickIDs[key]
}

// CanonicalURL reduces an event page link to the form used for cache keys.
// Only http and https are accepted; a missing scheme means https. Host is
// lower-cased with the default port dropped, the path is cleaned (a trailing
// slash survives), the fragment and tracking parameters are removed and the
// remaining query is sorted by key.
func CanonicalURL(raw string) (string, error) {
	u, err := parseLoose(raw)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedURL, u.Scheme)
	}

	host, port := strings.ToLower(u.Hostname()), u.Port()
	if host == "" {
		return "", ErrMissingHost
	}
	if port != "" && !(u.Scheme == "http" && port == "80") && !(u.Scheme == "https" && port == "443") {
		host = net.JoinHostPort(host, port)
	}
	u.Host = host
	u.User = nil

	p := path.Clean("/" + u.Path)
	if p != "/" && strings.HasSuffix(u.Path, "/") {
		p += "/"
	}
	u.Path, u.RawPath = p, ""
	u.Fragment, u.RawFragment = "", ""

	q := u.Query()
	for key := range q {
		if isTrackingParam(key) {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// URLFingerprint is the hex SHA-256 of the canonical form of raw.
func URLFingerprint(raw string) (string, error) {
	canonical, err := CanonicalURL(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// HostOf returns the lower-cased host of raw without a "www." prefix or port,
// or "" when raw does not parse.
func HostOf(raw string) string {
	u, err := parseLoose(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// parseLoose accepts links the way search results and users write them,
// including "devpost.com/x" and "//devpost.com/x".
func parseLoose(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" && u.Host == "" {
		if strings.HasPrefix(raw, "//") {
			return url.Parse("https:" + raw)
		}
		return url.Parse("https://" + raw)
	}
	return u, nil
}
