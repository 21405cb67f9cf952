package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// DefaultUserAgent is sent on static fetches.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var (
	// DefaultRenderDomains are sites known to render their listings client-side.
	DefaultRenderDomains = []string{
		"unstop.com", "devfolio.co", "hackerearth.com", "devpost.com",
		"linkedin.com", "instagram.com", "facebook.com",
	}
	// DefaultKeywords gate a fetched page before anything is persisted.
	DefaultKeywords = []string{
		"hackathon", "register", "registration", "prize",
		"deadline", "submit", "participate", "team",
	}
	// DefaultDenyURLTerms drop search hits that are code hosting, video, retrospectives or editorial.
	DefaultDenyURLTerms = []string{
		"github.com", "youtube.com", "past-hack", "winners",
		"blog.", "news.", "article", "about-us",
	}
	// DefaultNegativeTerms are appended to every search query.
	DefaultNegativeTerms = []string{
		"-github", "-youtube", "-past", "-winners", "-completed", "-ended",
	}
)

// CrawlPolicyConfig holds the hand-tuned discovery and fetch heuristics.
type CrawlPolicyConfig struct {
	RenderDomains []string `mapstructure:"render_domains"`
	Keywords      []string `mapstructure:"keywords"`
	DenyURLTerms  []string `mapstructure:"deny_url_terms"`
	NegativeTerms []string `mapstructure:"negative_terms"`
}

// DefaultCrawlPolicy returns the built-in lists.
func DefaultCrawlPolicy() CrawlPolicyConfig {
	return CrawlPolicyConfig{
		RenderDomains: append([]string(nil), DefaultRenderDomains...),
		Keywords:      append([]string(nil), DefaultKeywords...),
		DenyURLTerms:  append([]string(nil), DefaultDenyURLTerms...),
		NegativeTerms: append([]string(nil), DefaultNegativeTerms...),
	}
}

// Normalize cleans entries and removes duplicates.
func (c CrawlPolicyConfig) Normalize() CrawlPolicyConfig {
	norm := c
	norm.RenderDomains = sanitizeDomainList(norm.RenderDomains)
	norm.Keywords = sanitizeTermList(norm.Keywords, true)
	norm.DenyURLTerms = sanitizeTermList(norm.DenyURLTerms, true)
	norm.NegativeTerms = sanitizeTermList(norm.NegativeTerms, false)
	return norm
}

// Validate ensures the policy can gate pages at all.
func (c CrawlPolicyConfig) Validate() error {
	norm := c.Normalize()
	if len(norm.Keywords) == 0 {
		return fmt.Errorf("crawl_policy.keywords must not be empty")
	}
	for _, host := range norm.RenderDomains {
		if strings.ContainsAny(host, "/ ") {
			return fmt.Errorf("crawl policy render domain %q is not a host", host)
		}
	}
	return nil
}

// RequiresRendering reports whether host belongs to a render domain or one
// of its subdomains.
func (c CrawlPolicyConfig) RequiresRendering(host string) bool {
	host = normalizeHost(host)
	if host == "" {
		return false
	}
	for _, d := range c.RenderDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func sanitizeDomainList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		host := normalizeHost(raw)
		if host == "" {
			continue
		}
		seen[host] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for host := range seen {
		out = append(out, host)
	}
	sort.Strings(out)
	return out
}

// sanitizeTermList trims, optionally lower-cases, and drops duplicates while
// keeping the configured order.
func sanitizeTermList(values []string, lower bool) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		v := strings.TrimSpace(raw)
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func normalizeHost(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		if u, err := url.Parse(value); err == nil && u.Host != "" {
			return strings.TrimPrefix(u.Hostname(), "www.")
		}
	}
	value = strings.TrimPrefix(value, "www.")
	return value
}
