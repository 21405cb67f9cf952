package config

import "testing"

func TestCrawlPolicyNormalize(t *testing.T) {
	cfg := CrawlPolicyConfig{
		RenderDomains: []string{"Devpost.com", "https://www.unstop.com/hackathons", "devpost.com", " "},
		Keywords:      []string{"Hackathon", "hackathon", " prize "},
		DenyURLTerms:  []string{"GitHub.com", ""},
		NegativeTerms: []string{"-github", "-github", "-Past"},
	}

	norm := cfg.Normalize()
	if len(norm.RenderDomains) != 2 || norm.RenderDomains[0] != "devpost.com" || norm.RenderDomains[1] != "unstop.com" {
		t.Fatalf("unexpected render domains: %#v", norm.RenderDomains)
	}
	if len(norm.Keywords) != 2 || norm.Keywords[0] != "hackathon" || norm.Keywords[1] != "prize" {
		t.Fatalf("unexpected keywords: %#v", norm.Keywords)
	}
	if len(norm.DenyURLTerms) != 1 || norm.DenyURLTerms[0] != "github.com" {
		t.Fatalf("unexpected deny terms: %#v", norm.DenyURLTerms)
	}
	if len(norm.NegativeTerms) != 2 || norm.NegativeTerms[1] != "-Past" {
		t.Fatalf("unexpected negative terms: %#v", norm.NegativeTerms)
	}
}

func TestCrawlPolicyValidate(t *testing.T) {
	if err := DefaultCrawlPolicy().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	empty := CrawlPolicyConfig{Keywords: []string{" ", ""}}
	if err := empty.Validate(); err == nil {
		t.Fatalf("expected empty keyword list to fail validation")
	}
}

func TestRequiresRendering(t *testing.T) {
	p := DefaultCrawlPolicy().Normalize()
	cases := map[string]bool{
		"devpost.com":         true,
		"www.devfolio.co":     true,
		"ai-hack.devpost.com": true,
		"notdevpost.com":      false,
		"example.org":         false,
		"":                    false,
	}
	for host, want := range cases {
		if got := p.RequiresRendering(host); got != want {
			t.Fatalf("RequiresRendering(%q) = %v, want %v", host, got, want)
		}
	}
}
