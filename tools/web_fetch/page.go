package web_fetch

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

var (
	// ErrNoDocument marks a page that produced no FetchedDocument.
	ErrNoDocument = errors.New("no document")
	// ErrGated is returned when the page text carries none of the relevance keywords.
	ErrGated = fmt.Errorf("%w: no relevance keyword", ErrNoDocument)
	// ErrNoContent is returned when no main-content region has text.
	ErrNoContent = fmt.Errorf("%w: no main content", ErrNoDocument)
)

// Main-content candidates in priority order.
var contentSelectors = []string{"main", "article", "div.content, div.main-content", "body"}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`),
	regexp.MustCompile(`\b\d{4}[-/]\d{1,2}[-/]\d{1,2}\b`),
	regexp.MustCompile(`(?i)\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4}\b`),
}

// Page is the processed form of one fetched page.
type Page struct {
	Title    string
	MainHTML string
	Dates    []string
}

// ParsePage strips scripts and styles, applies the keyword gate, selects the
// main-content region and collects date hints. pageURL is the title fallback.
func ParsePage(raw, pageURL string, keywords []string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	text := doc.Text()
	if !containsAny(strings.ToLower(text), keywords) {
		return Page{}, ErrGated
	}

	var main *goquery.Selection
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 && strings.TrimSpace(s.Text()) != "" {
			main = s
			break
		}
	}
	if main == nil {
		return Page{}, ErrNoContent
	}
	mainHTML, err := goquery.OuterHtml(main)
	if err != nil {
		return Page{}, fmt.Errorf("render main content: %w", err)
	}

	return Page{
		Title:    pageTitle(doc, raw, pageURL),
		MainHTML: mainHTML,
		Dates:    FindDates(text),
	}, nil
}

// FindDates returns every date-shaped substring, numeric D/M/Y first, then
// Y/M/D, then textual "Mon D, YYYY". Duplicates are dropped.
func FindDates(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, re := range datePatterns {
		for _, m := range re.FindAllString(text, -1) {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

func pageTitle(doc *goquery.Document, raw, pageURL string) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	u, _ := url.Parse(pageURL)
	if u == nil {
		u = &url.URL{}
	}
	if article, err := readability.FromReader(strings.NewReader(raw), u); err == nil {
		if t := strings.TrimSpace(article.Title); t != "" {
			return t
		}
	}
	return pageURL
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}
