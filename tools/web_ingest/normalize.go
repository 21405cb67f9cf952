// Package web_ingest turns stored page markup into bounded plain-text chunks
// for the language model stages.
package web_ingest

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	anySpace   = regexp.MustCompile(`[\s\p{Zs}]+`)
	blankLines = regexp.MustCompile(`\n{2,}`)
)

// Normalize strips non-content elements, extracts visible text with one line
// per block and collapses whitespace. It never fails; markup that cannot be
// parsed is returned as is.
func Normalize(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	var sb strings.Builder
	collectText(doc, &sb)

	lines := strings.Split(sb.String(), "\n")
	for i, l := range lines {
		// adjacent inline nodes can each bring their own edge spaces
		lines[i] = strings.TrimSpace(anySpace.ReplaceAllString(l, " "))
	}
	text := strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		// source line breaks are layout, not paragraphs
		sb.WriteString(anySpace.ReplaceAllString(n.Data, " "))
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if skipped(n.DataAtom) {
			return
		}
		if n.DataAtom == atom.Br {
			sb.WriteByte('\n')
			return
		}
	}
	block := n.Type == html.ElementNode && isBlock(n.DataAtom)
	if block {
		sb.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
	if block {
		sb.WriteByte('\n')
	} else if n.Type == html.ElementNode && (n.DataAtom == atom.Td || n.DataAtom == atom.Th) {
		sb.WriteByte(' ')
	}
}

func skipped(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Noscript, atom.Nav, atom.Footer,
		atom.Header, atom.Aside, atom.Iframe, atom.Template, atom.Svg:
		return true
	}
	return false
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Main, atom.Body,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Ul, atom.Ol, atom.Li, atom.Dl, atom.Dt, atom.Dd,
		atom.Table, atom.Tr, atom.Blockquote, atom.Pre, atom.Form,
		atom.Fieldset, atom.Figure, atom.Figcaption, atom.Hr, atom.Title:
		return true
	}
	return false
}
