package extract

import (
	"log/slog"
	nurl "net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/shelf-labs/scout/market"
)

// maxDescriptionLen caps the description fed to the model. Listing
// descriptions can run to tens of kilobytes of marketing copy; past this
// point extra text adds tokens, not signal.
const maxDescriptionLen = 4000

// minReadabilityLen is the minimum TextContent length for readability
// output to count as a real description rather than boilerplate.
const minReadabilityLen = 50

// resolveDescription resolves the description field. Unlike the optional
// fields it is required-but-degradable: when every source misses, it
// resolves to "" rather than failing the extraction.
//
// Sources, in order:
//  1. the dedicated description section
//  2. the feature-bullets list
//  3. the Readability algorithm over the whole snapshot
//
// The winning HTML fragment is converted to markdown for the model; if the
// conversion chokes, the fragment's plain text is used instead.
func (e *Extractor) resolveDescription(doc *goquery.Document, rawHTML, pageURL string) string {
	for _, s := range []struct {
		name string
		html func() (string, bool)
	}{
		{"product-description", func() (string, bool) { return sectionHTML(doc, market.Description) }},
		{"feature-bullets", func() (string, bool) { return sectionHTML(doc, market.FeatureBullets) }},
		{"readability", func() (string, bool) { return readableContent(rawHTML, pageURL) }},
	} {
		fragment, ok := s.html()
		if !ok {
			continue
		}
		slog.Debug("field resolved", "field", "description", "strategy", s.name)
		return clampText(e.toText(fragment, pageURL))
	}

	slog.Debug("field unresolved", "field", "description")
	return ""
}

// sectionHTML returns the outer HTML of the first match when its text
// content is non-empty.
func sectionHTML(doc *goquery.Document, selector string) (string, bool) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	if strings.TrimSpace(sel.Text()) == "" {
		return "", false
	}
	html, err := goquery.OuterHtml(sel)
	if err != nil {
		return "", false
	}
	return html, true
}

// readableContent runs the Mozilla Readability algorithm over the whole
// snapshot. It is the last resort for listings rendered by templates that
// use neither of the known description sections.
func readableContent(rawHTML, pageURL string) (string, bool) {
	parsed, err := nurl.Parse(pageURL)
	if err != nil {
		return "", false
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsed)
	if err != nil {
		return "", false
	}
	if len(strings.TrimSpace(article.TextContent)) < minReadabilityLen {
		return "", false
	}
	return article.Content, true
}

// toText converts an HTML fragment to markdown, falling back to stripped
// plain text when the converter fails.
func (e *Extractor) toText(fragment, pageURL string) string {
	md, err := toMarkdown(e.conv, fragment, pageURL)
	if err == nil {
		return strings.TrimSpace(md)
	}
	slog.Debug("markdown conversion failed, using plain text", "error", err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}

// clampText truncates s to the byte budget, backing up to a rune boundary
// so the cut never leaves an invalid UTF-8 tail.
func clampText(s string) string {
	if len(s) <= maxDescriptionLen {
		return s
	}
	n := maxDescriptionLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
