package extract

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shelf-labs/scout/market"
)

// strategy is one independent way of resolving a field from a listing
// snapshot. It returns the value and whether it found one.
type strategy struct {
	name    string
	resolve func(doc *goquery.Document) (string, bool)
}

// resolveField evaluates a chain left to right; the first strategy that
// yields a value wins. A strategy's internal failure — a panic included —
// stays inside the strategy boundary and just means "try the next one", so
// one field's resolution can never abort another's or the whole extraction.
func resolveField(doc *goquery.Document, field string, chain []strategy) *string {
	for _, s := range chain {
		value, ok := runStrategy(doc, s)
		if !ok {
			continue
		}
		slog.Debug("field resolved", "field", field, "strategy", s.name)
		return &value
	}
	slog.Debug("field unresolved", "field", field)
	return nil
}

// runStrategy executes one strategy with a panic guard.
func runStrategy(doc *goquery.Document, s strategy) (value string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("strategy panicked", "strategy", s.name, "panic", r)
			value, ok = "", false
		}
	}()
	return s.resolve(doc)
}

// selectionText returns the trimmed text of the first match, reporting
// whether anything non-empty was found.
func selectionText(doc *goquery.Document, selector string) (string, bool) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	text := strings.TrimSpace(sel.Text())
	return text, text != ""
}

// priceChain has a single strategy: the known price element. There is no
// secondary price source worth trusting, so a miss leaves the field absent.
func priceChain() []strategy {
	return []strategy{
		{name: "price-element", resolve: func(doc *goquery.Document) (string, bool) {
			return selectionText(doc, market.Price)
		}},
	}
}

// brandChain tries the dedicated byline element first, then falls back to
// the first whitespace-delimited token of the title.
func brandChain() []strategy {
	return []strategy{
		{name: "byline", resolve: func(doc *goquery.Document) (string, bool) {
			raw, ok := selectionText(doc, market.Byline)
			if !ok {
				return "", false
			}
			brand := market.CleanByline(raw)
			return brand, brand != ""
		}},
		{name: "title-token", resolve: func(doc *goquery.Document) (string, bool) {
			title, ok := selectionText(doc, market.Title)
			if !ok {
				return "", false
			}
			fields := strings.Fields(title)
			if len(fields) == 0 {
				return "", false
			}
			return fields[0], true
		}},
	}
}

// ratingChain reads the rating summary's descriptive attribute; the visible
// text of that element is just a star icon.
func ratingChain() []strategy {
	return []strategy{
		{name: "rating-attr", resolve: func(doc *goquery.Document) (string, bool) {
			sel := doc.Find(market.Rating).First()
			if sel.Length() == 0 {
				return "", false
			}
			raw, ok := sel.Attr(market.RatingAttr)
			if !ok {
				return "", false
			}
			raw = strings.TrimSpace(raw)
			return raw, raw != ""
		}},
	}
}

// reviewCountChain reads the dedicated review-count text element.
func reviewCountChain() []strategy {
	return []strategy{
		{name: "review-count", resolve: func(doc *goquery.Document) (string, bool) {
			return selectionText(doc, market.ReviewCount)
		}},
	}
}
