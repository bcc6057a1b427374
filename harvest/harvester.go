// Package harvest turns a search query into an ordered list of product
// identifiers by driving the marketplace's search surface.
package harvest

import (
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/shelf-labs/scout/browser"
	"github.com/shelf-labs/scout/market"
	"github.com/shelf-labs/scout/models"
)

// Harvester scans the first results surface of the marketplace for product
// identifiers. No pagination, no retry: a failed search leaves nothing to
// process, so the error propagates as fatal to the whole batch.
type Harvester struct {
	// BaseURL is the marketplace root.
	BaseURL string

	// Settle is the wait after submitting the search before the results
	// surface is snapshotted.
	Settle time.Duration
}

// Harvest submits query and returns the identifiers of every organic result
// tile, deduplicated with first occurrence winning, in the page's natural
// rendering order. A page with zero identifiable results yields an empty
// slice, not an error.
func (h *Harvester) Harvest(page browser.Page, query string) ([]string, error) {
	if err := page.Navigate(market.SearchURL(h.BaseURL)); err != nil {
		return nil, models.NewResearchError(models.ErrCodeSearch, "failed to reach search entry point", err)
	}

	if err := page.Fill(market.SearchBox, query); err != nil {
		return nil, models.NewResearchError(models.ErrCodeSearch, "failed to fill search box", err)
	}
	if err := page.Click(market.SearchSubmit); err != nil {
		return nil, models.NewResearchError(models.ErrCodeSearch, "failed to submit search", err)
	}

	page.WaitSettle(h.Settle)

	html, err := page.HTML()
	if err != nil {
		return nil, models.NewResearchError(models.ErrCodeSearch, "failed to snapshot results page", err)
	}

	asins, err := ScanResults(html)
	if err != nil {
		return nil, models.NewResearchError(models.ErrCodeSearch, "failed to parse results page", err)
	}

	slog.Info("harvest complete", "query", query, "results", len(asins))
	return asins, nil
}

// ScanResults extracts identifiers from a results-page snapshot. Tiles
// without the identifier attribute (sponsored and decorative placements)
// are skipped.
func ScanResults(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var asins []string

	doc.Find(market.ResultItem).Each(func(_ int, sel *goquery.Selection) {
		asin, ok := sel.Attr(market.ASINAttr)
		if !ok {
			return
		}
		asin = strings.TrimSpace(asin)
		if asin == "" {
			return
		}
		if _, dup := seen[asin]; dup {
			return
		}
		seen[asin] = struct{}{}
		asins = append(asins, asin)
	})

	return asins, nil
}
