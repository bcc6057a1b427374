// Package extract reads a ProductInfo off a live listing page.
//
// Listing pages are inconsistently structured: optional fields are
// frequently missing, renamed, or rendered by alternate templates. The
// extractor treats title as required, description as required-but-degradable
// to "", and every other field as independently optional behind an ordered
// fallback chain. Per-field isolation is the point — it is what lets the
// pipeline ride out template drift without a brittle single-shape scraper.
package extract

import (
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"

	"github.com/shelf-labs/scout/browser"
	"github.com/shelf-labs/scout/market"
	"github.com/shelf-labs/scout/models"
)

// Extractor resolves listing attributes from page snapshots.
type Extractor struct {
	// BaseURL is the marketplace root used to build listing URLs.
	BaseURL string

	// Settle is the wait after navigating to a listing.
	Settle time.Duration

	conv *converter.Converter
}

// NewExtractor creates an Extractor for the given marketplace.
func NewExtractor(baseURL string, settle time.Duration) *Extractor {
	return &Extractor{
		BaseURL: baseURL,
		Settle:  settle,
		conv:    newMarkdownConverter(),
	}
}

// Extract navigates page to the listing for asin and resolves its
// attributes. It fails only when the required title cannot be read
// (navigation error, dead listing, region lock); every optional field
// degrades to absent on its own.
func (e *Extractor) Extract(page browser.Page, asin string) (*models.ProductInfo, error) {
	url := market.ProductURL(e.BaseURL, asin)

	if err := page.Navigate(url); err != nil {
		return nil, models.NewResearchError(models.ErrCodeExtraction, "failed to reach listing "+asin, err)
	}

	page.WaitSettle(e.Settle)

	html, err := page.HTML()
	if err != nil {
		return nil, models.NewResearchError(models.ErrCodeExtraction, "failed to snapshot listing "+asin, err)
	}

	return e.FromSnapshot(html, asin, url)
}

// FromSnapshot resolves a ProductInfo from an already-captured listing
// snapshot. Calling it twice on the same snapshot yields field-for-field
// identical results; an absent field reproduces as absent, not as an error.
func (e *Extractor) FromSnapshot(html, asin, url string) (*models.ProductInfo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, models.NewResearchError(models.ErrCodeExtraction, "failed to parse listing "+asin, err)
	}

	title := strings.TrimSpace(doc.Find(market.Title).First().Text())
	if title == "" {
		return nil, models.NewResearchError(
			models.ErrCodeExtraction,
			"listing "+asin+" has no readable title",
			nil,
		)
	}

	return &models.ProductInfo{
		ASIN:        asin,
		URL:         url,
		Title:       title,
		Description: e.resolveDescription(doc, html, url),
		Price:       resolveField(doc, "price", priceChain()),
		Brand:       resolveField(doc, "brand", brandChain()),
		Rating:      resolveField(doc, "rating", ratingChain()),
		ReviewCount: resolveField(doc, "review_count", reviewCountChain()),
	}, nil
}
