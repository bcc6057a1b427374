// Package market pins down the DOM conventions of the target marketplace:
// the selectors the harvester and extractor read, and how identifiers map
// to URLs. Listing templates drift; keeping every selector here means a
// template change is a one-file fix.
package market

import (
	"net/url"
	"strings"
)

// Search surface selectors.
const (
	// SearchBox is the query input on the marketplace home page.
	SearchBox = "#twotabsearchtextbox"

	// SearchSubmit is the search button next to the query input.
	SearchSubmit = "#nav-search-submit-button"

	// ResultItem matches one organic result tile. Sponsored and decorative
	// tiles render without the identifier attribute and are skipped.
	ResultItem = "div.s-main-slot div[data-component-type='s-search-result']"

	// ASINAttr is the attribute on a result tile carrying the identifier.
	ASINAttr = "data-asin"
)

// Listing page selectors.
const (
	Title          = "#productTitle"
	Byline         = "#bylineInfo"
	Price          = "span.a-price span.a-offscreen"
	Rating         = "#acrPopover"
	RatingAttr     = "title" // e.g. "4.6 out of 5 stars"; visible text is an icon
	ReviewCount    = "#acrCustomerReviewText"
	Description    = "#productDescription"
	FeatureBullets = "#feature-bullets ul"
)

// BylinePrefixes are literal prefixes stripped from the byline text when
// resolving a brand. The byline renders either "Brand: X" or
// "Visit the X Store" depending on whether the seller has a storefront.
var BylinePrefixes = []string{"Brand:", "Visit the"}

// BylineSuffixes are trailing fragments stripped after prefix removal.
var BylineSuffixes = []string{"Store"}

// SearchURL returns the marketplace search entry point.
func SearchURL(base string) string {
	return strings.TrimRight(base, "/") + "/"
}

// ProductURL builds a listing URL for an identifier.
func ProductURL(base, asin string) string {
	return strings.TrimRight(base, "/") + "/dp/" + url.PathEscape(asin)
}

// CleanByline applies the prefix/suffix stripping rules to raw byline text.
// It returns "" when nothing brand-like remains.
func CleanByline(raw string) string {
	s := strings.TrimSpace(raw)
	for _, p := range BylinePrefixes {
		s = strings.TrimSpace(strings.TrimPrefix(s, p))
	}
	for _, suf := range BylineSuffixes {
		s = strings.TrimSpace(strings.TrimSuffix(s, suf))
	}
	return s
}
