package models

// ProductInfo holds the attributes of one listing at extraction time.
// Title is required; Description degrades to "" when the page section is
// missing; every other field is independently optional and nil when all of
// its extraction strategies came up empty.
//
// A ProductInfo is built fresh per product visit and never mutated after it
// is returned.
type ProductInfo struct {
	// ASIN is the site-assigned identifier the product was navigated by.
	ASIN string `json:"asin"`

	// URL is the listing URL derived from the ASIN.
	URL string `json:"url"`

	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       *string `json:"price,omitempty"`
	Brand       *string `json:"brand,omitempty"`
	Rating      *string `json:"rating,omitempty"`
	ReviewCount *string `json:"review_count,omitempty"`
}

// ProductAnalysis is the model's structured judgment of one product.
// On success every field is populated; the fail-closed path substitutes a
// negative default (both booleans false, ValueScore 0, BrandReputation nil,
// Reasoning describing the failure) instead of a partial record.
type ProductAnalysis struct {
	IsPortable     bool    `json:"is_portable"`
	IsRechargeable bool    `json:"is_rechargeable"`
	ValueScore     float64 `json:"value_score"`

	// BrandReputation is a 1-5 integer, present only when requested.
	BrandReputation *int `json:"brand_reputation,omitempty"`

	Reasoning string `json:"reasoning"`
}

// ReportEntry pairs one harvested identifier with either its analysis or an
// extraction-failure marker. Exactly one of Analysis and Failure is set.
type ReportEntry struct {
	ASIN     string           `json:"asin"`
	URL      string           `json:"url"`
	Info     *ProductInfo     `json:"info,omitempty"`
	Analysis *ProductAnalysis `json:"analysis,omitempty"`
	Failure  *ErrorDetail     `json:"failure,omitempty"`
}

// Failed reports whether this entry carries a failure marker.
func (e *ReportEntry) Failed() bool {
	return e.Failure != nil
}

// Report is the ordered outcome of one research run, one entry per
// processed identifier, preserving harvest order.
type Report struct {
	Query     string        `json:"query"`
	SessionID string        `json:"session_id,omitempty"`
	ReplayURL string        `json:"replay_url,omitempty"`
	Entries   []ReportEntry `json:"entries"`

	// Harvested is how many identifiers the search surface yielded before
	// the product limit was applied.
	Harvested int `json:"harvested"`
}
