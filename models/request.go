package models

// ResearchRequest is the payload for POST /api/v1/research.
type ResearchRequest struct {
	// Query is the marketplace search term. Required.
	Query string `json:"query" binding:"required"`

	// Limit caps how many harvested identifiers get processed. Default: 3.
	Limit int `json:"limit,omitempty" binding:"omitempty,min=1,max=10"`

	// IncludeBrandReputation asks the model for a 1-5 brand score.
	// Nil falls back to the server's configured default.
	IncludeBrandReputation *bool `json:"include_brand_reputation,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ResearchRequest) Defaults() {
	if r.Limit == 0 {
		r.Limit = 3
	}
}
