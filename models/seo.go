package models

// DomainMetrics holds authority/traffic figures for a domain. Either field
// may be nil when the provider had no answer.
type DomainMetrics struct {
	DR      *int `json:"dr"`
	Traffic *int `json:"traffic"`
}

// PageData is one ranking page with its keywords as returned by the keyword
// provider.
type PageData struct {
	URL          string   `json:"url"`
	Keywords     []string `json:"keywords"`
	Position     *int     `json:"position"`
	SearchVolume *int     `json:"search_volume"`
}

// StoredVector pairs an input page with the identifier its vector was stored
// under, so callers never have to realign positionally after skipped pages.
type StoredVector struct {
	Page     PageData `json:"page"`
	VectorID string   `json:"vector_id"`
}

// VectorMatch is one similarity hit mapped back from index payload.
type VectorMatch struct {
	Score      float64 `json:"score"`
	WebsiteURL string  `json:"website_url"`
	PageURL    string  `json:"page_url"`
	Keywords   string  `json:"keywords"`
	Position   *int    `json:"position"`
}
