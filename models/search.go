package models

import (
	"time"

	"github.com/google/uuid"
)

// SearchRequest is a keyword query with optional numeric filters.
// Unset filters are omitted from the database query, not widened.
type SearchRequest struct {
	Keyword    string   `json:"keyword"`
	MinDR      *int     `json:"min_dr"`
	MaxDR      *int     `json:"max_dr"`
	MinTraffic *int     `json:"min_traffic"`
	MaxPrice   *float64 `json:"max_price"`
	Limit      int      `json:"limit"`
}

// SearchResult is a qualified website with its relevance score attached.
type SearchResult struct {
	ID               uuid.UUID `json:"id"`
	URL              string    `json:"url"`
	Email            string    `json:"email"`
	Price            float64   `json:"price"`
	DR               *int      `json:"dr"`
	Traffic          *int      `json:"traffic"`
	RelevanceScore   float64   `json:"relevance_score"`
	MatchingKeywords []string  `json:"matching_keywords"`
}

// Range is a min/max pair for a filter dimension.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterRanges describes the value ranges present in the corpus, for
// populating search filter controls.
type FilterRanges struct {
	DR      Range `json:"dr_range"`
	Traffic Range `json:"traffic_range"`
	Price   Range `json:"price_range"`
}

// ImportInfo is a compact import summary for dashboards.
type ImportInfo struct {
	ID        uuid.UUID    `json:"id"`
	Filename  string       `json:"filename"`
	Status    ImportStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// DashboardStats aggregates corpus counts for the admin dashboard.
type DashboardStats struct {
	TotalWebsites int          `json:"total_websites"`
	TotalImports  int          `json:"total_imports"`
	TotalPages    int          `json:"total_pages"`
	AvgDR         float64      `json:"avg_dr"`
	AvgTraffic    float64      `json:"avg_traffic"`
	RecentImports []ImportInfo `json:"recent_imports"`
}
