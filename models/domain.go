package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Website is a candidate site submitted for qualification. The URL is the
// unique key; a row starts bare (url/email/price only) and gains metrics and
// vector references as enrichment progresses.
type Website struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	URL             string          `json:"url" db:"url"`
	Email           string          `json:"email" db:"email"`
	Price           float64         `json:"price" db:"price"`
	DR              *int            `json:"dr" db:"dr"`
	Traffic         *int            `json:"traffic" db:"traffic"`
	EnrichmentState string          `json:"enrichment_state" db:"enrichment_state"`
	KeywordsData    json.RawMessage `json:"keywords_data" db:"keywords_data"`
	VectorIDs       []string        `json:"vector_ids" db:"vector_ids"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Enrichment states
const (
	EnrichmentStateBare        = "bare"
	EnrichmentStateMetricsOnly = "metrics_only"
	EnrichmentStateFull        = "fully_enriched"
)

// Page is a ranking page discovered for a website during enrichment.
// Rows are insert-only; re-enrichment appends new rows.
type Page struct {
	ID        uuid.UUID `json:"id" db:"id"`
	WebsiteID uuid.UUID `json:"website_id" db:"website_id"`
	URL       string    `json:"url" db:"url"`
	Keywords  []string  `json:"keywords" db:"keywords"`
	VectorID  string    `json:"vector_id" db:"vector_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// KeywordsSummary is stored on the website as keywords_data.
type KeywordsSummary struct {
	TotalPages      int `json:"total_pages"`
	VectorizedPages int `json:"vectorized_pages"`
}

type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// Import tracks one submitted batch of candidate websites. It is a progress
// and audit record only; it does not own Website rows.
type Import struct {
	ID                uuid.UUID    `json:"id" db:"id"`
	UserID            *uuid.UUID   `json:"user_id" db:"user_id"`
	Filename          string       `json:"filename" db:"filename"`
	Status            ImportStatus `json:"status" db:"status"`
	TotalWebsites     int          `json:"total_websites" db:"total_websites"`
	ProcessedWebsites int          `json:"processed_websites" db:"processed_websites"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	CompletedAt       *time.Time   `json:"completed_at" db:"completed_at"`
}

// WebsiteInput is one row of a submitted import list.
type WebsiteInput struct {
	URL   string  `json:"url"`
	Email string  `json:"email"`
	Price float64 `json:"price"`
}
