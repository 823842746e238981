package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vahanpoghosian/link-qualification-system/models"
)

// Store is the slice of the record store the enrichment pipeline needs.
// *storage.PostgresStore satisfies it; tests substitute fakes.
type Store interface {
	GetWebsiteByURL(ctx context.Context, url string) (*models.Website, error)
	SaveEnrichment(ctx context.Context, w *models.Website, pages []*models.Page) error
	GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error)
	SetImportProgress(ctx context.Context, id uuid.UUID, processed int) error
	SetImportStatus(ctx context.Context, id uuid.UUID, status models.ImportStatus, completedAt *time.Time) error
}

// MetricsProvider fetches authority/traffic figures for a domain.
type MetricsProvider interface {
	GetDomainMetrics(ctx context.Context, domain string) models.DomainMetrics
}

// KeywordProvider fetches ranking pages with keywords for a domain.
type KeywordProvider interface {
	GetPagesAndKeywords(ctx context.Context, domain string, limit int) []models.PageData
}

// Vectorizer embeds page keywords and stores them in the similarity index.
type Vectorizer interface {
	StoreVectors(ctx context.Context, websiteURL string, pages []models.PageData) []models.StoredVector
}

// EnrichmentService runs the per-website enrichment pipeline: metrics, then
// keyword pages, then vectors, then one transactional save. Items are
// processed strictly in order, one at a time; a failed item is logged and
// skipped without aborting the batch.
type EnrichmentService struct {
	store     Store
	metrics   MetricsProvider
	keywords  KeywordProvider
	vectors   Vectorizer
	pageLimit int
}

func NewEnrichmentService(store Store, metrics MetricsProvider, keywords KeywordProvider, vectors Vectorizer, pageLimit int) *EnrichmentService {
	if pageLimit <= 0 {
		pageLimit = 1000
	}
	return &EnrichmentService{
		store:     store,
		metrics:   metrics,
		keywords:  keywords,
		vectors:   vectors,
		pageLimit: pageLimit,
	}
}

// ProcessBatch enriches every item of an import in list order and marks the
// import completed afterwards. Per-item failures are swallowed; only a
// failure outside the item loop (e.g. a missing import record) is returned,
// and the caller is expected to mark the batch failed.
//
// The processed counter is written after each item commits, so an item that
// failed leaves the counter untouched: processed_websites counts committed
// items, not attempts.
func (s *EnrichmentService) ProcessBatch(ctx context.Context, importID uuid.UUID, items []models.WebsiteInput) error {
	imp, err := s.store.GetImport(ctx, importID)
	if err != nil {
		return fmt.Errorf("get import: %w", err)
	}
	if imp == nil {
		return fmt.Errorf("import not found: %s", importID)
	}

	for idx, item := range items {
		if err := s.ProcessWebsite(ctx, item); err != nil {
			log.Printf("Error processing website %s: %v", item.URL, err)
			continue
		}

		if err := s.store.SetImportProgress(ctx, importID, idx+1); err != nil {
			log.Printf("Warning: failed to update progress for import %s: %v", importID, err)
		}

		log.Printf("Processed website %d/%d: %s", idx+1, len(items), item.URL)
	}

	now := time.Now()
	if err := s.store.SetImportStatus(ctx, importID, models.ImportStatusCompleted, &now); err != nil {
		return fmt.Errorf("complete import: %w", err)
	}

	log.Printf("Import %s completed", importID)
	return nil
}

// MarkFailed flags a batch that died outside the per-item loop.
func (s *EnrichmentService) MarkFailed(ctx context.Context, importID uuid.UUID) {
	if err := s.store.SetImportStatus(ctx, importID, models.ImportStatusFailed, nil); err != nil {
		log.Printf("Warning: failed to mark import %s failed: %v", importID, err)
	}
}

// ProcessWebsite enriches a single candidate website and commits the result
// in one transaction. Reuses an existing row when the URL is already known;
// the URL is the idempotency key for websites (pages are insert-only and do
// duplicate on re-processing).
func (s *EnrichmentService) ProcessWebsite(ctx context.Context, item models.WebsiteInput) error {
	websiteURL := NormalizeURL(item.URL)
	domain := DomainOf(websiteURL)
	now := time.Now()

	existing, err := s.store.GetWebsiteByURL(ctx, websiteURL)
	if err != nil {
		return fmt.Errorf("get website: %w", err)
	}

	var website *models.Website
	if existing != nil {
		website = existing
		website.UpdatedAt = now
	} else {
		website = &models.Website{
			ID:              uuid.New(),
			URL:             websiteURL,
			Email:           item.Email,
			Price:           item.Price,
			EnrichmentState: models.EnrichmentStateBare,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}

	log.Printf("Fetching domain metrics for %s", domain)
	metrics := s.metrics.GetDomainMetrics(ctx, domain)
	website.DR = metrics.DR
	website.Traffic = metrics.Traffic

	log.Printf("Fetching pages and keywords for %s", domain)
	pagesData := s.keywords.GetPagesAndKeywords(ctx, domain, s.pageLimit)

	var pageRows []*models.Page
	if len(pagesData) > 0 {
		log.Printf("Vectorizing keywords for %s", domain)
		stored := s.vectors.StoreVectors(ctx, websiteURL, pagesData)

		vectorIDs := make([]string, 0, len(stored))
		for _, sv := range stored {
			vectorIDs = append(vectorIDs, sv.VectorID)
			pageRows = append(pageRows, &models.Page{
				ID:        uuid.New(),
				WebsiteID: website.ID,
				URL:       sv.Page.URL,
				Keywords:  sv.Page.Keywords,
				VectorID:  sv.VectorID,
				CreatedAt: now,
			})
		}

		summary, _ := json.Marshal(models.KeywordsSummary{
			TotalPages:      len(pagesData),
			VectorizedPages: len(stored),
		})
		website.KeywordsData = summary
		website.VectorIDs = vectorIDs
	}

	website.EnrichmentState = enrichmentState(website)

	if err := s.store.SaveEnrichment(ctx, website, pageRows); err != nil {
		return fmt.Errorf("save enrichment: %w", err)
	}

	return nil
}

// enrichmentState derives the explicit state stored on the row: vectors win
// over metrics, metrics over nothing.
func enrichmentState(w *models.Website) string {
	if len(w.VectorIDs) > 0 {
		return models.EnrichmentStateFull
	}
	if w.DR != nil || w.Traffic != nil {
		return models.EnrichmentStateMetricsOnly
	}
	return models.EnrichmentStateBare
}

// NormalizeURL prepends https:// when the submitted URL carries no scheme.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "https://" + raw
	}
	return raw
}

// DomainOf extracts the host portion of a normalized URL.
func DomainOf(websiteURL string) string {
	u, err := url.Parse(websiteURL)
	if err != nil || u.Host == "" {
		return strings.TrimPrefix(strings.TrimPrefix(websiteURL, "https://"), "http://")
	}
	return u.Host
}
