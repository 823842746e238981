package vector

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/vahanpoghosian/link-qualification-system/models"
)

// EmbeddingDimension matches the text-embedding-3-small output size.
const EmbeddingDimension = 1536

// Embedder converts texts into embedding vectors, one per input in order.
// An empty result means the embedding layer is unavailable or failed.
type Embedder interface {
	Embed(ctx context.Context, texts []string) [][]float32
}

// Index persists vectors and answers nearest-neighbor queries.
type Index interface {
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, filter map[string]interface{}, topK int) ([]ScoredPoint, error)
}

// Service combines an embedder and an index into the similarity store used
// by enrichment and search. Both collaborators are injected so tests can
// substitute fakes.
type Service struct {
	embedder Embedder
	index    Index
}

func NewService(embedder Embedder, index Index) *Service {
	return &Service{embedder: embedder, index: index}
}

// VectorID derives the deterministic identifier for a page's vector from the
// website and page URLs. Re-processing the same page always produces the same
// ID, so upserts silently overwrite instead of duplicating index entries.
func VectorID(websiteURL, pageURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(websiteURL+"_"+pageURL)).String()
}

// StoreVectors embeds each page's keywords and upserts the vectors in one
// batch. Pages without keywords are skipped silently. The result pairs every
// stored vector with its input page, so callers never realign by position.
// On upsert failure the whole call returns nil (best effort, no rollback of
// anything the index may have partially applied).
func (s *Service) StoreVectors(ctx context.Context, websiteURL string, pages []models.PageData) []models.StoredVector {
	if s.index == nil {
		log.Println("Warning: vector index not available")
		return nil
	}

	var stored []models.StoredVector
	var points []Point

	for _, page := range pages {
		if len(page.Keywords) == 0 {
			continue
		}

		keywordText := strings.Join(page.Keywords, " ")
		embeddings := s.embedder.Embed(ctx, []string{keywordText})
		if len(embeddings) == 0 {
			continue
		}

		id := VectorID(websiteURL, page.URL)
		points = append(points, Point{
			ID:     id,
			Vector: embeddings[0],
			Payload: map[string]interface{}{
				"website_url":   websiteURL,
				"page_url":      page.URL,
				"keywords":      keywordText,
				"position":      page.Position,
				"search_volume": page.SearchVolume,
			},
		})
		stored = append(stored, models.StoredVector{Page: page, VectorID: id})
	}

	if len(points) == 0 {
		return nil
	}

	if err := s.index.Upsert(ctx, points); err != nil {
		log.Printf("Error storing vectors for %s: %v", websiteURL, err)
		return nil
	}

	log.Printf("Stored %d vectors for %s", len(points), websiteURL)
	return stored
}

// SearchSimilar embeds the query and returns the topK nearest matches,
// optionally constrained by a payload filter. Empty on any failure.
func (s *Service) SearchSimilar(ctx context.Context, query string, filter map[string]interface{}, topK int) []models.VectorMatch {
	if s.index == nil {
		log.Println("Warning: vector index not available")
		return nil
	}

	embeddings := s.embedder.Embed(ctx, []string{query})
	if len(embeddings) == 0 {
		return nil
	}

	results, err := s.index.Search(ctx, embeddings[0], filter, topK)
	if err != nil {
		log.Printf("Error searching vectors: %v", err)
		return nil
	}

	matches := make([]models.VectorMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, models.VectorMatch{
			Score:      r.Score,
			WebsiteURL: payloadString(r.Payload, "website_url"),
			PageURL:    payloadString(r.Payload, "page_url"),
			Keywords:   payloadString(r.Payload, "keywords"),
			Position:   payloadInt(r.Payload, "position"),
		})
	}
	return matches
}

func payloadString(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(payload map[string]interface{}, key string) *int {
	if v, ok := payload[key].(float64); ok {
		i := int(v)
		return &i
	}
	return nil
}
