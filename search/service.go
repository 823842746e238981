package search

import (
	"context"
	"sort"
	"strings"

	"github.com/vahanpoghosian/link-qualification-system/models"
)

// oversampleTopK is how many vector hits to pull before collapsing to
// distinct websites. Many hits share a website, so the vector query fetches
// far more than the caller's limit.
const oversampleTopK = 100

const (
	defaultLimit       = 20
	maxTokensPerHit    = 5
	maxKeywordsPerSite = 10
)

// SimilaritySearcher answers embedded keyword queries against the vector
// index. *vector.Service satisfies it.
type SimilaritySearcher interface {
	SearchSimilar(ctx context.Context, query string, filter map[string]interface{}, topK int) []models.VectorMatch
}

// Store narrows the record store to the one query search needs.
type Store interface {
	ListWebsitesByURLs(ctx context.Context, urls []string, req models.SearchRequest) ([]models.Website, error)
}

// Service turns a keyword plus numeric filters into a ranked list of
// qualified websites. The vector index supplies relevance; the database
// supplies the rows and enforces the filters.
type Service struct {
	searcher SimilaritySearcher
	store    Store
}

func NewService(searcher SimilaritySearcher, store Store) *Service {
	return &Service{searcher: searcher, store: store}
}

// Search runs the two-phase query: oversampled vector search collapsed to
// distinct websites, then a filtered database fetch, then ranking by each
// website's best vector score. Returns an empty slice (never nil) when
// nothing matches.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) ([]models.SearchResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	matches := s.searcher.SearchSimilar(ctx, req.Keyword, nil, oversampleTopK)

	// First hit per website wins: matches arrive best-first, so the first
	// occurrence carries the website's best score.
	var urls []string
	bestScore := make(map[string]float64)
	siteKeywords := make(map[string][]string)

	for _, m := range matches {
		if m.WebsiteURL == "" {
			continue
		}
		if _, seen := bestScore[m.WebsiteURL]; !seen {
			bestScore[m.WebsiteURL] = m.Score
			urls = append(urls, m.WebsiteURL)
		}
		siteKeywords[m.WebsiteURL] = appendKeywords(siteKeywords[m.WebsiteURL], m.Keywords)
	}

	websites, err := s.store.ListWebsitesByURLs(ctx, urls, req)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(websites))
	for _, w := range websites {
		results = append(results, models.SearchResult{
			ID:               w.ID,
			URL:              w.URL,
			Email:            w.Email,
			Price:            w.Price,
			DR:               w.DR,
			Traffic:          w.Traffic,
			RelevanceScore:   bestScore[w.URL],
			MatchingKeywords: siteKeywords[w.URL],
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// appendKeywords merges up to 5 whitespace tokens from one hit's keyword
// text into the site's deduped keyword list, capped at 10 total. Order of
// first appearance is preserved.
func appendKeywords(existing []string, keywordText string) []string {
	if keywordText == "" || len(existing) >= maxKeywordsPerSite {
		return existing
	}

	tokens := strings.Fields(keywordText)
	if len(tokens) > maxTokensPerHit {
		tokens = tokens[:maxTokensPerHit]
	}

	for _, tok := range tokens {
		if len(existing) >= maxKeywordsPerSite {
			break
		}
		if containsString(existing, tok) {
			continue
		}
		existing = append(existing, tok)
	}
	return existing
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
