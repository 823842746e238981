package search

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/vahanpoghosian/link-qualification-system/models"
)

type fakeSearcher struct {
	matches []models.VectorMatch
}

func (f *fakeSearcher) SearchSimilar(ctx context.Context, query string, filter map[string]interface{}, topK int) []models.VectorMatch {
	return f.matches
}

// fakeStore applies the numeric filters in memory, the way the SQL layer
// would.
type fakeStore struct {
	websites []models.Website
	lastReq  models.SearchRequest
}

func (f *fakeStore) ListWebsitesByURLs(ctx context.Context, urls []string, req models.SearchRequest) ([]models.Website, error) {
	f.lastReq = req
	urlSet := map[string]bool{}
	for _, u := range urls {
		urlSet[u] = true
	}

	var out []models.Website
	for _, w := range f.websites {
		if !urlSet[w.URL] {
			continue
		}
		if req.MinDR != nil && (w.DR == nil || *w.DR < *req.MinDR) {
			continue
		}
		if req.MaxDR != nil && (w.DR == nil || *w.DR > *req.MaxDR) {
			continue
		}
		if req.MinTraffic != nil && (w.Traffic == nil || *w.Traffic < *req.MinTraffic) {
			continue
		}
		if req.MaxPrice != nil && w.Price > *req.MaxPrice {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func site(url string, dr int, price float64) models.Website {
	return models.Website{ID: uuid.New(), URL: url, DR: intPtr(dr), Price: price}
}

func TestSearchRanksByBestScore(t *testing.T) {
	searcher := &fakeSearcher{matches: []models.VectorMatch{
		{Score: 0.9, WebsiteURL: "https://a.com", Keywords: "widgets"},
		{Score: 0.4, WebsiteURL: "https://b.com", Keywords: "widgets"},
	}}
	store := &fakeStore{websites: []models.Website{
		site("https://b.com", 50, 10),
		site("https://a.com", 50, 10),
	}}
	svc := NewService(searcher, store)

	results, err := svc.Search(context.Background(), models.SearchRequest{Keyword: "widgets"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].URL != "https://a.com" || results[0].RelevanceScore != 0.9 {
		t.Errorf("expected a.com with score 0.9 first, got %s (%f)", results[0].URL, results[0].RelevanceScore)
	}
	if results[1].URL != "https://b.com" || results[1].RelevanceScore != 0.4 {
		t.Errorf("expected b.com with score 0.4 second, got %s (%f)", results[1].URL, results[1].RelevanceScore)
	}
}

func TestSearchFiltersAreConjunctive(t *testing.T) {
	searcher := &fakeSearcher{matches: []models.VectorMatch{
		{Score: 0.8, WebsiteURL: "https://strong.com"},
		{Score: 0.9, WebsiteURL: "https://weak.com"},
		{Score: 0.7, WebsiteURL: "https://pricey.com"},
	}}
	store := &fakeStore{websites: []models.Website{
		site("https://strong.com", 70, 80),
		site("https://weak.com", 40, 50),
		site("https://pricey.com", 90, 500),
	}}
	svc := NewService(searcher, store)

	req := models.SearchRequest{Keyword: "widgets", MinDR: intPtr(50), MaxPrice: floatPtr(100)}
	results, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].URL != "https://strong.com" {
		t.Errorf("expected strong.com, got %s", results[0].URL)
	}
}

func TestSearchFirstSeenScoreWins(t *testing.T) {
	// Two hits for the same website: the first (best) score must be kept.
	searcher := &fakeSearcher{matches: []models.VectorMatch{
		{Score: 0.95, WebsiteURL: "https://a.com", Keywords: "widgets store"},
		{Score: 0.60, WebsiteURL: "https://a.com", Keywords: "widget reviews"},
	}}
	store := &fakeStore{websites: []models.Website{site("https://a.com", 60, 10)}}
	svc := NewService(searcher, store)

	results, err := svc.Search(context.Background(), models.SearchRequest{Keyword: "widgets"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].RelevanceScore != 0.95 {
		t.Errorf("expected best score 0.95, got %f", results[0].RelevanceScore)
	}

	want := []string{"widgets", "store", "widget", "reviews"}
	if !reflect.DeepEqual(results[0].MatchingKeywords, want) {
		t.Errorf("expected merged keywords %v, got %v", want, results[0].MatchingKeywords)
	}
}

func TestSearchLimitApplied(t *testing.T) {
	searcher := &fakeSearcher{matches: []models.VectorMatch{
		{Score: 0.95, WebsiteURL: "https://a.com"},
		{Score: 0.90, WebsiteURL: "https://b.com"},
	}}
	store := &fakeStore{websites: []models.Website{
		site("https://a.com", 60, 10),
		site("https://b.com", 60, 10),
	}}
	svc := NewService(searcher, store)

	results, err := svc.Search(context.Background(), models.SearchRequest{Keyword: "widgets", Limit: 1})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].URL != "https://a.com" {
		t.Errorf("expected highest-scoring site, got %s", results[0].URL)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	svc := NewService(&fakeSearcher{}, &fakeStore{})

	results, err := svc.Search(context.Background(), models.SearchRequest{Keyword: "widgets"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", results)
	}
}

func TestAppendKeywordsCaps(t *testing.T) {
	kw := appendKeywords(nil, "one two three four five six")
	if len(kw) != 5 {
		t.Fatalf("expected 5 tokens from one hit, got %d", len(kw))
	}

	kw = appendKeywords(kw, "six seven eight nine ten")
	kw = appendKeywords(kw, "eleven twelve")
	if len(kw) != 10 {
		t.Fatalf("expected cap of 10 keywords, got %d", len(kw))
	}

	kw = appendKeywords([]string{"go"}, "go go go")
	if !reflect.DeepEqual(kw, []string{"go"}) {
		t.Errorf("expected deduped keywords, got %v", kw)
	}
}
