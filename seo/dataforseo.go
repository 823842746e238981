package seo

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/vahanpoghosian/link-qualification-system/config"
	"github.com/vahanpoghosian/link-qualification-system/httputil"
	"github.com/vahanpoghosian/link-qualification-system/models"
)

const relatedKeywordLimit = 10

// DataForSEOClient fetches ranking pages with their keywords for a domain.
// Like the metrics client it fails soft: missing credentials or a bad
// response yield an empty page list, never an error.
type DataForSEOClient struct {
	login    string
	password string
	baseURL  string
	client   *http.Client
}

func NewDataForSEOClient(cfg config.DataForSEOConfig) *DataForSEOClient {
	return &DataForSEOClient{
		login:    cfg.Login,
		password: cfg.Password,
		baseURL:  cfg.BaseURL,
		client:   httputil.NewAPIClient(0),
	}
}

type serpItem struct {
	URL          string `json:"url"`
	Keyword      string `json:"keyword"`
	RankAbsolute *int   `json:"rank_absolute"`
	KeywordData  struct {
		SearchVolume *int `json:"search_volume"`
		KeywordInfo  struct {
			RelatedKeywords []string `json:"related_keywords"`
		} `json:"keyword_info"`
	} `json:"keyword_data"`
}

type serpResponse struct {
	Tasks []struct {
		Result []struct {
			Items []serpItem `json:"items"`
		} `json:"result"`
	} `json:"tasks"`
}

// GetPagesAndKeywords returns up to limit ranking pages for the domain, each
// carrying its primary keyword followed by up to 10 related keywords in
// provider order. No deduplication happens at this layer.
func (c *DataForSEOClient) GetPagesAndKeywords(ctx context.Context, domain string, limit int) []models.PageData {
	if c.login == "" || c.password == "" {
		log.Println("Warning: DataForSEO credentials not configured")
		return nil
	}

	payload := []map[string]interface{}{{
		"domain":             domain,
		"limit":              limit,
		"include_subdomains": true,
		"load_rank_absolute": true,
		"filters":            []interface{}{"rank_absolute", "<=", 100},
	}}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error building DataForSEO payload for %s: %v", domain, err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/serp/google/organic/live/regular", bytes.NewReader(body))
	if err != nil {
		log.Printf("Error building DataForSEO request for %s: %v", domain, err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.login, c.password)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("Error fetching DataForSEO data for %s: %v", domain, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("DataForSEO API error for %s: %d", domain, resp.StatusCode)
		return nil
	}

	var result serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("Error decoding DataForSEO response for %s: %v", domain, err)
		return nil
	}

	if len(result.Tasks) == 0 || len(result.Tasks[0].Result) == 0 {
		return nil
	}

	items := result.Tasks[0].Result[0].Items
	if len(items) > limit {
		items = items[:limit]
	}

	pages := make([]models.PageData, 0, len(items))
	for _, item := range items {
		pages = append(pages, models.PageData{
			URL:          item.URL,
			Keywords:     extractKeywords(item),
			Position:     item.RankAbsolute,
			SearchVolume: item.KeywordData.SearchVolume,
		})
	}
	return pages
}

func extractKeywords(item serpItem) []string {
	var keywords []string

	if item.Keyword != "" {
		keywords = append(keywords, item.Keyword)
	}

	related := item.KeywordData.KeywordInfo.RelatedKeywords
	if len(related) > relatedKeywordLimit {
		related = related[:relatedKeywordLimit]
	}
	keywords = append(keywords, related...)

	return keywords
}
