package seo

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"

	"github.com/vahanpoghosian/link-qualification-system/config"
	"github.com/vahanpoghosian/link-qualification-system/httputil"
	"github.com/vahanpoghosian/link-qualification-system/models"
)

// AhrefsClient fetches domain rating and organic traffic for a domain.
// It never surfaces errors to callers: a missing key, transport failure or
// non-200 response degrades to nil metrics so enrichment can keep going.
type AhrefsClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewAhrefsClient(cfg config.AhrefsConfig) *AhrefsClient {
	return &AhrefsClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  httputil.NewAPIClient(0),
	}
}

// GetDomainMetrics returns DR and traffic for the domain, nil where the
// provider had no answer. Single attempt per endpoint, no retry.
func (c *AhrefsClient) GetDomainMetrics(ctx context.Context, domain string) models.DomainMetrics {
	if c.apiKey == "" {
		log.Println("Warning: Ahrefs API key not configured")
		return models.DomainMetrics{}
	}

	dr, ok := c.fetchMetric(ctx, "/domain-rating", domain, "domain_rating")
	if !ok {
		return models.DomainMetrics{}
	}
	traffic, ok := c.fetchMetric(ctx, "/organic-traffic", domain, "traffic")
	if !ok {
		return models.DomainMetrics{}
	}

	return models.DomainMetrics{DR: dr, Traffic: traffic}
}

// fetchMetric calls one metrics endpoint and extracts a single integer field.
// The bool return distinguishes a transport failure (abort both metrics) from
// a non-200 response (that metric alone stays nil).
func (c *AhrefsClient) fetchMetric(ctx context.Context, endpoint, domain, field string) (*int, bool) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+endpoint+"?target="+url.QueryEscape(domain), nil)
	if err != nil {
		log.Printf("Error building Ahrefs request for %s: %v", domain, err)
		return nil, false
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("Error fetching Ahrefs data for %s: %v", domain, err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, true
	}

	var body map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Printf("Error decoding Ahrefs response for %s: %v", domain, err)
		return nil, false
	}

	v := int(body[field])
	return &v, true
}
