package httputil

import (
	"net/http"
	"time"
)

// DefaultAPITimeout suits the third-party SEO and embedding APIs, which can
// be slow on large targets but should never hang a pipeline item for long.
const DefaultAPITimeout = 30 * time.Second

// NewAPIClient returns an http.Client for talking to external provider APIs.
// No automatic retries; providers are called once per pipeline step.
func NewAPIClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = DefaultAPITimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
