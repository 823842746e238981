package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vahanpoghosian/link-qualification-system/config"
	"github.com/vahanpoghosian/link-qualification-system/httputil"
)

// QdrantIndex is a minimal REST client for a Qdrant collection using cosine
// distance. Point IDs must be UUIDs (see VectorID).
type QdrantIndex struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

func NewQdrantIndex(cfg config.QdrantConfig) *QdrantIndex {
	return &QdrantIndex{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     httputil.NewAPIClient(0),
	}
}

// Configured reports whether a Qdrant endpoint was supplied at all.
func (q *QdrantIndex) Configured() bool {
	return q.url != ""
}

// Point is one vector record staged for upsert.
type Point struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload"`
}

// ScoredPoint is one similarity hit with its payload.
type ScoredPoint struct {
	Score   float64                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
}

// EnsureCollection creates the collection if it does not exist. Qdrant
// answers 200 for an existing collection with the same schema.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension: %d", dimension)
	}
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return q.putJSON(ctx, fmt.Sprintf("%s/collections/%s", q.url, q.collection), body)
}

// Upsert writes all points in one batch call.
func (q *QdrantIndex) Upsert(ctx context.Context, points []Point) error {
	body := map[string]interface{}{"points": points}
	return q.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", q.url, q.collection), body)
}

// Search returns the topK nearest points, optionally constrained by a
// payload filter in Qdrant's filter syntax.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, filter map[string]interface{}, topK int) ([]ScoredPoint, error) {
	if topK <= 0 {
		topK = 10
	}
	req := map[string]interface{}{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if filter != nil {
		req["filter"] = filter
	}

	var resp struct {
		Result []ScoredPoint `json:"result"`
	}
	err := q.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", q.url, q.collection), req, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

func (q *QdrantIndex) putJSON(ctx context.Context, url string, body interface{}) error {
	return q.doJSON(ctx, http.MethodPut, url, body, nil)
}

func (q *QdrantIndex) postJSON(ctx context.Context, url string, body, out interface{}) error {
	return q.doJSON(ctx, http.MethodPost, url, body, out)
}

func (q *QdrantIndex) doJSON(ctx context.Context, method, url string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
