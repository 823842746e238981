package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/vahanpoghosian/link-qualification-system/config"
	"github.com/vahanpoghosian/link-qualification-system/httputil"
)

// OpenAIEmbedder turns text into fixed-dimension embedding vectors via the
// OpenAI embeddings API. A missing key or failed call yields an empty result;
// callers treat empty as "skip, do not crash".
type OpenAIEmbedder struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewOpenAIEmbedder(cfg config.OpenAIConfig) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  httputil.NewAPIClient(0),
	}
}

// Embed returns one vector per input text, in input order. Empty on any
// failure. Single attempt; the pipeline deliberately has no retry layer.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) [][]float32 {
	if e.apiKey == "" {
		log.Println("Warning: OpenAI API key not configured")
		return nil
	}
	if len(texts) == 0 {
		return nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"input": texts,
		"model": e.model,
	})
	if err != nil {
		log.Printf("Error building embeddings payload: %v", err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		log.Printf("Error building embeddings request: %v", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		log.Printf("Error generating embeddings: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Embeddings API error: %s", resp.Status)
		return nil
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Printf("Error decoding embeddings response: %v", err)
		return nil
	}

	vectors := make([][]float32, 0, len(out.Data))
	for _, d := range out.Data {
		vectors = append(vectors, d.Embedding)
	}
	return vectors
}
