package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vahanpoghosian/link-qualification-system/models"
	"github.com/vahanpoghosian/link-qualification-system/workers"
)

type fakeStore struct {
	imports    map[uuid.UUID]*models.Import
	websites   map[uuid.UUID]*models.Website
	created    []*models.Import
	pagesLimit int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		imports:  map[uuid.UUID]*models.Import{},
		websites: map[uuid.UUID]*models.Website{},
	}
}

func (f *fakeStore) GetWebsiteByID(ctx context.Context, id uuid.UUID) (*models.Website, error) {
	return f.websites[id], nil
}

func (f *fakeStore) ListWebsites(ctx context.Context, offset, limit int) ([]models.Website, error) {
	return nil, nil
}

func (f *fakeStore) DeleteWebsite(ctx context.Context, id uuid.UUID) error {
	delete(f.websites, id)
	return nil
}

func (f *fakeStore) GetPagesForWebsite(ctx context.Context, websiteID uuid.UUID, limit int) ([]models.Page, error) {
	f.pagesLimit = limit
	return nil, nil
}

func (f *fakeStore) CreateImport(ctx context.Context, imp *models.Import) error {
	f.imports[imp.ID] = imp
	f.created = append(f.created, imp)
	return nil
}

func (f *fakeStore) GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error) {
	return f.imports[id], nil
}

func (f *fakeStore) SetImportStatus(ctx context.Context, id uuid.UUID, status models.ImportStatus, completedAt *time.Time) error {
	if imp, ok := f.imports[id]; ok {
		imp.Status = status
		imp.CompletedAt = completedAt
	}
	return nil
}

func (f *fakeStore) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	return &models.DashboardStats{TotalWebsites: 3}, nil
}

func (f *fakeStore) GetFilterRanges(ctx context.Context) (*models.FilterRanges, error) {
	return &models.FilterRanges{}, nil
}

type fakeSearcher struct {
	results []models.SearchResult
	lastReq models.SearchRequest
}

func (f *fakeSearcher) Search(ctx context.Context, req models.SearchRequest) ([]models.SearchResult, error) {
	f.lastReq = req
	return f.results, nil
}

type fakeQueue struct {
	jobs []workers.ImportJob
	full bool
}

func (f *fakeQueue) Submit(job workers.ImportJob) error {
	if f.full {
		return errQueueFull
	}
	f.jobs = append(f.jobs, job)
	return nil
}

var errQueueFull = errors.New("import queue full")

func newTestServer(store *fakeStore, searcher *fakeSearcher, queue *fakeQueue) *httptest.Server {
	h := NewHandlers(store, searcher, queue)
	return httptest.NewServer(New(":0", h).httpServer.Handler)
}

func multipartCSV(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestParseWebsitesCSV(t *testing.T) {
	data := []byte("url,email,price\nexample.com,a@b.com,99.50\nhttps://other.com,c@d.com,10\n")
	items, err := ParseWebsitesCSV(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].URL != "example.com" || items[0].Price != 99.50 {
		t.Errorf("unexpected first item: %+v", items[0])
	}
}

func TestParseWebsitesCSVHeaderOrder(t *testing.T) {
	// Columns may appear in any order and any case.
	data := []byte("Price,URL,Email\n25,example.com,a@b.com\n")
	items, err := ParseWebsitesCSV(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if items[0].URL != "example.com" || items[0].Price != 25 || items[0].Email != "a@b.com" {
		t.Errorf("unexpected item: %+v", items[0])
	}
}

func TestParseWebsitesCSVRejections(t *testing.T) {
	cases := map[string]string{
		"missing column": "url,email\nexample.com,a@b.com\n",
		"bad price":      "url,email,price\nexample.com,a@b.com,cheap\n",
		"empty url":      "url,email,price\n,a@b.com,10\n",
		"no rows":        "url,email,price\n",
		"empty file":     "",
	}
	for name, content := range cases {
		if _, err := ParseWebsitesCSV([]byte(content)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestImportCSVEndpoint(t *testing.T) {
	store := newFakeStore()
	queue := &fakeQueue{}
	srv := newTestServer(store, &fakeSearcher{}, queue)
	defer srv.Close()

	body, contentType := multipartCSV(t, "sites.csv", "url,email,price\nexample.com,a@b.com,50\n")
	resp, err := http.Post(srv.URL+"/api/websites/import-csv", contentType, body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected 1 import created, got %d", len(store.created))
	}
	imp := store.created[0]
	if imp.TotalWebsites != 1 || imp.Status != models.ImportStatusProcessing {
		t.Errorf("unexpected import record: %+v", imp)
	}
	if len(queue.jobs) != 1 || queue.jobs[0].ImportID != imp.ID {
		t.Errorf("expected job queued for import %s", imp.ID)
	}
}

func TestImportCSVRejectsNonCSV(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeSearcher{}, &fakeQueue{})
	defer srv.Close()

	body, contentType := multipartCSV(t, "sites.txt", "url,email,price\nexample.com,a@b.com,50\n")
	resp, err := http.Post(srv.URL+"/api/websites/import-csv", contentType, body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for non-CSV, got %d", resp.StatusCode)
	}
}

func TestImportCSVQueueFull(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store, &fakeSearcher{}, &fakeQueue{full: true})
	defer srv.Close()

	body, contentType := multipartCSV(t, "sites.csv", "url,email,price\nexample.com,a@b.com,50\n")
	resp, err := http.Post(srv.URL+"/api/websites/import-csv", contentType, body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when queue full, got %d", resp.StatusCode)
	}

	// The rejected import must not stay in processing: no worker will ever
	// pick it up, so polling its status would hang forever.
	if len(store.created) != 1 {
		t.Fatalf("expected 1 import created, got %d", len(store.created))
	}
	imp := store.imports[store.created[0].ID]
	if imp.Status != models.ImportStatusFailed {
		t.Errorf("expected rejected import marked failed, got %s", imp.Status)
	}
}

func TestSearchEndpoint(t *testing.T) {
	searcher := &fakeSearcher{results: []models.SearchResult{
		{URL: "https://example.com", RelevanceScore: 0.9},
	}}
	srv := newTestServer(newFakeStore(), searcher, &fakeQueue{})
	defer srv.Close()

	reqBody := `{"keyword": "widgets", "min_dr": 50, "limit": 5}`
	resp, err := http.Post(srv.URL+"/api/search", "application/json", strings.NewReader(reqBody))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Results []models.SearchResult `json:"results"`
		Count   int                   `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Count != 1 || len(out.Results) != 1 {
		t.Errorf("expected 1 result, got %+v", out)
	}
	if searcher.lastReq.MinDR == nil || *searcher.lastReq.MinDR != 50 {
		t.Errorf("min_dr filter not passed through: %+v", searcher.lastReq)
	}
}

func TestSearchEndpointRequiresKeyword(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeSearcher{}, &fakeQueue{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/search", "application/json", strings.NewReader(`{"keyword": "  "}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for blank keyword, got %d", resp.StatusCode)
	}
}

func TestImportStatusEndpoint(t *testing.T) {
	store := newFakeStore()
	importID := uuid.New()
	store.imports[importID] = &models.Import{
		ID:                importID,
		Status:            models.ImportStatusProcessing,
		TotalWebsites:     10,
		ProcessedWebsites: 4,
		CreatedAt:         time.Now(),
	}
	srv := newTestServer(store, &fakeSearcher{}, &fakeQueue{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/imports/" + importID.String() + "/status")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var imp models.Import
	if err := json.NewDecoder(resp.Body).Decode(&imp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if imp.ProcessedWebsites != 4 || imp.TotalWebsites != 10 {
		t.Errorf("unexpected progress: %+v", imp)
	}
}

func TestImportStatusNotFound(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeSearcher{}, &fakeQueue{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/imports/" + uuid.NewString() + "/status")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAdminWebsiteEndpoint(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.websites[id] = &models.Website{ID: id, URL: "https://example.com"}
	srv := newTestServer(store, &fakeSearcher{}, &fakeQueue{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/admin/websites/" + id.String())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if store.pagesLimit != 100 {
		t.Errorf("expected up to 100 pages requested, got %d", store.pagesLimit)
	}
}

func TestDeleteWebsiteEndpoint(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.websites[id] = &models.Website{ID: id, URL: "https://example.com"}
	srv := newTestServer(store, &fakeSearcher{}, &fakeQueue{})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/admin/websites/"+id.String(), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if _, ok := store.websites[id]; ok {
		t.Error("website not deleted")
	}
}
