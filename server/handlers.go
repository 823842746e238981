package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vahanpoghosian/link-qualification-system/models"
	"github.com/vahanpoghosian/link-qualification-system/workers"
)

const (
	maxUploadSize = 10 << 20
	maxAdminPages = 100
)

// Store is what the handlers need from the record store.
type Store interface {
	GetWebsiteByID(ctx context.Context, id uuid.UUID) (*models.Website, error)
	ListWebsites(ctx context.Context, offset, limit int) ([]models.Website, error)
	DeleteWebsite(ctx context.Context, id uuid.UUID) error
	GetPagesForWebsite(ctx context.Context, websiteID uuid.UUID, limit int) ([]models.Page, error)
	CreateImport(ctx context.Context, imp *models.Import) error
	GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error)
	SetImportStatus(ctx context.Context, id uuid.UUID, status models.ImportStatus, completedAt *time.Time) error
	GetDashboardStats(ctx context.Context) (*models.DashboardStats, error)
	GetFilterRanges(ctx context.Context) (*models.FilterRanges, error)
}

// Searcher runs ranked keyword searches.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) ([]models.SearchResult, error)
}

// ImportQueue accepts parsed CSV batches for background processing.
type ImportQueue interface {
	Submit(job workers.ImportJob) error
}

type Handlers struct {
	store  Store
	search Searcher
	queue  ImportQueue
}

func NewHandlers(store Store, search Searcher, queue ImportQueue) *Handlers {
	return &Handlers{store: store, search: search, queue: queue}
}

func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "link-qualification-system",
		"status":  "running",
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Search runs a keyword query with optional numeric filters and returns
// ranked websites.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Keyword) == "" {
		respondError(w, http.StatusBadRequest, "keyword is required")
		return
	}

	results, err := h.search.Search(r.Context(), req)
	if err != nil {
		log.Printf("Error searching: %v", err)
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

func (h *Handlers) SearchFilters(w http.ResponseWriter, r *http.Request) {
	ranges, err := h.store.GetFilterRanges(r.Context())
	if err != nil {
		log.Printf("Error fetching filter ranges: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to fetch filter ranges")
		return
	}
	respondJSON(w, http.StatusOK, ranges)
}

// ImportCSV accepts a CSV upload, validates it fully up front, creates the
// import record and queues the batch. The response returns immediately with
// the import id; progress is polled via the status endpoint.
func (h *Handlers) ImportCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		respondError(w, http.StatusBadRequest, "file must be a CSV")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	items, err := ParseWebsitesCSV(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	imp := &models.Import{
		ID:            uuid.New(),
		Filename:      header.Filename,
		Status:        models.ImportStatusProcessing,
		TotalWebsites: len(items),
		CreatedAt:     time.Now(),
	}
	if userID := r.Header.Get("X-User-ID"); userID != "" {
		if id, err := uuid.Parse(userID); err == nil {
			imp.UserID = &id
		}
	}

	if err := h.store.CreateImport(r.Context(), imp); err != nil {
		log.Printf("Error creating import: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create import")
		return
	}

	job := workers.ImportJob{
		ImportID: imp.ID,
		Filename: header.Filename,
		RawCSV:   raw,
		Items:    items,
	}
	if err := h.queue.Submit(job); err != nil {
		// The import row already exists; without a queued job nothing else
		// will ever transition it, so it must be failed here.
		if err := h.store.SetImportStatus(r.Context(), imp.ID, models.ImportStatusFailed, nil); err != nil {
			log.Printf("Warning: failed to mark import %s failed: %v", imp.ID, err)
		}
		respondError(w, http.StatusServiceUnavailable, "import queue full, try again later")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"import_id":      imp.ID,
		"total_websites": imp.TotalWebsites,
		"status":         imp.Status,
	})
}

func (h *Handlers) ListWebsites(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}

	websites, err := h.store.ListWebsites(r.Context(), offset, limit)
	if err != nil {
		log.Printf("Error listing websites: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list websites")
		return
	}
	if websites == nil {
		websites = []models.Website{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"websites": websites,
		"count":    len(websites),
	})
}

func (h *Handlers) ImportStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid import id")
		return
	}

	imp, err := h.store.GetImport(r.Context(), id)
	if err != nil {
		log.Printf("Error fetching import %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to fetch import")
		return
	}
	if imp == nil {
		respondError(w, http.StatusNotFound, "import not found")
		return
	}

	respondJSON(w, http.StatusOK, imp)
}

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetDashboardStats(r.Context())
	if err != nil {
		log.Printf("Error fetching dashboard stats: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to fetch stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// AdminWebsite returns one website with a sample of its pages.
func (h *Handlers) AdminWebsite(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid website id")
		return
	}

	website, err := h.store.GetWebsiteByID(r.Context(), id)
	if err != nil {
		log.Printf("Error fetching website %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to fetch website")
		return
	}
	if website == nil {
		respondError(w, http.StatusNotFound, "website not found")
		return
	}

	pages, err := h.store.GetPagesForWebsite(r.Context(), id, maxAdminPages)
	if err != nil {
		log.Printf("Error fetching pages for %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to fetch pages")
		return
	}
	if pages == nil {
		pages = []models.Page{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"website": website,
		"pages":   pages,
	})
}

func (h *Handlers) DeleteWebsite(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid website id")
		return
	}

	website, err := h.store.GetWebsiteByID(r.Context(), id)
	if err != nil {
		log.Printf("Error fetching website %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to fetch website")
		return
	}
	if website == nil {
		respondError(w, http.StatusNotFound, "website not found")
		return
	}

	if err := h.store.DeleteWebsite(r.Context(), id); err != nil {
		log.Printf("Error deleting website %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to delete website")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ParseWebsitesCSV parses and validates an uploaded CSV. The header must
// contain url, email and price columns (any order, case-insensitive); every
// row must parse or the whole file is rejected, so a batch never starts
// half-valid.
func ParseWebsitesCSV(data []byte) ([]models.WebsiteInput, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("empty or malformed CSV")
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"url", "email", "price"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("CSV missing required column: %s", required)
		}
	}

	var items []models.WebsiteInput
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("malformed CSV at line %d", line)
		}

		rawURL := strings.TrimSpace(record[cols["url"]])
		if rawURL == "" {
			return nil, fmt.Errorf("empty url at line %d", line)
		}

		price, err := strconv.ParseFloat(strings.TrimSpace(record[cols["price"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid price at line %d", line)
		}

		items = append(items, models.WebsiteInput{
			URL:   rawURL,
			Email: strings.TrimSpace(record[cols["email"]]),
			Price: price,
		})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("CSV contains no websites")
	}
	return items, nil
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	if val := r.URL.Query().Get(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil && i >= 0 {
			return i
		}
	}
	return defaultVal
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
