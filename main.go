package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/vahanpoghosian/link-qualification-system/config"
	"github.com/vahanpoghosian/link-qualification-system/logging"
	"github.com/vahanpoghosian/link-qualification-system/models"
	"github.com/vahanpoghosian/link-qualification-system/scheduler"
	"github.com/vahanpoghosian/link-qualification-system/search"
	"github.com/vahanpoghosian/link-qualification-system/seo"
	"github.com/vahanpoghosian/link-qualification-system/server"
	"github.com/vahanpoghosian/link-qualification-system/services"
	"github.com/vahanpoghosian/link-qualification-system/storage"
	"github.com/vahanpoghosian/link-qualification-system/vector"
	"github.com/vahanpoghosian/link-qualification-system/workers"
)

func main() {
	importPath := flag.String("import", "", "import a CSV file and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logWriter, err := logging.Setup(cfg.LogPath)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logWriter.Close()

	log.Printf("Starting link qualification system")
	log.Printf("Database: %s", maskConnectionString(cfg.DatabaseURL))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Providers fail soft at call time, so construction never errors.
	ahrefs := seo.NewAhrefsClient(cfg.Ahrefs)
	dataforseo := seo.NewDataForSEOClient(cfg.DataForSEO)

	embedder := vector.NewOpenAIEmbedder(cfg.OpenAI)
	index := vector.NewQdrantIndex(cfg.Qdrant)
	if index.Configured() {
		if err := index.EnsureCollection(ctx, vector.EmbeddingDimension); err != nil {
			log.Printf("Warning: failed to ensure vector collection: %v", err)
		}
	} else {
		log.Println("Warning: Qdrant not configured, vector features disabled")
	}
	vectors := vector.NewService(embedder, index)

	var archiver workers.Archiver
	if cfg.S3.Bucket != "" {
		a, err := storage.NewCSVArchiver(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			log.Printf("Warning: CSV archiving disabled: %v", err)
		} else {
			archiver = a
		}
	}

	enrichment := services.NewEnrichmentService(store, ahrefs, dataforseo, vectors, cfg.DataForSEO.PageLimit)

	if *importPath != "" {
		runOneShotImport(ctx, store, enrichment, *importPath)
		return
	}

	worker := workers.NewImportWorker(enrichment, archiver, cfg.ImportQueueSize)
	go worker.Run(ctx)

	sched := scheduler.New(store, ahrefs, cfg.Refresh)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	searchSvc := search.NewService(vectors, store)
	handlers := server.NewHandlers(store, searchSvc, worker)
	srv := server.New(cfg.HTTPAddr, handlers)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			log.Printf("HTTP server error: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Shutdown complete")
}

// runOneShotImport processes a local CSV synchronously, for operating without
// the HTTP layer.
func runOneShotImport(ctx context.Context, store *storage.PostgresStore, enrichment *services.EnrichmentService, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read CSV: %v", err)
	}

	items, err := server.ParseWebsitesCSV(data)
	if err != nil {
		log.Fatalf("Invalid CSV: %v", err)
	}

	imp := &models.Import{
		ID:            uuid.New(),
		Filename:      filepath.Base(path),
		Status:        models.ImportStatusProcessing,
		TotalWebsites: len(items),
		CreatedAt:     time.Now(),
	}
	if err := store.CreateImport(ctx, imp); err != nil {
		log.Fatalf("Failed to create import: %v", err)
	}

	if err := enrichment.ProcessBatch(ctx, imp.ID, items); err != nil {
		enrichment.MarkFailed(ctx, imp.ID)
		log.Fatalf("Import failed: %v", err)
	}
}

// maskConnectionString hides the password portion of a connection string.
func maskConnectionString(conn string) string {
	if at := strings.Index(conn, "@"); at != -1 {
		if colon := strings.Index(conn, "://"); colon != -1 {
			creds := conn[colon+3 : at]
			if pw := strings.Index(creds, ":"); pw != -1 {
				return conn[:colon+3+pw+1] + "****" + conn[at:]
			}
		}
	}
	return conn
}
