package workers

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/vahanpoghosian/link-qualification-system/models"
	"github.com/vahanpoghosian/link-qualification-system/services"
)

// ImportJob carries one accepted CSV batch from the HTTP layer to the
// background processor.
type ImportJob struct {
	ImportID uuid.UUID
	Filename string
	RawCSV   []byte
	Items    []models.WebsiteInput
}

// Archiver stores the raw CSV for audit. Optional; nil disables archival.
type Archiver interface {
	Archive(ctx context.Context, importID uuid.UUID, filename string, data []byte) error
}

// ImportWorker consumes queued import jobs one at a time and runs the
// enrichment batch for each. A single consumer goroutine keeps batches
// strictly sequential.
type ImportWorker struct {
	enrichment *services.EnrichmentService
	archiver   Archiver
	jobs       chan ImportJob
}

func NewImportWorker(enrichment *services.EnrichmentService, archiver Archiver, queueSize int) *ImportWorker {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &ImportWorker{
		enrichment: enrichment,
		archiver:   archiver,
		jobs:       make(chan ImportJob, queueSize),
	}
}

// Submit enqueues a job without blocking. A full queue is reported to the
// caller so the HTTP layer can refuse the upload instead of hanging.
func (w *ImportWorker) Submit(job ImportJob) error {
	select {
	case w.jobs <- job:
		return nil
	default:
		return fmt.Errorf("import queue full")
	}
}

// Run processes jobs until the context is canceled. Meant to be started once
// as a goroutine from main. Jobs still queued at shutdown have their imports
// marked failed, so no import is left in processing with no worker to finish
// it.
func (w *ImportWorker) Run(ctx context.Context) {
	log.Println("Import worker started")
	for {
		select {
		case <-ctx.Done():
			w.drain()
			log.Println("Import worker stopped")
			return
		case job := <-w.jobs:
			w.process(ctx, job)
		}
	}
}

// drain fails every import still sitting in the queue. Runs against a fresh
// context because the worker's own context is already canceled.
func (w *ImportWorker) drain() {
	for {
		select {
		case job := <-w.jobs:
			log.Printf("Dropping queued import %s on shutdown", job.ImportID)
			w.enrichment.MarkFailed(context.Background(), job.ImportID)
		default:
			return
		}
	}
}

func (w *ImportWorker) process(ctx context.Context, job ImportJob) {
	log.Printf("Starting import %s (%d websites)", job.ImportID, len(job.Items))

	if w.archiver != nil && len(job.RawCSV) > 0 {
		if err := w.archiver.Archive(ctx, job.ImportID, job.Filename, job.RawCSV); err != nil {
			log.Printf("Warning: failed to archive CSV for import %s: %v", job.ImportID, err)
		}
	}

	if err := w.enrichment.ProcessBatch(ctx, job.ImportID, job.Items); err != nil {
		log.Printf("Error processing import %s: %v", job.ImportID, err)
		w.enrichment.MarkFailed(ctx, job.ImportID)
	}
}
