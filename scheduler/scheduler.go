package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/vahanpoghosian/link-qualification-system/config"
	"github.com/vahanpoghosian/link-qualification-system/models"
	"github.com/vahanpoghosian/link-qualification-system/services"
)

// Store is the slice of the record store the refresh job needs.
type Store interface {
	ListStaleEnriched(ctx context.Context, cutoff time.Time, limit int) ([]models.Website, error)
	UpdateWebsiteMetrics(ctx context.Context, id uuid.UUID, dr, traffic *int, state string) error
}

// Scheduler periodically re-fetches domain metrics for enriched websites
// whose data has gone stale. Keywords and vectors are left alone; only
// dr/traffic are refreshed.
type Scheduler struct {
	cron    *cron.Cron
	store   Store
	metrics services.MetricsProvider
	cfg     config.RefreshConfig
}

func New(store Store, metrics services.MetricsProvider, cfg config.RefreshConfig) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		store:   store,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Start registers the refresh job and starts the cron loop. With no cron
// expression configured the scheduler is a no-op.
func (s *Scheduler) Start() error {
	if s.cfg.Cron == "" {
		log.Println("Metrics refresh disabled (no cron expression configured)")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Cron, func() {
		s.RefreshStale(context.Background())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("Metrics refresh scheduled: %s", s.cfg.Cron)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RefreshStale re-fetches metrics for one batch of stale websites. Failures
// on individual sites are logged and skipped.
func (s *Scheduler) RefreshStale(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.MaxAge)

	websites, err := s.store.ListStaleEnriched(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		log.Printf("Error listing stale websites: %v", err)
		return
	}
	if len(websites) == 0 {
		return
	}

	log.Printf("Refreshing metrics for %d stale websites", len(websites))

	for _, w := range websites {
		domain := services.DomainOf(w.URL)
		metrics := s.metrics.GetDomainMetrics(ctx, domain)

		state := w.EnrichmentState
		if len(w.VectorIDs) == 0 {
			// Only downgradeable when no vectors are stored.
			if metrics.DR != nil || metrics.Traffic != nil {
				state = models.EnrichmentStateMetricsOnly
			} else {
				state = models.EnrichmentStateBare
			}
		}

		if err := s.store.UpdateWebsiteMetrics(ctx, w.ID, metrics.DR, metrics.Traffic, state); err != nil {
			log.Printf("Error refreshing metrics for %s: %v", w.URL, err)
			continue
		}
	}
}
