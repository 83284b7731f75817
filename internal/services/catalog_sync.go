package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/partsmirror/internal/config"
	"github.com/example/partsmirror/internal/models"
	"github.com/example/partsmirror/internal/store"
	"github.com/example/partsmirror/internal/upstream"
)

// Vendor limits for the updates window.
const (
	MinUpdateDays = 1
	MaxUpdateDays = 15
)

// SyncResult summarizes one bulk sync run.
type SyncResult struct {
	RunID          uuid.UUID     `json:"run_id"`
	Kind           string        `json:"kind"`
	Days           int           `json:"days,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	PagesAttempted int           `json:"pages_attempted"`
	PagesSucceeded int           `json:"pages_succeeded"`
	TotalProducts  int           `json:"total_products"`
	NewCount       int           `json:"new_count"`
	UpdatedCount   int           `json:"updated_count"`
	Errors         []string      `json:"errors"`
	Aborted        bool          `json:"aborted"`
	Duration       time.Duration `json:"duration"`
}

// ScheduledResult is the outcome of one scheduled trigger.
type ScheduledResult struct {
	BrandsSynced int         `json:"brands_synced"`
	Incremental  *SyncResult `json:"incremental"`
	Full         *SyncResult `json:"full,omitempty"`
}

// CatalogSync walks the global items endpoints and writes through the store.
type CatalogSync struct {
	deps   Deps
	cfg    config.Sync
	brands *BrandCache
	events EventPublisher
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewCatalogSync constructs a CatalogSync. brands may be nil when the
// scheduled trigger should not refresh the brand list.
func NewCatalogSync(deps Deps, cfg config.Sync, brands *BrandCache, events EventPublisher) *CatalogSync {
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = 3
	}
	if events == nil {
		events = NoopPublisher{}
	}
	return &CatalogSync{
		deps:   deps.withDefaults(),
		cfg:    cfg,
		brands: brands,
		events: events,
		sleep:  sleepContext,
	}
}

// WithSleep replaces the delay between page requests.
func (s *CatalogSync) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *CatalogSync {
	s.sleep = sleep
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ClampUpdateDays bounds the updates window to what the vendor accepts.
func ClampUpdateDays(days int) int {
	if days < MinUpdateDays {
		return MinUpdateDays
	}
	if days > MaxUpdateDays {
		return MaxUpdateDays
	}
	return days
}

// RunFullSync walks every items page in order, pausing between requests.
// Isolated page failures are recorded and skipped; the run aborts once
// MaxConsecutiveFailures pages fail in a row.
func (s *CatalogSync) RunFullSync(ctx context.Context) (*SyncResult, error) {
	res := s.newResult(models.SyncKindFull)
	s.deps.Logger.Info("full sync started", "run_id", res.RunID)

	s.walk(ctx, res, func(ctx context.Context, page int) (*upstream.ItemsPage, error) {
		return s.deps.Vendor.ListItems(ctx, page)
	}, func(ctx context.Context, items []upstream.ItemResource) error {
		products := productsFromItems(items, 0)
		return s.deps.Store.Transaction(ctx, func(tx *store.Store) error {
			if err := tx.UpsertCatalogProducts(ctx, products); err != nil {
				return err
			}
			return tx.AddFacets(ctx, DeriveFacets(products))
		})
	})

	return res, s.finish(ctx, res, models.SyncEntityProductsFull)
}

// RunIncrementalSync walks the items changed in the last days days, clamped to
// the vendor window, classifying each as new or updated.
func (s *CatalogSync) RunIncrementalSync(ctx context.Context, days int) (*SyncResult, error) {
	days = ClampUpdateDays(days)
	res := s.newResult(models.SyncKindIncremental)
	res.Days = days
	s.deps.Logger.Info("incremental sync started", "run_id", res.RunID, "days", days)

	s.walk(ctx, res, func(ctx context.Context, page int) (*upstream.ItemsPage, error) {
		return s.deps.Vendor.ListItemUpdates(ctx, page, days)
	}, func(ctx context.Context, items []upstream.ItemResource) error {
		created, updated, err := s.ProcessUpdates(ctx, items)
		if err != nil {
			return err
		}
		res.NewCount += created
		res.UpdatedCount += updated
		return nil
	})

	return res, s.finish(ctx, res, models.SyncEntityProductsUpdate)
}

// ProcessUpdates writes changed items, stamping lastApiUpdate, and reports how
// many were new and how many already existed.
func (s *CatalogSync) ProcessUpdates(ctx context.Context, items []upstream.ItemResource) (created, updated int, err error) {
	products := productsFromItems(items, 0)
	if len(products) == 0 {
		return 0, 0, nil
	}

	now := s.deps.now()
	ids := make([]string, 0, len(products))
	for i := range products {
		products[i].LastAPIUpdate = &now
		ids = append(ids, products[i].ID)
	}

	err = s.deps.Store.Transaction(ctx, func(tx *store.Store) error {
		existing, err := tx.ExistingProductIDs(ctx, ids)
		if err != nil {
			return err
		}
		created, updated = 0, 0
		for _, id := range ids {
			if _, ok := existing[id]; ok {
				updated++
			} else {
				created++
			}
		}
		if err := tx.UpsertUpdatedProducts(ctx, products); err != nil {
			return err
		}
		return tx.AddFacets(ctx, DeriveFacets(products))
	})
	if err != nil {
		return 0, 0, fmt.Errorf("process updates: %w", err)
	}
	return created, updated, nil
}

// NeedsFullSync reports whether the last full sync is missing or older than FullInterval.
func (s *CatalogSync) NeedsFullSync(ctx context.Context) (bool, error) {
	last, err := s.deps.Store.LastSync(ctx, models.SyncEntityProductsFull)
	if err != nil {
		return false, fmt.Errorf("full sync ledger: %w", err)
	}
	if last == nil {
		return true, nil
	}
	return !fresh(*last, s.deps.now(), s.cfg.FullInterval), nil
}

// RunScheduled is the cron entry point: the brand list when due, an
// incremental sync every time, and a full sync when the last one is too old.
func (s *CatalogSync) RunScheduled(ctx context.Context) (*ScheduledResult, error) {
	out := &ScheduledResult{}

	if s.brands != nil {
		count, ran, err := s.brands.SyncIfNeeded(ctx)
		if err != nil {
			s.deps.Logger.Error("scheduled brand sync failed", "err", err)
		} else if ran {
			out.BrandsSynced = count
		}
	}

	incremental, err := s.RunIncrementalSync(ctx, s.cfg.UpdateDays)
	out.Incremental = incremental
	if err != nil {
		return out, err
	}

	needsFull, err := s.NeedsFullSync(ctx)
	if err != nil {
		return out, err
	}
	if needsFull {
		full, err := s.RunFullSync(ctx)
		out.Full = full
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// RecentRuns lists the latest persisted sync runs.
func (s *CatalogSync) RecentRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	return s.deps.Store.RecentSyncRuns(ctx, limit)
}

type pageFetcher func(ctx context.Context, page int) (*upstream.ItemsPage, error)

type pageWriter func(ctx context.Context, items []upstream.ItemResource) error

// walk fetches pages 1..N sequentially, N taken from the latest page metadata.
func (s *CatalogSync) walk(ctx context.Context, res *SyncResult, fetch pageFetcher, write pageWriter) {
	consecutive := 0
	total := 1
	for page := 1; page <= total; page++ {
		if page > 1 {
			if err := s.sleep(ctx, s.cfg.PageDelay); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("page %d: %v", page, err))
				res.Aborted = true
				return
			}
		}

		res.PagesAttempted++
		resp, err := fetch(ctx, page)
		if err == nil {
			if resp.Meta.TotalPages > 0 {
				total = resp.Meta.TotalPages
			}
			err = write(ctx, resp.Data)
		}
		if err != nil {
			consecutive++
			res.Errors = append(res.Errors, fmt.Sprintf("page %d: %v", page, err))
			s.deps.Logger.Warn("sync page failed",
				"run_id", res.RunID,
				"kind", res.Kind,
				"page", page,
				"consecutive_failures", consecutive,
				"err", err,
			)
			if consecutive >= s.cfg.MaxConsecutiveFailures || ctx.Err() != nil {
				res.Aborted = true
				return
			}
			continue
		}

		consecutive = 0
		res.PagesSucceeded++
		res.TotalProducts += len(resp.Data)
	}
}

func (s *CatalogSync) newResult(kind string) *SyncResult {
	return &SyncResult{
		RunID:     uuid.New(),
		Kind:      kind,
		StartedAt: s.deps.now(),
		Errors:    []string{},
	}
}

// finish stamps the ledger for runs that completed with at least one page
// written, persists the run and publishes its summary.
func (s *CatalogSync) finish(ctx context.Context, res *SyncResult, entity string) error {
	res.FinishedAt = s.deps.now()
	res.Duration = res.FinishedAt.Sub(res.StartedAt)

	// Detach from cancellation so an aborted run is still recorded.
	ctx = context.WithoutCancel(ctx)

	// An aborted walk has not completed; isolated page failures still stamp.
	if !res.Aborted && res.PagesSucceeded > 0 {
		if err := s.deps.Store.StampSync(ctx, entity, res.FinishedAt); err != nil {
			return fmt.Errorf("stamp %s: %w", entity, err)
		}
	}

	run := &models.SyncRun{
		Kind:           res.Kind,
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
		PagesAttempted: res.PagesAttempted,
		PagesSucceeded: res.PagesSucceeded,
		TotalProducts:  res.TotalProducts,
		NewCount:       res.NewCount,
		UpdatedCount:   res.UpdatedCount,
		Aborted:        res.Aborted,
		Errors:         res.Errors,
		DurationMs:     res.Duration.Milliseconds(),
	}
	run.ID = res.RunID
	if err := s.deps.Store.CreateSyncRun(ctx, run); err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}

	s.deps.Logger.Info("sync finished",
		"run_id", res.RunID,
		"kind", res.Kind,
		"pages_attempted", res.PagesAttempted,
		"pages_succeeded", res.PagesSucceeded,
		"products", res.TotalProducts,
		"new", res.NewCount,
		"updated", res.UpdatedCount,
		"errors", len(res.Errors),
		"aborted", res.Aborted,
		"duration", res.Duration,
	)

	event := SyncCompletedEvent{
		RunID:          res.RunID.String(),
		Kind:           res.Kind,
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
		PagesAttempted: res.PagesAttempted,
		PagesSucceeded: res.PagesSucceeded,
		TotalProducts:  res.TotalProducts,
		NewCount:       res.NewCount,
		UpdatedCount:   res.UpdatedCount,
		ErrorCount:     len(res.Errors),
		Aborted:        res.Aborted,
	}
	if err := s.events.PublishSyncCompleted(ctx, event); err != nil {
		s.deps.Logger.Warn("sync event not published", "run_id", res.RunID, "err", err)
	}
	return nil
}
