package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/example/partsmirror/internal/services"
)

// Syncer is the part of services.CatalogSync the jobs drive.
type Syncer interface {
	RunScheduled(ctx context.Context) (*services.ScheduledResult, error)
	RunFullSync(ctx context.Context) (*services.SyncResult, error)
	RunIncrementalSync(ctx context.Context, days int) (*services.SyncResult, error)
}

// SyncProcessor handles sync tasks pulled from the queue.
type SyncProcessor struct {
	sync Syncer
	log  *slog.Logger
}

func NewSyncProcessor(sync Syncer, logger *slog.Logger) *SyncProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncProcessor{sync: sync, log: logger}
}

// Register routes every sync task type to the processor.
func (p *SyncProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskScheduledSync, p.ProcessScheduled)
	mux.HandleFunc(TaskFullSync, p.ProcessFull)
	mux.HandleFunc(TaskIncrementalSync, p.ProcessIncremental)
}

func (p *SyncProcessor) ProcessScheduled(ctx context.Context, t *asynq.Task) error {
	out, err := p.sync.RunScheduled(ctx)
	if err != nil {
		return fmt.Errorf("scheduled sync: %w", err)
	}
	p.log.Info("scheduled sync done",
		"brands_synced", out.BrandsSynced,
		"full", out.Full != nil,
	)
	return nil
}

func (p *SyncProcessor) ProcessFull(ctx context.Context, t *asynq.Task) error {
	res, err := p.sync.RunFullSync(ctx)
	if err != nil {
		return fmt.Errorf("full sync: %w", err)
	}
	p.logAborted(res)
	return nil
}

func (p *SyncProcessor) ProcessIncremental(ctx context.Context, t *asynq.Task) error {
	var payload IncrementalSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// A malformed payload will never succeed.
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	res, err := p.sync.RunIncrementalSync(ctx, payload.Days)
	if err != nil {
		return fmt.Errorf("incremental sync: %w", err)
	}
	p.logAborted(res)
	return nil
}

// Aborted runs are recorded already; retrying straight away would hit the
// same failing upstream.
func (p *SyncProcessor) logAborted(res *services.SyncResult) {
	if res != nil && res.Aborted {
		p.log.Warn("sync aborted", "run_id", res.RunID, "kind", res.Kind, "errors", len(res.Errors))
	}
}
