package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hibiken/asynq"

	"github.com/example/partsmirror/internal/services"
)

// Dispatcher enqueues manual sync runs for the worker.
type Dispatcher struct {
	client *asynq.Client
}

// NewDispatcher returns a Dispatcher enqueuing through client.
func NewDispatcher(client *asynq.Client) *Dispatcher {
	return &Dispatcher{client: client}
}

// TriggerFullSync enqueues a full sync and returns the task id.
func (d *Dispatcher) TriggerFullSync(ctx context.Context) (string, error) {
	info, err := d.client.EnqueueContext(ctx, NewFullSyncTask())
	if err != nil {
		return "", fmt.Errorf("enqueue full sync: %w", err)
	}
	return info.ID, nil
}

// TriggerIncrementalSync enqueues an incremental sync over days days.
func (d *Dispatcher) TriggerIncrementalSync(ctx context.Context, days int) (string, error) {
	task, err := NewIncrementalSyncTask(services.ClampUpdateDays(days))
	if err != nil {
		return "", err
	}
	info, err := d.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue incremental sync: %w", err)
	}
	return info.ID, nil
}

// InlineRunner runs manual syncs in a background goroutine of the API process.
// It is used when no Redis queue is configured.
type InlineRunner struct {
	sync Syncer
	log  *slog.Logger
	wg   sync.WaitGroup
}

// NewInlineRunner returns an InlineRunner driving sync.
func NewInlineRunner(sync Syncer, logger *slog.Logger) *InlineRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &InlineRunner{sync: sync, log: logger}
}

// TriggerFullSync starts a full sync and returns immediately.
func (r *InlineRunner) TriggerFullSync(ctx context.Context) (string, error) {
	r.start(context.WithoutCancel(ctx), func(ctx context.Context) error {
		_, err := r.sync.RunFullSync(ctx)
		return err
	})
	return "inline", nil
}

// TriggerIncrementalSync starts an incremental sync and returns immediately.
func (r *InlineRunner) TriggerIncrementalSync(ctx context.Context, days int) (string, error) {
	r.start(context.WithoutCancel(ctx), func(ctx context.Context) error {
		_, err := r.sync.RunIncrementalSync(ctx, days)
		return err
	})
	return "inline", nil
}

// Wait blocks until every started run returns.
func (r *InlineRunner) Wait() {
	r.wg.Wait()
}

func (r *InlineRunner) start(ctx context.Context, run func(context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := run(ctx); err != nil {
			r.log.Error("inline sync failed", "err", err)
		}
	}()
}
