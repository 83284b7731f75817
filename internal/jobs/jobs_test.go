package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/example/partsmirror/internal/jobs"
	"github.com/example/partsmirror/internal/services"
)

type fakeSyncer struct {
	mu          sync.Mutex
	scheduled   int
	full        int
	days        []int
	err         error
	abortedFull bool
}

func (f *fakeSyncer) RunScheduled(context.Context) (*services.ScheduledResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled++
	return &services.ScheduledResult{}, f.err
}

func (f *fakeSyncer) RunFullSync(context.Context) (*services.SyncResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.full++
	return &services.SyncResult{Kind: "full", Aborted: f.abortedFull}, f.err
}

func (f *fakeSyncer) RunIncrementalSync(_ context.Context, days int) (*services.SyncResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.days = append(f.days, days)
	return &services.SyncResult{Kind: "incremental", Days: days}, f.err
}

func TestIncrementalTaskPayload(t *testing.T) {
	task, err := jobs.NewIncrementalSyncTask(7)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != jobs.TaskIncrementalSync {
		t.Fatalf("type = %s", task.Type())
	}
	var payload jobs.IncrementalSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Days != 7 {
		t.Fatalf("days = %d, want 7", payload.Days)
	}
}

func TestProcessorRunsSyncs(t *testing.T) {
	syncer := &fakeSyncer{abortedFull: true}
	p := jobs.NewSyncProcessor(syncer, nil)
	ctx := context.Background()

	if err := p.ProcessScheduled(ctx, jobs.NewScheduledSyncTask()); err != nil {
		t.Fatalf("scheduled: %v", err)
	}
	if err := p.ProcessFull(ctx, jobs.NewFullSyncTask()); err != nil {
		t.Fatalf("aborted full sync should not be retried: %v", err)
	}
	task, _ := jobs.NewIncrementalSyncTask(3)
	if err := p.ProcessIncremental(ctx, task); err != nil {
		t.Fatalf("incremental: %v", err)
	}
	if syncer.scheduled != 1 || syncer.full != 1 || len(syncer.days) != 1 || syncer.days[0] != 3 {
		t.Fatalf("unexpected calls %+v", syncer)
	}
}

func TestProcessorRejectsBadPayload(t *testing.T) {
	p := jobs.NewSyncProcessor(&fakeSyncer{}, nil)
	err := p.ProcessIncremental(context.Background(), asynq.NewTask(jobs.TaskIncrementalSync, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("err = %v, want SkipRetry", err)
	}
}

func TestProcessorPropagatesErrors(t *testing.T) {
	p := jobs.NewSyncProcessor(&fakeSyncer{err: errors.New("db down")}, nil)
	if err := p.ProcessFull(context.Background(), jobs.NewFullSyncTask()); err == nil {
		t.Fatalf("expected error for retry")
	}
}

func TestInlineRunner(t *testing.T) {
	syncer := &fakeSyncer{}
	runner := jobs.NewInlineRunner(syncer, nil)
	ctx, cancel := context.WithCancel(context.Background())

	if _, err := runner.TriggerFullSync(ctx); err != nil {
		t.Fatalf("full: %v", err)
	}
	if _, err := runner.TriggerIncrementalSync(ctx, 4); err != nil {
		t.Fatalf("incremental: %v", err)
	}
	cancel()
	runner.Wait()

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if syncer.full != 1 || len(syncer.days) != 1 || syncer.days[0] != 4 {
		t.Fatalf("unexpected calls %+v", syncer)
	}
}
