package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/strand/internal/models"
	"github.com/ternarybob/strand/internal/omics"
)

func newTestRunner(api omics.RunService, runs *memoryRunStorage, notifier *fakeNotifier, maxCycles int) *Runner {
	logger := arbor.NewLogger()
	launcher := NewLauncher(api, &RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}, time.Millisecond, logger)
	launcher.sleep = func(time.Duration) {}

	return NewRunner(
		NewResolver(&fakeRegistry{}, logger),
		launcher,
		NewPoller(api, logger),
		runs,
		notifier,
		noopEvents{},
		time.Millisecond,
		maxCycles,
		logger,
	)
}

func TestRunnerExecuteToCompletion(t *testing.T) {
	var polls atomic.Int64
	api := &fakeRunService{
		startRunFunc: func(ctx context.Context, req omics.StartRunRequest) (*omics.StartRunResponse, error) {
			return &omics.StartRunResponse{ID: "id-" + req.WorkflowID}, nil
		},
		getRunFunc: func(ctx context.Context, id string) (*omics.RunDetail, error) {
			// Running for the first cycle, terminal afterwards
			if polls.Add(1) <= 2 {
				return &omics.RunDetail{ID: id, Status: "RUNNING"}, nil
			}
			return &omics.RunDetail{ID: id, Status: "COMPLETED"}, nil
		},
	}

	runs := newMemoryRunStorage()
	notifier := &fakeNotifier{}
	runner := newTestRunner(api, runs, notifier, 100)

	if err := runner.Execute(context.Background(), testManifest()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if notifier.callCount() != 1 {
		t.Errorf("notifier called %d times, want exactly 1", notifier.callCount())
	}
	agg := notifier.calls[0]
	if !agg.AllTerminal || agg.AnyFailed {
		t.Errorf("final aggregate = %+v", agg)
	}

	record, err := runs.Get(context.Background(), "batch-42")
	if err != nil {
		t.Fatalf("run record missing: %v", err)
	}
	if record.Phase != models.RunPhaseFinished {
		t.Errorf("phase = %q, want finished", record.Phase)
	}
	if record.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
	if len(record.LaunchedJobs) != 2 {
		t.Errorf("launched jobs = %d, want 2", len(record.LaunchedJobs))
	}
	if record.LastAggregate == nil || !record.LastAggregate.AllTerminal {
		t.Error("last aggregate not persisted")
	}
}

func TestRunnerFailedJobStillCompletesRun(t *testing.T) {
	api := &fakeRunService{
		getRunFunc: func(ctx context.Context, id string) (*omics.RunDetail, error) {
			if id == "id-wf-mag" {
				return &omics.RunDetail{ID: id, Status: "FAILED", StatusMessage: "oom"}, nil
			}
			return &omics.RunDetail{ID: id, Status: "COMPLETED"}, nil
		},
		startRunFunc: func(ctx context.Context, req omics.StartRunRequest) (*omics.StartRunResponse, error) {
			return &omics.StartRunResponse{ID: "id-" + req.WorkflowID}, nil
		},
	}

	runs := newMemoryRunStorage()
	notifier := &fakeNotifier{}
	runner := newTestRunner(api, runs, notifier, 100)

	// A failed sibling never cancels the others; the run completes and the
	// report carries the failure
	if err := runner.Execute(context.Background(), testManifest()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if notifier.callCount() != 1 {
		t.Fatalf("notifier called %d times, want 1", notifier.callCount())
	}
	if !notifier.calls[0].AnyFailed {
		t.Error("aggregate should flag the failed job")
	}
}

func TestRunnerNotificationErrorPropagates(t *testing.T) {
	api := &fakeRunService{
		getRunFunc: func(ctx context.Context, id string) (*omics.RunDetail, error) {
			return &omics.RunDetail{ID: id, Status: "COMPLETED"}, nil
		},
	}

	runs := newMemoryRunStorage()
	notifier := &fakeNotifier{
		notifyFunc: func(ctx context.Context, aggregate models.RunAggregate) error {
			return errors.New("webhook down")
		},
	}
	runner := newTestRunner(api, runs, notifier, 100)

	err := runner.Execute(context.Background(), testManifest())
	var notifyErr *NotificationError
	if !errors.As(err, &notifyErr) {
		t.Fatalf("err = %v, want NotificationError", err)
	}

	// The run itself finished; only delivery failed
	record, _ := runs.Get(context.Background(), "batch-42")
	if record.Phase != models.RunPhaseFinished {
		t.Errorf("phase = %q, want finished", record.Phase)
	}
}

func TestRunnerMaxCyclesExhausted(t *testing.T) {
	api := &fakeRunService{
		getRunFunc: func(ctx context.Context, id string) (*omics.RunDetail, error) {
			return &omics.RunDetail{ID: id, Status: "RUNNING"}, nil
		},
	}

	runs := newMemoryRunStorage()
	notifier := &fakeNotifier{}
	runner := newTestRunner(api, runs, notifier, 3)

	err := runner.Execute(context.Background(), testManifest())
	if err == nil {
		t.Fatal("expected cycle budget error")
	}
	if notifier.callCount() != 0 {
		t.Error("notifier must not fire for an unfinished run")
	}

	record, _ := runs.Get(context.Background(), "batch-42")
	if record.Phase != models.RunPhaseFailed {
		t.Errorf("phase = %q, want failed", record.Phase)
	}
	if record.PollCycles != 3 {
		t.Errorf("poll cycles = %d, want 3", record.PollCycles)
	}
}

func TestRunnerNothingRequested(t *testing.T) {
	runs := newMemoryRunStorage()
	runner := newTestRunner(&fakeRunService{}, runs, &fakeNotifier{}, 10)

	manifest := testManifest()
	manifest.Samplesheets = map[string]string{"mag": ""}

	// The manifest validates (one key present) but resolves to nothing
	err := runner.Execute(context.Background(), manifest)
	if !errors.Is(err, ErrNothingRequested) {
		t.Fatalf("err = %v, want ErrNothingRequested", err)
	}
}

func TestRunnerLaunchFailureRecordsRun(t *testing.T) {
	api := &fakeRunService{
		startRunFunc: func(ctx context.Context, req omics.StartRunRequest) (*omics.StartRunResponse, error) {
			return nil, &omics.APIError{StatusCode: 403, Code: "AccessDenied"}
		},
	}

	runs := newMemoryRunStorage()
	notifier := &fakeNotifier{}
	runner := newTestRunner(api, runs, notifier, 10)

	err := runner.Execute(context.Background(), testManifest())
	if !errors.Is(err, ErrNoJobsLaunched) {
		t.Fatalf("err = %v, want ErrNoJobsLaunched", err)
	}
	if notifier.callCount() != 0 {
		t.Error("notifier must not fire when nothing launched")
	}

	record, getErr := runs.Get(context.Background(), "batch-42")
	if getErr != nil {
		t.Fatalf("run record missing: %v", getErr)
	}
	if record.Phase != models.RunPhaseFailed {
		t.Errorf("phase = %q, want failed", record.Phase)
	}
	if record.Error == "" {
		t.Error("record should carry the launch error")
	}
}

func TestRunnerContextCancellation(t *testing.T) {
	api := &fakeRunService{
		getRunFunc: func(ctx context.Context, id string) (*omics.RunDetail, error) {
			return &omics.RunDetail{ID: id, Status: "RUNNING"}, nil
		},
	}

	runs := newMemoryRunStorage()
	runner := newTestRunner(api, runs, &fakeNotifier{}, 1000000)
	runner.pollInterval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := runner.Execute(ctx, testManifest())
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	record, _ := runs.Get(context.Background(), "batch-42")
	if record.Phase != models.RunPhaseFailed {
		t.Errorf("phase = %q, want failed", record.Phase)
	}
}
