package orchestrator

import (
	"context"
	"sync"

	"github.com/ternarybob/strand/internal/interfaces"
	"github.com/ternarybob/strand/internal/models"
	"github.com/ternarybob/strand/internal/omics"
)

// fakeRunService implements omics.RunService for testing
type fakeRunService struct {
	startRunFunc func(ctx context.Context, req omics.StartRunRequest) (*omics.StartRunResponse, error)
	getRunFunc   func(ctx context.Context, id string) (*omics.RunDetail, error)
}

func (f *fakeRunService) StartRun(ctx context.Context, req omics.StartRunRequest) (*omics.StartRunResponse, error) {
	if f.startRunFunc != nil {
		return f.startRunFunc(ctx, req)
	}
	return &omics.StartRunResponse{ID: "run-id", ARN: "arn:run-id"}, nil
}

func (f *fakeRunService) GetRun(ctx context.Context, id string) (*omics.RunDetail, error) {
	if f.getRunFunc != nil {
		return f.getRunFunc(ctx, id)
	}
	return &omics.RunDetail{ID: id, Status: "RUNNING"}, nil
}

func (f *fakeRunService) ListWorkflows(ctx context.Context, name string) ([]omics.WorkflowSummary, error) {
	return nil, nil
}

func (f *fakeRunService) CreateWorkflow(ctx context.Context, req omics.CreateWorkflowRequest) (*omics.CreateWorkflowResponse, error) {
	return nil, nil
}

func (f *fakeRunService) DeleteWorkflow(ctx context.Context, id string) error {
	return nil
}

// fakeRegistry implements interfaces.Registry for testing
type fakeRegistry struct {
	lookupFunc func(ctx context.Context, jobType string) (*models.WorkflowEntry, error)
}

func (f *fakeRegistry) Lookup(ctx context.Context, jobType string) (*models.WorkflowEntry, error) {
	if f.lookupFunc != nil {
		return f.lookupFunc(ctx, jobType)
	}
	return &models.WorkflowEntry{
		Name:          jobType,
		Version:       "1.0.0",
		DefinitionRef: "wf-" + jobType,
		ExecutionRole: "role-x",
		ResourceGroup: "group-x",
	}, nil
}

// memoryRunStorage implements interfaces.RunStorage in memory
type memoryRunStorage struct {
	mu      sync.Mutex
	records map[string]models.RunRecord
}

func newMemoryRunStorage() *memoryRunStorage {
	return &memoryRunStorage{records: make(map[string]models.RunRecord)}
}

func (m *memoryRunStorage) Get(ctx context.Context, runLabel string) (*models.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[runLabel]
	if !ok {
		return nil, interfaces.ErrRunNotFound
	}
	return &record, nil
}

func (m *memoryRunStorage) Save(ctx context.Context, record *models.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.RunLabel] = *record
	return nil
}

func (m *memoryRunStorage) List(ctx context.Context) ([]models.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]models.RunRecord, 0, len(m.records))
	for _, r := range m.records {
		records = append(records, r)
	}
	return records, nil
}

// fakeNotifier implements interfaces.Notifier for testing
type fakeNotifier struct {
	mu         sync.Mutex
	calls      []models.RunAggregate
	notifyFunc func(ctx context.Context, aggregate models.RunAggregate) error
}

func (f *fakeNotifier) NotifyRunCompleted(ctx context.Context, aggregate models.RunAggregate) error {
	f.mu.Lock()
	f.calls = append(f.calls, aggregate)
	f.mu.Unlock()
	if f.notifyFunc != nil {
		return f.notifyFunc(ctx, aggregate)
	}
	return nil
}

func (f *fakeNotifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// noopEvents implements interfaces.EventService without delivery
type noopEvents struct{}

func (noopEvents) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return nil
}
func (noopEvents) Publish(ctx context.Context, event interfaces.Event) error     { return nil }
func (noopEvents) PublishSync(ctx context.Context, event interfaces.Event) error { return nil }
func (noopEvents) Close() error                                                  { return nil }

func testManifest() *models.Manifest {
	return &models.Manifest{
		RunLabel: "batch-42",
		Samplesheets: map[string]string{
			"mag":         "s3://in/batch-42/samplesheet_mag.csv",
			"metatdenovo": "s3://in/batch-42/samplesheet_metatdenovo.csv",
		},
		OutputBase: "s3://out",
	}
}
