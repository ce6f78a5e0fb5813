package migration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openshelter/shelterboard/internal/events"
)

type fakeImporter struct {
	validateErr error
	importErr   error
	result      *Result
}

func (f *fakeImporter) Validate(ctx context.Context, options Options) error {
	return f.validateErr
}

func (f *fakeImporter) Import(ctx context.Context, options Options, progress ProgressCallback) (*Result, error) {
	if progress != nil {
		progress(Progress{Phase: "importing", CurrentStep: "working", Percentage: 50})
	}
	return f.result, f.importErr
}

func TestCreateJobRejectsUnknownSource(t *testing.T) {
	svc := NewService(newTestDB(t), events.NewBus(), zerolog.Nop())

	_, err := svc.CreateJob(context.Background(), SourceType("nope"), Options{})
	if err == nil {
		t.Error("CreateJob() with unregistered source expected error, got nil")
	}
}

func TestCreateJobRunsValidation(t *testing.T) {
	svc := NewService(newTestDB(t), events.NewBus(), zerolog.Nop())
	svc.RegisterImporter(SourceTypeSQLiteExport, &fakeImporter{
		validateErr: ValidationErrors{{Field: "sqlite_path", Message: "required"}},
	})

	_, err := svc.CreateJob(context.Background(), SourceTypeSQLiteExport, Options{})
	if err == nil {
		t.Error("CreateJob() with failing validation expected error, got nil")
	}
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()
	svc := NewService(newTestDB(t), bus, zerolog.Nop())
	svc.RegisterImporter(SourceTypeSQLiteExport, &fakeImporter{
		result: &Result{AnimalsImported: 7, KennelsImported: 2},
	})

	completed := bus.Subscribe(events.EventMigrationCompleted)
	defer bus.Unsubscribe(events.EventMigrationCompleted, completed)

	job, err := svc.CreateJob(ctx, SourceTypeSQLiteExport, Options{})
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if job.Status != JobStatusPending {
		t.Fatalf("job status = %q, want %q", job.Status, JobStatusPending)
	}

	if err := svc.StartJob(ctx, job.ID); err != nil {
		t.Fatalf("StartJob() error = %v", err)
	}

	select {
	case payload := <-completed:
		if payload["status"] != string(JobStatusCompleted) {
			t.Errorf("completion status = %v, want %q", payload["status"], JobStatusCompleted)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion event")
	}

	got, err := svc.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != JobStatusCompleted {
		t.Errorf("job status = %q, want %q", got.Status, JobStatusCompleted)
	}
	if got.Result == nil || got.Result.AnimalsImported != 7 {
		t.Errorf("job result = %+v, want 7 animals", got.Result)
	}
}

func TestJobFailureRecordsError(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()
	svc := NewService(newTestDB(t), bus, zerolog.Nop())
	svc.RegisterImporter(SourceTypeASM, &fakeImporter{
		importErr: errors.New("connection refused"),
	})

	completed := bus.Subscribe(events.EventMigrationCompleted)
	defer bus.Unsubscribe(events.EventMigrationCompleted, completed)

	job, err := svc.CreateJob(ctx, SourceTypeASM, Options{})
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if err := svc.StartJob(ctx, job.ID); err != nil {
		t.Fatalf("StartJob() error = %v", err)
	}

	select {
	case <-completed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion event")
	}

	got, err := svc.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != JobStatusFailed {
		t.Errorf("job status = %q, want %q", got.Status, JobStatusFailed)
	}
	if got.Error == "" {
		t.Error("job error is empty, want failure message")
	}
}

func TestRecoverStaleJobs(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewService(db, events.NewBus(), zerolog.Nop())

	stale := &Job{
		ID:         "stale-job",
		SourceType: SourceTypeSQLiteExport,
		Status:     JobStatusRunning,
	}
	if err := db.Create(stale).Error; err != nil {
		t.Fatalf("seed stale job: %v", err)
	}

	if err := svc.RecoverStaleJobs(ctx); err != nil {
		t.Fatalf("RecoverStaleJobs() error = %v", err)
	}

	var got Job
	if err := db.First(&got, "id = ?", "stale-job").Error; err != nil {
		t.Fatalf("load job: %v", err)
	}
	if got.Status != JobStatusFailed {
		t.Errorf("stale job status = %q, want %q", got.Status, JobStatusFailed)
	}
	if got.CompletedAt == nil {
		t.Error("stale job CompletedAt is nil")
	}
}

func TestMaskDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{
			"keyword dsn",
			"host=db port=5432 dbname=asm user=asm password=hunter2 sslmode=disable",
			"host=db port=5432 dbname=asm user=asm password=**** sslmode=disable",
		},
		{
			"url dsn",
			"postgres://asm:hunter2@db:5432/asm",
			"postgres://asm:****@db:5432/asm",
		},
		{
			"no password",
			"host=db dbname=asm",
			"host=db dbname=asm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskDSN(tt.dsn); got != tt.want {
				t.Errorf("maskDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
		})
	}
}
