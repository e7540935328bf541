package inmemory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/jobs"
)

func TestStore_SaveAndGetJob(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := &jobs.ReconcileRunJob{JobID: "job-1", Period: "2026-07", Status: jobs.JobStatusPending}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Period != "2026-07" || got.Status != jobs.JobStatusPending {
		t.Errorf("Unexpected job: %+v", got)
	}

	// Mutating the returned copy must not touch the stored state.
	got.Status = jobs.JobStatusFailed
	again, _ := store.GetJob(ctx, "job-1")
	if again.Status != jobs.JobStatusPending {
		t.Error("Stored job was mutated through a returned copy")
	}
}

func TestStore_SaveJobRequiresID(t *testing.T) {
	store := NewStore()
	if err := store.SaveJob(context.Background(), &jobs.ReconcileRunJob{}); err == nil {
		t.Fatal("Expected error for job without ID")
	}
}

func TestStore_GetJobNotFound(t *testing.T) {
	store := NewStore()
	if _, err := store.GetJob(context.Background(), "missing"); err == nil {
		t.Fatal("Expected error for missing job")
	}
}

func TestStore_ListJobs(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 5; i++ {
		status := jobs.JobStatusCompleted
		if i%2 == 0 {
			status = jobs.JobStatusPending
		}
		job := &jobs.ReconcileRunJob{
			JobID:     fmt.Sprintf("job-%d", i),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}

	all, err := store.ListJobs(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("Expected 5 jobs, got %d", len(all))
	}
	// Newest first.
	if all[0].JobID != "job-4" || all[4].JobID != "job-0" {
		t.Errorf("Unexpected order: first %s, last %s", all[0].JobID, all[4].JobID)
	}

	pending, err := store.ListJobs(ctx, jobs.JobStatusPending, 0)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(pending) != 3 {
		t.Errorf("Expected 3 pending jobs, got %d", len(pending))
	}

	limited, err := store.ListJobs(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 jobs with limit, got %d", len(limited))
	}
}
