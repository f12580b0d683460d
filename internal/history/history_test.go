package history_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"pwaforge/internal/entity"
	"pwaforge/internal/history"
	"pwaforge/internal/job"
	"pwaforge/internal/testsupport"
)

func newService(t *testing.T, pageSize int) (*history.Service, *entity.Collection[job.State]) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithHistoryPageSize(pageSize))
	store := testsupport.MustOpenStore(t, cfg)
	jobs := entity.NewCollection(store, entity.Config[job.State]{Kind: "job"})
	return history.NewService(cfg, jobs), jobs
}

func seedJobs(t *testing.T, jobs *entity.Collection[job.State], count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		state := job.State{
			ID:        fmt.Sprintf("job-%02d", i),
			Input:     fmt.Sprintf("app-%02d.zip", i),
			InputType: job.InputZip,
			Status:    job.StatusComplete,
			CreatedAt: time.Now().UnixMilli(),
		}
		if _, err := jobs.Create(context.Background(), state); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
}

func TestHistoryUsesConfiguredPageSize(t *testing.T) {
	svc, jobs := newService(t, 4)
	seedJobs(t, jobs, 9)

	page, err := svc.History(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(page.Items) != 4 || page.Next == nil {
		t.Fatalf("expected a full default page, got %d items", len(page.Items))
	}
	if page.Items[0].ID != "job-00" {
		t.Fatalf("expected creation order, got %s first", page.Items[0].ID)
	}
}

func TestHistoryWalksAllPages(t *testing.T) {
	svc, jobs := newService(t, 10)
	seedJobs(t, jobs, 7)

	var seen []string
	var cursor *string
	for {
		page, err := svc.History(context.Background(), cursor, 3)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		for _, item := range page.Items {
			seen = append(seen, item.ID)
		}
		if page.Next == nil {
			break
		}
		cursor = page.Next
	}
	if len(seen) != 7 {
		t.Fatalf("expected 7 records across pages, got %d", len(seen))
	}
}

func TestClearHistoryReturnsCount(t *testing.T) {
	svc, jobs := newService(t, 10)
	seedJobs(t, jobs, 5)

	cleared, err := svc.ClearHistory(context.Background())
	if err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}
	if cleared != 5 {
		t.Fatalf("expected 5 cleared, got %d", cleared)
	}

	page, err := svc.History(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("expected empty history, got %d items", len(page.Items))
	}

	cleared, err = svc.ClearHistory(context.Background())
	if err != nil || cleared != 0 {
		t.Fatalf("expected empty clear to report 0, got %d/%v", cleared, err)
	}
}
