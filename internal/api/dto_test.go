package api_test

import (
	"testing"
	"time"

	"pwaforge/internal/api"
	"pwaforge/internal/entity"
	"pwaforge/internal/job"
)

func TestFromJobStateFlagsStaleInProgress(t *testing.T) {
	now := time.Now()
	threshold := 5 * time.Minute

	state := job.State{
		ID:        "job-1",
		Input:     "app.zip",
		InputType: job.InputZip,
		Status:    job.StatusAnalyzing,
		CreatedAt: now.Add(-time.Hour).UnixMilli(),
	}
	record := api.FromJobState(state, now, threshold)
	if !record.Stale {
		t.Fatal("hour-old analyzing record must be flagged stale")
	}

	state.Status = job.StatusComplete
	record = api.FromJobState(state, now, threshold)
	if record.Stale {
		t.Fatal("settled record must not be flagged stale")
	}
}

func TestFromJobPagePreservesCursor(t *testing.T) {
	now := time.Now()
	next := "job-2"
	page := entity.Page[job.State]{
		Items: []job.State{
			{ID: "job-1", Status: job.StatusComplete, CreatedAt: now.UnixMilli()},
			{ID: "job-2", Status: job.StatusError, Error: "boom", CreatedAt: now.UnixMilli()},
		},
		Next: &next,
	}
	wire := api.FromJobPage(page, now, time.Minute)
	if len(wire.Items) != 2 || wire.Next == nil || *wire.Next != "job-2" {
		t.Fatalf("unexpected page: %#v", wire)
	}
	if wire.Items[1].Error != "boom" {
		t.Fatalf("error message dropped: %#v", wire.Items[1])
	}
}
