// Package api defines the wire types shared by the HTTP server and the CLI,
// and the converters from store records to those types.
package api

import (
	"time"

	"pwaforge/internal/demo"
	"pwaforge/internal/entity"
	"pwaforge/internal/job"
)

// Envelope is the JSON response wrapper for every API endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JobRecord is the wire form of a job. Stale is derived at read time; it
// flags an in-progress record that has outlived the configured threshold.
type JobRecord struct {
	ID         string              `json:"id"`
	Input      string              `json:"input"`
	InputType  job.InputType       `json:"inputType"`
	Status     job.Status          `json:"status"`
	Analysis   *job.Analysis       `json:"analysis,omitempty"`
	Generated  []job.GeneratedFile `json:"generated,omitempty"`
	Validation *job.Validation     `json:"validation,omitempty"`
	Export     *job.Export         `json:"export,omitempty"`
	CreatedAt  int64               `json:"createdAt"`
	Error      string              `json:"error,omitempty"`
	Stale      bool                `json:"stale,omitempty"`
}

// JobStarted is returned by every trigger that detaches background work.
type JobStarted struct {
	JobID string `json:"jobId"`
}

// RerunStarted is returned by the rerun trigger.
type RerunStarted struct {
	NewJobID string `json:"newJobId"`
}

// HistoryPage is one cursor-delimited slice of job history.
type HistoryPage struct {
	Items []JobRecord `json:"items"`
	Next  *string     `json:"next"`
}

// HistoryCleared reports the bulk-clear result.
type HistoryCleared struct {
	ClearedCount int64 `json:"clearedCount"`
}

// Deleted reports a single-record deletion.
type Deleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// DeletedMany reports a batch deletion.
type DeletedMany struct {
	DeletedCount int64    `json:"deletedCount"`
	IDs          []string `json:"ids"`
}

// UserPage is one page of demo users.
type UserPage struct {
	Items []demo.User `json:"items"`
	Next  *string     `json:"next"`
}

// ChatPage is one page of demo chat boards.
type ChatPage struct {
	Items []demo.ChatBoard `json:"items"`
	Next  *string          `json:"next"`
}

// FromJobState converts a stored record to its wire form, deriving staleness
// against the given clock.
func FromJobState(state job.State, now time.Time, staleAfter time.Duration) JobRecord {
	return JobRecord{
		ID:         state.ID,
		Input:      state.Input,
		InputType:  state.InputType,
		Status:     state.Status,
		Analysis:   state.Analysis,
		Generated:  state.Generated,
		Validation: state.Validation,
		Export:     state.Export,
		CreatedAt:  state.CreatedAt,
		Error:      state.Error,
		Stale:      state.IsStale(now, staleAfter),
	}
}

// FromJobPage converts a store page to its wire form.
func FromJobPage(page entity.Page[job.State], now time.Time, staleAfter time.Duration) HistoryPage {
	items := make([]JobRecord, 0, len(page.Items))
	for _, state := range page.Items {
		items = append(items, FromJobState(state, now, staleAfter))
	}
	return HistoryPage{Items: items, Next: page.Next}
}
