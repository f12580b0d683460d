package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"pwaforge/internal/api"
)

func renderHistoryTable(items []api.JobRecord) string {
	tw := table.NewWriter()
	if stdoutIsTerminal() {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}

	tw.AppendHeader(table.Row{"Job", "Project", "Status", "Stack", "Score", "Age"})
	now := time.Now()
	for _, item := range items {
		stack := ""
		if item.Analysis != nil {
			stack = item.Analysis.DetectedStack
		}
		score := ""
		if item.Validation != nil {
			score = item.Validation.Score
		}
		status := string(item.Status)
		if item.Stale {
			status += " (stale)"
		}
		tw.AppendRow(table.Row{
			shortJobID(item.ID),
			item.Input,
			status,
			stack,
			score,
			formatAge(now, item.CreatedAt),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func shortJobID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatAge(now time.Time, createdAtMillis int64) string {
	age := now.Sub(time.UnixMilli(createdAtMillis))
	if age < 0 {
		age = 0
	}
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	}
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
