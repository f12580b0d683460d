package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pwaforge/internal/api"
	"pwaforge/internal/entity"
	"pwaforge/internal/history"
	"pwaforge/internal/job"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int
	var cursor string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List pipeline job history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := entity.Open(cfg)
			if err != nil {
				return fmt.Errorf("open entity store: %w", err)
			}
			defer store.Close()

			jobs := entity.NewCollection(store, entity.Config[job.State]{Kind: "job"})
			svc := history.NewService(cfg, jobs)

			var cursorPtr *string
			if cursor != "" {
				cursorPtr = &cursor
			}
			page, err := svc.History(cmd.Context(), cursorPtr, limit)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}

			staleAfter := time.Duration(cfg.Pipeline.StaleAfterSeconds) * time.Second
			wire := api.FromJobPage(page, time.Now(), staleAfter)
			if len(wire.Items) == 0 {
				cmd.Println("No jobs recorded.")
				return nil
			}

			cmd.Println(renderHistoryTable(wire.Items))
			if wire.Next != nil {
				cmd.Printf("More records available: --cursor %s\n", *wire.Next)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum records per page (default from config)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Resume listing after this job id")

	cmd.AddCommand(newHistoryClearCommand(cmdCtx))
	return cmd
}

func newHistoryClearCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all job history records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := entity.Open(cfg)
			if err != nil {
				return fmt.Errorf("open entity store: %w", err)
			}
			defer store.Close()

			jobs := entity.NewCollection(store, entity.Config[job.State]{Kind: "job"})
			svc := history.NewService(cfg, jobs)

			cleared, err := svc.ClearHistory(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear history: %w", err)
			}
			cmd.Printf("Cleared %d job(s).\n", cleared)
			return nil
		},
	}
}
