package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"plinth/internal/pipeline"
	"plinth/internal/services"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Discover model files and register them in the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			orch, err := ctx.newOrchestrator()
			if err != nil {
				return err
			}
			report, err := orch.Scan(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Found %d model file(s), %d new\n", report.Found, report.New)
			return nil
		},
	}
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process [limit]",
		Short: "Render pending models from the queue, oldest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			limit := 0
			if len(args) == 1 {
				parsed, err := strconv.Atoi(args[0])
				if err != nil || parsed < 1 {
					return fmt.Errorf("limit must be a positive integer, got %q", args[0])
				}
				limit = parsed
			}
			orch, err := ctx.newOrchestrator()
			if err != nil {
				return err
			}
			report, err := orch.ProcessQueue(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printBatchReport(cmd, report)
			return nil
		},
	}
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "render <path>",
		Short: "Render a single model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			orch, err := ctx.newOrchestrator()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			outcome, err := orch.RenderFile(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, services.ErrNotFound) {
					return fmt.Errorf("file not found: %s", args[0])
				}
				return err
			}
			if !outcome.Succeeded() {
				// Failure is recorded on the job; report without raising.
				logger.Error("render failed", "path", args[0], "error", outcome.Err)
				fmt.Fprintf(cmd.OutOrStdout(), "Render failed: %v\n", outcome.Err)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed in %s: %s\n", outcome.Duration.Round(timeRounding), outcome.OutputPath)
			return nil
		},
	}
}

func newAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Scan for new models, then process the whole queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			orch, err := ctx.newOrchestrator()
			if err != nil {
				return err
			}
			report, err := orch.ProcessAll(cmd.Context())
			if err != nil {
				return err
			}
			printBatchReport(cmd, report)
			return nil
		},
	}
}

func printBatchReport(cmd *cobra.Command, report pipeline.BatchReport) {
	fmt.Fprintf(cmd.OutOrStdout(), "Completed: %d/%d successful\n", report.Succeeded, report.Attempted)
	for _, outcome := range report.Outcomes {
		if outcome.Succeeded() {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  failed: %s: %v\n", outcome.File.Filename, outcome.Err)
	}
	printStatistics(cmd, report.Stats)
}
