package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mediadigest/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write summarized items into the knowledge vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(true, func(env runEnv) error {
				exporter := export.NewExporter(env.store, env.cfg, env.logger)
				report, err := exporter.Run(env.ctx, dryRun)
				if report != nil {
					verb := "Wrote"
					if dryRun {
						verb = "Would write"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %d notes, skipped %d, %d failures\n",
						verb, report.Written, report.Skipped, len(report.Failures))
				}
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be exported without writing")
	return cmd
}

func newBuildDailyCommand(ctx *commandContext) *cobra.Command {
	var dateFlag string

	cmd := &cobra.Command{
		Use:   "build-daily",
		Short: "Render the daily digest note",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := digestDate(dateFlag)
			if err != nil {
				return fmt.Errorf("parse --date: %w", err)
			}
			return ctx.withStore(true, func(env runEnv) error {
				builder := export.NewDigestBuilder(env.store, env.logger)
				content, err := builder.BuildDaily(env.ctx, day)
				if err != nil {
					return err
				}
				root := env.cfg.ExportRoot()
				if err := export.EnsureLayout(root); err != nil {
					return err
				}
				path := export.DailyDigestPath(root, day)
				if err := export.WriteDigest(path, content); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Digest day (YYYY-MM-DD, default today)")
	return cmd
}

func newBuildWeeklyCommand(ctx *commandContext) *cobra.Command {
	var endingFlag string

	cmd := &cobra.Command{
		Use:   "build-weekly",
		Short: "Render the weekly digest note",
		RunE: func(cmd *cobra.Command, args []string) error {
			end, err := digestDate(endingFlag)
			if err != nil {
				return fmt.Errorf("parse --ending: %w", err)
			}
			return ctx.withStore(true, func(env runEnv) error {
				builder := export.NewDigestBuilder(env.store, env.logger)
				content, err := builder.BuildWeekly(env.ctx, end)
				if err != nil {
					return err
				}
				root := env.cfg.ExportRoot()
				if err := export.EnsureLayout(root); err != nil {
					return err
				}
				path := export.WeeklyDigestPath(root, end)
				if err := export.WriteDigest(path, content); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&endingFlag, "ending", "", "Last day of the digest week (YYYY-MM-DD, default today)")
	return cmd
}

func digestDate(value string) (time.Time, error) {
	if value == "" || value == "today" {
		return time.Now().UTC(), nil
	}
	return time.Parse("2006-01-02", value)
}
