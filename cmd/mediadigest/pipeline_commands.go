package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"mediadigest/internal/ingest"
	"mediadigest/internal/process"
	"mediadigest/internal/services/audiofetch"
	"mediadigest/internal/services/llm"
	"mediadigest/internal/services/whisper"
	"mediadigest/internal/summarize"
)

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	var sinceFlag string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Fetch podcast feeds and register new episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			since, err := parseDateFlag(sinceFlag)
			if err != nil {
				return fmt.Errorf("parse --since: %w", err)
			}
			return ctx.withStore(true, func(env runEnv) error {
				subs, err := ingest.LoadSubscriptions(env.cfg.Podcasts.OPMLPath)
				if err != nil {
					return err
				}
				discoverer := ingest.NewDiscoverer(env.store, env.logger)
				report, err := discoverer.Discover(env.ctx, subs, since)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Checked %d feeds, registered %d episodes\n",
					report.FeedsChecked, report.Episodes)
				for _, fe := range report.FeedErrors {
					fmt.Fprintf(out, "  feed %s failed: %v\n", fe.Feed.URL, fe.Err)
				}
				intake := ingest.NewNewsletterIntake(env.store, env.cfg.Paths.NewsletterDropDir, env.logger)
				intakeReport, err := intake.Run(env.ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Registered %d newsletters from the drop directory\n",
					intakeReport.Registered)
				for _, name := range intakeReport.Malformed {
					fmt.Fprintf(out, "  malformed drop file left in place: %s\n", name)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sinceFlag, "since", "", "Only register episodes published on or after this date (YYYY-MM-DD)")
	return cmd
}

func newProcessAudioCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "process-audio",
		Short: "Download and transcribe pending podcast episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(true, func(env runEnv) error {
				fetcher := audiofetch.NewFetcher(env.cfg.Paths.AudioDir,
					time.Duration(env.cfg.Pipeline.DownloadTimeoutSecs)*time.Second)
				transcriber := whisper.NewHTTPClient(env.cfg.Whisper)
				stage := process.NewAudioStage(env.store, fetcher, transcriber, env.cfg, env.logger)
				report, err := stage.Run(env.ctx, limit)
				printProcessReport(cmd.OutOrStdout(), report)
				return err
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Process at most this many episodes (0 = all)")
	return cmd
}

func newProcessNewslettersCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "process-newsletters",
		Short: "Parse pending newsletters into clean text",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(true, func(env runEnv) error {
				intake := ingest.NewNewsletterIntake(env.store, env.cfg.Paths.NewsletterDropDir, env.logger)
				if _, err := intake.Run(env.ctx); err != nil {
					return err
				}
				stage := process.NewNewsletterStage(env.store, env.cfg, env.logger)
				report, err := stage.Run(env.ctx, limit)
				printProcessReport(cmd.OutOrStdout(), report)
				return err
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Process at most this many newsletters (0 = all)")
	return cmd
}

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize and rate completed items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(true, func(env runEnv) error {
				model := llm.NewClient(env.cfg.LLM)
				stage := summarize.NewStage(env.store, model, env.logger)
				report, err := stage.Run(env.ctx, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Summarized %d items\n", report.Summarized)
				if report.MissingTranscript > 0 {
					fmt.Fprintf(out, "  %d completed episodes have no transcript\n", report.MissingTranscript)
				}
				for _, failure := range report.Failures {
					fmt.Fprintf(out, "  %q failed: %v\n", failure.Title, failure.Err)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Summarize at most this many items (0 = all)")
	return cmd
}

func printProcessReport(out io.Writer, report *process.Report) {
	if report == nil {
		return
	}
	if report.Reclaimed > 0 {
		fmt.Fprintf(out, "Reclaimed %d stale items\n", report.Reclaimed)
	}
	fmt.Fprintf(out, "%s: %d completed, %d failed\n",
		report.Stage, report.Completed(), report.Failed())
	if skipped := report.Skipped(); skipped > 0 {
		fmt.Fprintf(out, "  %d waiting on source data\n", skipped)
	}
	for _, result := range report.Results {
		if result.Outcome == process.OutcomeFailed {
			fmt.Fprintf(out, "  %q failed: %s\n", result.Title, result.Reason)
		}
	}
}

func parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", value)
}
