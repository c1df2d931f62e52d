package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"mediadigest/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline state per item kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(false, func(env runEnv) error {
				stats, err := env.store.StatsByKind(env.ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderStatusTable(stats))

				failed, err := env.store.FailedItems(env.ctx)
				if err != nil {
					return err
				}
				if len(failed) > 0 {
					fmt.Fprintf(out, "\nFailed items (%d):\n", len(failed))
					for _, item := range failed {
						fmt.Fprintf(out, "  [%s] %s %q: %s\n",
							item.ItemKind, item.ItemID, item.Title, item.ErrorReason)
					}
				}
				return nil
			})
		},
	}
}

func renderStatusTable(stats []store.Stats) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := table.Row{"Kind"}
	for _, status := range store.AllStatuses() {
		header = append(header, string(status))
	}
	header = append(header, "Total")
	tw.AppendHeader(header)

	for _, s := range stats {
		row := table.Row{string(s.Kind)}
		for _, status := range store.AllStatuses() {
			row = append(row, strconv.Itoa(s.Counts[status]))
		}
		row = append(row, strconv.Itoa(s.Total()))
		tw.AppendRow(row)
	}

	configs := make([]table.ColumnConfig, 0, len(store.AllStatuses())+1)
	for i := range store.AllStatuses() {
		configs = append(configs, table.ColumnConfig{
			Number:      i + 2,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	configs = append(configs, table.ColumnConfig{
		Number:      len(store.AllStatuses()) + 2,
		Align:       text.AlignRight,
		AlignHeader: text.AlignLeft,
	})
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var itemID string

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Return a failed item to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			if itemID == "" {
				return fmt.Errorf("--item-id is required")
			}
			return ctx.withStore(true, func(env runEnv) error {
				kind, err := env.store.ResolveItemKind(env.ctx, itemID)
				if err != nil {
					return err
				}
				if err := env.store.Transition(env.ctx, kind, itemID, store.StatusPending, ""); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %s %s\n", kind, itemID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&itemID, "item-id", "", "Episode GUID or newsletter message ID")
	return cmd
}

func newSkipCommand(ctx *commandContext) *cobra.Command {
	var itemID string

	cmd := &cobra.Command{
		Use:   "skip",
		Short: "Permanently exclude an item from the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if itemID == "" {
				return fmt.Errorf("--item-id is required")
			}
			return ctx.withStore(true, func(env runEnv) error {
				kind, err := env.store.ResolveItemKind(env.ctx, itemID)
				if err != nil {
					return err
				}
				if err := env.store.Transition(env.ctx, kind, itemID, store.StatusSkipped, ""); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Skipped %s %s\n", kind, itemID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&itemID, "item-id", "", "Episode GUID or newsletter message ID")
	return cmd
}
