package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/vinehill/internal/catalog"
	"github.com/dyluth/vinehill/internal/history"
	"github.com/dyluth/vinehill/internal/printer"
	"github.com/dyluth/vinehill/internal/resolver"
	"github.com/dyluth/vinehill/internal/timespec"
	"github.com/dyluth/vinehill/pkg/journal"
)

var (
	historyOutput   string
	historySince    string
	historyUntil    string
	historyCategory string
	historyMatch    string
)

var historyCmd = &cobra.Command{
	Use:   "history [EVENT_ID]",
	Short: "List journaled catalog events",
	Long: `List catalog events recorded in the Redis journal, oldest first.

With EVENT_ID (a full UUID or a unique prefix of at least six
characters), print that single event as pretty JSON instead.

Output Formats:
  table - Human-readable table (default)
  jsonl - One JSON event per line

Filters:
  --since, --until  Durations ("2h", "7d") or times ("2025-10-29T13:00:00Z")
  --category        games, music, movies or tvseries
  --match           Glob against the canonical name ("*S01E*")

Examples:
  vinehill history --since 24h
  vinehill history --category tvseries --match "Show Name*"
  vinehill history -o jsonl --since 7d | jq -r .name`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "table", "Output format (table or jsonl)")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only events at or after this time")
	historyCmd.Flags().StringVar(&historyUntil, "until", "", "Only events at or before this time")
	historyCmd.Flags().StringVar(&historyCategory, "category", "", "Only events in this category")
	historyCmd.Flags().StringVar(&historyMatch, "match", "", "Only names matching this glob")
	addJournalFlags(historyCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	format, err := history.ParseFormat(historyOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: table, jsonl"})
	}

	if historyCategory != "" && !catalog.Known(catalog.Category(historyCategory)) {
		return printer.Error(
			"invalid category",
			fmt.Sprintf("Unknown category: %s", historyCategory),
			[]string{"Valid categories: games, music, movies, tvseries"},
		)
	}

	since, until, err := timespec.ParseRange(historySince, historyUntil)
	if err != nil {
		return printer.Error("invalid time range", err.Error(), []string{"Use durations like 2h or 7d, or RFC3339 times"})
	}

	jc, err := openJournal(ctx)
	if err != nil {
		return err
	}
	defer jc.Close()

	if len(args) == 1 {
		return showEvent(ctx, cmd, jc, args[0])
	}

	return history.List(ctx, jc, jc.InstanceName(), format, &history.FilterCriteria{
		SinceTimestampMs: since,
		UntilTimestampMs: until,
		Category:         historyCategory,
		NameGlob:         historyMatch,
	}, cmd.OutOrStdout())
}

func showEvent(ctx context.Context, cmd *cobra.Command, jc *journal.Client, prefix string) error {
	id, err := resolver.ResolveEventID(ctx, jc, prefix)
	if err != nil {
		var amb *resolver.AmbiguousError
		switch {
		case errors.As(err, &amb):
			return printer.Error("ambiguous event ID", amb.Candidates(), []string{"Use a longer prefix"})
		case resolver.IsNotFound(err):
			return printer.Error("event not found", err.Error(), nil)
		}
		return printer.Error("invalid event ID", err.Error(), nil)
	}

	event, err := jc.GetEvent(ctx, id)
	if err != nil {
		if journal.IsNotFound(err) {
			return printer.Error(
				"event not found",
				fmt.Sprintf("No event with ID %s in instance '%s'", id, jc.InstanceName()),
				[]string{"List recent events:\n  vinehill history --since 24h"},
			)
		}
		return fmt.Errorf("failed to read event: %w", err)
	}

	return history.FormatSingleJSON(cmd.OutOrStdout(), event)
}
