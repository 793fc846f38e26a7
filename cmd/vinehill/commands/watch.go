package commands

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyluth/vinehill/internal/history"
	"github.com/dyluth/vinehill/internal/printer"
	"github.com/dyluth/vinehill/pkg/journal"
)

var watchOutput string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream catalog events as they happen",
	Long: `Stream catalog events from a running bot until interrupted.

Delivery is best-effort: events published while watch is not connected are
not replayed. Use 'vinehill history' for those.

Examples:
  vinehill watch
  vinehill watch -o jsonl | jq .name`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "table", "Output format (table or jsonl)")
	addJournalFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := history.ParseFormat(watchOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: table, jsonl"})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jc, err := openJournal(ctx)
	if err != nil {
		return err
	}
	defer jc.Close()

	sub, err := jc.SubscribeCatalogEvents(ctx)
	if err != nil {
		return printer.Error("subscription failed", err.Error(), nil)
	}
	defer sub.Close()

	if format == history.OutputFormatDefault {
		printer.Step("Watching catalog events for instance '%s' (Ctrl+C to stop)\n", jc.InstanceName())
	}

	out := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if format == history.OutputFormatJSONL {
				if err := history.FormatJSONL(out, []*journal.Event{event}); err != nil {
					return err
				}
				continue
			}
			history.FormatWatchLine(out, event)

		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			log.Printf("[WARN] Skipping malformed event: %v", err)
		}
	}
}
