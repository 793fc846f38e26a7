package history

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/vinehill/pkg/journal"
)

// FormatTable writes events as a table with columns ID, CATEGORY, AGE and NAME.
// Returns the number of events written.
func FormatTable(w io.Writer, events []*journal.Event, instanceName string) int {
	if len(events) == 0 {
		fmt.Fprintf(w, "No catalog events found for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Catalog events for instance '%s':\n\n", instanceName)

	fmt.Fprintf(w, "%-10s %-9s %-8s %s\n", "ID", "CATEGORY", "AGE", "NAME")
	fmt.Fprintf(w, "%-10s %-9s %-8s %s\n",
		"----------", "---------", "--------", "----------------------------------------")

	for _, e := range events {
		fmt.Fprintf(w, "%-10s %-9s %-8s %s\n",
			formatID(e.ID),
			e.Category,
			formatAge(e.AddedAtMs, time.Now()),
			formatName(e.Name),
		)
	}

	noun := "event"
	if len(events) != 1 {
		noun = "events"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(events), noun)

	return len(events)
}

// FormatJSONL writes one compact JSON object per event, suitable for jq.
func FormatJSONL(w io.Writer, events []*journal.Event) error {
	for _, e := range events {
		if err := writeJSONLine(w, e); err != nil {
			return err
		}
	}
	return nil
}

// FormatWatchLine writes a single live event as a one-line summary.
func FormatWatchLine(w io.Writer, e *journal.Event) {
	ts := time.UnixMilli(e.AddedAtMs).Format("15:04:05")
	fmt.Fprintf(w, "[%s] %-8s %s\n", ts, e.Category, e.Name)
}

func writeJSONLine(w io.Writer, e *journal.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event to JSON: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write JSONL output: %w", err)
	}
	return nil
}

// formatID truncates an event ID to its first 8 characters.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatName truncates long names to 60 characters.
func formatName(name string) string {
	r := []rune(name)
	if len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return name
}

// formatAge renders a millisecond timestamp relative to now: "12s ago", "3h ago".
func formatAge(timestampMs int64, now time.Time) string {
	if timestampMs == 0 {
		return "-"
	}

	diff := now.Sub(time.UnixMilli(timestampMs))
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

// FormatSingleJSON writes one event as indented JSON.
func FormatSingleJSON(w io.Writer, e *journal.Event) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal event to JSON: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}
