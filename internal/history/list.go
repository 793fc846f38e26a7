// Package history renders the catalog event journal for the CLI.
package history

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dyluth/vinehill/pkg/journal"
)

// OutputFormat specifies how to format history output.
type OutputFormat string

const (
	// OutputFormatDefault is a human-readable table
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL is one JSON event per line
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseFormat accepts "default", "table" or "jsonl".
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "", "default", "table":
		return OutputFormatDefault, nil
	case "jsonl":
		return OutputFormatJSONL, nil
	}
	return "", fmt.Errorf("unsupported output format %q (use table or jsonl)", s)
}

// Source is where events are read from. *journal.Client implements it.
type Source interface {
	ListEvents(ctx context.Context, sinceMs, untilMs int64) ([]*journal.Event, error)
}

// FilterCriteria narrows the listed events. All filters are ANDed together.
type FilterCriteria struct {
	SinceTimestampMs int64  // 0 = no lower bound
	UntilTimestampMs int64  // 0 = no upper bound
	Category         string // exact match, empty = any
	NameGlob         string // glob against the canonical name, empty = any
}

// Matches reports whether e passes the category and name filters.
// Time bounds are applied by the Source.
func (fc *FilterCriteria) Matches(e *journal.Event) bool {
	if fc.Category != "" && e.Category != fc.Category {
		return false
	}
	if fc.NameGlob != "" {
		matched, err := filepath.Match(fc.NameGlob, e.Name)
		if err != nil || !matched {
			return false
		}
	}
	return true
}

// List reads events in the filter's time range, oldest first, and writes them in format.
func List(ctx context.Context, src Source, instanceName string, format OutputFormat, filters *FilterCriteria, w io.Writer) error {
	if filters == nil {
		filters = &FilterCriteria{}
	}

	events, err := src.ListEvents(ctx, filters.SinceTimestampMs, filters.UntilTimestampMs)
	if err != nil {
		return fmt.Errorf("failed to read catalog events: %w", err)
	}

	kept := events[:0]
	for _, e := range events {
		if filters.Matches(e) {
			kept = append(kept, e)
		}
	}

	if format == OutputFormatJSONL {
		return FormatJSONL(w, kept)
	}
	FormatTable(w, kept, instanceName)
	return nil
}
