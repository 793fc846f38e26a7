package journal

import (
	"fmt"
	"strconv"
)

// EventToHash converts an Event to a Redis hash.
func EventToHash(e *Event) map[string]interface{} {
	return map[string]interface{}{
		"id":          e.ID,
		"entry_id":    e.EntryID,
		"category":    e.Category,
		"name":        e.Name,
		"file_ref":    e.FileRef,
		"source":      e.Source,
		"added_at_ms": e.AddedAtMs,
	}
}

// HashToEvent converts a Redis hash back to an Event.
func HashToEvent(hash map[string]string) (*Event, error) {
	addedAtMs, err := strconv.ParseInt(hash["added_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid added_at_ms field: %w", err)
	}

	return &Event{
		ID:        hash["id"],
		EntryID:   hash["entry_id"],
		Category:  hash["category"],
		Name:      hash["name"],
		FileRef:   hash["file_ref"],
		Source:    hash["source"],
		AddedAtMs: addedAtMs,
	}, nil
}
