package journal

import (
	"fmt"

	"github.com/dyluth/vinehill/internal/catalog"
	"github.com/google/uuid"
)

// Event records one catalog upsert.
type Event struct {
	ID        string `json:"id"`          // UUID - unique per event
	EntryID   string `json:"entry_id"`    // UUID of the catalog entry version written
	Category  string `json:"category"`    // Category the entry was filed under
	Name      string `json:"name"`        // Canonical name
	FileRef   string `json:"file_ref"`    // Transport file handle
	Source    string `json:"source"`      // Original filename as uploaded
	AddedAtMs int64  `json:"added_at_ms"` // Unix milliseconds of the upsert
}

// NewEvent builds an event for a freshly upserted entry.
func NewEvent(e catalog.Entry, rawName string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		EntryID:   e.ID,
		Category:  string(e.Category),
		Name:      e.Name,
		FileRef:   string(e.FileRef),
		Source:    rawName,
		AddedAtMs: e.AddedAt.UnixMilli(),
	}
}

// Validate checks if the Event has valid field values.
func (e *Event) Validate() error {
	if !isValidUUID(e.ID) {
		return fmt.Errorf("invalid event ID: not a valid UUID")
	}

	if e.EntryID != "" && !isValidUUID(e.EntryID) {
		return fmt.Errorf("invalid entry ID: not a valid UUID")
	}

	if !catalog.Known(catalog.Category(e.Category)) {
		return fmt.Errorf("unknown category: %q", e.Category)
	}

	if e.Name == "" {
		return fmt.Errorf("event name cannot be empty")
	}

	if e.AddedAtMs <= 0 {
		return fmt.Errorf("invalid added_at_ms: must be > 0, got %d", e.AddedAtMs)
	}

	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
