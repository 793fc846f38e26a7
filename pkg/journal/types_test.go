package journal

import (
	"testing"
	"time"

	"github.com/dyluth/vinehill/internal/catalog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	entry := catalog.Entry{
		ID:       uuid.New().String(),
		Name:     "Some Game VINEHILL",
		Category: catalog.Games,
		FileRef:  "file-1",
		AddedAt:  time.UnixMilli(1700000000123),
	}

	event := NewEvent(entry, "VINEHILLGAMES_Some_Game.zip")
	require.NoError(t, event.Validate())
	assert.Equal(t, entry.ID, event.EntryID)
	assert.Equal(t, "games", event.Category)
	assert.Equal(t, "VINEHILLGAMES_Some_Game.zip", event.Source)
	assert.Equal(t, int64(1700000000123), event.AddedAtMs)
}

func TestEventValidate(t *testing.T) {
	valid := func() *Event { return testEvent("Valid VINEHILL", 1000) }

	tests := []struct {
		name   string
		mutate func(e *Event)
		errMsg string
	}{
		{"bad id", func(e *Event) { e.ID = "nope" }, "invalid event ID"},
		{"bad entry id", func(e *Event) { e.EntryID = "nope" }, "invalid entry ID"},
		{"unknown category", func(e *Event) { e.Category = "books" }, "unknown category"},
		{"empty name", func(e *Event) { e.Name = "" }, "name cannot be empty"},
		{"zero timestamp", func(e *Event) { e.AddedAtMs = 0 }, "invalid added_at_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid()
			tt.mutate(e)
			err := e.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	assert.NoError(t, valid().Validate())
}

func TestHashToEvent_BadTimestamp(t *testing.T) {
	_, err := HashToEvent(map[string]string{"id": uuid.New().String(), "added_at_ms": "soon"})
	assert.Error(t, err)
}

func TestSchemaKeys(t *testing.T) {
	assert.Equal(t, "vinehill:prod:event:abc", EventKey("prod", "abc"))
	assert.Equal(t, "vinehill:prod:events", EventIndexKey("prod"))
	assert.Equal(t, "vinehill:prod:directory:tvseries", DirectoryKey("prod", "tvseries"))
	assert.Equal(t, "vinehill:prod:catalog_events", CatalogEventsChannel("prod"))
}
