// Package catalog holds the in-memory index of every file the bot knows about.
//
// Entries are keyed by category and canonical name. Each category is an
// independent shard with its own lock, so uploads to different categories
// never contend. The catalog lives for the lifetime of the process and is
// never persisted.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Category identifies a content bucket that has its own directory channel.
type Category string

const (
	Games    Category = "games"
	Music    Category = "music"
	Movies   Category = "movies"
	TVSeries Category = "tvseries"
)

// Known reports whether c is one of the supported categories.
func Known(c Category) bool {
	switch c {
	case Games, Music, Movies, TVSeries:
		return true
	default:
		return false
	}
}

// FileRef is the transport's opaque handle for stored file bytes.
type FileRef string

// Entry is a single catalogued file.
type Entry struct {
	ID       string    `json:"id"` // Changes on every overwrite
	Name     string    `json:"name"`
	Category Category  `json:"category"`
	FileRef  FileRef   `json:"file_ref"`
	AddedAt  time.Time `json:"added_at"`
}

// ErrUnknownCategory is returned when an operation names a category the catalog does not track.
var ErrUnknownCategory = errors.New("unknown category")

type shard struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// Catalog maps category -> canonical name -> entry.
// It is safe for concurrent use. The category set is fixed at construction.
type Catalog struct {
	order  []Category
	shards map[Category]*shard
	now    func() time.Time
}

// New creates an empty catalog tracking the given categories.
// Iteration order for cross-category operations follows the order given here.
// Unknown or duplicate categories are skipped.
func New(categories []Category) *Catalog {
	c := &Catalog{
		shards: make(map[Category]*shard, len(categories)),
		now:    time.Now,
	}
	for _, cat := range categories {
		if !Known(cat) {
			continue
		}
		if _, dup := c.shards[cat]; dup {
			continue
		}
		c.order = append(c.order, cat)
		c.shards[cat] = &shard{entries: make(map[string]Entry)}
	}
	return c
}

// Categories returns the tracked categories in configured order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.order))
	copy(out, c.order)
	return out
}

// Upsert inserts or overwrites the entry for (category, name). Last write wins:
// an overwrite replaces the file reference and timestamp under the same key.
func (c *Catalog) Upsert(category Category, name string, ref FileRef) (Entry, error) {
	s, ok := c.shards[category]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	entry := Entry{
		ID:       uuid.New().String(),
		Name:     name,
		Category: category,
		FileRef:  ref,
		AddedAt:  c.now(),
	}

	s.mu.Lock()
	s.entries[name] = entry
	s.mu.Unlock()

	return entry, nil
}

// Lookup returns the entry for (category, name).
func (c *Catalog) Lookup(category Category, name string) (Entry, bool) {
	s, ok := c.shards[category]
	if !ok {
		return Entry{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	return e, ok
}

// LookupAcrossCategories finds name in the first category (configured order) that has it.
func (c *Catalog) LookupAcrossCategories(name string) (Entry, bool) {
	for _, cat := range c.order {
		if e, ok := c.Lookup(cat, name); ok {
			return e, true
		}
	}
	return Entry{}, false
}

// Search returns every entry whose name contains query, case-insensitively.
// The result has no guaranteed order.
func (c *Catalog) Search(query string) []Entry {
	q := strings.ToLower(query)
	var out []Entry
	for _, cat := range c.order {
		s := c.shards[cat]
		s.mu.RLock()
		for name, e := range s.entries {
			if strings.Contains(strings.ToLower(name), q) {
				out = append(out, e)
			}
		}
		s.mu.RUnlock()
	}
	return out
}

// ListSorted returns the category's entries ordered by name ascending.
func (c *Catalog) ListSorted(category Category) []Entry {
	s, ok := c.shards[category]
	if !ok {
		return nil
	}
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()

	SortByName(out)
	return out
}

// Len returns the total number of entries across all categories.
func (c *Catalog) Len() int {
	n := 0
	for _, cat := range c.order {
		s := c.shards[cat]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// SortByName orders entries by name, breaking ties by category.
func SortByName(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Category < entries[j].Category
	})
}
