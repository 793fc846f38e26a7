package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dyluth/vinehill/internal/catalog"
)

// Transport creates and edits directory messages in a channel.
//
// Implementations signal flood control by returning an error that unwraps to
// *RateLimitError. Any other error is treated as a permanent failure for the
// current publish attempt.
type Transport interface {
	CreateMessage(ctx context.Context, channelID int64, text string) (messageID int, err error)
	EditMessage(ctx context.Context, channelID int64, messageID int, text string) error
}

// RateLimitError asks the caller to retry after RetryAfter units.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %d", e.RetryAfter)
}

// ErrPublishAbandoned is returned when a directory could not be published
// within the configured number of attempts.
var ErrPublishAbandoned = errors.New("publish abandoned")

// StateStore remembers which message holds each category's directory.
type StateStore interface {
	LoadMessageRef(ctx context.Context, category catalog.Category) (messageID int, ok bool, err error)
	SaveMessageRef(ctx context.Context, category catalog.Category, messageID int) error
}

// MemoryStore is a process-local StateStore.
type MemoryStore struct {
	mu   sync.Mutex
	refs map[catalog.Category]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{refs: make(map[catalog.Category]int)}
}

func (m *MemoryStore) LoadMessageRef(_ context.Context, category catalog.Category) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.refs[category]
	return id, ok, nil
}

func (m *MemoryStore) SaveMessageRef(_ context.Context, category catalog.Category, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[category] = messageID
	return nil
}
