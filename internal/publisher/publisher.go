// Package publisher keeps one directory message per category in sync with the catalog.
//
// Each category moves through two states:
//
//	Unpublished --create ok--> Published --edit--> Published
//
// The first successful sync creates the message and remembers its id; every
// later sync edits that message. Flood-wait responses are retried in a bounded
// loop that only blocks the category being published.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dyluth/vinehill/internal/catalog"
)

// PublishState is the lifecycle state of a category's directory message.
type PublishState int

const (
	Unpublished PublishState = iota
	Published
)

func (s PublishState) String() string {
	if s == Published {
		return "published"
	}
	return "unpublished"
}

// Channel binds a category to its destination channel and display title.
type Channel struct {
	Category catalog.Category
	Title    string
	ChatID   int64
}

// Lister supplies the sorted entries of a category.
type Lister interface {
	ListSorted(category catalog.Category) []catalog.Entry
}

// LinkBuilder turns a canonical name into an absolute retrieval URL.
type LinkBuilder interface {
	Link(name string) string
}

// Options tune the retry loop.
type Options struct {
	MaxAttempts int           // Total dispatch attempts per sync, including the first
	RetryUnit   time.Duration // Duration of one RetryAfter unit
}

type channelState struct {
	mu         sync.Mutex // held for the whole sync, including backoff waits
	loaded     bool
	state      PublishState
	messageRef int
}

// Publisher renders and pushes directory messages.
// Syncs for different categories run fully in parallel; syncs for the same
// category are serialized.
type Publisher struct {
	transport Transport
	store     StateStore
	lister    Lister
	links     LinkBuilder
	channels  map[catalog.Category]Channel
	opts      Options

	mu     sync.Mutex
	states map[catalog.Category]*channelState

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a publisher for the given channels. A nil store keeps message
// references in memory only.
func New(transport Transport, store StateStore, lister Lister, links LinkBuilder, channels []Channel, opts Options) *Publisher {
	if store == nil {
		store = NewMemoryStore()
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.RetryUnit <= 0 {
		opts.RetryUnit = time.Second
	}

	byCategory := make(map[catalog.Category]Channel, len(channels))
	for _, ch := range channels {
		byCategory[ch.Category] = ch
	}

	return &Publisher{
		transport: transport,
		store:     store,
		lister:    lister,
		links:     links,
		channels:  byCategory,
		opts:      opts,
		states:    make(map[catalog.Category]*channelState),
		sleep:     sleepCtx,
	}
}

// State reports the current publish state of a category.
func (p *Publisher) State(category catalog.Category) PublishState {
	st := p.stateFor(category)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// Sync renders the category's directory and creates or edits its message.
//
// Flood waits suspend only this category and retry from rendering, so entries
// added during the wait are included. Exceeding the attempt cap returns an
// error wrapping ErrPublishAbandoned. Any other transport error abandons the
// attempt and leaves the directory stale until the next sync. All failures
// are logged; none are fatal.
func (p *Publisher) Sync(ctx context.Context, category catalog.Category) error {
	ch, ok := p.channels[category]
	if !ok {
		return fmt.Errorf("no channel configured for category %q", category)
	}

	st := p.stateFor(category)
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.loaded {
		if err := p.loadState(ctx, category, st); err != nil {
			p.logEvent("publish_failed", map[string]interface{}{
				"category": string(category),
				"attempt":  0,
				"error":    err.Error(),
			})
			return fmt.Errorf("failed to publish %s directory: %w", category, err)
		}
	}

	for attempt := 1; ; attempt++ {
		text := Render(ch.Title, p.lister.ListSorted(category), p.links)

		err := p.dispatch(ctx, ch, st, text)
		if err == nil {
			return nil
		}

		var rl *RateLimitError
		if !errors.As(err, &rl) {
			p.logEvent("publish_failed", map[string]interface{}{
				"category": string(category),
				"attempt":  attempt,
				"error":    err.Error(),
			})
			return fmt.Errorf("failed to publish %s directory: %w", category, err)
		}

		if attempt >= p.opts.MaxAttempts {
			p.logEvent("publish_abandoned", map[string]interface{}{
				"category": string(category),
				"attempts": attempt,
			})
			return fmt.Errorf("%w: %s directory after %d attempts", ErrPublishAbandoned, category, attempt)
		}

		wait := time.Duration(rl.RetryAfter) * p.opts.RetryUnit
		p.logEvent("publish_rate_limited", map[string]interface{}{
			"category":    string(category),
			"attempt":     attempt,
			"retry_after": rl.RetryAfter,
			"wait_ms":     wait.Milliseconds(),
		})
		if err := p.sleep(ctx, wait); err != nil {
			return fmt.Errorf("publish %s interrupted: %w", category, err)
		}
	}
}

// SyncAll syncs every configured category in parallel and returns once all finish.
func (p *Publisher) SyncAll(ctx context.Context) {
	var wg sync.WaitGroup
	for category := range p.channels {
		wg.Add(1)
		go func(category catalog.Category) {
			defer wg.Done()
			if err := p.Sync(ctx, category); err != nil {
				log.Printf("[Publisher] Initial sync of %s failed: %v", category, err)
			}
		}(category)
	}
	wg.Wait()
}

// dispatch issues exactly one create or edit, depending on state.
func (p *Publisher) dispatch(ctx context.Context, ch Channel, st *channelState, text string) error {
	if st.state == Published {
		if err := p.transport.EditMessage(ctx, ch.ChatID, st.messageRef, text); err != nil {
			return err
		}
		p.logEvent("directory_edited", map[string]interface{}{
			"category":   string(ch.Category),
			"message_id": st.messageRef,
		})
		return nil
	}

	messageID, err := p.transport.CreateMessage(ctx, ch.ChatID, text)
	if err != nil {
		return err
	}
	st.messageRef = messageID
	st.state = Published
	st.loaded = true

	if err := p.store.SaveMessageRef(ctx, ch.Category, messageID); err != nil {
		log.Printf("[Publisher] Failed to persist message ref for %s: %v", ch.Category, err)
	}
	p.logEvent("directory_created", map[string]interface{}{
		"category":   string(ch.Category),
		"message_id": messageID,
	})
	return nil
}

// loadState reads the stored message ref once. On error the state stays
// unloaded and nothing may be dispatched, otherwise a create could orphan the
// stored message.
func (p *Publisher) loadState(ctx context.Context, category catalog.Category, st *channelState) error {
	messageID, ok, err := p.store.LoadMessageRef(ctx, category)
	if err != nil {
		return fmt.Errorf("failed to load message ref: %w", err)
	}
	st.loaded = true
	if ok {
		st.messageRef = messageID
		st.state = Published
	}
	return nil
}

func (p *Publisher) stateFor(category catalog.Category) *channelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.states[category]
	if !ok {
		st = &channelState{}
		p.states[category] = st
	}
	return st
}

// MaxMessageLength is Telegram's per-message text limit in characters.
const MaxMessageLength = 4096

// moreReserve leaves room for the trailing "...and N more" line.
const moreReserve = 32

// Render produces the HTML directory text for a category. Lines that would
// push the text past MaxMessageLength are dropped and counted in a final
// "...and N more" line; the full list stays reachable through search.
func Render(title string, entries []catalog.Entry, links LinkBuilder) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No %s files available yet.", title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available %s Files:", title)
	length := utf8.RuneCountInString(b.String())

	for i, e := range entries {
		line := fmt.Sprintf("\n<a href=\"%s\">%s</a>", html.EscapeString(links.Link(e.Name)), html.EscapeString(e.Name))
		n := utf8.RuneCountInString(line)

		limit := MaxMessageLength
		if i < len(entries)-1 {
			limit -= moreReserve
		}
		if length+n > limit {
			fmt.Fprintf(&b, "\n...and %d more", len(entries)-i)
			break
		}
		b.WriteString(line)
		length += n
	}
	return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// logEvent logs a structured event in JSON format.
func (p *Publisher) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	if eventType == "publish_failed" || eventType == "publish_abandoned" {
		data["level"] = "error"
	}
	data["component"] = "publisher"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Publisher] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
