// Package engine routes uploads and retrieval requests through the catalog.
//
// Uploads run classify, upsert and publish inside a lane owned by the
// resulting category, so two uploads to the same category can never
// interleave an upsert with the other's directory sync. Different
// categories never share a lane.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/vinehill/internal/catalog"
	"github.com/dyluth/vinehill/internal/classify"
	"github.com/dyluth/vinehill/internal/deeplink"
	"github.com/dyluth/vinehill/pkg/journal"
)

// ErrEmptyFileName is returned for uploads that carry no usable filename.
var ErrEmptyFileName = errors.New("upload has no filename")

// Upload is one media message seen in the intake chat.
type Upload struct {
	RawFileName string
	SourceLabel string // display title of the originating chat
	FileRef     catalog.FileRef
	ChatID      int64 // where the acknowledgement is sent
}

// Syncer pushes a category's directory to its channel.
type Syncer interface {
	Sync(ctx context.Context, category catalog.Category) error
}

// Authorizer decides whether a user may receive files.
type Authorizer interface {
	IsAuthorized(ctx context.Context, userID int64) bool
}

// Recorder appends catalog events to an audit journal.
type Recorder interface {
	RecordEvent(ctx context.Context, e *journal.Event) error
}

// LinkBuilder turns a canonical name into an absolute retrieval URL.
type LinkBuilder interface {
	Link(name string) string
}

// Engine wires the catalog components to a chat responder.
type Engine struct {
	classifier *classify.Classifier
	catalog    *catalog.Catalog
	publisher  Syncer
	gate       Authorizer
	links      LinkBuilder
	responder  Responder
	recorder   Recorder // optional

	lanes map[catalog.Category]*sync.Mutex
}

// Deps groups the collaborators an Engine needs. Recorder may be nil.
type Deps struct {
	Classifier *classify.Classifier
	Catalog    *catalog.Catalog
	Publisher  Syncer
	Gate       Authorizer
	Links      LinkBuilder
	Responder  Responder
	Recorder   Recorder
}

// New creates an engine with one lane per catalog category.
func New(d Deps) *Engine {
	lanes := make(map[catalog.Category]*sync.Mutex)
	for _, cat := range d.Catalog.Categories() {
		lanes[cat] = &sync.Mutex{}
	}

	return &Engine{
		classifier: d.Classifier,
		catalog:    d.Catalog,
		publisher:  d.Publisher,
		gate:       d.Gate,
		links:      d.Links,
		responder:  d.Responder,
		recorder:   d.Recorder,
		lanes:      lanes,
	}
}

// Ingest classifies an upload, stores it and republishes its category.
//
// A failed publish or journal write is logged and does not fail the ingest:
// the entry is already in the catalog and the next sync will pick it up.
// The upload is acknowledged in its chat with the canonical name.
func (e *Engine) Ingest(ctx context.Context, up Upload) (catalog.Entry, error) {
	if strings.TrimSpace(up.RawFileName) == "" {
		return catalog.Entry{}, ErrEmptyFileName
	}

	res := e.classifier.Classify(up.RawFileName, up.SourceLabel)

	lane, ok := e.lanes[res.Category]
	if !ok {
		log.Printf("[Engine] Dropping %q: category %s is not configured", up.RawFileName, res.Category)
		return catalog.Entry{}, fmt.Errorf("%w: %s", catalog.ErrUnknownCategory, res.Category)
	}

	lane.Lock()
	entry, err := e.catalog.Upsert(res.Category, res.Name, up.FileRef)
	if err != nil {
		lane.Unlock()
		return catalog.Entry{}, fmt.Errorf("failed to store %q: %w", res.Name, err)
	}

	e.logEvent("entry_upserted", map[string]interface{}{
		"category":      string(entry.Category),
		"name":          entry.Name,
		"source":        up.RawFileName,
		"link_passable": deeplink.Passable(deeplink.StartPrefix + deeplink.Encode(entry.Name)),
	})

	if err := e.publisher.Sync(ctx, res.Category); err != nil {
		log.Printf("[Engine] Directory for %s left stale: %v", res.Category, err)
	}
	lane.Unlock()

	e.record(ctx, entry, up.RawFileName)

	if up.ChatID != 0 {
		if err := e.responder.SendText(ctx, up.ChatID, "File saved as: "+entry.Name); err != nil {
			log.Printf("[Engine] Failed to acknowledge upload %q: %v", entry.Name, err)
		}
	}

	return entry, nil
}

func (e *Engine) record(ctx context.Context, entry catalog.Entry, rawName string) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordEvent(ctx, journal.NewEvent(entry, rawName)); err != nil {
		log.Printf("[Engine] Failed to journal %q: %v", entry.Name, err)
	}
}

// logEvent logs a structured event in JSON format.
func (e *Engine) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "engine"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Engine] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
