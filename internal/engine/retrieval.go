package engine

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/dyluth/vinehill/internal/catalog"
	"github.com/dyluth/vinehill/internal/deeplink"
)

// User-visible replies.
const (
	MsgWelcome        = "Send /search <name> to find files, or open a link from one of the directory channels."
	MsgDenied         = "You must join all required groups to access files."
	MsgNotFound       = "Requested file not found."
	MsgNoMatches      = "No matching files found."
	MsgCatalogEmpty   = "No files available yet."
	MsgSearchUsage    = "Usage: /search <part of a name>"
	MsgGetFileUsage   = "Usage: /getfile <part of a name>"
	InlinePlaceholder = "No files available"
)

// maxInlineResults is the most results an inline answer may carry.
const maxInlineResults = 50

// Responder sends replies back through the chat transport.
type Responder interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendHTML(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, ref catalog.FileRef, caption string) error
	AnswerInline(ctx context.Context, queryID string, results []InlineResult) error
}

// InlineResult is one entry of an inline query answer.
// An empty URL marks the placeholder shown when nothing matches.
type InlineResult struct {
	ID    string
	Title string
	URL   string
}

// Request identifies who asked for something and where to answer.
type Request struct {
	ChatID int64
	UserID int64
}

// HandleStart serves /start. An argument of the form "file=<token>" asks for
// a specific file; anything else gets the welcome text.
func (e *Engine) HandleStart(ctx context.Context, req Request, arg string) error {
	token, ok := deeplink.ParseStart(arg)
	if !ok {
		return e.responder.SendText(ctx, req.ChatID, MsgWelcome)
	}

	name := deeplink.Decode(token)
	entry, found := e.catalog.LookupAcrossCategories(name)
	if !found {
		return e.responder.SendText(ctx, req.ChatID, MsgNotFound)
	}

	return e.deliver(ctx, req, entry)
}

// HandleGetFile serves /getfile <query>: the first name-sorted match is sent.
func (e *Engine) HandleGetFile(ctx context.Context, req Request, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return e.responder.SendText(ctx, req.ChatID, MsgGetFileUsage)
	}

	if !e.authorize(ctx, req) {
		return e.responder.SendText(ctx, req.ChatID, MsgDenied)
	}

	matches, empty := e.search(query)
	if empty {
		return e.responder.SendText(ctx, req.ChatID, MsgCatalogEmpty)
	}
	if len(matches) == 0 {
		return e.responder.SendText(ctx, req.ChatID, MsgNoMatches)
	}

	return e.sendDocument(ctx, req, matches[0])
}

// HandleSearch lists matching names as retrieval links. Listing is not gated;
// the links themselves are checked when opened.
func (e *Engine) HandleSearch(ctx context.Context, req Request, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return e.responder.SendText(ctx, req.ChatID, MsgSearchUsage)
	}

	matches, empty := e.search(query)
	if empty {
		return e.responder.SendText(ctx, req.ChatID, MsgCatalogEmpty)
	}
	if len(matches) == 0 {
		return e.responder.SendText(ctx, req.ChatID, MsgNoMatches)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d:", len(matches))
	for _, m := range matches {
		fmt.Fprintf(&b, "\n<a href=\"%s\">%s</a>", html.EscapeString(e.links.Link(m.Name)), html.EscapeString(m.Name))
	}
	return e.responder.SendHTML(ctx, req.ChatID, b.String())
}

// HandleInline answers an inline query with link-bearing results.
func (e *Engine) HandleInline(ctx context.Context, queryID, query string) error {
	matches, _ := e.search(strings.TrimSpace(query))

	results := make([]InlineResult, 0, len(matches))
	for i, m := range matches {
		if i == maxInlineResults {
			break
		}
		results = append(results, InlineResult{
			ID:    fmt.Sprintf("%s-%d", m.Category, i),
			Title: m.Name,
			URL:   e.links.Link(m.Name),
		})
	}
	if len(results) == 0 {
		results = append(results, InlineResult{ID: "none", Title: InlinePlaceholder})
	}

	return e.responder.AnswerInline(ctx, queryID, results)
}

// search returns name-sorted matches and whether the catalog is empty.
func (e *Engine) search(query string) ([]catalog.Entry, bool) {
	if e.catalog.Len() == 0 {
		return nil, true
	}
	matches := e.catalog.Search(query)
	catalog.SortByName(matches)
	return matches, false
}

func (e *Engine) deliver(ctx context.Context, req Request, entry catalog.Entry) error {
	if !e.authorize(ctx, req) {
		return e.responder.SendText(ctx, req.ChatID, MsgDenied)
	}
	return e.sendDocument(ctx, req, entry)
}

func (e *Engine) authorize(ctx context.Context, req Request) bool {
	if e.gate.IsAuthorized(ctx, req.UserID) {
		return true
	}
	e.logEvent("access_denied", map[string]interface{}{
		"user_id": req.UserID,
		"chat_id": req.ChatID,
	})
	return false
}

func (e *Engine) sendDocument(ctx context.Context, req Request, entry catalog.Entry) error {
	if err := e.responder.SendDocument(ctx, req.ChatID, entry.FileRef, entry.Name); err != nil {
		log.Printf("[Engine] Failed to deliver %q to %d: %v", entry.Name, req.ChatID, err)
		return fmt.Errorf("failed to deliver %q: %w", entry.Name, err)
	}
	e.logEvent("file_delivered", map[string]interface{}{
		"user_id":  req.UserID,
		"category": string(entry.Category),
		"name":     entry.Name,
	})
	return nil
}
