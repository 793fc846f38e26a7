package telegram

import (
	"context"
	"errors"
	"log"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dyluth/vinehill/internal/catalog"
	"github.com/dyluth/vinehill/internal/engine"
)

// Handler is the engine surface the update loop drives.
type Handler interface {
	Ingest(ctx context.Context, up engine.Upload) (catalog.Entry, error)
	HandleStart(ctx context.Context, req engine.Request, arg string) error
	HandleGetFile(ctx context.Context, req engine.Request, query string) error
	HandleSearch(ctx context.Context, req engine.Request, query string) error
	HandleInline(ctx context.Context, queryID, query string) error
}

// Bot long-polls updates and routes them to a Handler.
type Bot struct {
	api          botAPI
	handler      Handler
	intakeChatID int64
	pollTimeout  int

	wg sync.WaitGroup
}

// NewBot creates an update loop on top of client's connection.
func NewBot(client *Client, handler Handler, intakeChatID int64) *Bot {
	return &Bot{
		api:          client.api,
		handler:      handler,
		intakeChatID: intakeChatID,
		pollTimeout:  60,
	}
}

// Run processes updates until ctx is cancelled, then waits for in-flight
// handlers to finish. Each update is handled on its own goroutine.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	u.AllowedUpdates = []string{"message", "channel_post", "inline_query"}

	updates := b.api.GetUpdatesChan(u)
	log.Printf("[INFO] Bot started, intake chat %d", b.intakeChatID)

	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[INFO] Bot shutting down...")
			b.api.StopReceivingUpdates()
			return nil

		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer b.wg.Done()
				b.dispatch(ctx, update)
			}(update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	if q := update.InlineQuery; q != nil {
		if err := b.handler.HandleInline(ctx, q.ID, q.Query); err != nil {
			log.Printf("[Bot] Inline query %s failed: %v", q.ID, err)
		}
		return
	}

	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || msg.Chat == nil {
		return
	}

	if msg.Chat.ID == b.intakeChatID {
		b.ingest(ctx, msg)
		return
	}

	if msg.From == nil {
		return
	}
	req := engine.Request{ChatID: msg.Chat.ID, UserID: msg.From.ID}

	var err error
	switch {
	case msg.IsCommand():
		switch msg.Command() {
		case "start":
			err = b.handler.HandleStart(ctx, req, msg.CommandArguments())
		case "getfile":
			err = b.handler.HandleGetFile(ctx, req, msg.CommandArguments())
		case "search":
			err = b.handler.HandleSearch(ctx, req, msg.CommandArguments())
		default:
			return
		}
	case msg.Chat.IsPrivate() && msg.Text != "":
		err = b.handler.HandleSearch(ctx, req, msg.Text)
	default:
		return
	}

	if err != nil {
		log.Printf("[Bot] Request from user %d failed: %v", req.UserID, err)
	}
}

func (b *Bot) ingest(ctx context.Context, msg *tgbotapi.Message) {
	up, ok := ExtractUpload(msg)
	if !ok {
		return
	}

	if _, err := b.handler.Ingest(ctx, up); err != nil {
		if errors.Is(err, engine.ErrEmptyFileName) {
			return
		}
		log.Printf("[Bot] Upload %q not stored: %v", up.RawFileName, err)
	}
}

// ExtractUpload pulls the filename and file id out of a document, video or
// audio message. Anything else, or a file without a name, is not an upload.
// Forwarded files are labelled with the chat they were forwarded from.
func ExtractUpload(msg *tgbotapi.Message) (engine.Upload, bool) {
	var name, fileID string
	switch {
	case msg.Document != nil:
		name, fileID = msg.Document.FileName, msg.Document.FileID
	case msg.Video != nil:
		name, fileID = msg.Video.FileName, msg.Video.FileID
	case msg.Audio != nil:
		name, fileID = msg.Audio.FileName, msg.Audio.FileID
	default:
		return engine.Upload{}, false
	}
	if name == "" || fileID == "" {
		return engine.Upload{}, false
	}

	label := ""
	if msg.Chat != nil {
		label = msg.Chat.Title
	}
	if msg.ForwardFromChat != nil && msg.ForwardFromChat.Title != "" {
		label = msg.ForwardFromChat.Title
	}

	up := engine.Upload{
		RawFileName: name,
		SourceLabel: label,
		FileRef:     catalog.FileRef(fileID),
	}
	if msg.Chat != nil {
		up.ChatID = msg.Chat.ID
	}
	return up, true
}
