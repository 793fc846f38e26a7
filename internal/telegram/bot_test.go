package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/vinehill/internal/catalog"
	"github.com/dyluth/vinehill/internal/engine"
)

type call struct {
	kind string
	req  engine.Request
	arg  string
}

type fakeHandler struct {
	mu      sync.Mutex
	calls   []call
	uploads []engine.Upload
}

func (f *fakeHandler) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeHandler) Ingest(_ context.Context, up engine.Upload) (catalog.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, up)
	return catalog.Entry{}, nil
}

func (f *fakeHandler) HandleStart(_ context.Context, req engine.Request, arg string) error {
	f.record(call{"start", req, arg})
	return nil
}

func (f *fakeHandler) HandleGetFile(_ context.Context, req engine.Request, query string) error {
	f.record(call{"getfile", req, query})
	return nil
}

func (f *fakeHandler) HandleSearch(_ context.Context, req engine.Request, query string) error {
	f.record(call{"search", req, query})
	return nil
}

func (f *fakeHandler) HandleInline(_ context.Context, queryID, query string) error {
	f.record(call{"inline", engine.Request{}, queryID + ":" + query})
	return nil
}

const intakeID = -100500

func newTestBot() (*Bot, *fakeHandler) {
	h := &fakeHandler{}
	return &Bot{api: &fakeAPI{}, handler: h, intakeChatID: intakeID}, h
}

func command(chat *tgbotapi.Chat, text, cmd string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: 42},
		Chat: chat,
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(cmd) + 1},
		},
	}
}

func TestExtractUpload(t *testing.T) {
	intake := &tgbotapi.Chat{ID: intakeID, Title: "VINEHILL Intake"}

	t.Run("document", func(t *testing.T) {
		up, ok := ExtractUpload(&tgbotapi.Message{
			Chat:     intake,
			Document: &tgbotapi.Document{FileID: "doc-1", FileName: "Show_Name.S01E02.720p.mkv"},
		})
		require.True(t, ok)
		assert.Equal(t, "Show_Name.S01E02.720p.mkv", up.RawFileName)
		assert.Equal(t, catalog.FileRef("doc-1"), up.FileRef)
		assert.Equal(t, "VINEHILL Intake", up.SourceLabel)
		assert.Equal(t, int64(intakeID), up.ChatID)
	})

	t.Run("video and audio", func(t *testing.T) {
		_, ok := ExtractUpload(&tgbotapi.Message{Chat: intake, Video: &tgbotapi.Video{FileID: "v", FileName: "clip.mp4"}})
		assert.True(t, ok)
		_, ok = ExtractUpload(&tgbotapi.Message{Chat: intake, Audio: &tgbotapi.Audio{FileID: "a", FileName: "song.mp3"}})
		assert.True(t, ok)
	})

	t.Run("forwarded label wins", func(t *testing.T) {
		up, ok := ExtractUpload(&tgbotapi.Message{
			Chat:            intake,
			ForwardFromChat: &tgbotapi.Chat{ID: -7, Title: "VINEHILL GAMES"},
			Document:        &tgbotapi.Document{FileID: "d", FileName: "VINEHILLGAMES_Thing.zip"},
		})
		require.True(t, ok)
		assert.Equal(t, "VINEHILL GAMES", up.SourceLabel)
	})

	t.Run("empty filename ignored", func(t *testing.T) {
		_, ok := ExtractUpload(&tgbotapi.Message{Chat: intake, Document: &tgbotapi.Document{FileID: "d"}})
		assert.False(t, ok)
	})

	t.Run("text ignored", func(t *testing.T) {
		_, ok := ExtractUpload(&tgbotapi.Message{Chat: intake, Text: "hello"})
		assert.False(t, ok)
	})
}

func TestDispatch(t *testing.T) {
	private := &tgbotapi.Chat{ID: 42, Type: "private"}
	group := &tgbotapi.Chat{ID: -300, Type: "supergroup"}
	ctx := context.Background()

	t.Run("intake upload via channel post", func(t *testing.T) {
		b, h := newTestBot()
		b.dispatch(ctx, tgbotapi.Update{ChannelPost: &tgbotapi.Message{
			Chat:     &tgbotapi.Chat{ID: intakeID, Type: "channel"},
			Document: &tgbotapi.Document{FileID: "d", FileName: "random.bin"},
		}})
		require.Len(t, h.uploads, 1)
		assert.Equal(t, "random.bin", h.uploads[0].RawFileName)
	})

	t.Run("uploads elsewhere are ignored", func(t *testing.T) {
		b, h := newTestBot()
		b.dispatch(ctx, tgbotapi.Update{Message: &tgbotapi.Message{
			From:     &tgbotapi.User{ID: 42},
			Chat:     group,
			Document: &tgbotapi.Document{FileID: "d", FileName: "random.bin"},
		}})
		assert.Empty(t, h.uploads)
		assert.Empty(t, h.calls)
	})

	t.Run("start with deep link", func(t *testing.T) {
		b, h := newTestBot()
		b.dispatch(ctx, tgbotapi.Update{Message: command(private, "/start file=Best%20Album", "start")})
		require.Len(t, h.calls, 1)
		assert.Equal(t, call{"start", engine.Request{ChatID: 42, UserID: 42}, "file=Best%20Album"}, h.calls[0])
	})

	t.Run("getfile in a group", func(t *testing.T) {
		b, h := newTestBot()
		b.dispatch(ctx, tgbotapi.Update{Message: command(group, "/getfile movie", "getfile")})
		require.Len(t, h.calls, 1)
		assert.Equal(t, "getfile", h.calls[0].kind)
		assert.Equal(t, "movie", h.calls[0].arg)
		assert.Equal(t, int64(-300), h.calls[0].req.ChatID)
	})

	t.Run("search command", func(t *testing.T) {
		b, h := newTestBot()
		b.dispatch(ctx, tgbotapi.Update{Message: command(private, "/search album", "search")})
		require.Len(t, h.calls, 1)
		assert.Equal(t, "search", h.calls[0].kind)
		assert.Equal(t, "album", h.calls[0].arg)
	})

	t.Run("plain private text searches", func(t *testing.T) {
		b, h := newTestBot()
		b.dispatch(ctx, tgbotapi.Update{Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 42}, Chat: private, Text: "album"}})
		require.Len(t, h.calls, 1)
		assert.Equal(t, call{"search", engine.Request{ChatID: 42, UserID: 42}, "album"}, h.calls[0])
	})

	t.Run("plain group text ignored", func(t *testing.T) {
		b, h := newTestBot()
		b.dispatch(ctx, tgbotapi.Update{Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 42}, Chat: group, Text: "album"}})
		assert.Empty(t, h.calls)
	})

	t.Run("unknown command ignored", func(t *testing.T) {
		b, h := newTestBot()
		b.dispatch(ctx, tgbotapi.Update{Message: command(private, "/help", "help")})
		assert.Empty(t, h.calls)
	})

	t.Run("inline query", func(t *testing.T) {
		b, h := newTestBot()
		b.dispatch(ctx, tgbotapi.Update{InlineQuery: &tgbotapi.InlineQuery{ID: "iq", Query: "game"}})
		require.Len(t, h.calls, 1)
		assert.Equal(t, "iq:game", h.calls[0].arg)
	})
}

func TestRun_StopsOnCancel(t *testing.T) {
	updates := make(chan tgbotapi.Update, 1)
	api := &fakeAPI{updates: updates}
	h := &fakeHandler{}
	b := &Bot{api: api, handler: h, intakeChatID: intakeID}

	updates <- tgbotapi.Update{InlineQuery: &tgbotapi.InlineQuery{ID: "iq", Query: "x"}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.calls) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, api.stopped)
}
