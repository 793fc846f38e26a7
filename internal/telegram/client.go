// Package telegram adapts the Bot API to the catalog's collaborators.
//
// Client is the outbound side: it publishes directory messages, answers
// users and looks up group membership. Bot is the inbound side: it long-polls
// updates and routes them to the engine.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/dyluth/vinehill/internal/access"
	"github.com/dyluth/vinehill/internal/catalog"
	"github.com/dyluth/vinehill/internal/engine"
	"github.com/dyluth/vinehill/internal/publisher"
)

// botAPI is the subset of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client sends every outbound call through one shared rate limiter.
// It implements publisher.Transport, access.MembershipChecker and engine.Responder.
type Client struct {
	api     botAPI
	limiter *rate.Limiter
}

var (
	_ publisher.Transport      = (*Client)(nil)
	_ access.MembershipChecker = (*Client)(nil)
	_ engine.Responder         = (*Client)(nil)
)

// NewClient logs in with token and throttles outbound calls to requestsPerSecond.
// It also returns the bot's @username as reported by Telegram.
func NewClient(token string, requestsPerSecond float64) (*Client, string, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create bot API: %w", err)
	}
	return newClient(api, requestsPerSecond), api.Self.UserName, nil
}

func newClient(api botAPI, requestsPerSecond float64) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	burst := int(math.Ceil(requestsPerSecond))
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// CreateMessage posts an HTML message and returns its id.
func (c *Client) CreateMessage(ctx context.Context, channelID int64, text string) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(channelID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, mapError(err)
	}
	return sent.MessageID, nil
}

// EditMessage replaces the text of an existing message. Telegram rejects
// edits that change nothing; those count as success.
func (c *Client) EditMessage(ctx context.Context, channelID int64, messageID int, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(channelID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true

	if _, err := c.api.Request(edit); err != nil {
		if isNotModified(err) {
			return nil
		}
		return mapError(err)
	}
	return nil
}

// MemberStatus reports userID's status in groupID.
func (c *Client) MemberStatus(ctx context.Context, groupID, userID int64) (access.Status, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: groupID, UserID: userID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get membership in %d: %w", groupID, mapError(err))
	}
	return mapStatus(member.Status)
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	return c.send(ctx, tgbotapi.NewMessage(chatID, text))
}

// SendHTML sends an HTML formatted message without link previews.
func (c *Client) SendHTML(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return c.send(ctx, msg)
}

// SendDocument re-sends a stored file by its file id.
func (c *Client) SendDocument(ctx context.Context, chatID int64, ref catalog.FileRef, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(ref))
	doc.Caption = caption
	return c.send(ctx, doc)
}

// AnswerInline answers an inline query. Results are personal and not cached
// so new uploads show up immediately.
func (c *Client) AnswerInline(ctx context.Context, queryID string, results []engine.InlineResult) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	articles := make([]interface{}, 0, len(results))
	for _, r := range results {
		articles = append(articles, inlineArticle(r))
	}

	_, err := c.api.Request(tgbotapi.InlineConfig{
		InlineQueryID: queryID,
		Results:       articles,
		CacheTime:     0,
		IsPersonal:    true,
	})
	return mapError(err)
}

func (c *Client) send(ctx context.Context, msg tgbotapi.Chattable) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.api.Send(msg)
	return mapError(err)
}

func inlineArticle(r engine.InlineResult) tgbotapi.InlineQueryResultArticle {
	if r.URL == "" {
		return tgbotapi.NewInlineQueryResultArticle(r.ID, r.Title, r.Title)
	}
	body := fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(r.URL), html.EscapeString(r.Title))
	article := tgbotapi.NewInlineQueryResultArticleHTML(r.ID, r.Title, body)
	article.URL = r.URL
	return article
}

// mapError turns flood-wait responses into *publisher.RateLimitError.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if apiErr, ok := asAPIError(err); ok && apiErr.RetryAfter > 0 {
		return fmt.Errorf("telegram flood wait: %w", &publisher.RateLimitError{RetryAfter: apiErr.RetryAfter})
	}
	return err
}

func isNotModified(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && strings.Contains(apiErr.Message, "message is not modified")
}

func asAPIError(err error) (tgbotapi.Error, bool) {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return val, true
	}
	return tgbotapi.Error{}, false
}

func mapStatus(status string) (access.Status, error) {
	switch status {
	case "creator":
		return access.StatusOwner, nil
	case "administrator":
		return access.StatusAdministrator, nil
	case "member":
		return access.StatusMember, nil
	case "restricted":
		return access.StatusRestricted, nil
	case "left":
		return access.StatusLeft, nil
	case "kicked":
		return access.StatusBanned, nil
	}
	return "", fmt.Errorf("unknown chat member status %q", status)
}
