package telegram

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	apperrors "github.com/reshetovitsme/folkomatic/internal/shared/errors"
	"github.com/reshetovitsme/folkomatic/internal/transport/chat"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

// Client adapts a Telegram bot session to chat.Conn. Every outbound call
// waits on the shared limiter first.
type Client struct {
	b       *bot.Bot
	limiter *rate.Limiter
}

var _ chat.Conn = (*Client)(nil)

func NewClient(b *bot.Bot, limiter *rate.Limiter) *Client {
	return &Client{b: b, limiter: limiter}
}

// ChatID turns a configured channel reference into a Telegram chat id:
// numeric ids become int64, anything else (e.g. @channel) is kept as is.
func ChatID(channel string) any {
	channel = strings.TrimSpace(channel)
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return id
	}
	return channel
}

func (c *Client) Me(ctx context.Context) (string, error) {
	me, err := c.b.GetMe(ctx)
	if err != nil {
		return "", oops.With("method", "getMe").Wrap(err)
	}
	return me.Username, nil
}

func (c *Client) Channel(ctx context.Context, channel string) (chat.Channel, error) {
	info, err := c.chat(ctx, channel)
	if err != nil {
		return chat.Channel{}, err
	}
	return chat.Channel{ID: info.ID, Title: info.Title}, nil
}

func (c *Client) SendText(ctx context.Context, channel string, msg chat.Message) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	params := &bot.SendMessageParams{
		ChatID: ChatID(channel),
		Text:   msg.Text,
	}
	if msg.HTML {
		params.ParseMode = models.ParseModeHTML
	}

	sent, err := c.b.SendMessage(ctx, params)
	if err != nil {
		return 0, deliveryError("sendMessage", channel, err)
	}
	return sent.ID, nil
}

func (c *Client) SendImage(ctx context.Context, channel, filename string, data []byte) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	sent, err := c.b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: ChatID(channel),
		Photo: &models.InputFileUpload{
			Filename: filename,
			Data:     bytes.NewReader(data),
		},
	})
	if err != nil {
		return 0, deliveryError("sendPhoto", channel, err)
	}
	return sent.ID, nil
}

func (c *Client) EditText(ctx context.Context, channel string, messageID int, msg chat.Message) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	params := &bot.EditMessageTextParams{
		ChatID:    ChatID(channel),
		MessageID: messageID,
		Text:      msg.Text,
	}
	if msg.HTML {
		params.ParseMode = models.ParseModeHTML
	}

	if _, err := c.b.EditMessageText(ctx, params); err != nil {
		return oops.With("message_id", messageID).Wrap(deliveryError("editMessageText", channel, err))
	}
	return nil
}

func (c *Client) PinnedMessageID(ctx context.Context, channel string) (int, error) {
	info, err := c.chat(ctx, channel)
	if err != nil {
		return 0, err
	}
	if info.PinnedMessage == nil {
		return 0, oops.With("channel", channel).Errorf("channel has no pinned message")
	}
	return info.PinnedMessage.ID, nil
}

// Listen long-polls updates and dispatches them to the registered handlers.
func (c *Client) Listen(ctx context.Context) {
	c.b.Start(ctx)
}

func (c *Client) chat(ctx context.Context, channel string) (*models.ChatFullInfo, error) {
	info, err := c.b.GetChat(ctx, &bot.GetChatParams{ChatID: ChatID(channel)})
	if err != nil {
		return nil, oops.
			With("channel", channel, "method", "getChat").
			Hint("make sure the bot is an administrator of the channel").
			Wrap(err)
	}
	return info, nil
}

func deliveryError(method, channel string, err error) error {
	return oops.With("method", method, "channel", channel).Wrap(errors.Join(apperrors.ErrDelivery, err))
}
