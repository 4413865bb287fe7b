package telegram

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	"github.com/reshetovitsme/folkomatic/internal/transport/chat"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

// Connector logs the bot in and wires the command handler to the session.
type Connector struct {
	cfg     *config.Config
	handler *Handler
	limiter *rate.Limiter
}

var _ chat.Connector = (*Connector)(nil)

func NewConnector(cfg *config.Config, handler *Handler, limiter *rate.Limiter) *Connector {
	return &Connector{cfg: cfg, handler: handler, limiter: limiter}
}

// Connect authenticates with the bot token and returns a session whose
// Listen dispatches the chat commands.
func (c *Connector) Connect(ctx context.Context) (chat.Conn, error) {
	opts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			slog.Debug("Update ignored", "update_id", update.ID)
		}),
		bot.WithErrorsHandler(func(err error) {
			slog.Error("Telegram polling error", "error", err)
		}),
	}
	if c.cfg.Chat.APIURL != "" {
		opts = append(opts, bot.WithServerURL(c.cfg.Chat.APIURL))
	}

	b, err := bot.New(c.cfg.Chat.BotToken, opts...)
	if err != nil {
		return nil, oops.
			With("context", "failed to create telegram bot").
			Hint("check chat.bot_token").
			Wrap(err)
	}
	client := NewClient(b, c.limiter)

	b.RegisterHandlerMatchFunc(c.handler.Match, func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		if in, ok := incoming(update); ok {
			c.handler.Dispatch(ctx, client, in)
		}
	})

	return client, nil
}
