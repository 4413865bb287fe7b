package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
	galleryDomain "github.com/reshetovitsme/folkomatic/internal/modules/gallery/domain"
	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	"github.com/reshetovitsme/folkomatic/internal/transport/chat"
)

const (
	CommandCosplay = "!хочу косплей"
	CommandStatus  = "!статус"
	CommandPledges = "!обеты"

	cosplayPlaceholder = "Подожди секунду %s, сейчас найдем что-нибудь для тебя..."
	failureText        = "Что-то пошло не так..."
)

type Gallery interface {
	Random(ctx context.Context) (galleryDomain.Picture, error)
}

type StatusReporter interface {
	Report(ctx context.Context, client chat.Client, post bool) error
}

type Pledges interface {
	Summary(ctx context.Context) (string, error)
}

// Incoming is an inbound text message reduced to what commands need.
type Incoming struct {
	ChatID       int64
	ChatUsername string
	Text         string
	Author       string
}

// Command binds an exact, case-insensitive trigger to one channel.
type Command struct {
	Trigger string
	Channel string
	Run     func(ctx context.Context, client chat.Client, in Incoming)
}

// Matches reports whether in is this command posted in its channel.
func (c Command) Matches(in Incoming) bool {
	if strings.ToLower(strings.TrimSpace(in.Text)) != c.Trigger {
		return false
	}
	return sameChat(c.Channel, in)
}

// Handler serves the chat commands.
type Handler struct {
	cfg      *config.Config
	gallery  Gallery
	reporter StatusReporter
	pledges  Pledges
}

// New creates a new command handler
func New(cfg *config.Config, gallery Gallery, reporter StatusReporter, pledges Pledges) *Handler {
	return &Handler{
		cfg:      cfg,
		gallery:  gallery,
		reporter: reporter,
		pledges:  pledges,
	}
}

// Commands lists the supported commands with the channel each one is
// accepted in.
func (h *Handler) Commands() []Command {
	return []Command{
		{Trigger: CommandCosplay, Channel: h.cfg.Chat.GalleryChannel, Run: h.handleCosplay},
		{Trigger: CommandStatus, Channel: h.cfg.Chat.StatusChannel, Run: h.handleStatus},
		{Trigger: CommandPledges, Channel: h.cfg.Chat.StatusChannel, Run: h.handlePledges},
	}
}

// Match reports whether update carries one of the commands.
func (h *Handler) Match(update *models.Update) bool {
	in, ok := incoming(update)
	if !ok {
		return false
	}
	for _, cmd := range h.Commands() {
		if cmd.Matches(in) {
			return true
		}
	}
	return false
}

// Dispatch runs the first command matching in. It reports whether one ran.
func (h *Handler) Dispatch(ctx context.Context, client chat.Client, in Incoming) bool {
	for _, cmd := range h.Commands() {
		if cmd.Matches(in) {
			slog.Info("Command received", "command", cmd.Trigger, "chat_id", in.ChatID, "author", in.Author)
			cmd.Run(ctx, client, in)
			return true
		}
	}
	return false
}

func (h *Handler) handleCosplay(ctx context.Context, client chat.Client, in Incoming) {
	channel := h.cfg.Chat.GalleryChannel

	placeholder, err := client.SendText(ctx, channel, chat.Message{Text: fmt.Sprintf(cosplayPlaceholder, in.Author)})
	if err != nil {
		slog.Error("Failed to send placeholder", "error", err, "channel", channel)
		return
	}

	caption, err := h.sendPicture(ctx, client, channel)
	if err != nil {
		slog.Error("Failed to send gallery picture", "error", err, "channel", channel)
		caption = failureText
	}

	if err := client.EditText(ctx, channel, placeholder, chat.Message{Text: caption}); err != nil {
		slog.Error("Failed to edit placeholder", "error", err, "channel", channel, "message_id", placeholder)
	}
}

func (h *Handler) sendPicture(ctx context.Context, client chat.Client, channel string) (string, error) {
	picture, err := h.gallery.Random(ctx)
	if err != nil {
		return "", err
	}
	if _, err := client.SendImage(ctx, channel, picture.Filename, picture.Data); err != nil {
		return "", err
	}
	return picture.Caption, nil
}

func (h *Handler) handleStatus(ctx context.Context, client chat.Client, in Incoming) {
	// Failures are already logged and announced by the reporter.
	_ = h.reporter.Report(ctx, client, true)
}

func (h *Handler) handlePledges(ctx context.Context, client chat.Client, in Incoming) {
	channel := h.cfg.Chat.StatusChannel

	text, err := h.pledges.Summary(ctx)
	if err != nil {
		slog.Error("Failed to read pledges", "error", err)
		text = failureText
	}

	if _, err := client.SendText(ctx, channel, chat.Message{Text: text}); err != nil {
		slog.Error("Failed to send pledges", "error", err, "channel", channel)
	}
}

// incoming extracts the text message from an update; channels deliver
// posts as ChannelPost, groups as Message.
func incoming(update *models.Update) (Incoming, bool) {
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || msg.Text == "" {
		return Incoming{}, false
	}
	return Incoming{
		ChatID:       msg.Chat.ID,
		ChatUsername: msg.Chat.Username,
		Text:         msg.Text,
		Author:       authorName(msg),
	}, true
}

func authorName(msg *models.Message) string {
	if msg.From != nil {
		if msg.From.Username != "" {
			return "@" + msg.From.Username
		}
		if msg.From.FirstName != "" {
			return msg.From.FirstName
		}
	}
	if msg.AuthorSignature != "" {
		return msg.AuthorSignature
	}
	if msg.SenderChat != nil && msg.SenderChat.Title != "" {
		return msg.SenderChat.Title
	}
	return "Unknown"
}

// sameChat compares a configured channel reference with the chat of in.
func sameChat(channel string, in Incoming) bool {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return false
	}
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return id == in.ChatID
	}
	return in.ChatUsername != "" && strings.EqualFold(strings.TrimPrefix(channel, "@"), in.ChatUsername)
}
