package service

import (
	"context"
	"log/slog"

	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	"github.com/reshetovitsme/folkomatic/internal/transport/chat"
	"github.com/samber/oops"
)

const ErrorNotice = "Error while checking server status"

// Checker produces a formatted status report.
type Checker interface {
	Check(ctx context.Context) (string, error)
}

// Reporter keeps the pinned status message up to date.
type Reporter struct {
	checker   Checker
	channel   string
	messageID int
}

func NewReporter(cfg *config.Config, checker Checker) *Reporter {
	return &Reporter{
		checker:   checker,
		channel:   cfg.Chat.StatusChannel,
		messageID: cfg.Chat.StatusMessageID,
	}
}

// Report checks the status page and edits the pinned message. With post set
// the report is also sent as a new message. Any failure is logged and
// announced in the status channel before being returned.
func (r *Reporter) Report(ctx context.Context, client chat.Client, post bool) error {
	err := r.report(ctx, client, post)
	if err == nil {
		return nil
	}

	slog.Error("Error while checking server status", "channel", r.channel, "error", err)
	if _, sendErr := client.SendText(ctx, r.channel, chat.Message{Text: ErrorNotice}); sendErr != nil {
		slog.Error("Failed to send status error notice", "channel", r.channel, "error", sendErr)
	}
	return err
}

func (r *Reporter) report(ctx context.Context, client chat.Client, post bool) error {
	pinned, err := r.pinnedID(ctx, client)
	if err != nil {
		return err
	}

	text, err := r.checker.Check(ctx)
	if err != nil {
		return err
	}

	msg := chat.Message{Text: text}
	if post {
		if _, err := client.SendText(ctx, r.channel, msg); err != nil {
			return err
		}
	}
	return client.EditText(ctx, r.channel, pinned, msg)
}

func (r *Reporter) pinnedID(ctx context.Context, client chat.Client) (int, error) {
	if r.messageID != 0 {
		return r.messageID, nil
	}
	id, err := client.PinnedMessageID(ctx, r.channel)
	if err != nil {
		return 0, oops.With("channel", r.channel, "context", "no status message configured or pinned").Wrap(err)
	}
	return id, nil
}
