package service

import (
	"context"
	"errors"
	"testing"

	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	"github.com/reshetovitsme/folkomatic/internal/transport/chat/chattest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	text string
	err  error
}

func (s stubChecker) Check(ctx context.Context) (string, error) { return s.text, s.err }

func reporterConfig(messageID int) *config.Config {
	cfg := &config.Config{}
	cfg.Chat.StatusChannel = "-100333"
	cfg.Chat.StatusMessageID = messageID
	return cfg
}

// TestReport_EditOnly verifies the loop mode edits without posting
func TestReport_EditOnly(t *testing.T) {
	client := chattest.New()
	r := NewReporter(reporterConfig(42), stubChecker{text: "report"})

	require.NoError(t, r.Report(context.Background(), client, false))

	posts := client.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, "edit", posts[0].Kind)
	assert.Equal(t, 42, posts[0].MessageID)
	assert.Equal(t, "report", posts[0].Text)
}

// TestReport_PostAndEdit verifies the command mode posts then edits
func TestReport_PostAndEdit(t *testing.T) {
	client := chattest.New()
	r := NewReporter(reporterConfig(42), stubChecker{text: "report"})

	require.NoError(t, r.Report(context.Background(), client, true))

	posts := client.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, "text", posts[0].Kind)
	assert.Equal(t, "-100333", posts[0].Channel)
	assert.Equal(t, "edit", posts[1].Kind)
}

// TestReport_PinnedFallback verifies the pinned message is used when no id is configured
func TestReport_PinnedFallback(t *testing.T) {
	client := chattest.New()
	client.Pinned = 7
	r := NewReporter(reporterConfig(0), stubChecker{text: "report"})

	require.NoError(t, r.Report(context.Background(), client, false))

	edits := client.Kinds("edit")
	require.Len(t, edits, 1)
	assert.Equal(t, 7, edits[0].MessageID)
}

// TestReport_FailureSendsNotice verifies errors become a visible notice
func TestReport_FailureSendsNotice(t *testing.T) {
	client := chattest.New()
	r := NewReporter(reporterConfig(42), stubChecker{err: errors.New("down")})

	err := r.Report(context.Background(), client, false)
	require.Error(t, err)

	posts := client.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, "text", posts[0].Kind)
	assert.Equal(t, ErrorNotice, posts[0].Text)
}
