package service

import (
	"testing"

	"github.com/reshetovitsme/folkomatic/internal/modules/news/domain"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	msg := Format(domain.NewsItem{
		Title:   "Update 41 & more",
		Link:    "https://example.com/news?id=1&x=2",
		Summary: "<p>New <b>dungeons</b>\n are   here.</p>",
	})

	assert.True(t, msg.HTML)
	assert.Equal(t,
		"<b>Update 41 &amp; more</b>\nhttps://example.com/news?id=1&amp;x=2\nNew dungeons are here.",
		msg.Text)
}

func TestFormat_PlainSummary(t *testing.T) {
	msg := Format(domain.NewsItem{Title: "T", Link: "L", Summary: "just text"})

	assert.Equal(t, "<b>T</b>\nL\njust text", msg.Text)
}
