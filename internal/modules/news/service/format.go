package service

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/reshetovitsme/folkomatic/internal/modules/news/domain"
	"github.com/reshetovitsme/folkomatic/internal/transport/chat"
)

// Format renders a news item as the chat post that follows its picture:
// bold title, link, then the summary as plain text.
func Format(item domain.NewsItem) chat.Message {
	text := "<b>" + html.EscapeString(item.Title) + "</b>\n" +
		html.EscapeString(item.Link) + "\n" +
		html.EscapeString(plainText(item.Summary))
	return chat.Message{Text: text, HTML: true}
}

// plainText drops the markup feed summaries usually carry.
func plainText(summary string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(summary))
	if err != nil {
		return strings.TrimSpace(summary)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
