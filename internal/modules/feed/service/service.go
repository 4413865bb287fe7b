package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/feeds"
	"github.com/reshetovitsme/folkomatic/internal/modules/feed/domain"
	newsDomain "github.com/reshetovitsme/folkomatic/internal/modules/news/domain"
	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// FeedSize is the number of delivered items re-published
const FeedSize = 50

// Lister returns the most recently delivered news items, newest first.
type Lister interface {
	List(ctx context.Context, limit int) ([]newsDomain.NewsItem, error)
}

// Service handles RSS feed generation
type Service struct {
	repo Lister
	meta domain.Meta
	now  func() time.Time
}

// New creates a new feed service
func New(cfg *config.Config, repo Lister) *Service {
	return &Service{
		repo: repo,
		meta: domain.Meta{
			Title:       fmt.Sprintf("%s - delivered news", cfg.Database.Table),
			Description: "News already posted to " + cfg.Chat.NewsChannel,
			Author:      "folkomatic",
		},
		now: time.Now,
	}
}

// GenerateFeed builds an RSS feed of the delivered news
func (s *Service) GenerateFeed(ctx context.Context, baseURL string) (*feeds.Feed, error) {
	items, err := s.repo.List(ctx, FeedSize)
	if err != nil {
		return nil, oops.With("context", "failed to list delivered news").Wrap(err)
	}

	feed := &feeds.Feed{
		Title:       s.meta.Title,
		Link:        &feeds.Link{Href: baseURL + "/rss"},
		Description: s.meta.Description,
		Author:      &feeds.Author{Name: s.meta.Author},
		Created:     s.now(),
	}
	feed.Items = lo.Map(items, func(item newsDomain.NewsItem, _ int) *feeds.Item {
		return toFeedItem(item)
	})
	return feed, nil
}

func toFeedItem(item newsDomain.NewsItem) *feeds.Item {
	content := item.Summary
	if item.ImageURL != "" {
		content = fmt.Sprintf(`<p><img src="%s"/></p>`, html.EscapeString(item.ImageURL)) + content
	}

	feedItem := &feeds.Item{
		Title:       item.Title,
		Link:        &feeds.Link{Href: item.Link},
		Description: plainText(item.Summary),
		Content:     content,
		Id:          item.Link,
	}
	if item.ImageURL != "" {
		feedItem.Enclosure = &feeds.Enclosure{Url: item.ImageURL, Type: "image/jpeg", Length: "0"}
	}
	return feedItem
}

func plainText(summary string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(summary))
	if err != nil {
		return summary
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
