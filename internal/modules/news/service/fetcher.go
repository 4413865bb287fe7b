package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/mmcdole/gofeed"
	"github.com/reshetovitsme/folkomatic/internal/modules/news/domain"
	apperrors "github.com/reshetovitsme/folkomatic/internal/shared/errors"
	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	"github.com/reshetovitsme/folkomatic/internal/shared/scrape"
	"github.com/samber/oops"
)

// ageGateForm is the birth date posted to the age-gate page.
var ageGateForm = url.Values{
	"month": {"4"},
	"day":   {"13"},
	"year":  {"1989"},
}

// Fetcher reads the news feed and attaches the first image of every entry page.
type Fetcher struct {
	feedURL    string
	ageGateURL string
	client     *http.Client
}

// NewFetcher creates a fetcher for the configured news feed. client may be nil.
func NewFetcher(cfg *config.Config, client *http.Client) *Fetcher {
	return &Fetcher{
		feedURL:    cfg.URL.NewsURL,
		ageGateURL: cfg.URL.AgeGateURL,
		client:     client,
	}
}

// Refresh returns one NewsItem per feed entry, in feed order, except the last
// entry of the document which is never delivered. Entries whose page or image
// cannot be read are logged and skipped.
func (f *Fetcher) Refresh(ctx context.Context) ([]domain.NewsItem, error) {
	session := scrape.NewSession(f.client)

	parser := gofeed.NewParser()
	parser.Client = session.Client()
	parser.UserAgent = scrape.UserAgent

	feed, err := parser.ParseURLWithContext(f.feedURL, ctx)
	if err != nil {
		return nil, oops.With("feed_url", f.feedURL).Wrap(errors.Join(apperrors.ErrFetch, err))
	}

	items := []domain.NewsItem{}
	if len(feed.Items) < 2 {
		return items, nil
	}

	if err := f.passAgeGate(ctx, session); err != nil {
		return nil, err
	}

	for _, entry := range feed.Items[:len(feed.Items)-1] {
		img, err := imageFromPage(ctx, session, entry.Link)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("Skipping news entry", "title", entry.Title, "link", entry.Link, "error", err)
			continue
		}

		items = append(items, domain.NewsItem{
			Title:    entry.Title,
			Link:     entry.Link,
			Summary:  entry.Description,
			ImageURL: img,
		})
	}

	slog.Debug("News feed refreshed", "feed_url", f.feedURL, "entries", len(feed.Items), "items", len(items))
	return items, nil
}

// passAgeGate confirms the age gate once so that the session cookie opens
// every entry page of the batch.
func (f *Fetcher) passAgeGate(ctx context.Context, session *scrape.Session) error {
	if f.ageGateURL == "" {
		return nil
	}

	resp, err := session.Get(ctx, f.ageGateURL)
	if err != nil {
		return oops.With("age_gate_url", f.ageGateURL).Wrap(err)
	}
	resp.Body.Close()

	resp, err = session.PostForm(ctx, resp.Request.URL.String(), ageGateForm)
	if err != nil {
		return oops.With("age_gate_url", f.ageGateURL).Wrap(err)
	}
	resp.Body.Close()
	return nil
}

func imageFromPage(ctx context.Context, session *scrape.Session, link string) (string, error) {
	doc, err := session.Document(ctx, link)
	if err != nil {
		return "", errors.Join(apperrors.ErrPage, err)
	}

	src, ok := doc.Find("img").First().Attr("src")
	if !ok {
		return "", oops.With("link", link).Wrapf(apperrors.ErrPage, "no image on page")
	}

	img, err := scrape.Resolve(doc.Url, src)
	if err != nil {
		return "", oops.With("link", link, "src", src).Wrap(errors.Join(apperrors.ErrPage, err))
	}
	return img, nil
}
