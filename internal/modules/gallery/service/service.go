package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/reshetovitsme/folkomatic/internal/modules/gallery/domain"
	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	"github.com/reshetovitsme/folkomatic/internal/shared/errors"
	"github.com/reshetovitsme/folkomatic/internal/shared/scrape"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const (
	entrySelector = "span[data-super-full-img]"
	imageAttr     = "data-super-full-img"
	captionAttr   = "data-super-alt"

	// Listing pages hold 24 entries; offsets stop before 2400.
	pageSize  = 24
	maxOffset = 2400
)

type Service struct {
	pages  []string
	client *http.Client
}

func New(cfg *config.Config, client *http.Client) *Service {
	return &Service{pages: cfg.URL.GalleryURLs, client: client}
}

// Random picks a random listing page at a random offset, then a random entry
// on it, and downloads the picture.
func (s *Service) Random(ctx context.Context) (domain.Picture, error) {
	if len(s.pages) == 0 {
		return domain.Picture{}, oops.Errorf("no gallery pages configured")
	}

	page := lo.Sample(s.pages)
	if strings.Contains(page, "%d") {
		page = fmt.Sprintf(page, lo.Sample(lo.RangeWithSteps(0, maxOffset, pageSize)))
	}

	session := scrape.NewSession(s.client)
	doc, err := session.Document(ctx, page)
	if err != nil {
		return domain.Picture{}, oops.With("page", page).Wrap(err)
	}

	candidates := Candidates(doc)
	if len(candidates) == 0 {
		return domain.Picture{}, oops.With("page", page).Wrapf(errors.ErrFetch, "no pictures on page")
	}

	picture := lo.Sample(candidates)
	picture.Data, err = session.Bytes(ctx, picture.URL)
	if err != nil {
		return domain.Picture{}, oops.With("picture", picture.URL).Wrap(err)
	}
	return picture, nil
}

// Candidates lists every picture entry of a listing page.
func Candidates(doc *goquery.Document) []domain.Picture {
	var pictures []domain.Picture
	doc.Find(entrySelector).Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr(imageAttr)
		full, err := scrape.Resolve(doc.Url, src)
		if err != nil {
			return
		}
		caption, _ := s.Attr(captionAttr)
		pictures = append(pictures, domain.Picture{
			Caption:  strings.TrimSpace(caption),
			URL:      full,
			Filename: filename(full),
		})
	})
	return pictures
}

func filename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "picture.jpg"
	}
	if name := path.Base(u.Path); name != "/" && name != "." {
		return name
	}
	return "picture.jpg"
}
