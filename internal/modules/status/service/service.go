package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/reshetovitsme/folkomatic/internal/modules/status/domain"
	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	"github.com/reshetovitsme/folkomatic/internal/shared/errors"
	"github.com/reshetovitsme/folkomatic/internal/shared/scrape"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const (
	DefaultHeader = "Статус серверов:"

	TokenOnline  = ":white_check_mark:"
	TokenOffline = ":x:"
	TokenTools   = ":tools:"
)

// Selectors locate the parts of the status page.
type Selectors struct {
	Name  string
	State string
	// Announcement is matched against every element of this kind; the one at
	// AnnouncementIndex holds the maintenance text.
	Announcement      string
	AnnouncementIndex int
}

var DefaultSelectors = Selectors{
	Name:              "h4",
	State:             "span",
	Announcement:      "h3",
	AnnouncementIndex: 1,
}

// announcementNoise maps fragments of the maintenance banner to their replacement.
var announcementNoise = strings.NewReplacer(
	"\t", "",
	"\r", "",
	"Maintenance is ongoing", "",
	"·", TokenTools,
	" \u0096", ".",
	" –", ".",
)

// Service checks the server status page.
type Service struct {
	url       string
	client    *http.Client
	selectors Selectors
}

func New(cfg *config.Config, client *http.Client) *Service {
	return &Service{
		url:       cfg.URL.StatusURL,
		client:    client,
		selectors: DefaultSelectors,
	}
}

// Check fetches the status page and returns the formatted report.
func (s *Service) Check(ctx context.Context) (string, error) {
	report, err := s.Fetch(ctx)
	if err != nil {
		return "", err
	}
	return Format(report), nil
}

// Fetch fetches and parses the status page.
func (s *Service) Fetch(ctx context.Context) (domain.Report, error) {
	doc, err := scrape.NewSession(s.client).Document(ctx, s.url)
	if err != nil {
		return domain.Report{}, oops.With("status_url", s.url).Wrap(err)
	}
	return Parse(doc, s.selectors)
}

// Parse pairs every server name with the state element at the same position.
// State elements beyond the last name get no line of their own but still
// count when deciding whether the maintenance banner is shown. Fewer states
// than names means the page layout changed and is reported as a fetch error.
func Parse(doc *goquery.Document, sel Selectors) (domain.Report, error) {
	names := scrape.Text(doc.Find(sel.Name))
	states := scrape.Text(doc.Find(sel.State))
	if len(states) < len(names) {
		return domain.Report{}, oops.
			With("names", len(names), "states", len(states)).
			Wrapf(errors.ErrFetch, "status page has fewer states than servers")
	}

	report := domain.Report{
		Servers: lo.Map(names, func(name string, i int) domain.ServerStatus {
			return domain.ServerStatus{
				Name:   name,
				State:  states[i],
				Online: states[i] == domain.StateOnline,
			}
		}),
	}

	// Any Offline element on the page raises the banner, paired or not.
	if lo.Contains(states, domain.StateOffline) {
		announcements := scrape.Text(doc.Find(sel.Announcement))
		if sel.AnnouncementIndex < len(announcements) {
			report.Maintenance = CleanAnnouncement(announcements[sel.AnnouncementIndex])
		}
	}
	return report, nil
}

// CleanAnnouncement strips the banner boilerplate and swaps glyphs for tokens.
func CleanAnnouncement(text string) string {
	return strings.TrimSpace(announcementNoise.Replace(text))
}

// Format renders the header line followed by one line per server.
func Format(report domain.Report) string {
	var b strings.Builder

	header := DefaultHeader
	if report.Maintenance != "" {
		header = report.Maintenance
	}
	b.WriteString(header)
	b.WriteString("\n")

	for _, server := range report.Servers {
		token := TokenOffline
		if server.Online {
			token = TokenOnline
		}
		b.WriteString(token + " " + server.Name + "\n")
	}
	return b.String()
}
