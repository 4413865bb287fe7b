package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/reshetovitsme/folkomatic/internal/modules/pledge/domain"
	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	"github.com/reshetovitsme/folkomatic/internal/shared/errors"
	"github.com/reshetovitsme/folkomatic/internal/shared/scrape"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const tableSelector = "table.score_table"

// The leaderboard keeps today's pledges at fixed offsets of its score table.
const (
	headerFrom, headerTo = 2, 5
	cellFrom, cellTo     = 5, 8
)

type Service struct {
	url    string
	client *http.Client
}

func New(cfg *config.Config, client *http.Client) *Service {
	return &Service{url: cfg.URL.PledgeURL, client: client}
}

// Summary fetches the leaderboard and formats it for the chat.
func (s *Service) Summary(ctx context.Context) (string, error) {
	doc, err := scrape.NewSession(s.client).Document(ctx, s.url)
	if err != nil {
		return "", oops.With("pledge_url", s.url).Wrap(err)
	}

	board, err := Parse(doc)
	if err != nil {
		return "", oops.With("pledge_url", s.url).Wrap(err)
	}
	return Format(board), nil
}

// Parse extracts today's pledges from the score table.
func Parse(doc *goquery.Document) (domain.Board, error) {
	table := doc.Find(tableSelector).First()
	headers := scrape.Text(table.Find("th"))
	cells := scrape.Text(table.Find("td"))

	if len(headers) < headerTo || len(cells) < cellTo {
		return domain.Board{}, oops.
			With("headers", len(headers), "cells", len(cells)).
			Wrapf(errors.ErrFetch, "unexpected leaderboard layout")
	}

	labels := headers[headerFrom:headerTo]
	entries := lo.Map(cells[cellFrom:cellTo], func(value string, i int) domain.PledgeEntry {
		return domain.PledgeEntry{Label: labels[i], Value: value}
	})

	return domain.Board{Entries: entries, Next: headers[len(headers)-1]}, nil
}

func Format(board domain.Board) string {
	var b strings.Builder
	for _, e := range board.Entries {
		b.WriteString(":small_blue_diamond: " + e.Label + ": " + e.Value + "\n")
	}
	b.WriteString("\n:exclamation:" + board.Next + ":exclamation:")
	return b.String()
}
